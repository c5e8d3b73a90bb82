// Package eventstream parses the AWS event-stream binary framing used by
// Bedrock's Converse streaming transport and bridges it into SSE-style text
// lines so downstream processing can stay line-oriented.
//
// Each message:
//   - 4 bytes: total message length (big-endian uint32)
//   - 4 bytes: headers length (big-endian uint32)
//   - 4 bytes: prelude CRC (not verified)
//   - N bytes: headers (key-value pairs)
//   - M bytes: payload
//   - 4 bytes: message CRC (not verified)
package eventstream

import (
	"encoding/binary"
	"encoding/json"
)

const (
	preludeLen = 12
	// msgCRCLen is the trailing message CRC, excluded from the payload.
	msgCRCLen = 4
	// headerTypeString is the only supported header value type: a UTF-8
	// string prefixed by a 2-byte big-endian length.
	headerTypeString = 7
)

// Message is one decoded event-stream frame. It is consumed immediately by
// the bridge and not retained.
type Message struct {
	Headers map[string]string
	Payload []byte
}

// Decode parses the complete frames at the start of buf and returns them in
// order, together with the number of bytes they span. Bytes belonging to an
// incomplete trailing frame are never consumed, so the caller can retry once
// more bytes arrive.
func Decode(buf []byte) ([]Message, int) {
	var messages []Message
	offset := 0

	for {
		if offset+preludeLen > len(buf) {
			break
		}
		totalLength := int(binary.BigEndian.Uint32(buf[offset:]))
		headersLength := int(binary.BigEndian.Uint32(buf[offset+4:]))

		// A frame shorter than its own prelude and CRC is malformed; stop
		// rather than loop on a zero-length frame.
		if totalLength < preludeLen+msgCRCLen {
			break
		}
		if offset+totalLength > len(buf) {
			// Incomplete frame, wait for more bytes.
			break
		}

		headerStart := offset + preludeLen
		headerEnd := headerStart + headersLength
		payloadEnd := offset + totalLength - msgCRCLen
		if headerEnd > payloadEnd {
			break
		}

		messages = append(messages, Message{
			Headers: parseHeaders(buf[headerStart:headerEnd]),
			Payload: buf[headerEnd:payloadEnd],
		})
		offset += totalLength
	}

	return messages, offset
}

// parseHeaders reads `[1-byte name length][name][1-byte value type][value]`
// entries. An unsupported value type aborts header parsing for the message;
// payload extraction is unaffected because it depends only on the declared
// header-section length, so later headers are lost but the message survives.
func parseHeaders(block []byte) map[string]string {
	headers := map[string]string{}
	offset := 0

	for offset < len(block) {
		nameLength := int(block[offset])
		offset++
		if offset+nameLength > len(block) {
			break
		}
		name := string(block[offset : offset+nameLength])
		offset += nameLength

		if offset >= len(block) {
			break
		}
		valueType := block[offset]
		offset++
		if valueType != headerTypeString {
			break
		}

		if offset+2 > len(block) {
			break
		}
		valueLength := int(binary.BigEndian.Uint16(block[offset:]))
		offset += 2
		if offset+valueLength > len(block) {
			break
		}
		headers[name] = string(block[offset : offset+valueLength])
		offset += valueLength
	}

	return headers
}

// DecodeJSON decodes the complete frames in buf into their JSON payloads,
// each augmented with a synthetic __event_type field copied from the
// :event-type header. Frames whose payload is not valid JSON are dropped.
func DecodeJSON(buf []byte) []map[string]any {
	messages, _ := Decode(buf)
	var out []map[string]any
	for _, msg := range messages {
		var payload map[string]any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			continue
		}
		payload["__event_type"] = msg.Headers[":event-type"]
		out = append(out, payload)
	}
	return out
}
