package eventstream

import (
	"encoding/json"
	"strings"
)

// ToSSE converts the complete binary frames in buf into SSE-style text, one
// `data: <json>\n\n` record per frame, with the :event-type header copied
// into a synthetic __aws_event_type field. It returns the exact number of
// bytes consumed (the sum of every decoded frame's declared total length,
// including frames whose payload was not valid JSON) so the caller can
// retain unconsumed trailing bytes for the next network read.
func ToSSE(buf []byte) (string, int) {
	messages, consumed := Decode(buf)
	if len(messages) == 0 {
		return "", 0
	}

	var b strings.Builder
	for _, msg := range messages {
		var payload map[string]any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			// Invalid JSON payloads are silently droppable, not fatal.
			continue
		}
		payload["__aws_event_type"] = msg.Headers[":event-type"]
		data, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		b.WriteString("data: ")
		b.Write(data)
		b.WriteString("\n\n")
	}

	return b.String(), consumed
}
