package stream

import "encoding/json"

// Event represents a single SSE event from an upstream provider.
type Event struct {
	Type string
	Raw  json.RawMessage
	Data map[string]any
}
