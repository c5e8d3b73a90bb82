// Package tokens provides client-side prompt-token estimation, used as a
// fallback when a provider omits or zeroes its own prompt-token count.
package tokens

import "github.com/llmrelay/llmrelay/internal/types"

// Estimator estimates the prompt token count of an outbound message list.
type Estimator interface {
	Estimate(messages []types.ChatMessage) int
}

// perMessageOverhead approximates the per-message framing tokens chat
// models charge in addition to content.
const perMessageOverhead = 4

// Heuristic approximates tokens as characters divided by four, which tracks
// English text closely enough for fallback accounting.
type Heuristic struct{}

// Estimate returns the approximate prompt token count for messages.
func (Heuristic) Estimate(messages []types.ChatMessage) int {
	if len(messages) == 0 {
		return 0
	}
	chars := 0
	for _, msg := range messages {
		chars += len(msg.Role)
		chars += contentChars(msg.Content)
		for _, tc := range msg.ToolCalls {
			chars += len(tc.Function.Name) + len(tc.Function.Arguments)
		}
	}
	return (chars+3)/4 + perMessageOverhead*len(messages)
}

func contentChars(content any) int {
	switch c := content.(type) {
	case string:
		return len(c)
	case []types.ContentPart:
		n := 0
		for _, part := range c {
			n += len(part.Text)
		}
		return n
	case []any:
		n := 0
		for _, raw := range c {
			if part, ok := raw.(map[string]any); ok {
				if text, ok := part["text"].(string); ok {
					n += len(text)
				}
			}
		}
		return n
	}
	return 0
}
