// Package finishreason maps every provider's terminal status vocabulary
// onto one closed canonical enumeration.
package finishreason

import "github.com/llmrelay/llmrelay/internal/models"

// Reason is the canonical terminal status of a response stream.
type Reason string

const (
	Completed     Reason = "completed"
	LengthLimit   Reason = "length_limit"
	ContentFilter Reason = "content_filter"
	ToolCalls     Reason = "tool_calls"
	Canceled      Reason = "canceled"
	GatewayError  Reason = "gateway_error"
	UpstreamError Reason = "upstream_error"
	Unknown       Reason = "unknown"
)

// Unify maps a raw provider terminal value onto the canonical set. Gateway
// internal reasons are recognized regardless of provider; anything
// unrecognized maps to Unknown, never to an error.
func Unify(raw *string, family models.Family) Reason {
	if raw == nil {
		return Unknown
	}
	switch *raw {
	case "canceled":
		return Canceled
	case "gateway_error":
		return GatewayError
	case "upstream_error":
		return UpstreamError
	}

	switch family {
	case models.FamilyAnthropic:
		switch *raw {
		case "end_turn", "stop_sequence":
			return Completed
		case "max_tokens":
			return LengthLimit
		case "tool_use":
			return ToolCalls
		}
		return Unknown
	default:
		// OpenAI vocabulary. Google and Bedrock terminal values are already
		// pre-translated to this vocabulary by the chunk normalizer.
		switch *raw {
		case "stop":
			return Completed
		case "length":
			return LengthLimit
		case "content_filter":
			return ContentFilter
		case "tool_calls":
			return ToolCalls
		}
		return Unknown
	}
}
