package normalize

import "github.com/llmrelay/llmrelay/internal/types"

// normalizeAnthropic maps one Anthropic Messages streaming event onto a
// canonical chunk. Events that carry no content become role-only keep-alive
// chunks so downstream consumers see a live stream.
func normalizeAnthropic(model string, data map[string]any) *types.ChatCompletionChunk {
	eventType := types.StringOr(data, "type")
	delta, _ := data["delta"].(map[string]any)

	switch {
	case eventType == "content_block_delta" && deltaThinking(delta) != "":
		return anthropicChunk(model, data, types.ChatDelta{
			Role:      "assistant",
			Reasoning: deltaThinking(delta),
		}, nil)

	case eventType == "content_block_delta" && deltaText(delta) != "":
		return anthropicChunk(model, data, types.ChatDelta{
			Role:    "assistant",
			Content: deltaText(delta),
		}, nil)

	case eventType == "content_block_start" && contentBlockType(data) == "tool_use":
		block, _ := data["content_block"].(map[string]any)
		return anthropicChunk(model, data, types.ChatDelta{
			Role: "assistant",
			ToolCalls: []types.ToolCall{{
				Index: types.IntFromAny(data["index"]),
				ID:    types.StringOr(block, "id"),
				Type:  "function",
				Function: types.FunctionCall{
					Name:      types.StringOr(block, "name"),
					Arguments: "",
				},
			}},
		}, nil)

	case eventType == "content_block_delta" && types.StringOr(delta, "partial_json") != "":
		return anthropicChunk(model, data, types.ChatDelta{
			Role: "assistant",
			ToolCalls: []types.ToolCall{{
				Index: types.IntFromAny(data["index"]),
				Function: types.FunctionCall{
					Arguments: types.StringOr(delta, "partial_json"),
				},
			}},
		}, nil)

	case eventType == "message_delta" && types.StringOr(delta, "stop_reason") != "":
		return anthropicChunk(model, data, types.ChatDelta{Role: "assistant"},
			anthropicFinish(types.StringOr(delta, "stop_reason")))

	case eventType == "message_stop" || types.StringOr(data, "stop_reason") != "":
		stopReason := types.StringOr(data, "stop_reason")
		if stopReason == "" {
			stopReason = "end_turn"
		}
		return anthropicChunk(model, data, types.ChatDelta{Role: "assistant"},
			anthropicFinish(stopReason))

	case deltaText(delta) != "":
		// Legacy events without a recognized type.
		return anthropicChunk(model, data, types.ChatDelta{
			Role:    "assistant",
			Content: deltaText(delta),
		}, nil)

	default:
		// message_start and friends keep the stream alive without content.
		return anthropicChunk(model, data, types.ChatDelta{Role: "assistant"}, nil)
	}
}

func anthropicChunk(model string, data map[string]any, delta types.ChatDelta, finishReason *string) *types.ChatCompletionChunk {
	return &types.ChatCompletionChunk{
		ID:      chunkID(data),
		Object:  types.ObjectChunk,
		Created: chunkCreated(data),
		Model:   chunkModel(data, model),
		Choices: []types.ChatChunkChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finishReason,
		}},
		Usage: decodeUsage(data["usage"]),
	}
}

// anthropicFinish maps an Anthropic stop reason to the OpenAI wire
// vocabulary used inside canonical chunks.
func anthropicFinish(stopReason string) *string {
	switch stopReason {
	case "tool_use":
		return types.StringPtr("tool_calls")
	case "max_tokens":
		return types.StringPtr("length")
	default: // end_turn, stop_sequence and anything unrecognized
		return types.StringPtr("stop")
	}
}

func deltaText(delta map[string]any) string {
	return types.StringOr(delta, "text")
}

// deltaThinking returns the thinking text only for explicit thinking deltas.
func deltaThinking(delta map[string]any) string {
	if types.StringOr(delta, "type") != "thinking_delta" {
		return ""
	}
	return types.StringOr(delta, "thinking")
}

func contentBlockType(data map[string]any) string {
	block, _ := data["content_block"].(map[string]any)
	return types.StringOr(block, "type")
}
