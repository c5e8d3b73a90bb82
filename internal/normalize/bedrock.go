package normalize

import (
	"encoding/json"
	"time"

	"github.com/llmrelay/llmrelay/internal/types"
)

// normalizeBedrock maps one Bedrock Converse stream event. Events arrive as
// JSON payloads bridged out of the binary event-stream framing, tagged with
// an __aws_event_type field by the bridge. Unrecognized event types return
// nil (drop) — this family intentionally does not keep-alive, unlike the
// others, and callers must preserve the asymmetry.
//
// Bedrock tool-use deltas carry the full current input object each time
// rather than incremental JSON fragments; the assembler treats them as
// replace-not-append.
func normalizeBedrock(model string, data map[string]any) *types.ChatCompletionChunk {
	eventType := types.StringOr(data, "__aws_event_type")
	delta, _ := data["delta"].(map[string]any)

	switch {
	case eventType == "contentBlockDelta" && types.StringOr(delta, "text") != "":
		return bedrockChunk(model, types.ChatDelta{
			Role:    "assistant",
			Content: types.StringOr(delta, "text"),
		}, nil, nil)

	case eventType == "contentBlockDelta" && hasToolUse(delta):
		toolUse, _ := delta["toolUse"].(map[string]any)
		input := toolUse["input"]
		if input == nil {
			input = map[string]any{}
		}
		argsJSON, err := json.Marshal(input)
		if err != nil {
			argsJSON = []byte("{}")
		}
		return bedrockChunk(model, types.ChatDelta{
			Role: "assistant",
			ToolCalls: []types.ToolCall{{
				Index: types.IntFromAny(data["contentBlockIndex"]),
				ID:    types.StringOr(toolUse, "toolUseId"),
				Type:  "function",
				Function: types.FunctionCall{
					Name:      types.StringOr(toolUse, "name"),
					Arguments: string(argsJSON),
				},
			}},
		}, nil, nil)

	case eventType == "messageStart":
		return bedrockChunk(model, types.ChatDelta{Role: "assistant"}, nil, nil)

	case eventType == "messageStop":
		return bedrockChunk(model, types.ChatDelta{},
			bedrockFinish(types.StringOr(data, "stopReason")), nil)

	case eventType == "metadata":
		usage, _ := data["usage"].(map[string]any)
		if usage == nil {
			return nil
		}
		return bedrockChunk(model, types.ChatDelta{}, nil, &types.Usage{
			PromptTokens:     types.IntFromAny(usage["inputTokens"]),
			CompletionTokens: types.IntFromAny(usage["outputTokens"]),
			TotalTokens:      types.IntFromAny(usage["totalTokens"]),
		})

	default:
		// contentBlockStop and anything else: drop.
		return nil
	}
}

func bedrockChunk(model string, delta types.ChatDelta, finishReason *string, usage *types.Usage) *types.ChatCompletionChunk {
	return &types.ChatCompletionChunk{
		ID:      synthChunkID(),
		Object:  types.ObjectChunk,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.ChatChunkChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finishReason,
		}},
		Usage: usage,
	}
}

func bedrockFinish(stopReason string) *string {
	switch stopReason {
	case "max_tokens":
		return types.StringPtr("length")
	case "tool_use":
		return types.StringPtr("tool_calls")
	case "content_filtered":
		return types.StringPtr("content_filter")
	default:
		return types.StringPtr("stop")
	}
}

func hasToolUse(delta map[string]any) bool {
	_, ok := delta["toolUse"].(map[string]any)
	return ok
}
