package normalize

import (
	"time"

	"github.com/llmrelay/llmrelay/internal/types"
)

// normalizeOpenAI handles the vendor's event-based Responses API stream.
// Events not in that shape (no type field) fall back to the plain
// chat-completion chunk path. Unknown event types become role-only
// keep-alives rather than drops so downstream aggregation state machines
// never starve.
func normalizeOpenAI(model string, data map[string]any) *types.ChatCompletionChunk {
	eventType := types.StringOr(data, "type")
	if eventType == "" {
		return normalizeOpenAICompat(model, data)
	}

	switch eventType {
	case "response.created", "response.in_progress", "response.output_item.added":
		return responsesChunk(model, data, types.ChatDelta{Role: "assistant"}, nil, nil)

	case "response.reasoning_summary_part.added", "response.reasoning_summary_text.delta":
		return responsesChunk(model, data, types.ChatDelta{
			Role:      "assistant",
			Reasoning: eventText(data),
		}, nil, nil)

	case "response.content_part.added", "response.output_text.delta", "response.text.delta":
		return responsesChunk(model, data, types.ChatDelta{
			Role:    "assistant",
			Content: eventText(data),
		}, nil, nil)

	case "response.completed":
		return responsesChunk(model, data, types.ChatDelta{},
			types.StringPtr("stop"), responsesUsage(data))

	default:
		return responsesChunk(model, data, types.ChatDelta{Role: "assistant"}, nil, nil)
	}
}

func responsesChunk(model string, data map[string]any, delta types.ChatDelta, finishReason *string, usage *types.Usage) *types.ChatCompletionChunk {
	response, _ := data["response"].(map[string]any)
	id := types.StringOr(response, "id")
	if id == "" {
		id = synthChunkID()
	}
	created := types.Int64FromAny(response["created_at"])
	if created == 0 {
		created = time.Now().Unix()
	}
	return &types.ChatCompletionChunk{
		ID:      id,
		Object:  types.ObjectChunk,
		Created: created,
		Model:   chunkModel(response, model),
		Choices: []types.ChatChunkChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finishReason,
		}},
		Usage: usage,
	}
}

// eventText pulls the incremental text from a Responses API event, which
// arrives either as a bare delta string or inside part.text.
func eventText(data map[string]any) string {
	if delta, ok := data["delta"].(string); ok && delta != "" {
		return delta
	}
	part, _ := data["part"].(map[string]any)
	return types.StringOr(part, "text")
}

// responsesUsage maps Responses API usage (input/output vocabulary with
// nested details) onto the canonical chat-completion shape.
func responsesUsage(data map[string]any) *types.Usage {
	response, _ := data["response"].(map[string]any)
	usage, _ := response["usage"].(map[string]any)
	if usage == nil {
		return nil
	}
	u := &types.Usage{
		PromptTokens:     types.IntFromAny(usage["input_tokens"]),
		CompletionTokens: types.IntFromAny(usage["output_tokens"]),
		TotalTokens:      types.IntFromAny(usage["total_tokens"]),
	}
	if otd, ok := usage["output_tokens_details"].(map[string]any); ok {
		u.ReasoningTokens = types.IntFromAny(otd["reasoning_tokens"])
	}
	if itd, ok := usage["input_tokens_details"].(map[string]any); ok {
		if cached := types.IntFromAny(itd["cached_tokens"]); cached != 0 {
			u.PromptTokensDetails = &types.PromptTokensDetails{CachedTokens: cached}
		}
	}
	return u
}

// normalizeOpenAICompat normalizes chunks that already follow (or nearly
// follow) the OpenAI chat-completion shape, including providers like GLM/ZAI
// that stream reasoning under a reasoning_content key or omit the object
// field entirely.
func normalizeOpenAICompat(model string, data map[string]any) *types.ChatCompletionChunk {
	if choices, ok := data["choices"].([]any); ok {
		return &types.ChatCompletionChunk{
			ID:      chunkID(data),
			Object:  types.ObjectChunk,
			Created: chunkCreated(data),
			Model:   chunkModel(data, model),
			Choices: decodeChoices(choices, true),
			Usage:   decodeUsage(data["usage"]),
		}
	}

	if deltaMap, ok := data["delta"].(map[string]any); ok {
		var finishReason *string
		if fr := types.StringOr(data, "finish_reason"); fr != "" {
			finishReason = &fr
		}
		return &types.ChatCompletionChunk{
			ID:      chunkID(data),
			Object:  types.ObjectChunk,
			Created: chunkCreated(data),
			Model:   chunkModel(data, model),
			Choices: []types.ChatChunkChoice{{
				Index:        0,
				Delta:        decodeDelta(deltaMap, true),
				FinishReason: finishReason,
			}},
			Usage: decodeUsage(data["usage"]),
		}
	}

	if types.StringOr(data, "id") != "" && types.StringOr(data, "object") != "" {
		// Already canonical-looking: pass through without forcing fields.
		return &types.ChatCompletionChunk{
			ID:      types.StringOr(data, "id"),
			Object:  types.StringOr(data, "object"),
			Created: chunkCreated(data),
			Model:   chunkModel(data, model),
			Usage:   decodeUsage(data["usage"]),
		}
	}

	// Bare content/tool_calls object: wrap it in a synthesized chunk.
	delta := types.ChatDelta{
		Role:    "assistant",
		Content: types.StringOr(data, "content"),
	}
	if rawCalls, ok := data["tool_calls"].([]any); ok {
		delta.ToolCalls = decodeToolCalls(rawCalls)
	}
	var finishReason *string
	if fr := types.StringOr(data, "finish_reason"); fr != "" {
		finishReason = &fr
	}
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

// decodeChoices converts raw choice objects. defaultRole forces the
// canonical assistant role onto deltas that omit it.
func decodeChoices(raw []any, defaultRole bool) []types.ChatChunkChoice {
	choices := make([]types.ChatChunkChoice, 0, len(raw))
	for i, rc := range raw {
		choice, _ := rc.(map[string]any)
		if choice == nil {
			continue
		}
		index := i
		if _, ok := choice["index"]; ok {
			index = types.IntFromAny(choice["index"])
		}
		var finishReason *string
		if fr := types.StringOr(choice, "finish_reason"); fr != "" {
			finishReason = &fr
		}
		deltaMap, _ := choice["delta"].(map[string]any)
		choices = append(choices, types.ChatChunkChoice{
			Index:        index,
			Delta:        decodeDelta(deltaMap, defaultRole),
			FinishReason: finishReason,
		})
	}
	return choices
}

// decodeDelta converts a raw delta, renaming reasoning_content to the
// canonical reasoning key. The provider-specific key never survives
// normalization.
func decodeDelta(m map[string]any, defaultRole bool) types.ChatDelta {
	delta := types.ChatDelta{
		Role:      types.StringOr(m, "role"),
		Content:   types.StringOr(m, "content"),
		Reasoning: types.StringOr(m, "reasoning", "reasoning_content"),
	}
	if defaultRole && delta.Role == "" {
		delta.Role = "assistant"
	}
	if m == nil {
		return delta
	}
	if rawCalls, ok := m["tool_calls"].([]any); ok {
		delta.ToolCalls = decodeToolCalls(rawCalls)
	}
	if rawImages, ok := m["images"].([]any); ok {
		delta.Images = decodeImages(rawImages)
	}
	return delta
}

func decodeToolCalls(raw []any) []types.ToolCall {
	calls := make([]types.ToolCall, 0, len(raw))
	for i, rc := range raw {
		call, _ := rc.(map[string]any)
		if call == nil {
			continue
		}
		index := i
		if _, ok := call["index"]; ok {
			index = types.IntFromAny(call["index"])
		}
		fn, _ := call["function"].(map[string]any)
		calls = append(calls, types.ToolCall{
			Index: index,
			ID:    types.StringOr(call, "id"),
			Type:  types.StringOr(call, "type"),
			Function: types.FunctionCall{
				Name:      types.StringOr(fn, "name"),
				Arguments: types.StringOr(fn, "arguments"),
			},
		})
	}
	return calls
}

func decodeImages(raw []any) []types.ImageData {
	imgs := make([]types.ImageData, 0, len(raw))
	for _, ri := range raw {
		img, _ := ri.(map[string]any)
		if img == nil {
			continue
		}
		urlMap, _ := img["image_url"].(map[string]any)
		url := types.StringOr(urlMap, "url")
		if url == "" {
			continue
		}
		typ := types.StringOr(img, "type")
		if typ == "" {
			typ = "image_url"
		}
		imgs = append(imgs, types.ImageData{Type: typ, ImageURL: types.ImageURL{URL: url}})
	}
	return imgs
}
