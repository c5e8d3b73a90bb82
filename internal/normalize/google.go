package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/llmrelay/llmrelay/internal/types"
)

// normalizeGoogle maps one Google AI Studio streaming chunk onto a canonical
// chunk. Google attaches usage metadata to arbitrary chunks and sometimes
// reports a zero prompt count, so usage is rebuilt on every branch with a
// client-side estimate as fallback. Chunks are never dropped for this
// provider; contentless events become empty-delta keep-alives.
func (n *Normalizer) normalizeGoogle(provider, model string, data map[string]any, messages []types.ChatMessage) *types.ChatCompletionChunk {
	candidate := firstCandidate(data)
	parts := candidateParts(candidate)

	var (
		contentText  strings.Builder
		thoughtText  strings.Builder
		toolCalls    []types.ToolCall
		hasContent   bool
		hasThought   bool
		hasFuncCalls bool
	)
	for _, raw := range parts {
		part, _ := raw.(map[string]any)
		if part == nil {
			continue
		}
		text, _ := part["text"].(string)
		thought := isTruthy(part["thought"])
		switch {
		case thought && text != "":
			hasThought = true
			thoughtText.WriteString(text)
		case !thought && text != "":
			hasContent = true
			contentText.WriteString(text)
		}
		if fc, ok := part["functionCall"].(map[string]any); ok {
			hasFuncCalls = true
			toolCalls = append(toolCalls, googleToolCall(fc, len(toolCalls)))
		}
	}
	imgs := n.Images.Extract(data, provider)
	usage := n.googleUsage(data, messages)

	var finish *string
	if fr := types.StringOr(candidate, "finishReason"); fr != "" {
		finish = googleFinish(fr, hasFuncCalls)
	}

	switch {
	case hasContent || hasThought || len(imgs) > 0 || hasFuncCalls:
		delta := types.ChatDelta{
			Role:      "assistant",
			Content:   contentText.String(),
			Reasoning: thoughtText.String(),
			Images:    imgs,
			ToolCalls: toolCalls,
		}
		return googleChunk(model, data, candidate, delta, finish, usage)

	case finish != nil:
		return googleChunk(model, data, candidate, types.ChatDelta{Role: "assistant"}, finish, usage)

	default:
		// No parts and no finish reason: keep the stream alive, still
		// carrying any usage that arrived on this chunk.
		return googleChunk(model, data, candidate, types.ChatDelta{}, nil, usage)
	}
}

func googleChunk(model string, data map[string]any, candidate map[string]any, delta types.ChatDelta, finishReason *string, usage *types.Usage) *types.ChatCompletionChunk {
	id := types.StringOr(data, "responseId")
	if id == "" {
		id = synthChunkID()
	}
	return &types.ChatCompletionChunk{
		ID:      id,
		Object:  types.ObjectChunk,
		Created: time.Now().Unix(),
		Model:   chunkModelVersion(data, model),
		Choices: []types.ChatChunkChoice{{
			Index:        types.IntFromAny(candidate["index"]),
			Delta:        delta,
			FinishReason: finishReason,
		}},
		Usage: usage,
	}
}

// googleFinish translates a Gemini finishReason into the OpenAI vocabulary.
// STOP with function calls in the same response means tool_calls.
func googleFinish(finishReason string, hasFunctionCalls bool) *string {
	switch finishReason {
	case "STOP":
		if hasFunctionCalls {
			return types.StringPtr("tool_calls")
		}
		return types.StringPtr("stop")
	case "MAX_TOKENS":
		return types.StringPtr("length")
	case "SAFETY":
		return types.StringPtr("content_filter")
	default:
		return types.StringPtr("stop")
	}
}

// googleUsage rebuilds canonical usage from usageMetadata. The prompt count
// falls back to a client-side estimate when the provider reports zero, and
// the total always includes thinking tokens.
func (n *Normalizer) googleUsage(data map[string]any, messages []types.ChatMessage) *types.Usage {
	meta, _ := data["usageMetadata"].(map[string]any)
	if meta == nil {
		return nil
	}
	promptTokens := types.IntFromAny(meta["promptTokenCount"])
	if promptTokens <= 0 {
		promptTokens = n.Tokens.Estimate(messages)
	}
	completionTokens := types.IntFromAny(meta["candidatesTokenCount"])
	thoughtTokens := types.IntFromAny(meta["thoughtsTokenCount"])

	u := &types.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens + thoughtTokens,
	}
	if thoughtTokens != 0 {
		u.ReasoningTokens = thoughtTokens
	}
	return u
}

// googleToolCall converts a functionCall part. Gemini does not supply call
// ids, so one is fabricated from the name, a timestamp, and the part index.
func googleToolCall(fc map[string]any, index int) types.ToolCall {
	name := types.StringOr(fc, "name")
	args := fc["args"]
	if args == nil {
		args = map[string]any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		argsJSON = []byte("{}")
	}
	return types.ToolCall{
		Index: index,
		ID:    fmt.Sprintf("%s_%d_%d", name, time.Now().UnixMilli(), index),
		Type:  "function",
		Function: types.FunctionCall{
			Name:      name,
			Arguments: string(argsJSON),
		},
	}
}

func firstCandidate(data map[string]any) map[string]any {
	candidates, _ := data["candidates"].([]any)
	if len(candidates) == 0 {
		return nil
	}
	candidate, _ := candidates[0].(map[string]any)
	return candidate
}

func candidateParts(candidate map[string]any) []any {
	content, _ := candidate["content"].(map[string]any)
	parts, _ := content["parts"].([]any)
	return parts
}

func chunkModelVersion(data map[string]any, fallback string) string {
	if m := types.StringOr(data, "modelVersion"); m != "" {
		return m
	}
	return fallback
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	default:
		return true
	}
}
