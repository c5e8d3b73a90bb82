// Package normalize maps raw provider streaming events onto canonical
// chat.completion.chunk objects. One branch per provider family; every
// branch is a pure function of its inputs.
package normalize

import (
	"fmt"
	"time"

	"github.com/llmrelay/llmrelay/internal/images"
	"github.com/llmrelay/llmrelay/internal/models"
	"github.com/llmrelay/llmrelay/internal/tokens"
	"github.com/llmrelay/llmrelay/internal/types"
)

// Normalizer converts raw provider events into canonical chunks. The zero
// value is not usable; construct with New. Tokens supplies the prompt-token
// fallback for providers that omit counts, Images extracts inline images.
type Normalizer struct {
	Tokens tokens.Estimator
	Images images.Extractor
}

// New returns a Normalizer with the default collaborators.
func New() *Normalizer {
	return &Normalizer{
		Tokens: tokens.Heuristic{},
		Images: images.Inline{},
	}
}

// Normalize maps one raw provider event onto zero or one canonical chunks.
// A nil return means the event carries no user-visible signal and must be
// dropped. Unknown providers take the OpenAI-compatible branch.
func (n *Normalizer) Normalize(provider, model string, data map[string]any, messages []types.ChatMessage) *types.ChatCompletionChunk {
	if data == nil {
		return nil
	}
	switch models.FamilyFor(provider) {
	case models.FamilyAnthropic:
		return normalizeAnthropic(model, data)
	case models.FamilyGoogle:
		return n.normalizeGoogle(provider, model, data, messages)
	case models.FamilyBedrock:
		return normalizeBedrock(model, data)
	case models.FamilyOpenAI:
		return normalizeOpenAI(model, data)
	default:
		return normalizeOpenAICompat(model, data)
	}
}

// synthChunkID fabricates a chunk id when the upstream omits one.
func synthChunkID() string {
	return fmt.Sprintf("chatcmpl-%d", time.Now().UnixMilli())
}

// chunkID returns the provider-supplied id or a synthesized one.
func chunkID(data map[string]any) string {
	if id := types.StringOr(data, "id"); id != "" {
		return id
	}
	return synthChunkID()
}

// chunkCreated returns the provider-supplied created timestamp or now.
func chunkCreated(data map[string]any) int64 {
	if created := types.Int64FromAny(data["created"]); created != 0 {
		return created
	}
	return time.Now().Unix()
}

// chunkModel returns the provider-reported model or the resolved fallback.
func chunkModel(data map[string]any, fallback string) string {
	if m := types.StringOr(data, "model"); m != "" {
		return m
	}
	return fallback
}

// decodeUsage converts a raw usage object into the canonical shape. It
// accepts both the OpenAI (prompt/completion) and Anthropic (input/output)
// vocabularies so no provider key leaks through.
func decodeUsage(v any) *types.Usage {
	m, _ := v.(map[string]any)
	if m == nil {
		return nil
	}
	u := &types.Usage{}
	if _, ok := m["prompt_tokens"]; ok {
		u.PromptTokens = types.IntFromAny(m["prompt_tokens"])
	} else {
		u.PromptTokens = types.IntFromAny(m["input_tokens"])
	}
	if _, ok := m["completion_tokens"]; ok {
		u.CompletionTokens = types.IntFromAny(m["completion_tokens"])
	} else {
		u.CompletionTokens = types.IntFromAny(m["output_tokens"])
	}
	u.TotalTokens = types.IntFromAny(m["total_tokens"])
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	u.ReasoningTokens = types.IntFromAny(m["reasoning_tokens"])
	if ptd, ok := m["prompt_tokens_details"].(map[string]any); ok {
		if cached := types.IntFromAny(ptd["cached_tokens"]); cached != 0 {
			u.PromptTokensDetails = &types.PromptTokensDetails{CachedTokens: cached}
		}
	}
	return u
}
