package normalize

import (
	"encoding/json"
	"testing"

	"github.com/llmrelay/llmrelay/internal/types"
)

func event(t *testing.T, raw string) map[string]any {
	t.Helper()
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return data
}

func singleChoice(t *testing.T, chunk *types.ChatCompletionChunk) types.ChatChunkChoice {
	t.Helper()
	if chunk == nil {
		t.Fatal("expected non-nil chunk")
	}
	if len(chunk.Choices) != 1 {
		t.Fatalf("got %d choices, want 1", len(chunk.Choices))
	}
	return chunk.Choices[0]
}

func TestAnthropicTextDelta(t *testing.T) {
	n := New()
	chunk := n.Normalize("anthropic", "claude-sonnet-4",
		event(t, `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`), nil)

	choice := singleChoice(t, chunk)
	if choice.Delta.Content != "Hello" {
		t.Errorf("content = %q, want Hello", choice.Delta.Content)
	}
	if choice.Delta.Role != "assistant" {
		t.Errorf("role = %q, want assistant", choice.Delta.Role)
	}
	if choice.Delta.Reasoning != "" {
		t.Errorf("reasoning should be empty, got %q", choice.Delta.Reasoning)
	}
	if chunk.Object != types.ObjectChunk {
		t.Errorf("object = %q", chunk.Object)
	}
	if chunk.Model != "claude-sonnet-4" {
		t.Errorf("model = %q", chunk.Model)
	}
}

func TestAnthropicThinkingDelta(t *testing.T) {
	n := New()
	chunk := n.Normalize("anthropic", "claude-sonnet-4",
		event(t, `{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"step one"}}`), nil)

	choice := singleChoice(t, chunk)
	if choice.Delta.Reasoning != "step one" {
		t.Errorf("reasoning = %q, want %q", choice.Delta.Reasoning, "step one")
	}
	if choice.Delta.Content != "" {
		t.Errorf("thinking must not leak into content, got %q", choice.Delta.Content)
	}
}

func TestAnthropicToolUseFlow(t *testing.T) {
	n := New()

	start := n.Normalize("anthropic", "claude-sonnet-4",
		event(t, `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather"}}`), nil)
	choice := singleChoice(t, start)
	if len(choice.Delta.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(choice.Delta.ToolCalls))
	}
	tc := choice.Delta.ToolCalls[0]
	if tc.Index != 1 || tc.ID != "toolu_1" || tc.Type != "function" {
		t.Errorf("tool call = %+v", tc)
	}
	if tc.Function.Name != "get_weather" || tc.Function.Arguments != "" {
		t.Errorf("function = %+v", tc.Function)
	}

	delta := n.Normalize("anthropic", "claude-sonnet-4",
		event(t, `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"city\":"}}`), nil)
	tc = singleChoice(t, delta).Delta.ToolCalls[0]
	if tc.Index != 1 || tc.Function.Arguments != `{"city":` {
		t.Errorf("args delta = %+v", tc)
	}
	if tc.Function.Name != "" {
		t.Errorf("argument deltas carry no name, got %q", tc.Function.Name)
	}
}

func TestAnthropicStopReasonMapping(t *testing.T) {
	n := New()
	tests := []struct {
		stopReason string
		want       string
	}{
		{"end_turn", "stop"},
		{"tool_use", "tool_calls"},
		{"max_tokens", "length"},
		{"weird_future_reason", "stop"},
	}
	for _, tt := range tests {
		chunk := n.Normalize("anthropic", "claude-sonnet-4",
			event(t, `{"type":"message_delta","delta":{"stop_reason":"`+tt.stopReason+`"},"usage":{"input_tokens":10,"output_tokens":5}}`), nil)
		choice := singleChoice(t, chunk)
		if choice.FinishReason == nil || *choice.FinishReason != tt.want {
			t.Errorf("stop_reason %q: finish = %v, want %q", tt.stopReason, choice.FinishReason, tt.want)
		}
		if chunk.Usage == nil || chunk.Usage.PromptTokens != 10 || chunk.Usage.CompletionTokens != 5 {
			t.Errorf("stop_reason %q: usage = %+v", tt.stopReason, chunk.Usage)
		}
		if chunk.Usage.TotalTokens != 15 {
			t.Errorf("total = %d, want 15", chunk.Usage.TotalTokens)
		}
	}
}

func TestAnthropicMessageStopDefaultsEndTurn(t *testing.T) {
	n := New()
	chunk := n.Normalize("anthropic", "claude-sonnet-4",
		event(t, `{"type":"message_stop"}`), nil)
	choice := singleChoice(t, chunk)
	if choice.FinishReason == nil || *choice.FinishReason != "stop" {
		t.Errorf("finish = %v, want stop", choice.FinishReason)
	}
}

func TestAnthropicMessageStartKeepsStreamAlive(t *testing.T) {
	n := New()
	chunk := n.Normalize("anthropic", "claude-sonnet-4",
		event(t, `{"type":"message_start","message":{"id":"msg_1","role":"assistant"}}`), nil)
	choice := singleChoice(t, chunk)
	if choice.Delta.Role != "assistant" || choice.Delta.Content != "" {
		t.Errorf("expected role-only delta, got %+v", choice.Delta)
	}
	if choice.FinishReason != nil {
		t.Errorf("finish = %v, want nil", choice.FinishReason)
	}
}

func TestAnthropicLegacyBareTextDelta(t *testing.T) {
	n := New()
	chunk := n.Normalize("anthropic", "claude-sonnet-4",
		event(t, `{"delta":{"text":"legacy"}}`), nil)
	choice := singleChoice(t, chunk)
	if choice.Delta.Content != "legacy" {
		t.Errorf("content = %q, want legacy", choice.Delta.Content)
	}
}
