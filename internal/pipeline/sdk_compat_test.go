package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/llmrelay/llmrelay/internal/types"
)

// These tests prove the canonical output is wire-compatible with the
// official OpenAI Go SDK: a server relaying assembled completions and
// normalized chunks must be indistinguishable from the real API to a
// strict client.

func newCompatServer(t *testing.T, upstream string, provider, model string) *httptest.Server {
	t.Helper()

	handler := func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Stream bool `json:"stream"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)

		if !body.Stream {
			res, err := Text(req.Context(), strings.NewReader(upstream), Options{
				Provider: provider,
				Model:    model,
			}, nil)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(res.Completion)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		sink := func(chunk *types.ChatCompletionChunk) error {
			raw, err := json.Marshal(chunk)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "data: %s\n\n", raw)
			if flusher != nil {
				flusher.Flush()
			}
			return nil
		}
		if _, err := Text(req.Context(), strings.NewReader(upstream), Options{
			Provider: provider,
			Model:    model,
		}, sink); err != nil {
			return
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handler)
	return httptest.NewServer(mux)
}

func newSDKClient(baseURL string) openai.Client {
	return openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey("test-key"),
	)
}

func TestSDKParsesAssembledCompletion(t *testing.T) {
	srv := newCompatServer(t, anthropicStream, "anthropic", "claude-sonnet-4")
	defer srv.Close()

	client := newSDKClient(srv.URL + "/v1")
	out, err := client.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model: shared.ChatModel("claude-sonnet-4"),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("weather in Oslo"),
		},
	})
	if err != nil {
		t.Fatalf("sdk completion failed: %v", err)
	}
	if len(out.Choices) == 0 {
		t.Fatalf("expected non-empty choices, got: %+v", out)
	}
	choice := out.Choices[0]
	if !strings.Contains(choice.Message.Content, "check the weather") {
		t.Errorf("content = %q", choice.Message.Content)
	}
	if choice.FinishReason != "tool_calls" {
		t.Errorf("finish_reason = %q", choice.FinishReason)
	}
	if len(choice.Message.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls", len(choice.Message.ToolCalls))
	}
	tc := choice.Message.ToolCalls[0]
	if tc.Function.Name != "get_weather" || !strings.Contains(tc.Function.Arguments, `"Oslo"`) {
		t.Errorf("tool call = %+v", tc)
	}
	if out.Usage.PromptTokens != 25 || out.Usage.CompletionTokens != 12 {
		t.Errorf("usage = %+v", out.Usage)
	}
}

func TestSDKParsesNormalizedStream(t *testing.T) {
	srv := newCompatServer(t, anthropicStream, "anthropic", "claude-sonnet-4")
	defer srv.Close()

	client := newSDKClient(srv.URL + "/v1")
	stream := client.Chat.Completions.NewStreaming(context.Background(), openai.ChatCompletionNewParams{
		Model: shared.ChatModel("claude-sonnet-4"),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("weather in Oslo"),
		},
	})

	var content strings.Builder
	var args strings.Builder
	var sawToolFinish bool
	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			content.WriteString(choice.Delta.Content)
			if choice.FinishReason == "tool_calls" {
				sawToolFinish = true
			}
			for _, tc := range choice.Delta.ToolCalls {
				args.WriteString(tc.Function.Arguments)
			}
		}
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("sdk stream failed: %v", err)
	}
	if got := content.String(); got != "I'll check the weather." {
		t.Errorf("content = %q", got)
	}
	if args.String() != `{"city":"Oslo"}` {
		t.Errorf("accumulated arguments = %q", args.String())
	}
	if !sawToolFinish {
		t.Error("expected tool_calls finish_reason in stream")
	}
}
