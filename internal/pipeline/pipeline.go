// Package pipeline runs the single-pass normalization loop: read one
// provider event, normalize it, hand the canonical chunk to the caller's
// sink, and fold it into the assembled completion. One pipeline instance
// serves exactly one in-flight upstream response; instances share nothing.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/llmrelay/llmrelay/internal/eventstream"
	"github.com/llmrelay/llmrelay/internal/finishreason"
	"github.com/llmrelay/llmrelay/internal/models"
	"github.com/llmrelay/llmrelay/internal/normalize"
	"github.com/llmrelay/llmrelay/internal/stream"
	"github.com/llmrelay/llmrelay/internal/types"
)

// readBufSize is the per-read buffer for binary streams.
const readBufSize = 32 * 1024

// Sink receives each canonical chunk as soon as it is produced.
type Sink func(chunk *types.ChatCompletionChunk) error

// Options configures one pipeline run.
type Options struct {
	Provider string
	Model    string
	// Messages is the original outbound message list, needed for
	// client-side prompt-token estimation fallbacks.
	Messages   []types.ChatMessage
	Normalizer *normalize.Normalizer
	Logger     *slog.Logger
}

// Result summarizes a finished (or canceled) pipeline run.
type Result struct {
	RequestID    string
	Completion   *types.ChatCompletionResponse
	FinishReason finishreason.Reason
	Usage        *types.Usage
	// CostUSD is set when the model is in the pricing registry.
	CostUSD *float64
}

func (o *Options) normalizer() *normalize.Normalizer {
	if o.Normalizer != nil {
		return o.Normalizer
	}
	return normalize.New()
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Text processes a text-native SSE stream until EOF, [DONE], or context
// cancellation.
func Text(ctx context.Context, r io.Reader, opts Options, sink Sink) (*Result, error) {
	run := newRun(opts)
	reader := stream.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return run.canceled(), err
		}
		evt, err := reader.Next()
		if err == io.EOF {
			return run.finish(), nil
		}
		if err != nil {
			return run.finish(), err
		}
		if err := run.event(evt.Data, sink); err != nil {
			return run.finish(), err
		}
	}
}

// Binary processes a binary event-stream framed response, holding back
// incomplete trailing frames between reads and feeding complete ones
// through the same line-oriented path as text streams.
func Binary(ctx context.Context, r io.Reader, opts Options, sink Sink) (*Result, error) {
	run := newRun(opts)
	var pending []byte
	buf := make([]byte, readBufSize)
	for {
		if err := ctx.Err(); err != nil {
			return run.canceled(), err
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			sse, consumed := eventstream.ToSSE(pending)
			if consumed > 0 {
				pending = pending[consumed:]
			}
			if sse != "" {
				reader := stream.NewReader(strings.NewReader(sse))
				for {
					evt, err := reader.Next()
					if err != nil {
						break
					}
					if err := run.event(evt.Data, sink); err != nil {
						return run.finish(), err
					}
				}
			}
		}
		if readErr == io.EOF {
			if len(pending) > 0 {
				run.log.Warn("discarding incomplete trailing frame",
					"request_id", run.id, "bytes", len(pending))
			}
			return run.finish(), nil
		}
		if readErr != nil {
			return run.finish(), readErr
		}
	}
}

// run holds the per-request state shared by both entry points.
type run struct {
	id        string
	opts      Options
	norm      *normalize.Normalizer
	assembler *stream.Assembler
	log       *slog.Logger
}

func newRun(opts Options) *run {
	return &run{
		id:        uuid.NewString(),
		opts:      opts,
		norm:      opts.normalizer(),
		assembler: stream.NewAssembler(models.FamilyFor(opts.Provider)),
		log:       opts.logger(),
	}
}

func (r *run) event(data map[string]any, sink Sink) error {
	chunk := r.norm.Normalize(r.opts.Provider, r.opts.Model, data, r.opts.Messages)
	if chunk == nil {
		return nil
	}
	r.assembler.Add(chunk)
	if sink == nil {
		return nil
	}
	return sink(chunk)
}

func (r *run) finish() *Result {
	completion := r.assembler.Completion()
	res := &Result{
		RequestID:    r.id,
		Completion:   completion,
		FinishReason: r.assembler.UnifiedFinishReason(),
		Usage:        r.assembler.Usage(),
	}
	if usage := res.Usage; usage != nil {
		cached := 0
		if usage.PromptTokensDetails != nil {
			cached = usage.PromptTokensDetails.CachedTokens
		}
		if cost, ok := models.Cost(r.opts.Model, usage.PromptTokens, usage.CompletionTokens, cached); ok {
			res.CostUSD = &cost
		}
	}
	r.log.Debug("stream assembled",
		"request_id", r.id,
		"provider", r.opts.Provider,
		"model", r.opts.Model,
		"finish_reason", string(res.FinishReason))
	return res
}

func (r *run) canceled() *Result {
	res := r.finish()
	res.FinishReason = finishreason.Canceled
	return res
}
