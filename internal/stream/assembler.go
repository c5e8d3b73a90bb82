package stream

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"github.com/llmrelay/llmrelay/internal/finishreason"
	"github.com/llmrelay/llmrelay/internal/models"
	"github.com/llmrelay/llmrelay/internal/types"
)

// MaxToolArgBufSize is the upper bound (in bytes) for buffered function-call
// argument deltas per tool call.
const MaxToolArgBufSize = 1 << 20 // 1 MB

// ArgMode controls how successive tool-call argument deltas combine.
type ArgMode int

const (
	// ArgAppend concatenates argument fragments in arrival order.
	ArgAppend ArgMode = iota
	// ArgReplace keeps only the most recent arguments. Bedrock repeats the
	// full current input object on every delta instead of streaming
	// fragments, so appending would corrupt the JSON.
	ArgReplace
)

// ArgModeFor returns the argument accumulation mode for a provider family.
func ArgModeFor(family models.Family) ArgMode {
	if family == models.FamilyBedrock {
		return ArgReplace
	}
	return ArgAppend
}

// Assembler accumulates canonical chunks into a final chat.completion
// record. It holds the only cross-chunk state in the pipeline: running text,
// per-index tool-call buffers, and last-seen finish reason and usage.
type Assembler struct {
	family  models.Family
	argMode ArgMode

	id      string
	model   string
	created int64

	content   strings.Builder
	reasoning strings.Builder
	images    []types.ImageData

	tools     map[int]*toolCallState
	toolOrder []int

	finishReason *string
	usage        *types.Usage
}

// toolCallState accumulates one tool call, keyed by its streaming index.
type toolCallState struct {
	id   string
	name string
	args strings.Builder
}

// NewAssembler creates an assembler for a stream from the given family.
func NewAssembler(family models.Family) *Assembler {
	return &Assembler{
		family:  family,
		argMode: ArgModeFor(family),
		tools:   map[int]*toolCallState{},
	}
}

// Add ingests one canonical chunk. Nil chunks are ignored so callers can
// feed the normalizer's output directly.
func (a *Assembler) Add(chunk *types.ChatCompletionChunk) {
	if chunk == nil {
		return
	}
	if a.id == "" && chunk.ID != "" {
		a.id = chunk.ID
	}
	if a.model == "" && chunk.Model != "" {
		a.model = chunk.Model
	}
	if a.created == 0 && chunk.Created != 0 {
		a.created = chunk.Created
	}
	if chunk.Usage != nil {
		// Last writer wins; Google attaches partial usage to arbitrary
		// chunks and the final value supersedes earlier ones.
		a.usage = chunk.Usage
	}

	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			continue
		}
		a.content.WriteString(choice.Delta.Content)
		a.reasoning.WriteString(choice.Delta.Reasoning)
		a.images = append(a.images, choice.Delta.Images...)
		for _, tc := range choice.Delta.ToolCalls {
			a.addToolCall(tc)
		}
		if choice.FinishReason != nil {
			a.finishReason = choice.FinishReason
		}
	}
}

func (a *Assembler) addToolCall(tc types.ToolCall) {
	state := a.tools[tc.Index]
	if state == nil {
		state = &toolCallState{}
		a.tools[tc.Index] = state
		a.toolOrder = append(a.toolOrder, tc.Index)
	}
	if tc.ID != "" {
		state.id = tc.ID
	}
	if tc.Function.Name != "" {
		state.name = tc.Function.Name
	}
	if tc.Function.Arguments == "" {
		return
	}
	if a.argMode == ArgReplace {
		state.args.Reset()
	}
	if state.args.Len()+len(tc.Function.Arguments) > MaxToolArgBufSize {
		slog.Warn("tool argument buffer limit exceeded, dropping delta",
			"index", tc.Index, "buf_len", state.args.Len(), "delta_len", len(tc.Function.Arguments))
		return
	}
	state.args.WriteString(tc.Function.Arguments)
}

// FinishReason returns the last raw finish reason seen, or nil.
func (a *Assembler) FinishReason() *string {
	return a.finishReason
}

// UnifiedFinishReason maps the accumulated finish reason onto the canonical
// closed enumeration.
func (a *Assembler) UnifiedFinishReason() finishreason.Reason {
	return finishreason.Unify(a.finishReason, a.family)
}

// Usage returns the most recently seen usage block, or nil.
func (a *Assembler) Usage() *types.Usage {
	return a.usage
}

// Completion builds the final non-streaming chat.completion object from the
// accumulated stream.
func (a *Assembler) Completion() *types.ChatCompletionResponse {
	id := a.id
	if id == "" {
		id = "chatcmpl-" + uuid.NewString()
	}
	created := a.created
	if created == 0 {
		created = time.Now().Unix()
	}
	return &types.ChatCompletionResponse{
		ID:      id,
		Object:  types.ObjectCompletion,
		Created: created,
		Model:   a.model,
		Choices: []types.ChatChoice{{
			Index: 0,
			Message: types.ChatResponseMsg{
				Role:      "assistant",
				Content:   a.content.String(),
				Reasoning: a.reasoning.String(),
				Images:    a.images,
				ToolCalls: a.finalToolCalls(),
			},
			FinishReason: a.finishReason,
		}},
		Usage: a.usage,
	}
}

// finalToolCalls materializes accumulated tool calls in first-appearance
// order. A call is complete once its arguments parse as JSON; arguments that
// do not are given one repair attempt before being passed through raw.
func (a *Assembler) finalToolCalls() []types.ToolCall {
	if len(a.toolOrder) == 0 {
		return nil
	}
	out := make([]types.ToolCall, 0, len(a.toolOrder))
	for i, index := range a.toolOrder {
		state := a.tools[index]
		args := state.args.String()
		if args == "" {
			args = "{}"
		} else if !json.Valid([]byte(args)) {
			if repaired, err := jsonrepair.JSONRepair(args); err == nil && json.Valid([]byte(repaired)) {
				slog.Debug("repaired malformed tool-call arguments", "index", index)
				args = repaired
			}
		}
		out = append(out, types.ToolCall{
			Index: i,
			ID:    state.id,
			Type:  "function",
			Function: types.FunctionCall{
				Name:      state.name,
				Arguments: args,
			},
		})
	}
	return out
}
