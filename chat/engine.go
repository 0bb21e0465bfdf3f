// Conversation loop engine.
//
// This is THE canonical path for chat generation: it drives turns
// between the model and the data tool until a terminal text answer is
// produced, then persists the transcript exactly once.
//
// Information Hiding:
// - Loop state machine internals hidden
// - Model and invoker communication hidden
// - Fallback policy internalized: callers always receive answer text,
//   never a raised fault

package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelinq/datachat/internal/log"
	"github.com/carelinq/datachat/llm"
	"github.com/carelinq/datachat/storage"
	"github.com/carelinq/datachat/tools"
)

// User-visible fallback answers. The engine's contract is fail-soft:
// the caller always receives a string, never a raised fault.
const (
	FallbackUnrecognizedTool = "Could not resolve appropriate function and determine an answer."
	FallbackError            = "Please try again. An unexpected error occurred."
)

// Outcome classifies how a run terminated.
type Outcome int

const (
	// OutcomeAnswered is the normal terminal state: the model produced text.
	OutcomeAnswered Outcome = iota
	// OutcomeUnrecognizedTool means the model requested an undeclared tool.
	OutcomeUnrecognizedTool
	// OutcomeLoopLimit means the turn cap was reached before a text answer.
	OutcomeLoopLimit
	// OutcomeFault means the model, an invoker, or storage failed.
	OutcomeFault
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeAnswered:
		return "answered"
	case OutcomeUnrecognizedTool:
		return "unrecognized_tool"
	case OutcomeLoopLimit:
		return "loop_limit_exceeded"
	case OutcomeFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Options configures engine behavior.
type Options struct {
	// MaxTurns caps model round trips per run. Default 10.
	MaxTurns int

	// CallTimeout bounds each model and invoker call. Default 2m.
	CallTimeout time.Duration

	// TrimIntrospection drops the invoker trace's leading step (the
	// schema introspection) before citing queries. Default true in
	// DefaultOptions; kept explicit rather than a silent off-by-one.
	TrimIntrospection bool

	// CiteQueries expands tool results with summarize-and-cite
	// instructions for the model.
	CiteQueries bool

	// PrefixSystemInstruction prepends the run's system instruction to
	// the question handed to the invoker, giving the sub-agent task
	// framing.
	PrefixSystemInstruction bool
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MaxTurns:          10,
		CallTimeout:       2 * time.Minute,
		TrimIntrospection: true,
	}
}

// Request is one user message to run through the engine.
type Request struct {
	UserID         string
	ConversationID string // empty starts a new conversation
	Message        []llm.Part
	System         string
	Tools          []llm.ToolDefinition
}

// Result is the terminal state of a run. Answer is always populated;
// Err carries the underlying fault for logging when Outcome is
// OutcomeFault.
type Result struct {
	Answer         string
	ConversationID string
	Outcome        Outcome
	Err            error
}

// Engine orchestrates one user message through to one terminal textual
// answer, mutating and persisting the conversation transcript.
type Engine struct {
	provider llm.Provider
	store    storage.TranscriptStore
	invokers map[string]tools.Invoker
	opts     Options
	logger   log.Logger
}

// NewEngine creates an engine. Zero-value MaxTurns and CallTimeout in
// opts fall back to the defaults.
func NewEngine(provider llm.Provider, store storage.TranscriptStore, logger log.Logger, opts Options) *Engine {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultOptions().MaxTurns
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultOptions().CallTimeout
	}
	return &Engine{
		provider: provider,
		store:    store,
		invokers: make(map[string]tools.Invoker),
		opts:     opts,
		logger:   logger,
	}
}

// RegisterInvoker makes a tool name recognized. Requests for any other
// name terminate the run with FallbackUnrecognizedTool.
func (e *Engine) RegisterInvoker(name string, invoker tools.Invoker) {
	e.invokers[name] = invoker
}

// Generate runs one user message to completion. The transcript is
// persisted once, after the loop terminates; a crash mid-loop leaves
// the stored conversation at its pre-request state.
func (e *Engine) Generate(ctx context.Context, req Request) Result {
	start := time.Now()

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	transcript, err := e.store.Load(ctx, req.UserID, conversationID)
	if err != nil {
		e.logger.Error("transcript load failed", "conversation", conversationID, "error", err)
		return Result{
			Answer:         FallbackError,
			ConversationID: conversationID,
			Outcome:        OutcomeFault,
			Err:            err,
		}
	}

	transcript = append(transcript, llm.UserMessage(req.Message...))
	result := e.run(ctx, &transcript, req)
	result.ConversationID = conversationID

	if err := e.store.Save(ctx, req.UserID, conversationID, transcript); err != nil {
		e.logger.Error("transcript save failed", "conversation", conversationID, "error", err)
		return Result{
			Answer:         FallbackError,
			ConversationID: conversationID,
			Outcome:        OutcomeFault,
			Err:            err,
		}
	}

	e.logger.Info("chat run finished",
		"conversation", conversationID,
		"outcome", result.Outcome.String(),
		"turns", len(transcript),
		"duration", time.Since(start))
	return result
}

// run drives the loop, appending completed turns to the transcript.
// On a fault, turns completed before the fault remain; the failed
// attempt is not added.
func (e *Engine) run(ctx context.Context, transcript *[]llm.Message, req Request) Result {
	for turn := 0; turn < e.opts.MaxTurns; turn++ {
		response, err := e.callModel(ctx, *transcript, req)
		if err != nil {
			e.logger.Error("model call failed", "turn", turn, "error", err)
			return Result{Answer: FallbackError, Outcome: OutcomeFault, Err: err}
		}

		if !response.HasToolCalls() {
			*transcript = append(*transcript, llm.ModelText(response.Text))
			return Result{Answer: response.Text, Outcome: OutcomeAnswered}
		}

		modelTurn := llm.Message{Role: llm.RoleModel, ToolCalls: response.ToolCalls}
		if response.Text != "" {
			modelTurn.Parts = []llm.Part{llm.TextPart(response.Text)}
		}

		// Evaluate requests in the order the model returned them,
		// stopping at the first unrecognized name.
		var toolTurns []llm.Message
		for _, call := range response.ToolCalls {
			invoker, recognized := e.invokers[call.Name]
			if !recognized {
				e.logger.Warn("unrecognized tool requested", "tool", call.Name)
				*transcript = append(*transcript, llm.ModelText(FallbackUnrecognizedTool))
				return Result{Answer: FallbackUnrecognizedTool, Outcome: OutcomeUnrecognizedTool}
			}

			question, ok := call.StringArg(tools.QuestionArg)
			if !ok {
				err := fmt.Errorf("tool request %q missing %q argument", call.Name, tools.QuestionArg)
				e.logger.Error("malformed tool request", "tool", call.Name, "error", err)
				return Result{Answer: FallbackError, Outcome: OutcomeFault, Err: err}
			}
			if e.opts.PrefixSystemInstruction && req.System != "" {
				question = req.System + "\n\n" + question
			}

			invocation, err := e.invoke(ctx, invoker, question)
			if err != nil {
				e.logger.Error("tool invocation failed", "tool", call.Name, "error", err)
				return Result{Answer: FallbackError, Outcome: OutcomeFault, Err: err}
			}

			payload := tools.BuildResult(invocation, tools.ResultOptions{
				TrimIntrospection: e.opts.TrimIntrospection,
				CiteQueries:       e.opts.CiteQueries,
			})
			toolTurn, err := llm.ToolMessage(call.ID, call.Name, map[string]any{"content": payload})
			if err != nil {
				return Result{Answer: FallbackError, Outcome: OutcomeFault, Err: err}
			}
			toolTurns = append(toolTurns, toolTurn)
		}

		*transcript = append(*transcript, modelTurn)
		*transcript = append(*transcript, toolTurns...)
	}

	e.logger.Error("turn limit reached without text answer", "max_turns", e.opts.MaxTurns)
	*transcript = append(*transcript, llm.ModelText(FallbackError))
	return Result{Answer: FallbackError, Outcome: OutcomeLoopLimit}
}

func (e *Engine) callModel(ctx context.Context, transcript []llm.Message, req Request) (llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	return e.provider.GenerateWithTools(ctx, transcript, req.System, req.Tools)
}

func (e *Engine) invoke(ctx context.Context, invoker tools.Invoker, question string) (tools.Invocation, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	return invoker.Invoke(ctx, question)
}
