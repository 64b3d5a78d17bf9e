// Package executor implements the Executor Loop (spec.md §4.5): the state
// machine that drives one agent turn — classify, plan, act, reflect,
// summarize — gating every side-effecting action on the Safety Auditor and
// recording its trace as Execution Results.
//
// Grounded on pkg/agent/controller/react.go's phase sequencing (classify →
// iterate → force-conclude) and pkg/agent/controller/iterating.go's
// retry/observation-feedback idiom, translated from the teacher's
// tool-calling ReAct format onto spec.md's CODE/READ/WRITE/EDIT/DONE/ASK/BYE
// Response Schema.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/tarsy/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy/pkg/convo"
	"github.com/codeready-toolchain/tarsy/pkg/llmclient"
	"github.com/codeready-toolchain/tarsy/pkg/masking"
	"github.com/codeready-toolchain/tarsy/pkg/models"
	"github.com/codeready-toolchain/tarsy/pkg/safety"
	"github.com/codeready-toolchain/tarsy/pkg/sandbox"
	"github.com/codeready-toolchain/tarsy/pkg/tools"
	"github.com/codeready-toolchain/tarsy/pkg/tracing"
)

// MaxRetries bounds CODE-action retries within one turn — spec.md §4.5.
const MaxRetries = 1

// MaxReadBytes is the hard READ size cap before a caller is told to use CODE
// instead (spec.md §4.5.c).
const MaxReadBytes = 24 * 1024

// Config carries the per-agent runtime knobs the loop consults.
type Config struct {
	Model                string
	MaxActionSteps        int  // safety valve bounding the action loop; spec.md calls this "budget exhausted"
	CanPromptUser         bool // selects the Safety Auditor gating mode
	PersistConversation   bool
	MaxLearningsHistory   int
}

// EventSink receives a streamable record as soon as it is produced, for the
// Streaming Transport (spec.md §4.8) to fan out. Implemented by pkg/jobs.
type EventSink interface {
	OnExecutionResult(result models.ExecutionResult)
}

// noopSink discards events; used when the caller has no transport wired.
type noopSink struct{}

func (noopSink) OnExecutionResult(models.ExecutionResult) {}

// Loop owns one agent's turn execution. It is not safe for concurrent
// Run calls — spec.md §5 guarantees at most one turn in flight per agent.
type Loop struct {
	cfg Config

	convo    *convo.Store
	auditor  *safety.Auditor
	masker   *masking.Service
	sandbox  *sandbox.Sandbox
	registry *tools.Registry
	fs       FileIO

	dispatcher *llmclient.Dispatcher
	prompter   safety.TerminalPrompter
	risk       safety.RiskSummarizer

	state *models.AgentState
	sink  EventSink

	interrupted bool
}

// New constructs a Loop bound to one agent's live state. masker may be nil,
// in which case file-read/tool-result content passes through unredacted.
func New(
	cfg Config,
	store *convo.Store,
	auditor *safety.Auditor,
	masker *masking.Service,
	sb *sandbox.Sandbox,
	registry *tools.Registry,
	fs FileIO,
	dispatcher *llmclient.Dispatcher,
	prompter safety.TerminalPrompter,
	risk safety.RiskSummarizer,
	state *models.AgentState,
	sink EventSink,
) *Loop {
	if sink == nil {
		sink = noopSink{}
	}
	if cfg.MaxActionSteps <= 0 {
		cfg.MaxActionSteps = 20
	}
	return &Loop{
		cfg: cfg, convo: store, auditor: auditor, masker: masker, sandbox: sb, registry: registry, fs: fs,
		dispatcher: dispatcher, prompter: prompter, risk: risk, state: state, sink: sink,
	}
}

// Interrupt requests the loop stop at the next phase boundary — spec.md §5
// Cancellation: in-flight I/O is not forcibly aborted.
func (l *Loop) Interrupt() { l.interrupted = true }

// State returns the AgentState this loop mutates in place. The caller
// (pkg/registry, via pkg/agentrun) owns persisting it after Run returns.
func (l *Loop) State() *models.AgentState { return l.state }

// Records returns the conversation store's current records, reflecting
// whatever windowing/summarization the last Run applied — the value that
// belongs in AgentState.Conversation at persistence time.
func (l *Loop) Records() []models.ConversationRecord { return l.convo.Records() }

// TurnResult is the outcome of one Run call.
type TurnResult struct {
	Status       models.Status
	FinalMessage string
	Usage        llmclient.Usage
}

// Run drives one full turn for userMessage through every phase of
// spec.md §4.5, mutating l.state and returning only once the turn reaches
// DONE, ASK, BYE, CONFIRMATION_REQUIRED, or INTERRUPTED.
func (l *Loop) Run(ctx context.Context, userMessage string) (*TurnResult, error) {
	var total llmclient.Usage

	// Phase 1: interrupt check.
	if l.interrupted {
		l.convo.Append(models.ConversationRecord{
			Role: models.RoleAssistant, Content: "Task stopped by interrupt.", ShouldSummarize: true,
		})
		return &TurnResult{Status: models.StatusInterrupted}, nil
	}

	l.convo.Append(models.ConversationRecord{Role: models.RoleUser, Content: userMessage, ShouldSummarize: true})

	// Phase 2: classification.
	classifyCtx, classifySpan := tracing.StartPhase(ctx, "classify")
	classification, usage, err := l.classify(classifyCtx, userMessage)
	tracing.End(classifySpan, err)
	total = addUsage(total, usage)
	if err != nil {
		return nil, fmt.Errorf("classification: %w", err)
	}
	l.emitSystem(models.ExecutionTypeSystem, models.StatusSuccess, fmt.Sprintf("classified as %s", classification.Type))

	// Phase 3: planning, conditional.
	if classification.PlanningRequired {
		planCtx, planSpan := tracing.StartPhase(ctx, "plan")
		plan, usage, err := l.plan(planCtx, userMessage, classification)
		tracing.End(planSpan, err)
		total = addUsage(total, usage)
		if err != nil {
			slog.Warn("planning call failed, proceeding without a plan", "error", err)
		} else {
			l.state.CurrentPlan = plan
			l.emit(models.ExecutionResult{
				ID: newID(), Timestamp: time.Now(), ExecutionType: models.ExecutionTypePlan,
				Status: models.StatusSuccess, Message: plan, IsStreamable: true,
			})
		}
	}

	// Phase 4: action loop.
	for step := 0; step < l.cfg.MaxActionSteps; step++ {
		if l.interrupted {
			l.convo.Append(models.ConversationRecord{
				Role: models.RoleAssistant, Content: "Task stopped by interrupt.", ShouldSummarize: true,
			})
			return &TurnResult{Status: models.StatusInterrupted, Usage: total}, nil
		}

		actCtx, actSpan := tracing.StartPhase(ctx, "act")
		result, retUsage, terminal, err := l.actionStep(actCtx, classification)
		tracing.End(actSpan, err)
		total = addUsage(total, retUsage)
		if err != nil {
			return nil, fmt.Errorf("action step %d: %w", step, err)
		}
		l.emit(*result)

		// Reflection is conditional on classification: only worth the extra
		// model call for tasks the classifier itself rated above low effort.
		if classification.RelativeEffort != models.EffortLow {
			reflectCtx, reflectSpan := tracing.StartPhase(ctx, "reflect")
			reflection, usage, err := l.reflect(reflectCtx, *result)
			tracing.End(reflectSpan, err)
			if err == nil && reflection != "" {
				total = addUsage(total, usage)
				l.emit(models.ExecutionResult{
					ID: newID(), Timestamp: time.Now(), ExecutionType: models.ExecutionTypeReflection,
					Status: models.StatusSuccess, Message: reflection, IsStreamable: true,
				})
			}
		}

		if err := l.convo.SummarizeAged(ctx, l.summarizer()); err != nil {
			slog.Warn("summarization sweep failed", "error", err)
		}

		if terminal {
			switch result.Status {
			case models.StatusConfirmationRequired:
				return &TurnResult{Status: models.StatusConfirmationRequired, FinalMessage: result.Message, Usage: total}, nil
			case models.StatusCancelled:
				return &TurnResult{Status: models.StatusCancelled, FinalMessage: result.Message, Usage: total}, nil
			}
			if result.Action == models.ActionAsk || result.Action == models.ActionBye {
				return &TurnResult{Status: models.StatusSuccess, FinalMessage: result.Message, Usage: total}, nil
			}
			break // DONE falls through to the final response phase
		}
	}

	// Phase 5: final response.
	respondCtx, respondSpan := tracing.StartPhase(ctx, "respond")
	final, usage, err := l.finalResponse(respondCtx)
	tracing.End(respondSpan, err)
	total = addUsage(total, usage)
	if err != nil {
		return nil, fmt.Errorf("final response: %w", err)
	}
	l.convo.Append(models.ConversationRecord{Role: models.RoleAssistant, Content: final, ShouldSummarize: true})
	l.emit(models.ExecutionResult{
		ID: newID(), Timestamp: time.Now(), Action: "", ExecutionType: models.ExecutionTypeResponse,
		Status: models.StatusSuccess, Message: final, IsComplete: true,
	})

	return &TurnResult{Status: models.StatusSuccess, FinalMessage: final, Usage: total}, nil
}

func (l *Loop) emit(r models.ExecutionResult) {
	l.state.ExecutionHistory = append(l.state.ExecutionHistory, r)
	l.sink.OnExecutionResult(r)
}

func (l *Loop) emitSystem(t models.ExecutionType, status models.Status, msg string) {
	l.emit(models.ExecutionResult{ID: newID(), Timestamp: time.Now(), ExecutionType: t, Status: status, Message: msg})
}

// mask redacts secrets/credentials out of file-read and tool-result content
// before it reaches the conversation or a reflection call — spec.md §4.4.
func (l *Loop) mask(content string) string {
	return l.masker.Mask(content)
}

func (l *Loop) summarizer() convo.Summarizer {
	return llmclient.SummarizerAdapter{Dispatcher: l.dispatcher, Model: l.cfg.Model}
}

func newID() string { return uuid.NewString() }

func addUsage(total llmclient.Usage, delta llmclient.Usage) llmclient.Usage {
	total.PromptTokens += delta.PromptTokens
	total.CompletionTokens += delta.CompletionTokens
	return total
}

// KindForAction maps an action to the error kind recorded when its handler
// fails — used by pkg/api to map an ExecutionResult onto an HTTP status.
func KindForAction(a models.Action) apperrors.Kind {
	switch a {
	case models.ActionCode:
		return apperrors.KindCodeExecution
	case models.ActionRead, models.ActionWrite, models.ActionEdit:
		return apperrors.KindFileIO
	default:
		return apperrors.KindValidation
	}
}
