package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy/pkg/llmclient"
	"github.com/codeready-toolchain/tarsy/pkg/models"
	"github.com/codeready-toolchain/tarsy/pkg/safety"
)

const actionSystemPromptTemplate = `You are an autonomous agent. Decide the single next action to take, one of:
CODE (run a shell snippet), WRITE (create/overwrite a file), EDIT (apply find/replace
pairs to a file), READ (read a file), DONE (task complete), ASK (ask the user a
question), BYE (end the conversation). Available tools:
%s
Respond with your reasoning followed by exactly one action.`

// actionStep runs one iteration of executor phase 4: refresh the HUD, call
// the model for a free-form action envelope, coerce it via the Action
// Interpreter, then dispatch and safety-gate the resulting action.
//
// Returns (result, usage, terminal). terminal is true once the turn has
// reached DONE/ASK/BYE or a Safety Auditor outcome that ends the action loop
// (CANCELLED/CONFIRMATION_REQUIRED).
func (l *Loop) actionStep(ctx context.Context, classification models.RequestClassification) (*models.ExecutionResult, llmclient.Usage, bool, error) {
	var total llmclient.Usage

	l.convo.RefreshEphemeral(hud{state: l.state, env: l.envDetails()})

	dispatch := l.convo.PrepareForDispatch()
	messages := make([]llmclient.Message, 0, len(dispatch)+1)
	messages = append(messages, llmclient.Message{
		Role:    "system",
		Content: fmt.Sprintf(actionSystemPromptTemplate, l.registry.RenderSignatures()),
	})
	for _, d := range dispatch {
		messages = append(messages, llmclient.Message{Role: string(d.Role), Content: d.Content, CacheHint: d.CacheHint})
	}

	freeform, usage, err := l.dispatcher.Call(ctx, llmclient.GenerateRequest{Model: l.cfg.Model, Messages: messages})
	total = addUsage(total, usage)
	if err != nil {
		return nil, total, false, err
	}
	l.convo.Append(models.ConversationRecord{Role: models.RoleAssistant, Content: freeform, ShouldSummarize: true})

	schema, usage, err := l.interpretAction(ctx, freeform)
	total = addUsage(total, usage)
	if err != nil {
		// Validation failure (spec.md §7 Validation kind): record and let the
		// caller's next action-loop iteration re-prompt.
		result := &models.ExecutionResult{
			ID: newID(), Timestamp: time.Now(), ExecutionType: models.ExecutionTypeAction,
			Status: models.StatusError, Message: err.Error(),
		}
		l.recordActionFeedback(err.Error())
		return result, total, false, nil
	}

	for _, learning := range schema.Learnings {
		l.state.AppendLearning(learning, l.cfg.MaxLearningsHistory)
	}

	result, usage, terminal, err := l.dispatchAction(ctx, schema)
	total = addUsage(total, usage)
	return result, total, terminal, err
}

// dispatchAction implements executor phase 4.c.
func (l *Loop) dispatchAction(ctx context.Context, schema models.ResponseSchema) (*models.ExecutionResult, llmclient.Usage, bool, error) {
	var usage llmclient.Usage

	switch schema.Action {
	case models.ActionDone, models.ActionAsk, models.ActionBye:
		result := &models.ExecutionResult{
			ID: newID(), Timestamp: time.Now(), Action: schema.Action,
			ExecutionType: models.ExecutionTypeAction, Status: models.StatusSuccess,
			Message: schema.Response, IsComplete: schema.Action != models.ActionDone,
		}
		if schema.Action != models.ActionDone {
			l.convo.Append(models.ConversationRecord{Role: models.RoleAssistant, Content: schema.Response, ShouldSummarize: true})
		}
		return result, usage, true, nil

	case models.ActionCode:
		return l.dispatchWithRetry(ctx, schema, l.runCode)

	case models.ActionWrite:
		return l.dispatchGated(ctx, schema, func() (string, error) { return l.handleWrite(schema.FilePath, schema.Content) })

	case models.ActionEdit:
		return l.dispatchGated(ctx, schema, func() (string, error) { return l.handleEdit(schema.FilePath, schema.Replacements) })

	case models.ActionRead:
		return l.dispatchGated(ctx, schema, func() (string, error) { return l.handleRead(schema.FilePath) })

	default:
		return nil, usage, false, fmt.Errorf("unhandled action %q", schema.Action)
	}
}

// dispatchGated runs a safety audit before invoking fn, appending the
// result as a user record on success per the per-action contracts in
// spec.md §4.5.c.
func (l *Loop) dispatchGated(ctx context.Context, schema models.ResponseSchema, fn func() (string, error)) (*models.ExecutionResult, llmclient.Usage, bool, error) {
	outcome, usage, err := l.audit(ctx, schema)
	if err != nil {
		return nil, usage, false, err
	}
	if outcome.Status != models.StatusNone {
		return l.auditDenialResult(schema, outcome), usage, true, nil
	}

	msg, err := fn()
	if err != nil {
		result := l.fileErrorResult(schema, err)
		return result, usage, false, nil
	}
	msg = l.mask(msg)

	l.convo.Append(models.ConversationRecord{Role: models.RoleUser, Content: msg, ShouldSummarize: true})
	return &models.ExecutionResult{
		ID: newID(), Timestamp: time.Now(), Action: schema.Action, ExecutionType: models.ExecutionTypeAction,
		Status: models.StatusSuccess, Message: msg, Files: fileList(schema.FilePath),
	}, usage, false, nil
}

// dispatchWithRetry implements the CODE action's safety gate plus
// retry-on-error (up to MaxRetries, spec.md §4.5.c).
func (l *Loop) dispatchWithRetry(ctx context.Context, schema models.ResponseSchema, run func(context.Context, string) (*models.ExecutionResult, error)) (*models.ExecutionResult, llmclient.Usage, bool, error) {
	outcome, usage, err := l.audit(ctx, schema)
	if err != nil {
		return nil, usage, false, err
	}
	if outcome.Status != models.StatusNone {
		return l.auditDenialResult(schema, outcome), usage, true, nil
	}

	code := schema.Code
	var lastResult *models.ExecutionResult
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		result, err := run(ctx, code)
		if err != nil {
			return nil, usage, false, err
		}
		lastResult = result
		if result.Status == models.StatusSuccess {
			return result, usage, false, nil
		}
		if attempt == MaxRetries {
			break
		}

		corrected, retryUsage, err := l.requestCorrectedCode(ctx, code, result)
		usage = addUsage(usage, retryUsage)
		if err != nil {
			break
		}
		code = corrected
	}
	return lastResult, usage, false, nil
}

// runCode executes one CODE action via the sandbox and builds its
// ExecutionResult, including the annotated error block on failure
// (spec.md §4.5 "Error recording").
func (l *Loop) runCode(ctx context.Context, code string) (*models.ExecutionResult, error) {
	out, err := l.sandbox.Execute(ctx, code)
	if err != nil {
		return nil, apperrors.New(apperrors.KindCodeExecution, "sandbox execution failed", err)
	}

	result := &models.ExecutionResult{
		ID: newID(), Timestamp: time.Now(), Action: models.ActionCode, ExecutionType: models.ExecutionTypeAction,
		Code: code, Stdout: l.mask(out.Stdout), Stderr: l.mask(out.Stderr), Logging: out.Logging,
	}
	if out.Err != nil {
		result.Status = models.StatusError
		result.Message = out.Err.Message
		result.FormattedPrint = fmt.Sprintf("Error: %s\nLine %d:\n%s", out.Err.Message, out.Err.LineNumber, out.Err.AnnotatedSnippet)
		l.recordActionFeedback(result.FormattedPrint)
	} else {
		result.Status = models.StatusSuccess
	}
	return result, nil
}

func (l *Loop) requestCorrectedCode(ctx context.Context, failedCode string, result *models.ExecutionResult) (string, llmclient.Usage, error) {
	const correctionSystemPrompt = `The previous code snippet failed. Write a corrected version that fixes the error. Respond with only the corrected snippet, no commentary.`
	prompt := fmt.Sprintf("Failed snippet:\n%s\n\nError:\n%s", failedCode, result.FormattedPrint)
	return l.dispatcher.Call(ctx, llmclient.GenerateRequest{
		Model: l.cfg.Model,
		Messages: []llmclient.Message{
			{Role: "system", Content: correctionSystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
}

// audit runs the Safety Auditor in whichever mode l.cfg.CanPromptUser
// selects — spec.md §4.4.
func (l *Loop) audit(ctx context.Context, schema models.ResponseSchema) (safety.Outcome, llmclient.Usage, error) {
	actionJSON, err := json.Marshal(schema)
	if err != nil {
		return safety.Outcome{}, llmclient.Usage{}, fmt.Errorf("marshal action for audit: %w", err)
	}

	usage := llmclient.Usage{} // the auditor's own Checker call is accounted inside its dedicated dispatcher in production wiring; see pkg/api wiring notes.

	if l.cfg.CanPromptUser {
		outcome, err := l.auditor.AuditPromptUser(ctx, schema, string(actionJSON), l.prompter)
		if err != nil {
			return safety.Outcome{}, usage, err
		}
		l.recordSecurityCheck(outcome)
		return outcome, usage, nil
	}

	outcome, err := l.auditor.AuditConversationConfirm(ctx, schema, string(actionJSON), l.convo.Records(), l.risk)
	if err != nil {
		return safety.Outcome{}, usage, err
	}
	l.recordSecurityCheck(outcome)
	return outcome, usage, nil
}

func (l *Loop) recordSecurityCheck(outcome safety.Outcome) {
	l.emit(models.ExecutionResult{
		ID: newID(), Timestamp: time.Now(), ExecutionType: models.ExecutionTypeSecurityCheck,
		Status: outcomeToStatus(outcome), Message: outcome.Message,
	})
	if outcome.Status == models.StatusConfirmationRequired {
		l.convo.Append(models.ConversationRecord{Role: models.RoleAssistant, Content: outcome.Message, ShouldSummarize: true})
	}
}

func outcomeToStatus(outcome safety.Outcome) models.Status {
	if outcome.Status == models.StatusNone {
		return models.StatusSuccess
	}
	return outcome.Status
}

func (l *Loop) auditDenialResult(schema models.ResponseSchema, outcome safety.Outcome) *models.ExecutionResult {
	return &models.ExecutionResult{
		ID: newID(), Timestamp: time.Now(), Action: schema.Action, ExecutionType: models.ExecutionTypeAction,
		Status: outcome.Status, Message: outcome.Message,
	}
}

func (l *Loop) fileErrorResult(schema models.ResponseSchema, err error) *models.ExecutionResult {
	msg := err.Error()
	l.recordActionFeedback(msg)
	return &models.ExecutionResult{
		ID: newID(), Timestamp: time.Now(), Action: schema.Action, ExecutionType: models.ExecutionTypeAction,
		Status: models.StatusError, Message: msg, FormattedPrint: msg,
	}
}

// recordActionFeedback appends an error as a summarizable user turn so the
// model can recover on its next call — spec.md §4.5 "Error recording".
func (l *Loop) recordActionFeedback(msg string) {
	l.convo.Append(models.ConversationRecord{Role: models.RoleUser, Content: msg, ShouldSummarize: true})
}

func (l *Loop) envDetails() string {
	return fmt.Sprintf("step=%d", len(l.state.ExecutionHistory))
}

func fileList(path string) []string {
	if path == "" {
		return nil
	}
	return []string{path}
}
