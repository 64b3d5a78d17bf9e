// Package safety implements the Safety Auditor (spec.md §4.4): an
// independent LLM-driven check that gates every side-effecting action with
// a three-way verdict (SAFE/UNSAFE/OVERRIDE) and two distinct gating modes.
//
// Grounded on pkg/masking/service.go's fail-closed gating idiom (errors
// never silently permit an action) and pkg/agent/controller/react_parser.go's
// bracketed-tag extraction style.
package safety

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/tarsy/pkg/models"
)

// Checker issues the single LLM call the auditor needs: a system+user pair
// (or an assembled transcript) and returns the raw analysis text the
// verdict is extracted from.
type Checker interface {
	CheckSafety(ctx context.Context, systemPrompt, userPrompt string) (analysis string, err error)
}

// TerminalPrompter asks a human operator for an explicit y/n override in
// prompt-user mode.
type TerminalPrompter interface {
	Confirm(ctx context.Context, message string) (approved bool, err error)
}

// RiskSummarizer produces the natural-language risk summary appended as an
// assistant record when conversation-confirm mode returns UNSAFE.
type RiskSummarizer interface {
	SummarizeRisk(ctx context.Context, action models.ResponseSchema, analysis string) (string, error)
}

// Outcome is the result of one audit, consumed by the executor loop to
// decide whether to proceed, cancel, or surface CONFIRMATION_REQUIRED.
type Outcome struct {
	Verdict models.SafetyVerdict
	Status  models.Status // NONE=proceed, CANCELLED, CONFIRMATION_REQUIRED
	Message string        // refusal text or risk summary, for the conversation/result
}

// Auditor implements both gating modes.
type Auditor struct {
	checker          Checker
	userPreferences  string // free-text user security preferences, prompt-user mode
	conversationLength int  // records of real conversation included, confirm mode
}

// New constructs an Auditor.
func New(checker Checker, userPreferences string, conversationLength int) *Auditor {
	return &Auditor{
		checker:            checker,
		userPreferences:    userPreferences,
		conversationLength: conversationLength,
	}
}

// systemPromptUserMode is the auditor's self-contained system prompt for
// prompt-user mode (single-shot check, no conversation context).
const systemPromptUserMode = `You are a security auditor for an autonomous coding agent.
Given the user's stated security preferences and a proposed action, decide
whether the action is safe to execute unattended.
Respond with your analysis, ending with exactly one of: [SAFE] [UNSAFE] [OVERRIDE].`

// AuditPromptUser runs can_prompt_user==true mode: a single self-contained
// LLM call, and on UNSAFE a terminal y/n prompt for explicit override.
func (a *Auditor) AuditPromptUser(ctx context.Context, action models.ResponseSchema, actionJSON string, prompter TerminalPrompter) (Outcome, error) {
	userPrompt := fmt.Sprintf(
		"User security preferences:\n%s\n\nProposed action:\n%s",
		a.userPreferences, actionJSON)

	analysis, err := a.checker.CheckSafety(ctx, systemPromptUserMode, userPrompt)
	if err != nil {
		// Fail closed: a checker error is never treated as SAFE.
		slog.Error("safety check failed, denying by default", "error", err)
		return Outcome{Verdict: models.VerdictUnsafe, Status: models.StatusCancelled,
			Message: "safety check failed; action denied"}, nil
	}

	verdict := models.ExtractVerdict(analysis)
	switch verdict {
	case models.VerdictSafe, models.VerdictOverride:
		return Outcome{Verdict: verdict, Status: models.StatusNone}, nil
	case models.VerdictUnsafe:
		approved, err := prompter.Confirm(ctx, analysis)
		if err != nil {
			return Outcome{}, err
		}
		if approved {
			return Outcome{Verdict: models.VerdictOverride, Status: models.StatusNone,
				Message: "user override accepted"}, nil
		}
		return Outcome{Verdict: models.VerdictUnsafe, Status: models.StatusCancelled,
			Message: "action declined by user after safety warning"}, nil
	default:
		return Outcome{Verdict: models.VerdictSafe, Status: models.StatusNone}, nil
	}
}

const systemPromptConfirmMode = `You are a security auditor reviewing an autonomous agent's conversation
and its next proposed action. Decide whether the action is safe given
everything said so far. Respond with your analysis, ending with exactly
one of: [SAFE] [UNSAFE] [OVERRIDE].`

// AuditConversationConfirm runs can_prompt_user==false mode: the check is
// issued against a transcript of the auditor system prompt followed by the
// last conversationLength records of the real conversation (prepending a
// truncation notice if the real conversation was longer).
func (a *Auditor) AuditConversationConfirm(ctx context.Context, action models.ResponseSchema, actionJSON string, realConversation []models.ConversationRecord, summarizer RiskSummarizer) (Outcome, error) {
	transcript := a.buildTranscript(realConversation, actionJSON)

	analysis, err := a.checker.CheckSafety(ctx, systemPromptConfirmMode, transcript)
	if err != nil {
		slog.Error("safety check failed, denying by default", "error", err)
		return Outcome{Verdict: models.VerdictUnsafe, Status: models.StatusConfirmationRequired,
			Message: "safety check failed; confirmation required before proceeding"}, nil
	}

	verdict := models.ExtractVerdict(analysis)
	switch verdict {
	case models.VerdictSafe, models.VerdictOverride:
		return Outcome{Verdict: verdict, Status: models.StatusNone}, nil
	case models.VerdictUnsafe:
		summary, err := summarizer.SummarizeRisk(ctx, action, analysis)
		if err != nil {
			summary = analysis // fall back to the raw analysis rather than fail closed silently
		}
		return Outcome{Verdict: models.VerdictUnsafe, Status: models.StatusConfirmationRequired,
			Message: summary}, nil
	default:
		return Outcome{Verdict: models.VerdictSafe, Status: models.StatusNone}, nil
	}
}

func (a *Auditor) buildTranscript(realConversation []models.ConversationRecord, actionJSON string) string {
	n := len(realConversation)
	start := 0
	truncated := false
	if a.conversationLength > 0 && n > a.conversationLength {
		start = n - a.conversationLength
		truncated = true
	}

	out := ""
	if truncated {
		out += "[Earlier conversation history omitted for brevity]\n\n"
	}
	for _, r := range realConversation[start:] {
		out += fmt.Sprintf("%s: %s\n", r.Role, r.Content)
	}
	out += fmt.Sprintf("\nProposed action:\n%s", actionJSON)
	return out
}
