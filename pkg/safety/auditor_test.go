package safety

import (
	"context"
	"errors"
	"testing"

	"github.com/codeready-toolchain/tarsy/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	analysis string
	err      error
}

func (c stubChecker) CheckSafety(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.analysis, c.err
}

type stubPrompter struct {
	approve bool
	err     error
}

func (p stubPrompter) Confirm(ctx context.Context, message string) (bool, error) {
	return p.approve, p.err
}

type stubRiskSummarizer struct{ summary string }

func (s stubRiskSummarizer) SummarizeRisk(ctx context.Context, action models.ResponseSchema, analysis string) (string, error) {
	return s.summary, nil
}

func TestAuditPromptUserSafe(t *testing.T) {
	a := New(stubChecker{analysis: "looks fine [SAFE]"}, "never delete prod", 0)
	out, err := a.AuditPromptUser(context.Background(), models.ResponseSchema{}, "{}", stubPrompter{})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictSafe, out.Verdict)
	assert.Equal(t, models.StatusNone, out.Status)
}

func TestAuditPromptUserUnsafeDeclined(t *testing.T) {
	a := New(stubChecker{analysis: "deletes system files [UNSAFE]"}, "", 0)
	out, err := a.AuditPromptUser(context.Background(), models.ResponseSchema{}, "{}", stubPrompter{approve: false})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, out.Status)
}

func TestAuditPromptUserUnsafeOverridden(t *testing.T) {
	a := New(stubChecker{analysis: "deletes system files [UNSAFE]"}, "", 0)
	out, err := a.AuditPromptUser(context.Background(), models.ResponseSchema{}, "{}", stubPrompter{approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNone, out.Status)
	assert.Equal(t, models.VerdictOverride, out.Verdict)
}

func TestAuditPromptUserCheckerErrorFailsClosed(t *testing.T) {
	a := New(stubChecker{err: errors.New("provider down")}, "", 0)
	out, err := a.AuditPromptUser(context.Background(), models.ResponseSchema{}, "{}", stubPrompter{approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, out.Status, "checker failure must never be treated as SAFE")
}

func TestAuditConversationConfirmUnsafe(t *testing.T) {
	a := New(stubChecker{analysis: "os.remove('system.dll') is destructive [UNSAFE]"}, "", 5)
	conv := []models.ConversationRecord{
		{Role: models.RoleUser, Content: "clean up old files"},
	}
	out, err := a.AuditConversationConfirm(context.Background(), models.ResponseSchema{}, `{"action":"CODE"}`, conv, stubRiskSummarizer{summary: "this deletes a system DLL"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmationRequired, out.Status)
	assert.Equal(t, "this deletes a system DLL", out.Message)
}

func TestAuditConversationConfirmTruncatesLongHistory(t *testing.T) {
	a := New(stubChecker{analysis: "[SAFE]"}, "", 2)
	conv := make([]models.ConversationRecord, 10)
	for i := range conv {
		conv[i] = models.ConversationRecord{Role: models.RoleUser, Content: "x"}
	}
	transcript := a.buildTranscript(conv, "{}")
	assert.Contains(t, transcript, "omitted for brevity")
}

func TestAuditConversationConfirmOverride(t *testing.T) {
	a := New(stubChecker{analysis: "[OVERRIDE]"}, "", 5)
	out, err := a.AuditConversationConfirm(context.Background(), models.ResponseSchema{}, "{}", nil, stubRiskSummarizer{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNone, out.Status)
	assert.Equal(t, models.VerdictOverride, out.Verdict)
}
