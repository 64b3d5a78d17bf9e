package convo

import (
	"context"
	"errors"
	"testing"

	"github.com/codeready-toolchain/tarsy/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSummarizer struct {
	summary string
	err     error
}

func (s stubSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

type stubHUD struct{ text string }

func (h stubHUD) RenderHUD() string { return h.text }

func TestNewStoreSeedsSystemPrompt(t *testing.T) {
	s := New("you are an agent", 10, 2)
	require.Len(t, s.Records(), 1)
	assert.True(t, s.Records()[0].IsSystemPrompt)
	assert.Equal(t, models.RoleSystem, s.Records()[0].Role)
}

func TestTrimAtExactBoundary(t *testing.T) {
	s := New("sys", 10, -1)
	for i := 0; i < 11; i++ {
		s.Append(models.ConversationRecord{Role: models.RoleUser, Content: "msg"})
	}
	// max_conversation_history+1 records appended (excluding system prompt) -> trim fires
	require.NoError(t, s.Validate())
	assert.Equal(t, 1+1+10/2, s.Len())
	assert.Equal(t, models.TruncationMarkerContent, s.Records()[1].Content)
}

func TestSummarizeAgedRecords(t *testing.T) {
	s := New("sys", 100, 2)
	for i := 0; i < 9; i++ {
		s.Append(models.ConversationRecord{
			Role:            models.RoleUser,
			Content:         "detail",
			ShouldSummarize: true,
		})
	}
	err := s.SummarizeAged(context.Background(), stubSummarizer{summary: "short"})
	require.NoError(t, err)

	recs := s.Records()
	n := len(recs)
	for i := 1; i < n; i++ {
		positionFromEnd := n - i
		if positionFromEnd > 2 {
			assert.True(t, recs[i].Summarized)
			assert.Contains(t, recs[i].Content, models.SummaryPrefix)
		} else {
			assert.False(t, recs[i].Summarized)
		}
	}
}

func TestSummarizeIsIdempotent(t *testing.T) {
	s := New("sys", 100, 0)
	s.Append(models.ConversationRecord{Role: models.RoleUser, Content: "old", ShouldSummarize: true})
	s.Append(models.ConversationRecord{Role: models.RoleUser, Content: "new"})

	require.NoError(t, s.SummarizeAged(context.Background(), stubSummarizer{summary: "s1"}))
	first := s.Records()[1].Content

	require.NoError(t, s.SummarizeAged(context.Background(), stubSummarizer{summary: "s2"}))
	assert.Equal(t, first, s.Records()[1].Content, "already-summarized record must not change again")
}

func TestSummarizeFailsOpen(t *testing.T) {
	s := New("sys", 100, 0)
	s.Append(models.ConversationRecord{Role: models.RoleUser, Content: "old", ShouldSummarize: true})
	s.Append(models.ConversationRecord{Role: models.RoleUser, Content: "new"})

	err := s.SummarizeAged(context.Background(), stubSummarizer{err: errors.New("boom")})
	require.NoError(t, err)
	assert.False(t, s.Records()[1].Summarized)
	assert.Equal(t, "old", s.Records()[1].Content)
}

func TestDisableSummarization(t *testing.T) {
	s := New("sys", 100, -1)
	s.Append(models.ConversationRecord{Role: models.RoleUser, Content: "old", ShouldSummarize: true})
	require.NoError(t, s.SummarizeAged(context.Background(), stubSummarizer{summary: "x"}))
	assert.False(t, s.Records()[1].Summarized)
}

func TestRefreshEphemeralReplacesHUD(t *testing.T) {
	s := New("sys", 100, -1)
	s.RefreshEphemeral(stubHUD{"hud v1"})
	require.Len(t, s.Records(), 2)
	assert.True(t, s.Records()[1].Ephemeral)
	assert.Equal(t, "hud v1", s.Records()[1].Content)

	s.RefreshEphemeral(stubHUD{"hud v2"})
	require.Len(t, s.Records(), 2, "old ephemeral must be purged before appending the new one")
	assert.Equal(t, "hud v2", s.Records()[1].Content)
}

func TestPrepareForDispatchDemotesLaterSystemRoleAndLimitsCacheHints(t *testing.T) {
	s := New("sys", 100, -1)
	for i := 0; i < 6; i++ {
		s.Append(models.ConversationRecord{Role: models.RoleSystem, Content: "x", ShouldCache: true})
	}
	out := s.PrepareForDispatch()

	assert.Equal(t, models.RoleSystem, out[0].Role)
	for _, r := range out[1:] {
		assert.Equal(t, models.RoleUser, r.Role)
	}

	hinted := 0
	for _, r := range out {
		if r.CacheHint {
			hinted++
		}
	}
	assert.Equal(t, CacheHintLimit, hinted)
	// the hints must be the most-recent ones
	for i := len(out) - CacheHintLimit; i < len(out); i++ {
		assert.True(t, out[i].CacheHint)
	}
}

func TestPrepareForDispatchFewerThanLimit(t *testing.T) {
	s := New("sys", 100, -1)
	s.Append(models.ConversationRecord{Role: models.RoleUser, Content: "a", ShouldCache: true})
	out := s.PrepareForDispatch()
	hinted := 0
	for _, r := range out {
		if r.CacheHint {
			hinted++
		}
	}
	assert.Equal(t, 1, hinted)
}
