package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name     string
	attempts int
	failN    int // fail with RateLimitError for the first failN calls
	chunks   []StreamChunk
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Stream(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error) {
	s.attempts++
	if s.attempts <= s.failN {
		return nil, &RateLimitError{Cause: context.DeadlineExceeded}
	}
	out := make(chan StreamChunk, len(s.chunks))
	for _, c := range s.chunks {
		out <- c
	}
	close(out)
	return out, nil
}

func TestDispatcherCallSucceedsFirstTry(t *testing.T) {
	p := &stubProvider{name: "stub", chunks: []StreamChunk{{Delta: "hello "}, {Delta: "world"}}}
	d := NewDispatcher(p, 1000, 10)

	text, usage, err := d.Call(context.Background(), GenerateRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, 2, usage.CompletionTokens)
	assert.Equal(t, 1, p.attempts)
}

func TestDispatcherRetriesOnRateLimit(t *testing.T) {
	p := &stubProvider{name: "stub", failN: 2, chunks: []StreamChunk{{Delta: "ok"}}}
	d := NewDispatcher(p, 1000, 10)

	text, _, err := d.Call(context.Background(), GenerateRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, p.attempts)
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	p := &stubProvider{name: "stub", failN: 10}
	d := NewDispatcher(p, 1000, 10)

	_, _, err := d.Call(context.Background(), GenerateRequest{Model: "m"})
	require.Error(t, err)
	assert.Equal(t, MaxAttempts, p.attempts)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 3, EstimateTokens("one two three"))
	assert.Equal(t, 0, EstimateTokens(""))
}
