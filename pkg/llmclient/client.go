// Package llmclient defines the narrow Provider interface the Executor Loop
// and Conversation Store dispatch against (spec.md §6 "Provider interface"),
// plus a Dispatcher that adds retry/backoff and per-provider rate limiting
// in front of any concrete Provider.
//
// Grounded on pkg/llm/client.go's call-site shape, translated off the
// teacher's gRPC-to-sidecar transport (dropped — see DESIGN.md) onto direct
// SDK streaming calls. Retry/backoff classification is grounded on
// pkg/mcp/recovery.go's RecoveryAction decision table.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/codeready-toolchain/tarsy/pkg/tracing"
)

// Message is one entry in a provider-bound conversation turn.
type Message struct {
	Role      string // "system", "user", "assistant"
	Content   string
	CacheHint bool
}

// GenerateRequest is one model call.
type GenerateRequest struct {
	Model     string
	Messages  []Message
	MaxTokens int
}

// Usage carries token accounting as reported by the provider, when available.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// StreamChunk is one increment of a streamed response.
type StreamChunk struct {
	Delta string
	Done  bool
	Usage *Usage // only set on the final chunk, and only if the provider reports it
}

// Provider is the narrow suspending-stream interface every concrete adapter
// implements. Callers needing a single string should use Dispatcher.Call,
// which drains the stream.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error)
}

// RateLimitError marks an error the Dispatcher should treat as retryable
// with backoff, regardless of the concrete provider's error type.
type RateLimitError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *RateLimitError) Error() string { return fmt.Sprintf("rate limited: %v", e.Cause) }
func (e *RateLimitError) Unwrap() error { return e.Cause }

// MaxAttempts bounds retries for a single model call — spec.md §4.5.
const MaxAttempts = 3

const (
	backoffMin = 500 * time.Millisecond
	backoffMax = 2 * time.Second
)

// Dispatcher wraps a Provider with retry/backoff and a per-provider token
// bucket, so every executor phase (classification, action, reflection,
// summarization, safety, risk-summary) shares one throttled call path.
type Dispatcher struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewDispatcher wraps provider with a limiter admitting ratePerSecond calls,
// bursting up to burst.
func NewDispatcher(provider Provider, ratePerSecond float64, burst int) *Dispatcher {
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	if burst <= 0 {
		burst = 2
	}
	return &Dispatcher{provider: provider, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Call issues req and returns the fully drained text plus usage (estimated
// via EstimateTokens when the provider does not report it), retrying up to
// MaxAttempts times on rate-limit errors with jittered exponential backoff.
func (d *Dispatcher) Call(ctx context.Context, req GenerateRequest) (string, Usage, error) {
	var lastErr error
	var wait time.Duration
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if attempt > 0 {
			if wait <= 0 {
				wait = backoff(attempt)
			}
			slog.Warn("retrying model call after rate limit", "provider", d.provider.Name(),
				"attempt", attempt+1, "wait", wait)
			select {
			case <-ctx.Done():
				return "", Usage{}, ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := d.limiter.Wait(ctx); err != nil {
			return "", Usage{}, err
		}

		text, usage, err := d.callOnce(ctx, req)
		if err == nil {
			return text, usage, nil
		}

		var rle *RateLimitError
		if !errors.As(err, &rle) {
			return "", Usage{}, err
		}
		// A 429 with an explicit retry-after takes precedence over the
		// exponential backoff schedule — spec.md §4.5 retry discipline.
		wait = rle.RetryAfter
		lastErr = err
	}
	return "", Usage{}, fmt.Errorf("model call exhausted %d attempts: %w", MaxAttempts, lastErr)
}

func (d *Dispatcher) callOnce(ctx context.Context, req GenerateRequest) (string, Usage, error) {
	callCtx, span := tracing.StartProviderCall(ctx, d.provider.Name(), req.Model)
	text, usage, err := d.streamOnce(callCtx, req)
	tracing.End(span, err)
	return text, usage, err
}

func (d *Dispatcher) streamOnce(ctx context.Context, req GenerateRequest) (string, Usage, error) {
	chunks, err := d.provider.Stream(ctx, req)
	if err != nil {
		return "", Usage{}, err
	}
	var sb strings.Builder
	usage := Usage{}
	for chunk := range chunks {
		sb.WriteString(chunk.Delta)
		if chunk.Usage != nil {
			usage = *chunk.Usage
		}
	}
	text := sb.String()
	if usage.CompletionTokens == 0 {
		usage.CompletionTokens = EstimateTokens(text)
	}
	if usage.PromptTokens == 0 {
		for _, m := range req.Messages {
			usage.PromptTokens += EstimateTokens(m.Content)
		}
	}
	return text, usage, nil
}

// EstimateTokens approximates token count by whitespace-split word count
// when a provider's stream does not report native usage — Open Question 2
// (SPEC_FULL.md / DESIGN.md): not a precise tokenizer, documented as an
// approximation only.
func EstimateTokens(s string) int {
	return len(strings.Fields(s))
}

func backoff(attempt int) time.Duration {
	span := backoffMax - backoffMin
	jitter := time.Duration(rand.Int64N(int64(span)))
	mult := time.Duration(1 << uint(attempt-1))
	d := backoffMin*mult + jitter
	if d > backoffMax*time.Duration(attempt+1) {
		d = backoffMax * time.Duration(attempt+1)
	}
	return d
}
