// Package openai adapts github.com/sashabaranov/go-openai to the
// llmclient.Provider interface.
//
// Grounded on haasonsaas-nexus/internal/agent/providers/openai.go's
// streaming-chunk conversion and rate-limit string-matching idiom.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codeready-toolchain/tarsy/pkg/llmclient"
)

// Provider implements llmclient.Provider against the OpenAI chat completions
// streaming API.
type Provider struct {
	client *openai.Client
}

// New creates a Provider. apiKey must be non-empty; callers construct this
// only when the operator has configured an OpenAI credential.
func New(apiKey string) *Provider {
	return &Provider{client: openai.NewClient(apiKey)}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Stream(ctx context.Context, req llmclient.GenerateRequest) (<-chan llmclient.StreamChunk, error) {
	if p.client == nil {
		return nil, errors.New("openai: client not configured")
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: convertMessages(req.Messages),
		Stream:   true,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		if isRateLimit(err) {
			return nil, &llmclient.RateLimitError{Cause: err}
		}
		return nil, fmt.Errorf("openai: create stream: %w", err)
	}

	out := make(chan llmclient.StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err != nil {
				if err == io.EOF {
					return
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" && resp.Choices[0].FinishReason == "" {
				continue
			}
			select {
			case out <- llmclient.StreamChunk{Delta: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func convertMessages(messages []llmclient.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := m.Role
		if i > 0 && role == "system" {
			role = "user" // OpenAI rejects more than one system message in a turn
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}

func isRateLimit(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") ||
		strings.Contains(msg, "502") || strings.Contains(msg, "503")
}
