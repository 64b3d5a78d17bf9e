// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to the
// llmclient.Provider interface, including per-message cache-control hints —
// the Conversation Store's ShouldCache annotation (spec.md §4.3) maps
// directly onto Anthropic's prompt-caching cache_control blocks.
//
// Grounded on haasonsaas-nexus/internal/agent/providers/anthropic.go's
// MessageNewParams construction and content_block_delta streaming loop.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/codeready-toolchain/tarsy/pkg/llmclient"
)

const defaultMaxTokens = 4096

// Provider implements llmclient.Provider against the Anthropic Messages API.
type Provider struct {
	client anthropic.Client
}

// New creates a Provider authenticated with apiKey.
func New(apiKey string) *Provider {
	return &Provider{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Stream(ctx context.Context, req llmclient.GenerateRequest) (<-chan llmclient.StreamChunk, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	out := make(chan llmclient.StreamChunk)
	go func() {
		defer close(out)
		var inputTokens, outputTokens int
		for stream.Next() {
			event := stream.Current()
			switch event.Type {
			case "message_start":
				ms := event.AsMessageStart()
				inputTokens = int(ms.Message.Usage.InputTokens)
			case "content_block_delta":
				delta := event.AsContentBlockDelta()
				if text := delta.Delta.Text; text != "" {
					select {
					case out <- llmclient.StreamChunk{Delta: text}:
					case <-ctx.Done():
						return
					}
				}
			case "message_delta":
				md := event.AsMessageDelta()
				if md.Usage.OutputTokens > 0 {
					outputTokens = int(md.Usage.OutputTokens)
				}
			case "message_stop":
				out <- llmclient.StreamChunk{Done: true, Usage: &llmclient.Usage{
					PromptTokens:     inputTokens,
					CompletionTokens: outputTokens,
				}}
			}
		}
		if err := stream.Err(); err != nil {
			if isRateLimit(err) {
				// Best effort: the dispatcher classifies retryability from the
				// error returned by Stream, not from mid-stream failures, so a
				// rate limit discovered here simply ends the stream early.
				return
			}
		}
	}()
	return out, nil
}

func buildParams(req llmclient.GenerateRequest) (anthropic.MessageNewParams, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
	}

	for _, m := range req.Messages {
		if m.Role == "system" {
			block := anthropic.TextBlockParam{Text: m.Content}
			if m.CacheHint {
				block.CacheControl = anthropic.NewCacheControlEphemeralParam()
			}
			params.System = append(params.System, block)
			continue
		}

		role := anthropic.MessageParamRoleUser
		if m.Role == "assistant" {
			role = anthropic.MessageParamRoleAssistant
		}
		textBlock := anthropic.NewTextBlock(m.Content)
		if m.CacheHint {
			textBlock.OfText.CacheControl = anthropic.NewCacheControlEphemeralParam()
		}
		params.Messages = append(params.Messages, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{textBlock},
		})
	}

	if len(params.Messages) == 0 {
		return params, fmt.Errorf("anthropic: at least one non-system message is required")
	}
	return params, nil
}

func isRateLimit(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") || strings.Contains(msg, "overloaded")
}
