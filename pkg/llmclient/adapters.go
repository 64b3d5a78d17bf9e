package llmclient

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/tarsy/pkg/models"
)

// SummarizerAdapter satisfies pkg/convo's Summarizer interface over a
// Dispatcher, issuing a dedicated one-sentence-compression call per aged
// record — spec.md §4.3.
type SummarizerAdapter struct {
	Dispatcher *Dispatcher
	Model      string
}

const summarizeSystemPrompt = `Compress the following conversation record into one concise sentence that preserves any facts a later turn might need. Respond with only the sentence.`

func (s SummarizerAdapter) Summarize(ctx context.Context, content string) (string, error) {
	text, _, err := s.Dispatcher.Call(ctx, GenerateRequest{
		Model: s.Model,
		Messages: []Message{
			{Role: "system", Content: summarizeSystemPrompt},
			{Role: "user", Content: content},
		},
	})
	return text, err
}

// CheckerAdapter satisfies pkg/safety's Checker interface.
type CheckerAdapter struct {
	Dispatcher *Dispatcher
	Model      string
}

func (c CheckerAdapter) CheckSafety(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	text, _, err := c.Dispatcher.Call(ctx, GenerateRequest{
		Model: c.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	return text, err
}

// RiskSummarizerAdapter satisfies pkg/safety's RiskSummarizer interface.
type RiskSummarizerAdapter struct {
	Dispatcher *Dispatcher
	Model      string
}

const riskSummarySystemPrompt = `Summarize, for a non-expert user, why the following proposed action was flagged unsafe and what confirming it would mean. Be concise and concrete.`

func (r RiskSummarizerAdapter) SummarizeRisk(ctx context.Context, action models.ResponseSchema, analysis string) (string, error) {
	text, _, err := r.Dispatcher.Call(ctx, GenerateRequest{
		Model: r.Model,
		Messages: []Message{
			{Role: "system", Content: riskSummarySystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Proposed action: %+v\n\nSafety analysis:\n%s", action, analysis)},
		},
	})
	return text, err
}
