package executor

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/tarsy/pkg/llmclient"
	"github.com/codeready-toolchain/tarsy/pkg/models"
)

const classificationSystemPrompt = `Classify the user's request. Respond with a <classification> tag containing
JSON: {"type": one of [conversation, research, deep_research, software_development,
data_science, creative_writing, data_analysis, automation, system_administration,
debugging, refactoring, testing, documentation, planning, translation, summarization,
question_answering, tutoring, other], "planning_required": bool, "relative_effort":
"low"|"medium"|"high", "subject_change": bool}.`

var classificationTagRe = regexp.MustCompile(`(?s)<classification>(.*?)</classification>`)

// classify runs executor phase 2 (spec.md §4.5): a dedicated model call
// parsed from an XML-ish tag envelope, falling back to
// models.DefaultClassification on any parse failure.
func (l *Loop) classify(ctx context.Context, userMessage string) (models.RequestClassification, llmclient.Usage, error) {
	text, usage, err := l.dispatcher.Call(ctx, llmclient.GenerateRequest{
		Model: l.cfg.Model,
		Messages: []llmclient.Message{
			{Role: "system", Content: classificationSystemPrompt},
			{Role: "user", Content: userMessage},
		},
	})
	if err != nil {
		return models.DefaultClassification(), llmclient.Usage{}, err
	}

	c, parseErr := parseClassification(text)
	if parseErr != nil {
		return models.DefaultClassification(), usage, nil
	}
	return c, usage, nil
}

func parseClassification(text string) (models.RequestClassification, error) {
	match := classificationTagRe.FindStringSubmatch(text)
	if match == nil {
		return models.RequestClassification{}, errNoTag
	}
	var c models.RequestClassification
	if err := json.Unmarshal([]byte(strings.TrimSpace(match[1])), &c); err != nil {
		return models.RequestClassification{}, err
	}
	return c, nil
}

var errNoTag = classificationParseError("no <classification> tag found")

type classificationParseError string

func (e classificationParseError) Error() string { return string(e) }

// plan runs executor phase 3: a free-form natural-language plan.
func (l *Loop) plan(ctx context.Context, userMessage string, c models.RequestClassification) (string, llmclient.Usage, error) {
	const planSystemPrompt = `Produce a short, numbered, free-form plan for how you will accomplish the user's request. Prose only, no tags.`
	return l.dispatcher.Call(ctx, llmclient.GenerateRequest{
		Model: l.cfg.Model,
		Messages: []llmclient.Message{
			{Role: "system", Content: planSystemPrompt},
			{Role: "user", Content: userMessage},
		},
	})
}

// reflect runs executor phase 4.d: a natural-language self-critique of the
// action just taken.
func (l *Loop) reflect(ctx context.Context, result models.ExecutionResult) (string, llmclient.Usage, error) {
	const reflectSystemPrompt = `Briefly reflect on whether the last action moved the task forward and what, if anything, should change next. One or two sentences. If there is nothing notable to say, respond with exactly NONE.`
	text, usage, err := l.dispatcher.Call(ctx, llmclient.GenerateRequest{
		Model: l.cfg.Model,
		Messages: []llmclient.Message{
			{Role: "system", Content: reflectSystemPrompt},
			{Role: "user", Content: result.Stdout + result.Stderr + result.Message},
		},
	})
	if err != nil {
		return "", llmclient.Usage{}, err
	}
	if strings.TrimSpace(text) == "NONE" {
		return "", usage, nil
	}
	return text, usage, nil
}

// finalResponse runs executor phase 5.
func (l *Loop) finalResponse(ctx context.Context) (string, llmclient.Usage, error) {
	const finalSystemPrompt = `Produce the final user-facing answer in first person, Markdown formatted, summarizing what was done and the result.`
	dispatch := l.convo.PrepareForDispatch()
	messages := make([]llmclient.Message, 0, len(dispatch)+1)
	messages = append(messages, llmclient.Message{Role: "system", Content: finalSystemPrompt})
	for _, d := range dispatch {
		messages = append(messages, llmclient.Message{Role: string(d.Role), Content: d.Content, CacheHint: d.CacheHint})
	}
	return l.dispatcher.Call(ctx, llmclient.GenerateRequest{Model: l.cfg.Model, Messages: messages})
}
