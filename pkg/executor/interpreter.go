package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/codeready-toolchain/tarsy/pkg/llmclient"
	"github.com/codeready-toolchain/tarsy/pkg/models"
)

// interpreterSystemPrompt is the Action Interpreter's coercion prompt —
// spec.md §4.5.b and Design Note (§9) "idempotent coercion to the Response
// Schema". A second, dedicated model call normalizes whatever tag/prose
// format the primary action call produced into strict JSON.
const interpreterSystemPrompt = `You turn an agent's free-form action response into strict JSON matching this
schema: {"action": one of CODE|READ|WRITE|EDIT|DONE|ASK|BYE, "response": string,
"code": string, "content": string, "file_path": string,
"replacements": [{"find": string, "replace": string}], "mentioned_files": [string],
"learnings": [string]}. Emit exactly one action. Respond with only the JSON object.`

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// interpretAction issues the Action Interpreter call and coerces its output
// into a strict models.ResponseSchema, enforcing the single-action-per-
// response rule the spec's Open Questions flags as interpreter-only —
// DESIGN.md records the decision to add a strict validator here too.
func (l *Loop) interpretAction(ctx context.Context, freeform string) (models.ResponseSchema, llmclient.Usage, error) {
	text, usage, err := l.dispatcher.Call(ctx, llmclient.GenerateRequest{
		Model: l.cfg.Model,
		Messages: []llmclient.Message{
			{Role: "system", Content: interpreterSystemPrompt},
			{Role: "user", Content: freeform},
		},
	})
	if err != nil {
		return models.ResponseSchema{}, llmclient.Usage{}, err
	}

	match := jsonObjectRe.FindString(text)
	if match == "" {
		return models.ResponseSchema{}, usage, fmt.Errorf("action interpreter returned no JSON object")
	}

	var schema models.ResponseSchema
	if err := json.Unmarshal([]byte(match), &schema); err != nil {
		return models.ResponseSchema{}, usage, fmt.Errorf("action interpreter output did not parse: %w", err)
	}
	if err := validateSingleAction(schema); err != nil {
		return models.ResponseSchema{}, usage, err
	}
	return schema, usage, nil
}

// validateSingleAction rejects a coerced schema whose action field is empty
// or unrecognized — the strict validator the spec's §9 Open Questions
// recommends in addition to the interpreter prompt's own instruction.
func validateSingleAction(schema models.ResponseSchema) error {
	switch schema.Action {
	case models.ActionCode, models.ActionRead, models.ActionWrite, models.ActionEdit,
		models.ActionDone, models.ActionAsk, models.ActionBye:
		return nil
	default:
		return fmt.Errorf("action interpreter produced an unrecognized or missing action: %q", schema.Action)
	}
}
