// Package agentrun wires the Executor Loop's dependencies (Conversation
// Store, Safety Auditor, Code Sandbox, Tool Registry, provider Dispatcher)
// from a registry.Record and a config.Config, and adapts the result to
// pkg/jobs.Executor so the Job Manager can run a turn without knowing
// about any of those pieces itself.
//
// Grounded on pkg/agent/factory.go's AgentFactory: a small constructor
// that turns a resolved configuration into a runnable object, translated
// from the teacher's per-agent-type Controller selection onto this spec's
// single Executor Loop shape.
package agentrun

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/convo"
	"github.com/codeready-toolchain/tarsy/pkg/events"
	"github.com/codeready-toolchain/tarsy/pkg/executor"
	"github.com/codeready-toolchain/tarsy/pkg/llmclient"
	"github.com/codeready-toolchain/tarsy/pkg/llmclient/anthropic"
	"github.com/codeready-toolchain/tarsy/pkg/llmclient/openai"
	"github.com/codeready-toolchain/tarsy/pkg/masking"
	"github.com/codeready-toolchain/tarsy/pkg/registry"
	"github.com/codeready-toolchain/tarsy/pkg/safety"
	"github.com/codeready-toolchain/tarsy/pkg/sandbox"
	"github.com/codeready-toolchain/tarsy/pkg/tools"
)

// AutoApprovePrompter is the TerminalPrompter used when no human operator
// is attached to approve an UNSAFE verdict — the API runs headless, so
// spec.md §4.4's prompt-user mode degrades to an automatic decline rather
// than blocking a goroutine on stdin forever.
type AutoApprovePrompter struct{}

func (AutoApprovePrompter) Confirm(context.Context, string) (bool, error) { return false, nil }

// Factory builds Loops and Dispatchers from configuration.
type Factory struct {
	cfg       *config.Config
	registry  *registry.Registry
	publisher *events.Publisher

	mu      sync.Mutex
	running map[string]*executor.Loop // agent id -> the loop currently running its turn
}

// NewFactory constructs a Factory bound to one process's configuration,
// agent registry, and event publisher.
func NewFactory(cfg *config.Config, reg *registry.Registry, publisher *events.Publisher) *Factory {
	return &Factory{cfg: cfg, registry: reg, publisher: publisher, running: make(map[string]*executor.Loop)}
}

// TrackRunning registers loop as the in-flight turn for agentID so
// Interrupt can find it; untrack removes it once the turn finishes.
func (f *Factory) TrackRunning(agentID string, loop *executor.Loop) (untrack func()) {
	f.mu.Lock()
	f.running[agentID] = loop
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.running, agentID)
		f.mu.Unlock()
	}
}

// Interrupt sets the interrupt flag on agentID's in-flight turn, if any —
// spec.md §5 Cancellation. Returns false if no turn is currently running.
func (f *Factory) Interrupt(agentID string) bool {
	f.mu.Lock()
	loop, ok := f.running[agentID]
	f.mu.Unlock()
	if !ok {
		return false
	}
	loop.Interrupt()
	return true
}

// Dispatcher builds a rate-limited Dispatcher over the named provider's
// concrete SDK client, resolving its API key from the environment variable
// named in config (spec.md §6: the credential store maps provider names to
// API keys; this spec never stores the key value itself).
func (f *Factory) Dispatcher(providerName string) (*llmclient.Dispatcher, error) {
	p, err := f.cfg.GetProvider(providerName)
	if err != nil {
		return nil, err
	}
	var apiKey string
	if p.APIKeyEnv != "" {
		apiKey = os.Getenv(p.APIKeyEnv)
	}

	var provider llmclient.Provider
	switch p.Hosting {
	case "anthropic":
		provider = anthropic.New(apiKey)
	case "openai":
		provider = openai.New(apiKey)
	default:
		return nil, fmt.Errorf("unsupported provider hosting %q", p.Hosting)
	}
	return llmclient.NewDispatcher(provider, 2, 2), nil
}

// toolRegistry builds the per-turn Tool Registry, binding the working
// directory tools to cwd. Browser/image/search tools need a concrete
// provider (go-rod pool, image backend, search API key) that this
// deployment's config does not yet name, so they are left unregistered
// rather than wired to a provider-less stub.
func toolRegistry(cwd string) *tools.Registry {
	r := tools.NewRegistry()
	r.Add(tools.Signature{
		Name:    "list_working_directory",
		Returns: "map[string][]Entry",
		Summary: "List files under the agent's working directory, grouped by category.",
	}, func(ctx context.Context, args map[string]any) (any, error) {
		maxDepth := 3
		if v, ok := args["max_depth"].(int); ok {
			maxDepth = v
		}
		return tools.ListWorkingDirectory(cwd, maxDepth)
	})
	r.Add(tools.Signature{
		Name:       "execute_wsl_command",
		Suspending: true,
		Returns:    "WSLResult",
		Summary:    "Run a shell command under WSL and capture its output.",
	}, tools.ExecuteWSLCommand())
	return r
}

// BuildLoop assembles an Executor Loop over rec's durable state, ready to
// run one turn. cfg carries the per-agent runtime knobs (spec.md §6
// Environment); canPromptUser selects the Safety Auditor's gating mode.
func (f *Factory) BuildLoop(rec *registry.Record, runtime config.RuntimeConfig, canPromptUser bool, sink executor.EventSink) (*executor.Loop, error) {
	dispatcher, err := f.Dispatcher(runtime.Hosting)
	if err != nil {
		return nil, err
	}

	store := convo.Load(rec.State.Conversation, runtime.ConversationLength, runtime.DetailLength)
	auditor := safety.New(llmclient.CheckerAdapter{Dispatcher: dispatcher, Model: runtime.Model}, "", runtime.ConversationLength)
	masker := masking.New(f.cfg.Masking)
	toolReg := toolRegistry(rec.CWD)
	sb := sandbox.New(rec.CWD, toolReg, 0)

	loopCfg := executor.Config{
		Model:               runtime.Model,
		CanPromptUser:       canPromptUser,
		PersistConversation: runtime.AutoSaveConversation,
		MaxLearningsHistory: runtime.MaxLearningsHistory,
	}

	if sink == nil && f.publisher != nil {
		sink = events.AgentSink{Pub: f.publisher, AgentID: rec.ID}
	}

	return executor.New(
		loopCfg, store, auditor, masker, sb, toolReg, executor.OSFileIO{},
		dispatcher, AutoApprovePrompter{}, llmclient.RiskSummarizerAdapter{Dispatcher: dispatcher, Model: runtime.Model},
		&rec.State, sink,
	), nil
}

// Persist writes loop's mutated state back to the registry, keeping the
// conversation records the store settled on after windowing.
func (f *Factory) Persist(agentID string, loop *executor.Loop) error {
	state := loop.State()
	state.Conversation = loop.Records()
	_, err := f.registry.Update(agentID, func(r *registry.Record) error {
		r.State = *state
		return nil
	})
	return err
}
