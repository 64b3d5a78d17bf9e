package agentrun

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/registry"
)

func newTestFactory(t *testing.T) (*Factory, *registry.Registry) {
	t.Helper()
	reg, err := registry.Open(filepath.Join(t.TempDir(), "agents"), time.Millisecond)
	require.NoError(t, err)

	cfg := &config.Config{
		Runtime: config.RuntimeConfig{
			ConversationLength: 20,
			DetailLength:       5,
			Hosting:            "anthropic",
			Model:              "claude-test",
		},
		Providers: map[string]*config.ProviderConfig{
			"anthropic": {Hosting: "anthropic", Model: "claude-test"},
		},
	}
	return NewFactory(cfg, reg, nil), reg
}

func TestDispatcherUnknownProvider(t *testing.T) {
	f, _ := newTestFactory(t)
	_, err := f.Dispatcher("does-not-exist")
	assert.Error(t, err)
}

func TestDispatcherKnownProvider(t *testing.T) {
	f, _ := newTestFactory(t)
	d, err := f.Dispatcher("anthropic")
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestBuildLoopAssemblesDependencies(t *testing.T) {
	f, reg := newTestFactory(t)
	rec, err := reg.Create("scout", "you are scout")
	require.NoError(t, err)

	loop, err := f.BuildLoop(rec, f.cfg.Runtime, false, nil)
	require.NoError(t, err)
	assert.NotNil(t, loop)
	assert.Equal(t, rec.State.Conversation, loop.Records())
}

func TestInterruptWithNoRunningTurnReturnsFalse(t *testing.T) {
	f, _ := newTestFactory(t)
	assert.False(t, f.Interrupt("no-such-agent"))
}

func TestTrackRunningAndInterrupt(t *testing.T) {
	f, reg := newTestFactory(t)
	rec, err := reg.Create("scout", "you are scout")
	require.NoError(t, err)

	loop, err := f.BuildLoop(rec, f.cfg.Runtime, false, nil)
	require.NoError(t, err)

	untrack := f.TrackRunning(rec.ID, loop)
	assert.True(t, f.Interrupt(rec.ID))
	untrack()
	assert.False(t, f.Interrupt(rec.ID))
}

func TestPersistWritesStateBack(t *testing.T) {
	f, reg := newTestFactory(t)
	rec, err := reg.Create("scout", "you are scout")
	require.NoError(t, err)

	loop, err := f.BuildLoop(rec, f.cfg.Runtime, false, nil)
	require.NoError(t, err)
	loop.State().Learnings = append(loop.State().Learnings, "learned something")

	require.NoError(t, f.Persist(rec.ID, loop))

	got, err := reg.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"learned something"}, got.State.Learnings)
}
