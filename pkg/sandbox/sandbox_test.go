package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCapturesStdout(t *testing.T) {
	dir := t.TempDir()
	sb := New(dir, tools.NewRegistry(), 5*time.Second)

	result, err := sb.Execute(context.Background(), "echo $((2 + 3))")
	require.NoError(t, err)
	assert.Nil(t, result.Err)
	assert.Equal(t, "5\n", result.Stdout)
}

func TestExecutePersistsNamespaceAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	sb := New(dir, tools.NewRegistry(), 5*time.Second)

	_, err := sb.Execute(context.Background(), "x=42")
	require.NoError(t, err)

	result, err := sb.Execute(context.Background(), "echo $x")
	require.NoError(t, err)
	assert.Equal(t, "42\n", result.Stdout)
}

func TestExecuteErrorDoesNotDestroyNamespace(t *testing.T) {
	dir := t.TempDir()
	sb := New(dir, tools.NewRegistry(), 5*time.Second)

	_, err := sb.Execute(context.Background(), "y=7")
	require.NoError(t, err)

	result, err := sb.Execute(context.Background(), "false")
	require.NoError(t, err)
	require.NotNil(t, result.Err)

	result, err = sb.Execute(context.Background(), "echo $y")
	require.NoError(t, err)
	assert.Equal(t, "7\n", result.Stdout)
}

func TestExecuteBindsToolsFunction(t *testing.T) {
	dir := t.TempDir()
	reg := tools.NewRegistry()
	reg.Add(tools.Signature{Name: "greet"}, func(ctx context.Context, args map[string]any) (any, error) {
		return "hello " + args["name"].(string), nil
	})
	sb := New(dir, reg, 5*time.Second)

	result, err := sb.Execute(context.Background(), `tools greet name=world`)
	require.NoError(t, err)
	assert.Nil(t, result.Err)
	assert.Contains(t, result.Stdout, "hello world")
}

func TestAnnotateSnippetMarksErrorLine(t *testing.T) {
	out := AnnotateSnippet("a=1\nb=2\nexit 1", 3)
	assert.Contains(t, out, "->    3")
	assert.Contains(t, out, "exit 1")
}
