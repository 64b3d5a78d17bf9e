package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddGetRemove(t *testing.T) {
	r := NewRegistry()
	r.Add(Signature{Name: "echo", Returns: "string"}, func(ctx context.Context, args map[string]any) (any, error) {
		return args["text"], nil
	})

	tool, ok := r.Get("echo")
	require.True(t, ok)
	out, err := tool.Fn(context.Background(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	r.Remove("echo")
	_, ok = r.Get("echo")
	assert.False(t, ok)
}

func TestRegistryCallUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Call(context.Background(), "nope", nil)
	assert.Error(t, err)
}

func TestRenderSignaturesSortedAndFormatted(t *testing.T) {
	r := NewRegistry()
	r.Add(Signature{Name: "zeta", Returns: "string", Summary: "does zeta things"}, nil)
	r.Add(Signature{Name: "alpha", Returns: "int", Suspending: true}, nil)

	out := r.RenderSignatures()
	alphaIdx := indexOf(out, "alpha")
	zetaIdx := indexOf(out, "zeta")
	require.NotEqual(t, -1, alphaIdx)
	require.NotEqual(t, -1, zetaIdx)
	assert.Less(t, alphaIdx, zetaIdx, "tools must render in sorted order")
	assert.Contains(t, out, "(suspending)")
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestListWorkingDirectoryHonorsHardIgnoreAndGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "x.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.local"), []byte("s"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.local\n"), 0o644))

	listing, err := ListWorkingDirectory(root, 3)
	require.NoError(t, err)

	rootEntries := listing["."]
	names := map[string]bool{}
	for _, e := range rootEntries {
		names[e.Name] = true
	}
	assert.True(t, names["main.go"])
	assert.False(t, names["secret.local"])
	assert.NotContains(t, listing, "node_modules")
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, CategoryCode, categorize("main.go"))
	assert.Equal(t, CategoryDoc, categorize("README.md"))
	assert.Equal(t, CategoryImage, categorize("logo.png"))
	assert.Equal(t, CategoryOther, categorize("noext"))
}
