package registry

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Open(filepath.Join(t.TempDir(), "agents"), time.Millisecond)
	require.NoError(t, err)
	return reg
}

func TestCreateAndGet(t *testing.T) {
	reg := newTestRegistry(t)

	rec, err := reg.Create("scout", "you are scout")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "scout", rec.Name)
	require.Len(t, rec.State.Conversation, 1)

	got, err := reg.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "scout", got.Name)
}

func TestGetUnknownFails(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Get("does-not-exist")
	require.Error(t, err)
}

func TestUpdatePersistsAcrossCache(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.Create("scout", "sys")
	require.NoError(t, err)

	_, err = reg.Update(rec.ID, func(r *Record) error {
		r.State.AppendLearning("use tabs", 10)
		return nil
	})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond) // clear refresh window so Get reloads from disk
	got, err := reg.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"use tabs"}, got.State.Learnings)
}

func TestDeleteRemovesDirectory(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.Create("scout", "sys")
	require.NoError(t, err)

	require.NoError(t, reg.Delete(rec.ID))
	_, err = os.Stat(reg.dir(rec.ID))
	assert.True(t, os.IsNotExist(err))
}

func TestListFilterSortPagination(t *testing.T) {
	reg := newTestRegistry(t)
	names := []string{"bravo", "alpha", "charlie"}
	for _, n := range names {
		_, err := reg.Create(n, "sys")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	all, err := reg.List(ListFilter{SortBy: SortByName})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, []string{all[0].Name, all[1].Name, all[2].Name})

	desc, err := reg.List(ListFilter{SortBy: SortByName, Descending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, "charlie", desc[0].Name)
	assert.Equal(t, "bravo", desc[1].Name)

	filtered, err := reg.List(ListFilter{NameContains: "ra"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "bravo", filtered[0].Name)
}

func TestExportImportRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.Create("scout", "you are scout")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(rec.CWD, "notes.txt"), []byte("hello"), 0o644))
	_, err = reg.Update(rec.ID, func(r *Record) error {
		r.State.AppendLearning("remember this", 10)
		return nil
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, reg.Export(rec.ID, &buf))

	imported, err := reg.Import(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	assert.NotEqual(t, rec.ID, imported.ID)
	assert.Equal(t, "scout", imported.Name)
	assert.Equal(t, []string{"remember this"}, imported.State.Learnings)
	assert.NotEqual(t, rec.CWD, imported.CWD)

	data, err := os.ReadFile(filepath.Join(imported.CWD, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
