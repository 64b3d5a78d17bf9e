// Package registry implements the Agent Registry (spec.md §4.6):
// filesystem-backed persistence of AgentState and a per-agent working
// directory (the code-sandbox namespace lives under it), with list/create/
// read/update/delete, zip import/export, and a refresh window bounding
// staleness when multiple processes share the store.
//
// Grounded on pkg/config/sub_agent_registry.go's filter/sort-by-name idiom
// (generalized here to filter-by-name plus three sort keys) and
// pkg/database/client.go's Config-struct-plus-constructor lifecycle shape,
// translated from a pooled SQL connection onto a directory root.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/tarsy/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy/pkg/models"
)

// DefaultConfigDir is the spec.md §6 "Persisted state layout" default root.
const DefaultConfigDir = ".local-operator"

// DefaultRefreshWindow bounds staleness when multiple processes share one
// on-disk store — spec.md §4.6.
const DefaultRefreshWindow = 3 * time.Second

// Record is the registry's view of one agent: its metadata plus the durable
// AgentState the executor loop mutates.
type Record struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	CreatedAt     time.Time        `json:"created_at"`
	LastMessageAt time.Time        `json:"last_message_at"`
	CWD           string           `json:"cwd"`
	State         models.AgentState `json:"state"`
}

type cacheEntry struct {
	record   *Record
	loadedAt time.Time
}

// Registry owns one config directory's worth of per-agent subdirectories.
type Registry struct {
	mu            sync.Mutex
	baseDir       string
	refreshWindow time.Duration
	cache         map[string]*cacheEntry
}

// Open creates (if needed) baseDir and returns a Registry rooted there.
func Open(baseDir string, refreshWindow time.Duration) (*Registry, error) {
	if refreshWindow <= 0 {
		refreshWindow = DefaultRefreshWindow
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, apperrors.New(apperrors.KindExecutorInit, "create agent registry directory", err)
	}
	return &Registry{baseDir: baseDir, refreshWindow: refreshWindow, cache: make(map[string]*cacheEntry)}, nil
}

func (r *Registry) dir(id string) string    { return filepath.Join(r.baseDir, id) }
func (r *Registry) manifestPath(id string) string { return filepath.Join(r.dir(id), "agent.json") }
func (r *Registry) workdirPath(id string) string  { return filepath.Join(r.dir(id), "workdir") }

// Create mints a new agent id and persists an initial Record.
func (r *Registry) Create(name, systemPrompt string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	now := time.Now()
	rec := &Record{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		CWD:       r.workdirPath(id),
		State: models.AgentState{
			Version:           1,
			AgentSystemPrompt: systemPrompt,
			Conversation: []models.ConversationRecord{
				{Role: models.RoleSystem, Content: systemPrompt, Timestamp: now, IsSystemPrompt: true},
			},
		},
	}
	if err := os.MkdirAll(rec.CWD, 0o755); err != nil {
		return nil, apperrors.New(apperrors.KindFileIO, "create agent working directory", err)
	}
	if err := r.persist(rec); err != nil {
		return nil, err
	}
	r.cache[id] = &cacheEntry{record: rec, loadedAt: now}
	return rec.clone(), nil
}

// Get loads a Record by id, serving from the in-memory cache within the
// refresh window and re-reading from disk otherwise.
func (r *Registry) Get(id string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(id)
}

func (r *Registry) getLocked(id string) (*Record, error) {
	if entry, ok := r.cache[id]; ok && time.Since(entry.loadedAt) < r.refreshWindow {
		return entry.record.clone(), nil
	}

	data, err := os.ReadFile(r.manifestPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.KindValidation, fmt.Sprintf("agent %q not found", id), err)
		}
		return nil, apperrors.New(apperrors.KindFileIO, "read agent manifest", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, apperrors.New(apperrors.KindFileIO, "parse agent manifest", err)
	}
	r.cache[id] = &cacheEntry{record: &rec, loadedAt: time.Now()}
	return rec.clone(), nil
}

// Update loads the current record, applies mutate, and persists the result.
// mutate is called while the registry lock is held, so the caller's
// executor loop work (mutating AgentState) must not itself re-enter the
// registry.
func (r *Registry) Update(id string, mutate func(*Record) error) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	if err := mutate(rec); err != nil {
		return nil, err
	}
	rec.LastMessageAt = time.Now()
	if err := r.persist(rec); err != nil {
		return nil, err
	}
	r.cache[id] = &cacheEntry{record: rec, loadedAt: time.Now()}
	return rec.clone(), nil
}

// Delete removes an agent's directory entirely.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, id)
	if err := os.RemoveAll(r.dir(id)); err != nil {
		return apperrors.New(apperrors.KindFileIO, "delete agent directory", err)
	}
	return nil
}

func (r *Registry) persist(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return apperrors.New(apperrors.KindFileIO, "marshal agent manifest", err)
	}
	if err := os.MkdirAll(r.dir(rec.ID), 0o755); err != nil {
		return apperrors.New(apperrors.KindFileIO, "create agent directory", err)
	}
	if err := os.WriteFile(r.manifestPath(rec.ID), data, 0o644); err != nil {
		return apperrors.New(apperrors.KindFileIO, "write agent manifest", err)
	}
	return nil
}

// ListFilter narrows and orders List results — spec.md §4.6.
type ListFilter struct {
	NameContains string
	SortBy       SortKey
	Descending   bool
	Offset       int
	Limit        int // 0 means unbounded
}

// SortKey is one of the three sort fields spec.md §4.6 names.
type SortKey string

const (
	SortByName              SortKey = "name"
	SortByCreatedDate        SortKey = "created_date"
	SortByLastMessageDatetime SortKey = "last_message_datetime"
)

// List enumerates every agent directory, applying filter/sort/pagination.
func (r *Registry) List(filter ListFilter) ([]*Record, error) {
	r.mu.Lock()
	entries, err := os.ReadDir(r.baseDir)
	r.mu.Unlock()
	if err != nil {
		return nil, apperrors.New(apperrors.KindFileIO, "list agent registry", err)
	}

	var records []*Record
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := r.Get(entry.Name())
		if err != nil {
			continue // a partially-written or corrupt directory is skipped, not fatal
		}
		if filter.NameContains != "" && !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(filter.NameContains)) {
			continue
		}
		records = append(records, rec)
	}

	sortRecords(records, filter.SortBy, filter.Descending)

	start := filter.Offset
	if start > len(records) {
		start = len(records)
	}
	end := len(records)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return records[start:end], nil
}

func sortRecords(records []*Record, key SortKey, desc bool) {
	less := func(i, j int) bool {
		switch key {
		case SortByCreatedDate:
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		case SortByLastMessageDatetime:
			return records[i].LastMessageAt.Before(records[j].LastMessageAt)
		default:
			return records[i].Name < records[j].Name
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if desc {
			return less(j, i)
		}
		return less(i, j)
	})
}

func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.State.Conversation = append([]models.ConversationRecord(nil), r.State.Conversation...)
	c.State.ExecutionHistory = append([]models.ExecutionResult(nil), r.State.ExecutionHistory...)
	c.State.Learnings = append([]string(nil), r.State.Learnings...)
	return &c
}
