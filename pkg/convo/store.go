// Package convo implements the Conversation Store (spec.md §4.3): the
// append-only Conversation Record log for one agent, with windowing,
// age-gated summarization, ephemeral HUD re-materialization, and
// provider cache hints.
package convo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/models"
)

// CacheHintLimit is N in "at most N=4 most-recent cache hints honored".
const CacheHintLimit = 4

// Summarizer issues the dedicated summarizer LLM call used to compress an
// aged record into a one-sentence [SUMMARY]. Implemented by pkg/llmclient
// adapters; kept as a narrow interface here so the store has no direct
// provider dependency.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// HUDRenderer renders the ephemeral heads-up-display record re-materialized
// before every model call (env details, learnings, plan, instructions).
type HUDRenderer interface {
	RenderHUD() string
}

// Store owns the Conversation Records of a single agent.
//
// Not safe for concurrent use by multiple goroutines at once — spec.md §5
// guarantees at most one executor phase runs per agent at a time, so the
// store itself does not need internal locking; pkg/registry is responsible
// for not handing the same AgentState to two concurrent executor runs.
type Store struct {
	records []models.ConversationRecord

	maxConversationHistory int
	detailConversationLen  int // -1 disables summarization
}

// New creates a Store seeded with the given system prompt as the first,
// permanent record.
func New(systemPrompt string, maxConversationHistory, detailConversationLen int) *Store {
	return &Store{
		records: []models.ConversationRecord{
			{
				Role:           models.RoleSystem,
				Content:        systemPrompt,
				Timestamp:      time.Now(),
				IsSystemPrompt: true,
			},
		},
		maxConversationHistory: maxConversationHistory,
		detailConversationLen:  detailConversationLen,
	}
}

// Load wraps an existing (e.g. deserialized) record slice. The first
// record must already be the system prompt — callers restoring from disk
// are responsible for that invariant (pkg/registry checks it on import).
func Load(records []models.ConversationRecord, maxConversationHistory, detailConversationLen int) *Store {
	return &Store{
		records:                 records,
		maxConversationHistory:  maxConversationHistory,
		detailConversationLen:   detailConversationLen,
	}
}

// Records returns the live record slice. Callers must not retain it across
// a call that mutates the store (Append, Trim, RefreshEphemeral, ...).
func (s *Store) Records() []models.ConversationRecord { return s.records }

// Append adds a record and trims the window if it now exceeds capacity.
func (s *Store) Append(r models.ConversationRecord) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	s.records = append(s.records, r)
	s.trim()
}

// trim enforces: first record + one truncation marker + the most recent
// maxConversationHistory/2 records, fired once length (excluding the
// system prompt) exceeds maxConversationHistory. Spec.md §3 invariant:
// |conversation| never exceeds maxConversationHistory + 2.
func (s *Store) trim() {
	if s.maxConversationHistory <= 0 {
		return
	}
	body := s.records[1:] // everything after the system prompt
	if len(body) <= s.maxConversationHistory {
		return
	}

	keep := s.maxConversationHistory / 2
	if keep > len(body) {
		keep = len(body)
	}
	recent := body[len(body)-keep:]

	marker := models.ConversationRecord{
		Role:            models.RoleUser,
		Content:         models.TruncationMarkerContent,
		Timestamp:       time.Now(),
		ShouldSummarize: false,
	}

	trimmed := make([]models.ConversationRecord, 0, 2+len(recent))
	trimmed = append(trimmed, s.records[0], marker)
	trimmed = append(trimmed, recent...)
	s.records = trimmed
}

// SummarizeAged compresses every record that is older than the detail
// window, not the system prompt, should_summarize==true, and not yet
// summarized. detailConversationLen == -1 disables this entirely.
func (s *Store) SummarizeAged(ctx context.Context, summarizer Summarizer) error {
	if s.detailConversationLen == -1 {
		return nil
	}
	n := len(s.records)
	for i := 1; i < n; i++ { // skip the system prompt at index 0
		positionFromEnd := n - i
		r := &s.records[i]
		if positionFromEnd <= s.detailConversationLen {
			continue
		}
		if r.IsSystemPrompt || !r.ShouldSummarize || r.Summarized {
			continue
		}
		summary, err := summarizer.Summarize(ctx, r.Content)
		if err != nil {
			// Fail-open: leave the record unsummarized for a future pass,
			// mirroring the teacher's maybeSummarize fail-open policy.
			slog.Warn("conversation summarization failed, leaving record verbatim", "error", err)
			continue
		}
		r.Content = models.SummaryPrefix + summary
		r.Summarized = true
	}
	return nil
}

// RefreshEphemeral purges every ephemeral record, then appends a freshly
// rendered HUD record also marked ephemeral. Must run immediately before
// every model dispatch (spec.md §3 invariant).
func (s *Store) RefreshEphemeral(hud HUDRenderer) {
	kept := s.records[:0:0]
	for _, r := range s.records {
		if r.Ephemeral {
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept

	s.records = append(s.records, models.ConversationRecord{
		Role:      models.RoleUser,
		Content:   hud.RenderHUD(),
		Timestamp: time.Now(),
		Ephemeral: true,
	})
}

// DispatchRecord is one record prepared for a provider call: the content
// plus whether a cache-control checkpoint should be attached.
type DispatchRecord struct {
	Role      models.Role
	Content   string
	CacheHint bool
}

// PrepareForDispatch normalizes the outgoing record list for a provider
// call: only the first record may carry the system role (later
// system-like records are demoted to user), and at most the last
// CacheHintLimit records with ShouldCache==true are annotated.
func (s *Store) PrepareForDispatch() []DispatchRecord {
	out := make([]DispatchRecord, len(s.records))
	for i, r := range s.records {
		role := r.Role
		if i > 0 && role == models.RoleSystem {
			role = models.RoleUser
		}
		out[i] = DispatchRecord{Role: role, Content: r.Content}
	}

	hinted := 0
	for i := len(s.records) - 1; i >= 0 && hinted < CacheHintLimit; i-- {
		if s.records[i].ShouldCache {
			out[i].CacheHint = true
			hinted++
		}
	}
	return out
}

// Len returns the number of records including the system prompt.
func (s *Store) Len() int { return len(s.records) }

// Validate checks the invariants spec.md §8 quantifies, returning an error
// describing the first violation found. Intended for tests and for a
// defensive check after deserializing an imported agent.
func (s *Store) Validate() error {
	if len(s.records) == 0 || !s.records[0].IsSystemPrompt {
		return fmt.Errorf("conversation[0] must be the system prompt")
	}
	if s.maxConversationHistory > 0 && len(s.records)-1 > s.maxConversationHistory+1 {
		return fmt.Errorf("conversation length %d exceeds max_conversation_history+2 (%d)",
			len(s.records), s.maxConversationHistory+2)
	}
	return nil
}
