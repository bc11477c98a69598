package dataset

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"faqbot/internal/domain"
)

// Snapshot is one immutable view of the knowledge base plus derived
// indexes. It is shared across concurrent searches without locking; a
// reload builds a fresh Snapshot and swaps the pointer.
type Snapshot struct {
	entries  []domain.QAEntry
	byCat    map[string][]domain.QAEntry
	faqs     map[string][]domain.QAEntry
	faqByID  map[string]domain.QAEntry
	loadedAt time.Time
}

// NewSnapshot indexes a set of entries. The Store builds snapshots from
// the data file; tests and callers with in-memory entries build them
// directly.
func NewSnapshot(entries []domain.QAEntry) *Snapshot {
	s := &Snapshot{
		entries:  entries,
		byCat:    make(map[string][]domain.QAEntry),
		faqs:     make(map[string][]domain.QAEntry),
		faqByID:  make(map[string]domain.QAEntry),
		loadedAt: time.Now(),
	}
	for _, e := range entries {
		cat := strings.ToLower(e.Category)
		if cat != "" {
			s.byCat[cat] = append(s.byCat[cat], e)
		}
		if e.IsFAQ() {
			s.faqs[cat] = append(s.faqs[cat], e)
			s.faqByID[e.FAQID] = e
		}
	}
	for cat := range s.faqs {
		list := s.faqs[cat]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].DisplayOrder < list[j].DisplayOrder
		})
	}
	return s
}

// Entries returns every entry in dataset order. Callers must not mutate
// the returned slice.
func (s *Snapshot) Entries() []domain.QAEntry { return s.entries }

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.entries) }

// LoadedAt returns when this snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// HasCategory reports whether at least one entry carries the label,
// compared case-insensitively.
func (s *Snapshot) HasCategory(label string) bool {
	_, ok := s.byCat[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// EntriesInCategory returns the entries carrying the label, in dataset
// order. The result is nil for an unknown label.
func (s *Snapshot) EntriesInCategory(label string) []domain.QAEntry {
	return s.byCat[strings.ToLower(strings.TrimSpace(label))]
}

// FAQsByCategory returns the curated FAQ rows of a category ordered by
// their display order.
func (s *Snapshot) FAQsByCategory(label string) []domain.QAEntry {
	return s.faqs[strings.ToLower(strings.TrimSpace(label))]
}

// FAQByID resolves a curated question either by its sheet FAQ id or by
// its ordinal entry id.
func (s *Snapshot) FAQByID(id string) (domain.QAEntry, bool) {
	if e, ok := s.faqByID[id]; ok {
		return e, true
	}
	if n, err := strconv.Atoi(id); err == nil && n >= 1 && n <= len(s.entries) {
		return s.entries[n-1], true
	}
	return domain.QAEntry{}, false
}

// CategoryStats summarizes one category for the admin surface.
type CategoryStats struct {
	Total   int `json:"total_count"`
	FAQ     int `json:"faq_count"`
	General int `json:"general_count"`
}

// Summary returns per-category counts keyed by the lowercased label.
func (s *Snapshot) Summary() map[string]CategoryStats {
	out := make(map[string]CategoryStats, len(s.byCat))
	for cat, list := range s.byCat {
		var st CategoryStats
		for _, e := range list {
			st.Total++
			if e.IsFAQ() {
				st.FAQ++
			} else {
				st.General++
			}
		}
		out[cat] = st
	}
	return out
}

// Store owns the current snapshot and replaces it wholesale on reload.
type Store struct {
	path string
	log  *zap.Logger

	snap  atomic.Pointer[Snapshot]
	group singleflight.Group
}

// NewStore loads the source once and fails when the initial load fails;
// the search path is unavailable without a dataset.
func NewStore(path string, log *zap.Logger) (*Store, error) {
	entries, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	st := &Store{path: path, log: log}
	st.snap.Store(NewSnapshot(entries))
	log.Info("dataset loaded", zap.String("path", path), zap.Int("entries", len(entries)))
	return st, nil
}

// Snapshot returns the current immutable view.
func (st *Store) Snapshot() *Snapshot {
	return st.snap.Load()
}

// Reload re-reads the source and atomically swaps the snapshot. Concurrent
// calls collapse into a single read; on failure the previous snapshot
// stays in place.
func (st *Store) Reload() (*Snapshot, error) {
	v, err, _ := st.group.Do("reload", func() (any, error) {
		entries, err := LoadFile(st.path)
		if err != nil {
			return nil, err
		}
		snap := NewSnapshot(entries)
		st.snap.Store(snap)
		st.log.Info("dataset reloaded", zap.String("path", st.path), zap.Int("entries", len(entries)))
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Status describes the store for the data-source status surface.
type Status struct {
	Path     string    `json:"path"`
	Entries  int       `json:"entries"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Status returns the current data-source state.
func (st *Store) Status() Status {
	snap := st.Snapshot()
	return Status{Path: st.path, Entries: snap.Len(), LoadedAt: snap.LoadedAt()}
}
