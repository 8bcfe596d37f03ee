package store

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/sceneguard/pkg/fadeout"
	"github.com/matzehuels/sceneguard/pkg/overlap"
)

// MemoryStore keeps everything in maps guarded by one RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]Run
	events   map[string][]overlap.Event
	removals map[string][]fadeout.Report
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:     make(map[string]Run),
		events:   make(map[string][]overlap.Event),
		removals: make(map[string][]fadeout.Report),
	}
}

func (s *MemoryStore) SaveRun(_ context.Context, r Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return Run{}, runNotFound(id)
	}
	return r, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]RunInfo, error) {
	s.mu.RLock()
	out := make([]RunInfo, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.Info())
	}
	s.mu.RUnlock()
	return newestFirst(out, limit), nil
}

func (s *MemoryStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return runNotFound(id)
	}
	delete(s.runs, id)
	delete(s.events, id)
	delete(s.removals, id)
	return nil
}

func (s *MemoryStore) SaveEvent(_ context.Context, runID string, ev overlap.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := s.events[runID]
	if i := slices.IndexFunc(evs, func(e overlap.Event) bool { return e.ID == ev.ID }); i >= 0 {
		evs[i] = ev
		return nil
	}
	s.events[runID] = append(evs, ev)
	return nil
}

func (s *MemoryStore) Events(_ context.Context, runID string) ([]overlap.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events[runID]), nil
}

func (s *MemoryStore) AppendRemoval(_ context.Context, runID string, r fadeout.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removals[runID] = append(s.removals[runID], r)
	return nil
}

func (s *MemoryStore) Removals(_ context.Context, runID string) ([]fadeout.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.removals[runID]), nil
}

func (s *MemoryStore) Close() error { return nil }

// newestFirst sorts by creation time descending (id breaks ties) and
// truncates to limit when limit > 0.
func newestFirst(runs []RunInfo, limit int) []RunInfo {
	slices.SortFunc(runs, func(a, b RunInfo) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

var _ Store = (*MemoryStore)(nil)
