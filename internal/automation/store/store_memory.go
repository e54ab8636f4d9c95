package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"regengine/internal/automation/models"
	"regengine/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the run does not exist
// - Return the validate callback's error unchanged when it refuses a write
// - Return nil for successful operations

// InMemoryRunStore keeps runs in memory. Writers to one run are serialized by
// that run's lock; writers to different runs proceed in parallel. Readers get
// a deep copy taken under the run's read lock, so they observe a run either
// before or after a write, never during one.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*runEntry
}

type runEntry struct {
	mu sync.RWMutex
	// nil until the first successful write
	run *models.Run
	// set once the entry has been dropped from the map
	removed bool
}

func NewInMemory() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[string]*runEntry)}
}

func (s *InMemoryRunStore) entry(runID string, create bool) *runEntry {
	s.mu.RLock()
	e, ok := s.runs[runID]
	s.mu.RUnlock()
	if ok || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.runs[runID]; !ok {
		e = &runEntry{}
		s.runs[runID] = e
	}
	return e
}

// Execute runs validate then mutate on the stored run while holding its
// write lock. mutate only runs if validate returns nil. Returns a copy of the
// run after the mutation.
func (s *InMemoryRunStore) Execute(_ context.Context, runID string, validate func(*models.Run) error, mutate func(*models.Run)) (*models.Run, error) {
	e := s.entry(runID, false)
	if e == nil {
		return nil, fmt.Errorf("run %s: %w", runID, sentinel.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return nil, fmt.Errorf("run %s: %w", runID, sentinel.ErrNotFound)
	}
	if err := validate(e.run); err != nil {
		return nil, err
	}
	mutate(e.run)
	return e.run.Clone(), nil
}

// ExecuteOrCreate is Execute for a run that may not exist yet. A missing run
// is started as a fresh open run and only becomes visible if validate
// accepts the write. A refused first write leaves nothing behind.
func (s *InMemoryRunStore) ExecuteOrCreate(_ context.Context, runID string, validate func(*models.Run) error, mutate func(*models.Run)) (*models.Run, bool, error) {
	for {
		e := s.entry(runID, true)
		e.mu.Lock()
		if e.removed {
			// lost a race with a refused first write; take the new entry
			e.mu.Unlock()
			continue
		}
		run, created, err := s.executeLocked(e, runID, validate, mutate)
		e.mu.Unlock()
		return run, created, err
	}
}

// executeLocked expects e.mu to be held.
func (s *InMemoryRunStore) executeLocked(e *runEntry, runID string, validate func(*models.Run) error, mutate func(*models.Run)) (*models.Run, bool, error) {
	run, created := e.run, false
	if run == nil {
		run, created = models.NewRun(runID), true
	}
	if err := validate(run); err != nil {
		if created {
			s.drop(runID, e)
		}
		return nil, false, err
	}
	mutate(run)
	e.run = run
	return run.Clone(), created, nil
}

// drop removes an entry that never held a run. Callers hold e.mu.
func (s *InMemoryRunStore) drop(runID string, e *runEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs[runID] == e {
		delete(s.runs, runID)
	}
	e.removed = true
}

// FindByID returns a snapshot of the run.
func (s *InMemoryRunStore) FindByID(_ context.Context, runID string) (*models.Run, error) {
	e := s.entry(runID, false)
	if e == nil {
		return nil, fmt.Errorf("run %s: %w", runID, sentinel.ErrNotFound)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.run == nil {
		return nil, fmt.Errorf("run %s: %w", runID, sentinel.ErrNotFound)
	}
	return e.run.Clone(), nil
}

// ListIDs returns the IDs of all started runs in lexical order.
func (s *InMemoryRunStore) ListIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	entries := make(map[string]*runEntry, len(s.runs))
	for id, e := range s.runs {
		entries[id] = e
	}
	s.mu.RUnlock()

	ids := make([]string, 0, len(entries))
	for id, e := range entries {
		e.mu.RLock()
		started := e.run != nil
		e.mu.RUnlock()
		if started {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
