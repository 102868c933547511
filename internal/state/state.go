package state

import (
	"sync"

	"obra-dashboard/internal/models"
)

// Store holds the dashboard DatasetState. Only the ingestion orchestrator
// writes it; everything else reads snapshots.
type Store struct {
	mu sync.RWMutex

	current models.DatasetState

	// Header names of the last successfully loaded source
	headers []string
}

// NewStore returns a store in the idle phase with no records.
func NewStore() *Store {
	return &Store{
		current: models.DatasetState{
			Records: []models.CanonicalRecord{},
			Phase:   models.PhaseIdle,
		},
	}
}

// BeginLoading moves the state to loading for a new attempt. It returns
// false, leaving the state untouched, when an attempt is already loading.
// Records of the previous attempt stay visible while loading.
func (s *Store) BeginLoading(attemptID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Loading {
		return false
	}
	s.current.Loading = true
	s.current.Error = ""
	s.current.UsingFallback = false
	s.current.Phase = models.PhaseLoading
	s.current.AttemptID = attemptID
	return true
}

// Finish replaces the whole state with next. Loading is always cleared.
// headers is kept only when non-nil.
func (s *Store) Finish(next models.DatasetState, headers []string) {
	next.Loading = false
	next.Records = copyRecords(next.Records)
	if next.LastUpdate != nil {
		t := *next.LastUpdate
		next.LastUpdate = &t
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = next
	if headers != nil {
		s.headers = append([]string(nil), headers...)
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() models.DatasetState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.current
	snap.Records = copyRecords(s.current.Records)
	if s.current.LastUpdate != nil {
		t := *s.current.LastUpdate
		snap.LastUpdate = &t
	}
	return snap
}

// Headers returns the header names of the last live source.
func (s *Store) Headers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.headers...)
}

func copyRecords(in []models.CanonicalRecord) []models.CanonicalRecord {
	out := make([]models.CanonicalRecord, len(in))
	copy(out, in)
	return out
}
