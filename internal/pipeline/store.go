package pipeline

import (
	"sync"
)

// Observer receives every snapshot the store publishes, in order. Observe is
// called on the goroutine driving the run and must not block for long.
type Observer interface {
	Observe(snap Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(snap Snapshot)

func (f ObserverFunc) Observe(snap Snapshot) { f(snap) }

// Store holds the current run and its results for presentation layers. Only
// the Orchestrator mutates it; everyone else reads snapshots.
type Store struct {
	mu       sync.Mutex
	run      Run
	results  Results
	seq      uint64
	observer Observer
}

// NewStore creates an idle store. observer may be nil.
func NewStore(observer Observer) *Store {
	return &Store{observer: observer}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Run:     s.run,
		Results: s.results.clone(),
		Seq:     s.seq,
	}

	if s.run.Err != nil {
		errCopy := *s.run.Err
		snap.Run.Err = &errCopy
		snap.Error = errCopy.Message
	}

	return snap
}

// update applies fn under the lock and publishes the result. Progress never
// moves backwards within a run.
func (s *Store) update(fn func(run *Run, results *Results)) {
	s.mu.Lock()

	prev := s.run.Progress
	fn(&s.run, &s.results)
	s.run.Progress = max(prev, min(s.run.Progress, 100))
	s.seq++
	snap := s.snapshotLocked()

	s.mu.Unlock()

	if s.observer != nil {
		s.observer.Observe(snap)
	}
}

// reset starts a new run: stage Transcribing, progress 0, no results.
func (s *Store) reset() {
	s.mu.Lock()

	s.run = Run{Stage: StageTranscribing}
	s.results = Results{}
	s.seq++
	snap := s.snapshotLocked()

	s.mu.Unlock()

	if s.observer != nil {
		s.observer.Observe(snap)
	}
}
