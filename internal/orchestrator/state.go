package orchestrator

import "sync"

// Status is the render job state machine's current state, shared in
// shape between a single-episode job and a group job: idle -> rendering
// -> (completed | cancelled | failed), terminal until a new StartRender.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRendering  Status = "rendering"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// jobSlot enforces "at most one in-flight job" for either an episode job
// or a group job: Claim succeeds only when the slot is free, and otherwise
// reports the key holding it. The callers return ErrBusy for a different
// key and treat the same key as the job already in flight.
type jobSlot struct {
	mu  sync.Mutex
	key string // the id currently occupying the slot, "" when free
}

// Claim reserves the slot for key. ok is false and current holds the
// already-running key when the slot is occupied by something else.
func (s *jobSlot) Claim(key string) (ok bool, current string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == "" {
		s.key = key
		return true, ""
	}
	return false, s.key
}

// Release frees the slot if it is currently held for key.
func (s *jobSlot) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == key {
		s.key = ""
	}
}

// Current returns the key currently occupying the slot, or "" when free.
func (s *jobSlot) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}
