package view

import (
	"sync"

	"piltlab/internal/domain/trial"
)

// Surface keeps the frame most recently rendered so clients can poll it.
type Surface struct {
	// Transition, when set, is responsible for calling done once the frame is
	// visible. Without it frames are considered visible immediately.
	Transition func(frame trial.Frame, done func())
	// KeepHistory records every rendered frame.
	KeepHistory bool

	mu      sync.RWMutex
	current trial.Frame
	history []trial.Frame
}

func (s *Surface) Render(frame trial.Frame, done func()) {
	s.mu.Lock()
	s.current = frame
	if s.KeepHistory {
		s.history = append(s.history, frame)
	}
	s.mu.Unlock()

	if s.Transition != nil {
		s.Transition(frame, done)
		return
	}
	done()
}

func (s *Surface) Current() trial.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Surface) History() []trial.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]trial.Frame, len(s.history))
	copy(out, s.history)
	return out
}
