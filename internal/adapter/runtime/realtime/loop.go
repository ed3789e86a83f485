package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"piltlab/internal/app/ports"
)

var ErrLoopStopped = errors.New("event loop stopped")

// Loop serializes every trial callback on one goroutine.
type Loop struct {
	tasks   chan func()
	stopped chan struct{}
	once    sync.Once
	start   time.Time
}

func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		tasks:   make(chan func(), buffer),
		stopped: make(chan struct{}),
		start:   time.Now(),
	}
}

// Run executes posted tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	defer l.once.Do(func() { close(l.stopped) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.stopped:
		return false
	case l.tasks <- fn:
		return true
	}
}

// Do runs fn on the loop and waits for it.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrLoopStopped
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NowMs is monotonic: time.Since reads the monotonic clock.
func (l *Loop) NowMs() float64 {
	return float64(time.Since(l.start)) / float64(time.Millisecond)
}

// NewScheduler returns a scheduler whose ClearAllTimers only affects its own timers.
func (l *Loop) NewScheduler() *Scheduler {
	return &Scheduler{loop: l, timers: map[*time.Timer]struct{}{}}
}

type Scheduler struct {
	loop   *Loop
	mu     sync.Mutex
	gen    uint64
	timers map[*time.Timer]struct{}
}

func (s *Scheduler) SetTimer(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.gen
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		s.loop.Post(func() {
			if s.generation() != gen {
				return
			}
			fn()
		})
	})
	s.timers[t] = struct{}{}
}

func (s *Scheduler) ClearAllTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	for t := range s.timers {
		t.Stop()
	}
	s.timers = map[*time.Timer]struct{}{}
}

func (s *Scheduler) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (l *Loop) NewTimers() ports.Scheduler {
	return l.NewScheduler()
}
