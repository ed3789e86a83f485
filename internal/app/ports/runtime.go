package ports

import (
	"context"
	"time"

	"piltlab/internal/domain/trial"
)

// Surface renders a frame. done must be called exactly once, after the visual
// transition into the frame has completed.
type Surface interface {
	Render(frame trial.Frame, done func())
}

// Clock is a monotonic millisecond clock.
type Clock interface {
	NowMs() float64
}

// Scheduler runs fn after d. Callbacks of cleared timers must never run, even
// when they already fired and are queued.
type Scheduler interface {
	SetTimer(d time.Duration, fn func())
	ClearAllTimers()
}

type KeyListener interface {
	RegisterKeyListener(keys []string, fn func(trial.KeyEvent))
	CancelKeyListener()
}

type ResultSink interface {
	Complete(result trial.Result)
}

// ResultSinkFunc adapts a function to ResultSink.
type ResultSinkFunc func(result trial.Result)

func (f ResultSinkFunc) Complete(result trial.Result) {
	f(result)
}

// FrameSurface is a Surface whose current frame can be read back by clients.
type FrameSurface interface {
	Surface
	Current() trial.Frame
}

// KeyInput is a KeyListener fed by an external input source. PressAt runs on
// the event loop and reports whether the registered listener received key.
type KeyInput interface {
	KeyListener
	PressAt(key string, atMs float64) bool
}

// EventLoop serializes trial callbacks on one goroutine.
type EventLoop interface {
	Clock
	Post(fn func()) bool
	Do(ctx context.Context, fn func()) error
	NewTimers() Scheduler
}
