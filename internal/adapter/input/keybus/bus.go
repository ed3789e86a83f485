package keybus

import (
	"strings"
	"sync"

	"piltlab/internal/app/ports"
	"piltlab/internal/domain/trial"
)

// Bus is a KeyListener fed by Press. Events are stamped with Clock when pressed.
// With a Dispatch they are handed to it for posting onto the trial's event loop;
// without one they are delivered inline, so Press must already run on the loop.
type Bus struct {
	Clock    ports.Clock
	Dispatch func(fn func())

	mu   sync.Mutex
	gen  uint64
	keys map[string]struct{}
	fn   func(trial.KeyEvent)
}

func New(clock ports.Clock, dispatch func(fn func())) *Bus {
	return &Bus{Clock: clock, Dispatch: dispatch}
}

func (b *Bus) RegisterKeyListener(keys []string, fn func(trial.KeyEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.keys = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		b.keys[normalize(k)] = struct{}{}
	}
	b.fn = fn
}

func (b *Bus) CancelKeyListener() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.keys = nil
	b.fn = nil
}

// Listening reports whether a listener is registered.
func (b *Bus) Listening() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fn != nil
}

// Press delivers key stamped with the current clock reading. Inline it reports
// whether the listener received the key; with a Dispatch it only reports that the
// key was queued, and the queued event is dropped if the listener changes first.
func (b *Bus) Press(key string) bool {
	return b.PressAt(key, b.Clock.NowMs())
}

// PressAt delivers key with an explicit timestamp.
func (b *Bus) PressAt(key string, atMs float64) bool {
	key = normalize(key)
	b.mu.Lock()
	if _, ok := b.keys[key]; !ok || b.fn == nil {
		b.mu.Unlock()
		return false
	}
	gen, fn := b.gen, b.fn
	b.mu.Unlock()

	deliver := func() bool {
		b.mu.Lock()
		current := b.gen
		b.mu.Unlock()
		if current != gen {
			return false
		}
		fn(trial.KeyEvent{Key: key, AtMs: atMs})
		return true
	}
	if b.Dispatch == nil {
		return deliver()
	}
	b.Dispatch(func() { deliver() })
	return true
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
