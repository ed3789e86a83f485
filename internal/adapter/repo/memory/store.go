package memory

import (
	"context"
	"sync"

	"piltlab/internal/app/ports"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]ports.TrialRecord
	order   []string
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]ports.TrialRecord),
	}
}

type txKeyType struct{}

var txKey = txKeyType{}

func withTx(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey, true)
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey).(bool)
	return v
}

// lock takes the store lock unless ctx already runs inside RunInTx.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}
