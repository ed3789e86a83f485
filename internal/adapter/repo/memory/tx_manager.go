package memory

import (
	"context"

	"piltlab/internal/app/ports"
)

type TxManager struct {
	store *Store
}

func NewTxManager(store *Store) TxManager {
	return TxManager{store: store}
}

// RunInTx holds the store lock for fn. Writes made by a failing fn are rolled back.
func (t TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	records := make(map[string]ports.TrialRecord, len(t.store.records))
	for k, v := range t.store.records {
		records[k] = v
	}
	order := append([]string(nil), t.store.order...)

	if err := fn(withTx(ctx)); err != nil {
		t.store.records = records
		t.store.order = order
		return err
	}
	return nil
}
