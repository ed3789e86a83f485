package memory

import (
	"context"

	"piltlab/internal/app/ports"
)

type TrialResultRepo struct {
	store *Store
}

func NewTrialResultRepo(store *Store) TrialResultRepo {
	return TrialResultRepo{store: store}
}

func (r TrialResultRepo) Save(ctx context.Context, record ports.TrialRecord) error {
	defer r.store.lock(ctx)()
	if _, exists := r.store.records[record.TrialID]; exists {
		return ports.ErrConflict
	}
	r.store.records[record.TrialID] = record
	r.store.order = append(r.store.order, record.TrialID)
	return nil
}

func (r TrialResultRepo) GetByTrialID(ctx context.Context, trialID string) (ports.TrialRecord, error) {
	defer r.store.rlock(ctx)()
	rec, ok := r.store.records[trialID]
	if !ok {
		return ports.TrialRecord{}, ports.ErrNotFound
	}
	return rec, nil
}

// ListByParticipant returns records in completion order; an empty block matches all.
func (r TrialResultRepo) ListByParticipant(ctx context.Context, participantID, block string, limit int) ([]ports.TrialRecord, error) {
	defer r.store.rlock(ctx)()
	out := []ports.TrialRecord{}
	for _, id := range r.store.order {
		rec := r.store.records[id]
		if rec.ParticipantID != participantID {
			continue
		}
		if block != "" && rec.Block != block {
			continue
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ports.ErrNotFound
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
