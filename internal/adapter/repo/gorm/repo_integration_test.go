package gormrepo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"piltlab/internal/app/ports"
	"piltlab/internal/domain/trial"
	"piltlab/migrations"
)

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PILT_DB_DSN")
	if dsn == "" {
		t.Skip("PILT_DB_DSN is required for integration test")
	}
	return dsn
}

func TestTrialResultRepo_RoundTrip(t *testing.T) {
	dsn := requireDSN(t)
	db, err := OpenPostgres(dsn, Options{})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	ctx := context.Background()
	if _, err := ApplyMigrations(ctx, db, migrations.FS); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	participantID := "it-trial-roundtrip"
	_ = db.Exec("DELETE FROM trial_records WHERE participant_id = ?", participantID).Error

	repo := NewTrialResultRepo(db)
	rt := 420.0
	spec := trial.Spec{
		StimulusLeft:    "A",
		StimulusRight:   "B",
		FeedbackLeft:    0.5,
		FeedbackRight:   -0.01,
		CoinImages:      trial.AssetMap{"0.5": "c1", "-0.01": "c2"},
		PavlovianImages: trial.AssetMap{"0.5": "p1", "-0.01": "p2"},
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []ports.TrialRecord{
		{
			TrialID: "it-trial-1", ParticipantID: participantID, Block: "b1", TrialIndex: 0, Mode: ports.ModeLive,
			Spec:        spec,
			Result:      trial.Result{Response: trial.ResponseLeft, Key: "arrowleft", ReactionTimeMs: &rt, ChosenStimulus: "A", ChosenFeedback: 0.5, ResponseOptimal: true},
			CompletedAt: base,
		},
		{
			TrialID: "it-trial-2", ParticipantID: participantID, Block: "b1", TrialIndex: 1, Mode: ports.ModeLive,
			Spec:        spec,
			Result:      trial.ResolveNoResponse(spec),
			CompletedAt: base.Add(time.Second),
		},
	}
	tx := NewTxManager(db)
	err = tx.RunInTx(ctx, func(txCtx context.Context) error {
		for _, rec := range records {
			if err := repo.Save(txCtx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, records[0]); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate, got %v", err)
	}

	got, err := repo.GetByTrialID(ctx, "it-trial-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Result.ReactionTimeMs == nil || *got.Result.ReactionTimeMs != 420 {
		t.Fatalf("unexpected reaction time: %+v", got.Result)
	}
	if got.Spec.CoinImages["0.5"] != "c1" {
		t.Fatalf("spec not restored: %+v", got.Spec)
	}

	list, err := repo.ListByParticipant(ctx, participantID, "b1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].TrialID != "it-trial-1" || list[1].Result.Response != trial.ResponseNone {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[1].Result.ReactionTimeMs != nil {
		t.Fatalf("expected null reaction time for no-response")
	}

	if _, err := repo.GetByTrialID(ctx, "it-trial-missing"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
