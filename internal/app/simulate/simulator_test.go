package simulate_test

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/m-mizutani/gt"

	"piltlab/internal/adapter/repo/memory"
	"piltlab/internal/app/ports"
	"piltlab/internal/app/simulate"
	"piltlab/internal/domain/trial"
)

func sampleSpec() trial.Spec {
	return trial.Spec{
		StimulusLeft:                "A",
		StimulusRight:               "B",
		FeedbackLeft:                0.5,
		FeedbackRight:               -0.01,
		ResponseDeadlineMs:          3000,
		FeedbackDurationMs:          1000,
		WarningDurationMs:           1500,
		ChoiceFeedbackDurationMs:    400,
		PavlovianStimulusDurationMs: 600,
		CoinImages:                  trial.AssetMap{"0.5": "coin_50.png", "-0.01": "broken_1.png"},
		PavlovianImages:             trial.AssetMap{"0.5": "pav_50.png", "-0.01": "pav_neg_1.png"},
	}
}

func ptr(v float64) *float64 { return &v }

func TestDataOnly_ShapeMatchesLiveRecord(t *testing.T) {
	sim := simulate.New(7)
	var delivered []trial.Result
	sink := ports.ResultSinkFunc(func(r trial.Result) { delivered = append(delivered, r) })

	for range 200 {
		r, err := sim.DataOnly(sampleSpec(), simulate.Overrides{}, sink)
		gt.NoError(t, err)
		gt.True(t, r.ChosenFeedback == 0.5 || r.ChosenFeedback == -0.01)
		gt.True(t, r.ReactionTimeMs != nil)
		gt.True(t, *r.ReactionTimeMs >= 0)
		gt.True(t, r.Response != trial.ResponseNone)
		gt.NoError(t, simulate.Check(sampleSpec(), r))
	}
	gt.Equal(t, len(delivered), 200)
}

func TestDataOnly_UsesBothKeys(t *testing.T) {
	sim := simulate.New(11)
	seen := map[trial.Response]int{}
	for range 100 {
		r, err := sim.DataOnly(sampleSpec(), simulate.Overrides{}, nil)
		gt.NoError(t, err)
		seen[r.Response]++
	}
	gt.True(t, seen[trial.ResponseLeft] > 0)
	gt.True(t, seen[trial.ResponseRight] > 0)
}

func TestDataOnly_Overrides(t *testing.T) {
	sim := simulate.New(1)
	r, err := sim.DataOnly(sampleSpec(), simulate.Overrides{Key: "arrowleft", ReactionTimeMs: ptr(420)}, nil)
	gt.NoError(t, err)
	gt.Equal(t, r.Response, trial.ResponseLeft)
	gt.Equal(t, r.ChosenFeedback, 0.5)
	gt.True(t, r.ResponseOptimal)
	gt.Equal(t, *r.ReactionTimeMs, 420.0)
}

func TestDataOnly_InconsistentOverrideFailsFast(t *testing.T) {
	sim := simulate.New(1)
	called := false
	sink := ports.ResultSinkFunc(func(trial.Result) { called = true })

	_, err := sim.DataOnly(sampleSpec(), simulate.Overrides{Key: "arrowleft", Response: trial.ResponseRight}, sink)
	gt.True(t, errors.Is(err, simulate.ErrInconsistent))
	gt.False(t, called)

	_, err = sim.DataOnly(sampleSpec(), simulate.Overrides{Key: "space"}, sink)
	gt.True(t, errors.Is(err, simulate.ErrInconsistent))

	_, err = sim.DataOnly(sampleSpec(), simulate.Overrides{Key: "arrowright", ReactionTimeMs: ptr(-5)}, sink)
	gt.True(t, errors.Is(err, simulate.ErrInconsistent))
	gt.False(t, called)
}

func TestDataOnly_InvalidSpec(t *testing.T) {
	spec := sampleSpec()
	spec.PavlovianImages = nil
	_, err := simulate.New(1).DataOnly(spec, simulate.Overrides{}, nil)
	gt.True(t, errors.Is(err, trial.ErrInvalidSpec))
}

func TestVisual_RunsFullStageSequence(t *testing.T) {
	sim := simulate.New(3)
	r, frames, err := sim.Visual(sampleSpec(), simulate.Overrides{Key: "arrowright", ReactionTimeMs: ptr(512)}, nil)
	gt.NoError(t, err)
	gt.Equal(t, r.Response, trial.ResponseRight)
	gt.Equal(t, r.ChosenFeedback, -0.01)
	gt.True(t, math.Abs(*r.ReactionTimeMs-512) < 1e-6)

	states := []trial.State{}
	for _, f := range frames {
		states = append(states, f.State)
	}
	gt.Equal(t, states, []trial.State{
		trial.StatePresenting,
		trial.StateAwaitingResponse,
		trial.StateFeedbackStage1,
		trial.StateFeedbackStage2,
		trial.StateFeedbackStage3,
		trial.StateTerminal,
	})
}

func TestVisual_LateSyntheticKeyLosesToDeadline(t *testing.T) {
	sim := simulate.New(3)
	r, _, err := sim.Visual(sampleSpec(), simulate.Overrides{Key: "arrowleft", ReactionTimeMs: ptr(4000)}, nil)
	gt.NoError(t, err)
	gt.Equal(t, r.Response, trial.ResponseNone)
	gt.Equal(t, r.ChosenFeedback, -0.01)
}

func TestVisual_InconsistentOverride(t *testing.T) {
	_, _, err := simulate.New(3).Visual(sampleSpec(), simulate.Overrides{Key: "arrowleft", Response: trial.ResponseRight}, nil)
	gt.True(t, errors.Is(err, simulate.ErrInconsistent))
}

func TestOverrides_MixedCaseKeySameInBothModes(t *testing.T) {
	ov := simulate.Overrides{Key: " ArrowLeft", ReactionTimeMs: ptr(300)}

	data, err := simulate.New(1).DataOnly(sampleSpec(), ov, nil)
	gt.NoError(t, err)
	visual, _, err := simulate.New(1).Visual(sampleSpec(), ov, nil)
	gt.NoError(t, err)

	gt.Equal(t, data.Key, "arrowleft")
	gt.Equal(t, visual.Key, "arrowleft")
	gt.Equal(t, data.Response, visual.Response)
	gt.Equal(t, data.ChosenFeedback, visual.ChosenFeedback)
	gt.Equal(t, data.ResponseOptimal, visual.ResponseOptimal)
}

func TestOverrides_ReactionTimeOutOfRange(t *testing.T) {
	ov := simulate.Overrides{Key: "arrowright", ReactionTimeMs: ptr(1e300)}

	_, err := simulate.New(1).DataOnly(sampleSpec(), ov, nil)
	gt.True(t, errors.Is(err, simulate.ErrInconsistent))
	_, _, err = simulate.New(1).Visual(sampleSpec(), ov, nil)
	gt.True(t, errors.Is(err, simulate.ErrInconsistent))

	ov.ReactionTimeMs = ptr(math.NaN())
	_, err = simulate.New(1).DataOnly(sampleSpec(), ov, nil)
	gt.True(t, errors.Is(err, simulate.ErrInconsistent))
}

func TestCheck_RejectsMismatchedFeedback(t *testing.T) {
	r, err := trial.ResolveKey(sampleSpec(), "arrowleft", 300)
	gt.NoError(t, err)
	r.ChosenFeedback = -0.01
	gt.True(t, errors.Is(simulate.Check(sampleSpec(), r), simulate.ErrInconsistent))

	nr := trial.ResolveNoResponse(sampleSpec())
	gt.NoError(t, simulate.Check(sampleSpec(), nr))
	nr.ChosenFeedback = 0.5
	gt.True(t, errors.Is(simulate.Check(sampleSpec(), nr), simulate.ErrInconsistent))
}

func TestLatency_NonNegativeAndSkewed(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	var sum float64
	n := 2000
	for range n {
		v := simulate.DefaultLatency.Sample(rng)
		gt.True(t, v >= 0)
		sum += v
	}
	mean := sum / float64(n)
	// ex-Gaussian mean is mu + 1/rate = 650
	gt.True(t, mean > 600 && mean < 700)
}

func TestBlockRunner_StoresAllRecords(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewTrialResultRepo(store)
	runner := simulate.BlockRunner{
		Sim:       simulate.New(5),
		TxManager: memory.NewTxManager(store),
		Repo:      repo,
	}
	specs := []trial.Spec{sampleSpec(), sampleSpec(), sampleSpec()}
	records, err := runner.Run(context.Background(), simulate.BlockRequest{
		ParticipantID: "p-1",
		Block:         "b1",
		Mode:          ports.ModeSimulateVisual,
		Specs:         specs,
	})
	gt.NoError(t, err)
	gt.Equal(t, len(records), 3)

	stored, err := repo.ListByParticipant(context.Background(), "p-1", "b1", 0)
	gt.NoError(t, err)
	gt.Equal(t, len(stored), 3)
	gt.Equal(t, stored[2].TrialIndex, 2)
}

func TestBlockRunner_FailingTrialStoresNothing(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewTrialResultRepo(store)
	runner := simulate.BlockRunner{Sim: simulate.New(5), TxManager: memory.NewTxManager(store), Repo: repo}

	_, err := runner.Run(context.Background(), simulate.BlockRequest{
		ParticipantID: "p-2",
		Specs:         []trial.Spec{sampleSpec(), sampleSpec()},
		Overrides:     []simulate.Overrides{{}, {Key: "arrowleft", Response: trial.ResponseRight}},
	})
	gt.True(t, errors.Is(err, simulate.ErrInconsistent))

	_, err = repo.ListByParticipant(context.Background(), "p-2", "", 0)
	gt.True(t, errors.Is(err, ports.ErrNotFound))
}

func TestBlockRunner_InvalidRequest(t *testing.T) {
	_, err := simulate.BlockRunner{Sim: simulate.New(1)}.Run(context.Background(), simulate.BlockRequest{})
	gt.True(t, errors.Is(err, simulate.ErrInvalidRequest))
}
