package trial_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"piltlab/internal/domain/trial"
)

func sampleSpec() trial.Spec {
	return trial.Spec{
		StimulusLeft:                "A",
		StimulusRight:               "B",
		FeedbackLeft:                0.5,
		FeedbackRight:               -0.01,
		OptimalRight:                false,
		ResponseDeadlineMs:          3000,
		FeedbackDurationMs:          1000,
		WarningDurationMs:           1500,
		ChoiceFeedbackDurationMs:    400,
		PavlovianStimulusDurationMs: 600,
		CoinImages:                  trial.AssetMap{"0.5": "coin_50.png", "-0.01": "broken_1.png"},
		PavlovianImages:             trial.AssetMap{"0.5": "pav_50.png", "-0.01": "pav_neg_1.png"},
	}
}

func TestValidate(t *testing.T) {
	gt.NoError(t, trial.Validate(sampleSpec()))

	t.Run("missing coin asset", func(t *testing.T) {
		s := sampleSpec()
		delete(s.CoinImages, "-0.01")
		err := trial.Validate(s)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, trial.ErrInvalidSpec))
	})

	t.Run("missing pavlovian asset", func(t *testing.T) {
		s := sampleSpec()
		s.PavlovianImages = nil
		gt.True(t, errors.Is(trial.Validate(s), trial.ErrInvalidSpec))
	})

	t.Run("negative duration", func(t *testing.T) {
		s := sampleSpec()
		s.WarningDurationMs = -1
		gt.True(t, errors.Is(trial.Validate(s), trial.ErrInvalidSpec))
	})

	t.Run("missing stimulus", func(t *testing.T) {
		s := sampleSpec()
		s.StimulusRight = " "
		gt.True(t, errors.Is(trial.Validate(s), trial.ErrInvalidSpec))
	})
}

func TestResolveKey_LeftOptimal(t *testing.T) {
	r, err := trial.ResolveKey(sampleSpec(), "arrowleft", 420)
	gt.NoError(t, err)
	gt.Equal(t, r.Response, trial.ResponseLeft)
	gt.Equal(t, r.Key, "arrowleft")
	gt.Equal(t, r.ChosenStimulus, "A")
	gt.Equal(t, r.ChosenFeedback, 0.5)
	gt.True(t, r.ResponseOptimal)
	gt.True(t, r.ReactionTimeMs != nil)
	gt.Equal(t, *r.ReactionTimeMs, 420.0)
}

func TestResolveKey_RightNotOptimal(t *testing.T) {
	r, err := trial.ResolveKey(sampleSpec(), "ArrowRight", 700)
	gt.NoError(t, err)
	gt.Equal(t, r.Response, trial.ResponseRight)
	gt.Equal(t, r.Key, "arrowright")
	gt.Equal(t, r.ChosenStimulus, "B")
	gt.Equal(t, r.ChosenFeedback, -0.01)
	gt.False(t, r.ResponseOptimal)
}

func TestResolveKey_UnknownKey(t *testing.T) {
	_, err := trial.ResolveKey(sampleSpec(), "space", 100)
	gt.True(t, errors.Is(err, trial.ErrUnknownKey))
}

func TestResolveNoResponse_WorstOutcome(t *testing.T) {
	r := trial.ResolveNoResponse(sampleSpec())
	gt.Equal(t, r.Response, trial.ResponseNone)
	gt.Equal(t, r.ChosenFeedback, -0.01)
	gt.Equal(t, r.Key, "")
	gt.True(t, r.ReactionTimeMs == nil)
	gt.False(t, trial.IsOptimal(sampleSpec(), r.Response))
}

func TestPlan(t *testing.T) {
	s := sampleSpec()

	steps := trial.Plan(s, trial.ResolveNoResponse(s))
	gt.Equal(t, len(steps), 1)
	gt.Equal(t, steps[0].State, trial.StateWarning)
	gt.Equal(t, steps[0].Wait, s.Warning())

	r, err := trial.ResolveKey(s, trial.KeyLeft, 300)
	gt.NoError(t, err)
	steps = trial.Plan(s, r)
	gt.Equal(t, len(steps), 3)
	gt.Equal(t, steps[0].State, trial.StateFeedbackStage1)
	gt.Equal(t, steps[1].State, trial.StateFeedbackStage2)
	gt.Equal(t, steps[2].State, trial.StateFeedbackStage3)
	gt.Equal(t, steps[2].Wait, s.Feedback())
}

func TestFrameFor_StagesRevealCumulatively(t *testing.T) {
	s := sampleSpec()
	r, err := trial.ResolveKey(s, trial.KeyRight, 300)
	gt.NoError(t, err)

	f1 := trial.FrameFor(s, r, trial.StateFeedbackStage1)
	gt.True(t, f1.Right.Selected)
	gt.True(t, f1.Left.Suppressed)
	gt.Equal(t, f1.Right.Pavlovian, "")
	gt.Equal(t, f1.Right.Coin, "")

	f2 := trial.FrameFor(s, r, trial.StateFeedbackStage2)
	gt.Equal(t, f2.Right.Pavlovian, "pav_neg_1.png")
	gt.Equal(t, f2.Right.Coin, "")

	f3 := trial.FrameFor(s, r, trial.StateFeedbackStage3)
	gt.Equal(t, f3.Right.Pavlovian, "pav_neg_1.png")
	gt.Equal(t, f3.Right.Coin, "broken_1.png")
	gt.Equal(t, f3.Left.Coin, "")
}

func TestFrameFor_WarningShowsNoAsset(t *testing.T) {
	s := sampleSpec()
	f := trial.FrameFor(s, trial.ResolveNoResponse(s), trial.StateWarning)
	gt.Equal(t, f.Center, trial.WarningMessage)
	gt.Equal(t, f.Left.Coin, "")
	gt.Equal(t, f.Right.Coin, "")
	gt.False(t, f.Left.Selected || f.Right.Selected)
}

func TestValueKey(t *testing.T) {
	gt.Equal(t, trial.ValueKey(0.5), "0.5")
	gt.Equal(t, trial.ValueKey(-0.01), "-0.01")
	gt.Equal(t, trial.ValueKey(1), "1")
}
