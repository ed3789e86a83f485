package simulate

import (
	"errors"
	"math"

	"github.com/m-mizutani/goerr/v2"

	"piltlab/internal/domain/trial"
)

var ErrInconsistent = errors.New("inconsistent simulated trial")

// Check verifies that every derived field of r follows from its key and spec.
func Check(spec trial.Spec, r trial.Result) error {
	if r.Response == trial.ResponseNone {
		if r.Key != "" || r.ReactionTimeMs != nil {
			return goerr.Wrap(ErrInconsistent, "no-response trial carries input", goerr.V("key", r.Key))
		}
		if r.ChosenFeedback != math.Min(spec.FeedbackLeft, spec.FeedbackRight) {
			return goerr.Wrap(ErrInconsistent, "no-response feedback is not the worst outcome", goerr.V("chosen_feedback", r.ChosenFeedback))
		}
		if r.ResponseOptimal {
			return goerr.Wrap(ErrInconsistent, "no-response marked optimal")
		}
		return nil
	}

	side, ok := trial.ResponseKeys[trial.NormalizeKey(r.Key)]
	if !ok {
		return goerr.Wrap(ErrInconsistent, "key is not a response key", goerr.V("key", r.Key))
	}
	if r.Response != trial.ResponseFor(side) {
		return goerr.Wrap(ErrInconsistent, "response does not follow from key",
			goerr.V("key", r.Key), goerr.V("response", r.Response))
	}
	if r.ChosenStimulus != spec.Stimulus(side) || r.ChosenFeedback != spec.FeedbackFor(side) {
		return goerr.Wrap(ErrInconsistent, "chosen option does not match side",
			goerr.V("side", side), goerr.V("chosen_stimulus", r.ChosenStimulus), goerr.V("chosen_feedback", r.ChosenFeedback))
	}
	if r.ResponseOptimal != trial.IsOptimal(spec, r.Response) {
		return goerr.Wrap(ErrInconsistent, "optimality flag mismatch", goerr.V("response", r.Response))
	}
	if r.ReactionTimeMs == nil || *r.ReactionTimeMs < 0 || math.IsNaN(*r.ReactionTimeMs) || math.IsInf(*r.ReactionTimeMs, 0) {
		return goerr.Wrap(ErrInconsistent, "reaction time is not a non-negative number")
	}
	return nil
}
