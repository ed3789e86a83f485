package trial

import (
	"errors"
	"math"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidSpec = errors.New("invalid trial spec")
	ErrUnknownKey  = errors.New("unknown response key")
)

// Validate checks a spec before anything is rendered.
func Validate(s Spec) error {
	if strings.TrimSpace(s.StimulusLeft) == "" || strings.TrimSpace(s.StimulusRight) == "" {
		return goerr.Wrap(ErrInvalidSpec, "stimulus is missing",
			goerr.V("stimulus_left", s.StimulusLeft), goerr.V("stimulus_right", s.StimulusRight))
	}
	durations := map[string]int64{
		"response_deadline_ms":           s.ResponseDeadlineMs,
		"feedback_duration_ms":           s.FeedbackDurationMs,
		"warning_duration_ms":            s.WarningDurationMs,
		"choice_feedback_duration_ms":    s.ChoiceFeedbackDurationMs,
		"pavlovian_stimulus_duration_ms": s.PavlovianStimulusDurationMs,
	}
	for name, v := range durations {
		if v < 0 {
			return goerr.Wrap(ErrInvalidSpec, "negative duration", goerr.V("field", name), goerr.V("value", v))
		}
	}
	for _, v := range []float64{s.FeedbackLeft, s.FeedbackRight} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return goerr.Wrap(ErrInvalidSpec, "feedback is not finite", goerr.V("value", v))
		}
		if _, ok := s.CoinImages.Lookup(v); !ok {
			return goerr.Wrap(ErrInvalidSpec, "no coin image for feedback value", goerr.V("value", ValueKey(v)))
		}
		if _, ok := s.PavlovianImages.Lookup(v); !ok {
			return goerr.Wrap(ErrInvalidSpec, "no pavlovian image for feedback value", goerr.V("value", ValueKey(v)))
		}
	}
	return nil
}

// ResolveKey builds the result of a qualifying keypress.
func ResolveKey(s Spec, key string, rtMs float64) (Result, error) {
	key = NormalizeKey(key)
	side, ok := ResponseKeys[key]
	if !ok {
		return Result{}, goerr.Wrap(ErrUnknownKey, "key is not a response key", goerr.V("key", key))
	}
	rt := rtMs
	r := Result{
		Response:       ResponseFor(side),
		Key:            key,
		ReactionTimeMs: &rt,
		ChosenStimulus: s.Stimulus(side),
		ChosenFeedback: s.FeedbackFor(side),
	}
	r.ResponseOptimal = IsOptimal(s, r.Response)
	return r, nil
}

// ResolveNoResponse applies the worst-outcome penalty for a missed deadline.
func ResolveNoResponse(s Spec) Result {
	return Result{
		Response:       ResponseNone,
		ChosenFeedback: math.Min(s.FeedbackLeft, s.FeedbackRight),
	}
}

func IsOptimal(s Spec, r Response) bool {
	side, ok := r.Side()
	if !ok {
		return false
	}
	return side == s.OptimalSide()
}
