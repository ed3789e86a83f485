package trial

import (
	"strconv"
	"strings"
	"time"
)

type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

type Response string

const (
	ResponseLeft  Response = "left"
	ResponseRight Response = "right"
	ResponseNone  Response = "noResponse"
)

const (
	KeyLeft  = "arrowleft"
	KeyRight = "arrowright"
)

// NormalizeKey is the form keys are matched and recorded in.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// ResponseKeys is the fixed key -> side table of the task.
var ResponseKeys = map[string]Side{
	KeyLeft:  SideLeft,
	KeyRight: SideRight,
}

// ValidKeys returns the response keys in a stable order.
func ValidKeys() []string {
	return []string{KeyLeft, KeyRight}
}

// AssetMap maps an outcome value (see ValueKey) to a presentation asset.
type AssetMap map[string]string

func (m AssetMap) Lookup(v float64) (string, bool) {
	asset, ok := m[ValueKey(v)]
	return asset, ok
}

// ValueKey is the canonical AssetMap key for an outcome value.
func ValueKey(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type Spec struct {
	StimulusLeft                string   `json:"stimulus_left"`
	StimulusRight               string   `json:"stimulus_right"`
	FeedbackLeft                float64  `json:"feedback_left"`
	FeedbackRight               float64  `json:"feedback_right"`
	OptimalRight                bool     `json:"optimal_right"`
	ResponseDeadlineMs          int64    `json:"response_deadline_ms"`
	FeedbackDurationMs          int64    `json:"feedback_duration_ms"`
	WarningDurationMs           int64    `json:"warning_duration_ms"`
	ChoiceFeedbackDurationMs    int64    `json:"choice_feedback_duration_ms"`
	PavlovianStimulusDurationMs int64    `json:"pavlovian_stimulus_duration_ms"`
	CoinImages                  AssetMap `json:"coin_images"`
	PavlovianImages             AssetMap `json:"pavlovian_images"`
}

func (s Spec) Deadline() time.Duration       { return ms(s.ResponseDeadlineMs) }
func (s Spec) Feedback() time.Duration       { return ms(s.FeedbackDurationMs) }
func (s Spec) Warning() time.Duration        { return ms(s.WarningDurationMs) }
func (s Spec) ChoiceFeedback() time.Duration { return ms(s.ChoiceFeedbackDurationMs) }
func (s Spec) Pavlovian() time.Duration      { return ms(s.PavlovianStimulusDurationMs) }

// HasDeadline reports whether the deadline is enforced; 0 disables it.
func (s Spec) HasDeadline() bool {
	return s.ResponseDeadlineMs > 0
}

func (s Spec) Stimulus(side Side) string {
	if side == SideRight {
		return s.StimulusRight
	}
	return s.StimulusLeft
}

func (s Spec) FeedbackFor(side Side) float64 {
	if side == SideRight {
		return s.FeedbackRight
	}
	return s.FeedbackLeft
}

func (s Spec) OptimalSide() Side {
	if s.OptimalRight {
		return SideRight
	}
	return SideLeft
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

type Result struct {
	Response        Response `json:"response"`
	Key             string   `json:"key"`
	ReactionTimeMs  *float64 `json:"reaction_time_ms"`
	ChosenStimulus  string   `json:"chosen_stimulus"`
	ChosenFeedback  float64  `json:"chosen_feedback"`
	ResponseOptimal bool     `json:"response_optimal"`
}

// Side returns the side a response selects; ok is false for ResponseNone.
func (r Response) Side() (Side, bool) {
	switch r {
	case ResponseLeft:
		return SideLeft, true
	case ResponseRight:
		return SideRight, true
	default:
		return "", false
	}
}

func ResponseFor(side Side) Response {
	if side == SideRight {
		return ResponseRight
	}
	return ResponseLeft
}

// KeyEvent is a keypress as seen by the host: the key and the host clock reading.
type KeyEvent struct {
	Key  string
	AtMs float64
}
