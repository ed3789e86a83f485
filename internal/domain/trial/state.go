package trial

import "time"

type State string

const (
	StatePresenting       State = "presenting"
	StateAwaitingResponse State = "awaiting_response"
	StateResolved         State = "resolved"
	StateWarning          State = "warning"
	StateFeedbackStage1   State = "feedback_stage_1"
	StateFeedbackStage2   State = "feedback_stage_2"
	StateFeedbackStage3   State = "feedback_stage_3"
	StateTerminal         State = "terminal"
)

const WarningMessage = "Please respond faster!"

// Step is one entry of the post-resolution sequence: enter State, then wait.
type Step struct {
	State State
	Wait  time.Duration
}

// Plan returns the ordered continuation for a resolved result.
func Plan(s Spec, r Result) []Step {
	if r.Response == ResponseNone {
		return []Step{{State: StateWarning, Wait: s.Warning()}}
	}
	return []Step{
		{State: StateFeedbackStage1, Wait: s.ChoiceFeedback()},
		{State: StateFeedbackStage2, Wait: s.Pavlovian()},
		{State: StateFeedbackStage3, Wait: s.Feedback()},
	}
}

type Option struct {
	Stimulus   string `json:"stimulus"`
	Selected   bool   `json:"selected"`
	Suppressed bool   `json:"suppressed"`
	Pavlovian  string `json:"pavlovian,omitempty"`
	Coin       string `json:"coin,omitempty"`
}

// Frame is the UI tree handed to the rendering surface: two option regions and a
// center status indicator.
type Frame struct {
	State  State  `json:"state"`
	Left   Option `json:"left"`
	Right  Option `json:"right"`
	Center string `json:"center"`
}

func PresentFrame(s Spec) Frame {
	return Frame{
		State:  StatePresenting,
		Left:   Option{Stimulus: s.StimulusLeft},
		Right:  Option{Stimulus: s.StimulusRight},
		Center: "+",
	}
}

// FrameFor renders the frame shown while in state st. Feedback stages are cumulative.
func FrameFor(s Spec, r Result, st State) Frame {
	f := PresentFrame(s)
	f.State = st
	switch st {
	case StatePresenting, StateAwaitingResponse:
		return f
	case StateWarning:
		f.Center = WarningMessage
		return f
	case StateTerminal:
		return Frame{State: StateTerminal}
	}

	side, ok := r.Response.Side()
	if !ok {
		return f
	}
	f.Center = ""
	chosen, other := &f.Left, &f.Right
	if side == SideRight {
		chosen, other = &f.Right, &f.Left
	}
	chosen.Selected = true
	other.Suppressed = true
	if st == StateFeedbackStage2 || st == StateFeedbackStage3 {
		chosen.Pavlovian, _ = s.PavlovianImages.Lookup(r.ChosenFeedback)
	}
	if st == StateFeedbackStage3 {
		chosen.Coin, _ = s.CoinImages.Lookup(r.ChosenFeedback)
	}
	return f
}
