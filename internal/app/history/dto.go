package history

import "piltlab/internal/app/ports"

type Request struct {
	ParticipantID string
	Block         string
	Limit         int
	// CompletedFrom and CompletedTo bound completion time in unix seconds.
	// Zero leaves the side open.
	CompletedFrom int64
	CompletedTo   int64
}

type Entry struct {
	Record ports.TrialRecord `json:"record"`
	// RunningEarnings is the sum of chosen feedback up to and including this trial.
	RunningEarnings float64 `json:"running_earnings"`
}

type Response struct {
	Trials   []Entry `json:"trials"`
	Earnings float64 `json:"earnings"`
}
