package ports

import (
	"context"
	"time"

	"piltlab/internal/domain/trial"
)

type TrialMode string

const (
	ModeLive           TrialMode = "live"
	ModeSimulateData   TrialMode = "simulate_data"
	ModeSimulateVisual TrialMode = "simulate_visual"
)

func (m TrialMode) Valid() bool {
	switch m {
	case ModeLive, ModeSimulateData, ModeSimulateVisual:
		return true
	default:
		return false
	}
}

type TrialRecord struct {
	TrialID       string       `json:"trial_id"`
	ParticipantID string       `json:"participant_id"`
	Block         string       `json:"block"`
	TrialIndex    int          `json:"trial_index"`
	Mode          TrialMode    `json:"mode"`
	Spec          trial.Spec   `json:"spec"`
	Result        trial.Result `json:"result"`
	CompletedAt   time.Time    `json:"completed_at"`
}

type TrialResultRepository interface {
	Save(ctx context.Context, record TrialRecord) error
	GetByTrialID(ctx context.Context, trialID string) (TrialRecord, error)
	ListByParticipant(ctx context.Context, participantID, block string, limit int) ([]TrialRecord, error)
}
