package session

import (
	"piltlab/internal/app/ports"
	"piltlab/internal/app/simulate"
	"piltlab/internal/domain/trial"
)

type StartRequest struct {
	ParticipantID string             `json:"participant_id"`
	Block         string             `json:"block"`
	TrialIndex    int                `json:"trial_index"`
	Mode          ports.TrialMode    `json:"mode"`
	Spec          trial.Spec         `json:"spec"`
	Overrides     simulate.Overrides `json:"overrides"`
}

type StartResponse struct {
	TrialID string `json:"trial_id"`
}

type PressRequest struct {
	TrialID string `json:"trial_id"`
	Key     string `json:"key"`
}

type PressResponse struct {
	Accepted bool `json:"accepted"`
}

type ViewResponse struct {
	TrialID string      `json:"trial_id"`
	State   trial.State `json:"state"`
	Frame   trial.Frame `json:"frame"`
	Done    bool        `json:"done"`
}
