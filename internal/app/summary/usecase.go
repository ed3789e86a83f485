package summary

import (
	"context"
	"errors"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"piltlab/internal/app/ports"
	"piltlab/internal/domain/trial"
)

var ErrInvalidRequest = errors.New("invalid summary request")

type UseCase struct {
	Repo ports.TrialResultRepository
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if req.ParticipantID == "" || req.Limit < 0 {
		return Response{}, ErrInvalidRequest
	}
	records, err := u.Repo.ListByParticipant(ctx, req.ParticipantID, req.Block, req.Limit)
	if err != nil {
		return Response{}, err
	}
	return Summarize(req.ParticipantID, req.Block, records), nil
}

// Summarize aggregates stored trials. Accuracy and reaction time only count
// trials with a response; earnings count every trial.
func Summarize(participantID, block string, records []ports.TrialRecord) Response {
	out := Response{ParticipantID: participantID, Block: block, Trials: len(records)}
	var (
		optimal int
		rts     []float64
	)
	for _, rec := range records {
		r := rec.Result
		out.TotalEarnings += r.ChosenFeedback
		switch r.Response {
		case trial.ResponseNone:
			out.NoResponses++
			continue
		case trial.ResponseLeft:
			out.LeftChoices++
		case trial.ResponseRight:
			out.RightChoices++
		}
		out.Responses++
		if r.ResponseOptimal {
			optimal++
		}
		if r.ReactionTimeMs != nil {
			rts = append(rts, *r.ReactionTimeMs)
		}
	}
	if out.Responses > 0 {
		out.OptimalRate = float64(optimal) / float64(out.Responses)
	}
	if len(rts) > 0 {
		out.MeanRTMs = stat.Mean(rts, nil)
	}
	if len(rts) > 1 {
		out.RTStdDevMs = stat.StdDev(rts, nil)
	}
	out.TotalEarnings = math.Round(out.TotalEarnings*100) / 100
	return out
}
