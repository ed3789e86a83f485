package history

import (
	"context"
	"errors"
	"math"
	"strings"

	"piltlab/internal/app/ports"
)

var ErrInvalidRequest = errors.New("invalid history request")

type UseCase struct {
	Records ports.TrialResultRepository
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.ParticipantID) == "" || req.Limit < 0 {
		return Response{}, ErrInvalidRequest
	}
	if req.CompletedFrom > 0 && req.CompletedTo > 0 && req.CompletedFrom > req.CompletedTo {
		return Response{}, ErrInvalidRequest
	}
	records, err := u.Records.ListByParticipant(ctx, req.ParticipantID, req.Block, req.Limit)
	if err != nil {
		return Response{}, err
	}
	records = filterByTimeWindow(records, req.CompletedFrom, req.CompletedTo)
	entries, total := accumulate(records)
	return Response{Trials: entries, Earnings: total}, nil
}

func filterByTimeWindow(records []ports.TrialRecord, from, to int64) []ports.TrialRecord {
	if from <= 0 && to <= 0 {
		return records
	}
	out := make([]ports.TrialRecord, 0, len(records))
	for _, rec := range records {
		ts := rec.CompletedAt.Unix()
		if from > 0 && ts < from {
			continue
		}
		if to > 0 && ts > to {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func accumulate(records []ports.TrialRecord) ([]Entry, float64) {
	entries := make([]Entry, 0, len(records))
	var total float64
	for _, rec := range records {
		total += rec.Result.ChosenFeedback
		entries = append(entries, Entry{Record: rec, RunningEarnings: cents(total)})
	}
	return entries, cents(total)
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}
