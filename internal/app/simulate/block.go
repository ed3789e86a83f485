package simulate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"piltlab/internal/app/ports"
	"piltlab/internal/domain/trial"
)

var ErrInvalidRequest = errors.New("invalid simulation request")

type BlockRequest struct {
	ParticipantID string
	Block         string
	// FirstIndex is the trial index of Specs[0] within the block.
	FirstIndex int
	Mode       ports.TrialMode
	Specs      []trial.Spec
	// Overrides is indexed like Specs; missing entries sample everything.
	Overrides []Overrides
}

// BlockRunner simulates a list of trials in order and stores the records in one
// transaction. A failing trial aborts the whole block.
type BlockRunner struct {
	Sim       *Simulator
	TxManager ports.TxManager
	Repo      ports.TrialResultRepository
	Metrics   ports.TrialMetrics
	Now       func() time.Time
}

func (b BlockRunner) Run(ctx context.Context, req BlockRequest) ([]ports.TrialRecord, error) {
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if req.ParticipantID == "" || len(req.Specs) == 0 || req.FirstIndex < 0 {
		return nil, ErrInvalidRequest
	}
	if req.Mode == "" {
		req.Mode = ports.ModeSimulateData
	}
	if req.Mode != ports.ModeSimulateData && req.Mode != ports.ModeSimulateVisual {
		return nil, goerr.Wrap(ErrInvalidRequest, "unsupported mode", goerr.V("mode", req.Mode))
	}
	nowFn := b.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	logger := ctxlog.From(ctx)

	records := make([]ports.TrialRecord, 0, len(req.Specs))
	for i, spec := range req.Specs {
		var ov Overrides
		if i < len(req.Overrides) {
			ov = req.Overrides[i]
		}
		var (
			r   trial.Result
			err error
		)
		if req.Mode == ports.ModeSimulateVisual {
			r, _, err = b.Sim.Visual(spec, ov, nil)
		} else {
			r, err = b.Sim.DataOnly(spec, ov, nil)
		}
		if err != nil {
			if b.Metrics != nil {
				b.Metrics.RecordFailure()
			}
			return nil, goerr.Wrap(err, "simulate trial", goerr.V("trial_index", i))
		}
		records = append(records, ports.TrialRecord{
			TrialID:       uuid.New().String(),
			ParticipantID: req.ParticipantID,
			Block:         req.Block,
			TrialIndex:    req.FirstIndex + i,
			Mode:          req.Mode,
			Spec:          spec,
			Result:        r,
			CompletedAt:   nowFn(),
		})
		logger.Debug("simulated trial", "trial_index", i, "response", r.Response)
	}

	if b.Repo != nil {
		save := func(txCtx context.Context) error {
			for _, rec := range records {
				if err := b.Repo.Save(txCtx, rec); err != nil {
					return err
				}
			}
			return nil
		}
		var err error
		if b.TxManager != nil {
			err = b.TxManager.RunInTx(ctx, save)
		} else {
			err = save(ctx)
		}
		if err != nil {
			return nil, goerr.Wrap(err, "store simulated block", goerr.V("participant_id", req.ParticipantID))
		}
	}
	if b.Metrics != nil {
		for _, rec := range records {
			b.Metrics.RecordCompleted(rec.Mode, rec.Result.Response)
		}
	}
	logger.Info("simulated block", "participant_id", req.ParticipantID, "block", req.Block, "trials", len(records))
	return records, nil
}
