package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"piltlab/internal/adapter/repo/gorm/model"
	"piltlab/internal/app/ports"
	"piltlab/internal/domain/trial"
)

type TrialResultRepo struct {
	db *gorm.DB
}

func NewTrialResultRepo(db *gorm.DB) TrialResultRepo {
	return TrialResultRepo{db: db}
}

func (r TrialResultRepo) Save(ctx context.Context, record ports.TrialRecord) error {
	spec, err := json.Marshal(record.Spec)
	if err != nil {
		return goerr.Wrap(err, "marshal trial spec", goerr.V("trial_id", record.TrialID))
	}
	row := model.TrialRecord{
		TrialID:         record.TrialID,
		ParticipantID:   record.ParticipantID,
		Block:           record.Block,
		TrialIndex:      int32(record.TrialIndex),
		Mode:            string(record.Mode),
		Spec:            spec,
		Response:        string(record.Result.Response),
		Key:             record.Result.Key,
		ReactionTimeMs:  record.Result.ReactionTimeMs,
		ChosenStimulus:  record.Result.ChosenStimulus,
		ChosenFeedback:  record.Result.ChosenFeedback,
		ResponseOptimal: record.Result.ResponseOptimal,
		CompletedAt:     record.CompletedAt,
	}
	res := dbFromCtx(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return goerr.Wrap(res.Error, "insert trial record", goerr.V("trial_id", record.TrialID))
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (r TrialResultRepo) GetByTrialID(ctx context.Context, trialID string) (ports.TrialRecord, error) {
	var row model.TrialRecord
	err := dbFromCtx(ctx, r.db).Where(&model.TrialRecord{TrialID: trialID}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.TrialRecord{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.TrialRecord{}, err
	}
	return toRecord(row)
}

// ListByParticipant returns the latest limit records (all when limit <= 0), oldest first.
func (r TrialResultRepo) ListByParticipant(ctx context.Context, participantID, block string, limit int) ([]ports.TrialRecord, error) {
	rows := []model.TrialRecord{}
	query := dbFromCtx(ctx, r.db).
		Where(&model.TrialRecord{ParticipantID: participantID, Block: block}).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{
				{Column: clause.Column{Name: "completed_at"}, Desc: true},
				{Column: clause.Column{Name: "trial_index"}, Desc: true},
			},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ports.ErrNotFound
	}
	slices.Reverse(rows)

	out := make([]ports.TrialRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toRecord(row model.TrialRecord) (ports.TrialRecord, error) {
	var spec trial.Spec
	if len(row.Spec) > 0 {
		if err := json.Unmarshal(row.Spec, &spec); err != nil {
			return ports.TrialRecord{}, goerr.Wrap(err, "unmarshal trial spec", goerr.V("trial_id", row.TrialID))
		}
	}
	return ports.TrialRecord{
		TrialID:       row.TrialID,
		ParticipantID: row.ParticipantID,
		Block:         row.Block,
		TrialIndex:    int(row.TrialIndex),
		Mode:          ports.TrialMode(row.Mode),
		Spec:          spec,
		Result: trial.Result{
			Response:        trial.Response(row.Response),
			Key:             row.Key,
			ReactionTimeMs:  row.ReactionTimeMs,
			ChosenStimulus:  row.ChosenStimulus,
			ChosenFeedback:  row.ChosenFeedback,
			ResponseOptimal: row.ResponseOptimal,
		},
		CompletedAt: row.CompletedAt,
	}, nil
}
