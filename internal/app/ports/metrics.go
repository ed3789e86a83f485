package ports

import "piltlab/internal/domain/trial"

type TrialMetrics interface {
	RecordCompleted(mode TrialMode, response trial.Response)
	RecordRejected()
	RecordFailure()
}
