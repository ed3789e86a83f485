package inmemory

import (
	"sync"

	"piltlab/internal/app/ports"
	"piltlab/internal/domain/trial"
)

type Snapshot struct {
	TrialTotal     uint64            `json:"trial_total"`
	TrialCompleted uint64            `json:"trial_completed"`
	TrialRejected  uint64            `json:"trial_rejected"`
	TrialFailure   uint64            `json:"trial_failure"`
	ByResponse     map[string]uint64 `json:"by_response"`
	ByMode         map[string]uint64 `json:"by_mode"`
}

type Recorder struct {
	mu         sync.Mutex
	completed  uint64
	rejected   uint64
	failure    uint64
	byResponse map[string]uint64
	byMode     map[string]uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byResponse: map[string]uint64{},
		byMode:     map[string]uint64{},
	}
}

func (r *Recorder) RecordCompleted(mode ports.TrialMode, response trial.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
	r.byResponse[string(response)]++
	r.byMode[string(mode)]++
}

func (r *Recorder) RecordRejected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
}

func (r *Recorder) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		TrialCompleted: r.completed,
		TrialRejected:  r.rejected,
		TrialFailure:   r.failure,
		TrialTotal:     r.completed + r.rejected + r.failure,
		ByResponse:     make(map[string]uint64, len(r.byResponse)),
		ByMode:         make(map[string]uint64, len(r.byMode)),
	}
	for k, v := range r.byResponse {
		out.ByResponse[k] = v
	}
	for k, v := range r.byMode {
		out.ByMode[k] = v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
