package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"piltlab/internal/app/pilt"
	"piltlab/internal/app/ports"
	"piltlab/internal/app/simulate"
	"piltlab/internal/domain/trial"
)

var (
	ErrInvalidRequest  = errors.New("invalid session request")
	ErrTrialInProgress = errors.New("trial in progress")
)

// UseCase hosts live trials on a shared event loop, at most one unfinished
// trial per participant.
type UseCase struct {
	Loop       ports.EventLoop
	NewSurface func() ports.FrameSurface
	NewKeys    func() ports.KeyInput
	Repo       ports.TrialResultRepository
	Metrics    ports.TrialMetrics
	Sim        *simulate.Simulator
	Now        func() time.Time
	NewID      func() string

	mu            sync.Mutex
	trials        map[string]*liveTrial
	byParticipant map[string]string
}

type liveTrial struct {
	record     ports.TrialRecord
	surface    ports.FrameSurface
	keys       ports.KeyInput
	controller *pilt.Controller
	done       bool
	abandoned  bool
	err        error
}

func (u *UseCase) Start(ctx context.Context, req StartRequest) (StartResponse, error) {
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if req.Mode == "" {
		req.Mode = ports.ModeLive
	}
	if req.ParticipantID == "" || (req.Mode != ports.ModeLive && req.Mode != ports.ModeSimulateVisual) {
		return StartResponse{}, ErrInvalidRequest
	}
	if req.Mode == ports.ModeSimulateVisual && u.Sim == nil {
		return StartResponse{}, goerr.Wrap(ErrInvalidRequest, "simulation is not configured")
	}
	if err := trial.Validate(req.Spec); err != nil {
		u.recordRejected()
		return StartResponse{}, err
	}

	lt := &liveTrial{
		record: ports.TrialRecord{
			TrialID:       u.newID(),
			ParticipantID: req.ParticipantID,
			Block:         req.Block,
			TrialIndex:    req.TrialIndex,
			Mode:          req.Mode,
			Spec:          req.Spec,
		},
		surface: u.NewSurface(),
	}
	if err := u.reserve(lt); err != nil {
		u.recordRejected()
		return StartResponse{}, err
	}

	logger := ctxlog.From(ctx).With("trial_id", lt.record.TrialID, "participant_id", req.ParticipantID)
	var startErr error
	err := u.Loop.Do(ctx, func() {
		if startErr = u.launch(lt, req, logger); startErr != nil {
			return
		}
		if !u.publish(lt) {
			lt.controller.Abort()
		}
	})
	if err == nil {
		err = startErr
	}
	if err != nil {
		u.abandon(lt)
		u.recordRejected()
		return StartResponse{}, err
	}

	logger.Info("trial started", "mode", req.Mode)
	return StartResponse{TrialID: lt.record.TrialID}, nil
}

// launch builds and invokes the trial's controller. It runs on the event loop.
func (u *UseCase) launch(lt *liveTrial, req StartRequest, logger *slog.Logger) error {
	timers := u.Loop.NewTimers()
	if req.Mode == ports.ModeSimulateVisual {
		c, err := u.Sim.StartVisual(simulate.Host{Surface: lt.surface, Clock: u.Loop, Timers: timers}, req.Spec, req.Overrides, func(r trial.Result, err error) {
			u.finish(lt, r, err)
		})
		lt.controller = c
		return err
	}
	lt.keys = u.NewKeys()
	lt.controller = &pilt.Controller{
		Surface: lt.surface,
		Clock:   u.Loop,
		Timers:  timers,
		Keys:    lt.keys,
		Logger:  logger,
		Sink: ports.ResultSinkFunc(func(r trial.Result) {
			u.finish(lt, r, nil)
		}),
	}
	return lt.controller.Invoke(req.Spec)
}

// Press forwards a keypress, stamped on arrival, to the trial on the event loop.
// Accepted is true only when the trial's listener received the key; keys that
// lose to the deadline or arrive after the response window are not accepted.
func (u *UseCase) Press(ctx context.Context, req PressRequest) (PressResponse, error) {
	lt, ok := u.lookup(req.TrialID)
	if !ok {
		return PressResponse{}, ports.ErrNotFound
	}
	if strings.TrimSpace(req.Key) == "" {
		return PressResponse{}, ErrInvalidRequest
	}
	if lt.keys == nil {
		return PressResponse{Accepted: false}, nil
	}
	at := u.Loop.NowMs()
	var accepted bool
	if err := u.Loop.Do(ctx, func() { accepted = lt.keys.PressAt(req.Key, at) }); err != nil {
		return PressResponse{}, err
	}
	return PressResponse{Accepted: accepted}, nil
}

func (u *UseCase) View(ctx context.Context, trialID string) (ViewResponse, error) {
	lt, ok := u.lookup(trialID)
	if !ok {
		if _, err := u.Repo.GetByTrialID(ctx, trialID); err != nil {
			return ViewResponse{}, err
		}
		return ViewResponse{TrialID: trialID, State: trial.StateTerminal, Frame: trial.Frame{State: trial.StateTerminal}, Done: true}, nil
	}
	var st trial.State
	if err := u.Loop.Do(ctx, func() { st = lt.controller.State() }); err != nil {
		return ViewResponse{}, err
	}
	u.mu.Lock()
	done := lt.done
	u.mu.Unlock()
	return ViewResponse{TrialID: trialID, State: st, Frame: lt.surface.Current(), Done: done}, nil
}

func (u *UseCase) Result(ctx context.Context, trialID string) (ports.TrialRecord, error) {
	if lt, ok := u.lookup(trialID); ok {
		u.mu.Lock()
		defer u.mu.Unlock()
		if !lt.done {
			return ports.TrialRecord{}, ports.ErrNotFinished
		}
		if lt.err != nil {
			return ports.TrialRecord{}, lt.err
		}
		return lt.record, nil
	}
	return u.Repo.GetByTrialID(ctx, trialID)
}

// Abort abandons an unfinished trial; no record is stored.
func (u *UseCase) Abort(ctx context.Context, trialID string) error {
	lt, ok := u.lookup(trialID)
	if !ok {
		return ports.ErrNotFound
	}
	if err := u.Loop.Do(ctx, func() { lt.controller.Abort() }); err != nil {
		return err
	}
	u.release(lt)
	return nil
}

// finish runs on the event loop when the controller delivers its result.
func (u *UseCase) finish(lt *liveTrial, r trial.Result, simErr error) {
	u.mu.Lock()
	lt.done = true
	lt.err = simErr
	lt.record.Result = r
	lt.record.CompletedAt = u.now()
	record := lt.record
	if u.byParticipant[record.ParticipantID] == record.TrialID {
		delete(u.byParticipant, record.ParticipantID)
	}
	u.mu.Unlock()

	if simErr != nil {
		if u.Metrics != nil {
			u.Metrics.RecordFailure()
		}
		return
	}
	if u.Metrics != nil {
		u.Metrics.RecordCompleted(record.Mode, r.Response)
	}
	go u.persist(lt, record)
}

func (u *UseCase) persist(lt *liveTrial, record ports.TrialRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := u.Repo.Save(ctx, record); err != nil {
		ctxlog.From(ctx).Error("store trial record", "trial_id", record.TrialID, "error", err)
		if u.Metrics != nil {
			u.Metrics.RecordFailure()
		}
		u.mu.Lock()
		lt.err = goerr.Wrap(err, "store trial record", goerr.V("trial_id", record.TrialID))
		u.mu.Unlock()
		return
	}
	u.mu.Lock()
	delete(u.trials, record.TrialID)
	u.mu.Unlock()
}

func (u *UseCase) reserve(lt *liveTrial) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.trials == nil {
		u.trials = map[string]*liveTrial{}
		u.byParticipant = map[string]string{}
	}
	if active, ok := u.byParticipant[lt.record.ParticipantID]; ok {
		return goerr.Wrap(ErrTrialInProgress, "participant has an unfinished trial", goerr.V("trial_id", active))
	}
	u.byParticipant[lt.record.ParticipantID] = lt.record.TrialID
	return nil
}

// publish makes a launched trial reachable by id. It reports false when Start
// already gave up on the trial.
func (u *UseCase) publish(lt *liveTrial) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if lt.abandoned {
		return false
	}
	u.trials[lt.record.TrialID] = lt
	return true
}

// abandon frees a trial whose Start failed. A controller already published by
// a late loop task is aborted on the loop.
func (u *UseCase) abandon(lt *liveTrial) {
	u.mu.Lock()
	lt.abandoned = true
	var c *pilt.Controller
	if _, published := u.trials[lt.record.TrialID]; published {
		c = lt.controller
	}
	u.mu.Unlock()
	u.release(lt)
	if c != nil {
		u.Loop.Post(c.Abort)
	}
}

func (u *UseCase) release(lt *liveTrial) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.trials, lt.record.TrialID)
	if u.byParticipant[lt.record.ParticipantID] == lt.record.TrialID {
		delete(u.byParticipant, lt.record.ParticipantID)
	}
}

func (u *UseCase) lookup(trialID string) (*liveTrial, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	lt, ok := u.trials[strings.TrimSpace(trialID)]
	return lt, ok
}

func (u *UseCase) recordRejected() {
	if u.Metrics != nil {
		u.Metrics.RecordRejected()
	}
}

func (u *UseCase) newID() string {
	if u.NewID != nil {
		return u.NewID()
	}
	return uuid.New().String()
}

func (u *UseCase) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}
