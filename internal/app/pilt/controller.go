package pilt

import (
	"errors"
	"log/slog"
	"math"

	"piltlab/internal/app/ports"
	"piltlab/internal/domain/trial"
)

var ErrTrialActive = errors.New("trial already active")

// Controller runs one two-alternative choice trial at a time. All methods and
// all callbacks it registers must run on the host's event loop.
type Controller struct {
	Surface ports.Surface
	Clock   ports.Clock
	Timers  ports.Scheduler
	Keys    ports.KeyListener
	Sink    ports.ResultSink
	Logger  *slog.Logger

	active  bool
	state   trial.State
	token   uint64
	spec    trial.Spec
	result  trial.Result
	onsetMs float64
	steps   []trial.Step
	step    int
	capture *latch[trial.Result]
	finish  *latch[struct{}]
}

// Invoke starts a trial. An invalid spec fails before anything is rendered.
func (c *Controller) Invoke(spec trial.Spec) error {
	if c.active {
		return ErrTrialActive
	}
	if err := trial.Validate(spec); err != nil {
		return err
	}

	c.active = true
	c.token++
	c.spec = spec
	c.result = trial.Result{}
	c.steps = nil
	c.step = -1
	c.capture = newLatch(c.resolve)
	c.finish = newLatch(c.complete)

	token := c.token
	c.enter(trial.StatePresenting)
	c.Surface.Render(trial.PresentFrame(spec), func() {
		if c.stale(token) {
			return
		}
		c.awaitResponse(token)
	})
	return nil
}

// State is the current state; Terminal once the last trial has completed.
func (c *Controller) State() trial.State {
	return c.state
}

func (c *Controller) Active() bool {
	return c.active
}

// Abort drops the running trial without delivering a result.
func (c *Controller) Abort() {
	if !c.active {
		return
	}
	c.release()
	c.enter(trial.StateTerminal)
	c.reset()
}

func (c *Controller) awaitResponse(token uint64) {
	c.enter(trial.StateAwaitingResponse)
	c.Surface.Render(trial.FrameFor(c.spec, c.result, trial.StateAwaitingResponse), func() {})
	c.onsetMs = c.Clock.NowMs()
	c.Keys.RegisterKeyListener(trial.ValidKeys(), func(ev trial.KeyEvent) {
		c.onKey(token, ev)
	})
	if c.spec.HasDeadline() {
		c.Timers.SetTimer(c.spec.Deadline(), func() {
			if c.stale(token) {
				return
			}
			c.capture.Settle(trial.ResolveNoResponse(c.spec))
		})
	}
}

func (c *Controller) onKey(token uint64, ev trial.KeyEvent) {
	if c.stale(token) || c.capture.Settled() {
		return
	}
	r, err := trial.ResolveKey(c.spec, ev.Key, math.Max(0, ev.AtMs-c.onsetMs))
	if err != nil {
		return
	}
	c.capture.Settle(r)
}

// resolve runs once per trial, for whichever of keypress and deadline came first.
func (c *Controller) resolve(r trial.Result) {
	c.Keys.CancelKeyListener()
	c.Timers.ClearAllTimers()
	c.result = r
	c.enter(trial.StateResolved)
	c.steps = trial.Plan(c.spec, r)
	c.runStep(0, c.token)
}

// runStep is the single driver of the feedback sequence: render step i, wait for
// its transition, wait its duration, then move to i+1.
func (c *Controller) runStep(i int, token uint64) {
	if c.stale(token) {
		return
	}
	if i >= len(c.steps) {
		c.terminate()
		return
	}
	st := c.steps[i]
	c.step = i
	c.enter(st.State)
	c.Surface.Render(trial.FrameFor(c.spec, c.result, st.State), func() {
		if c.stale(token) || c.step != i {
			return
		}
		c.Timers.SetTimer(st.Wait, func() {
			if c.stale(token) || c.step != i {
				return
			}
			c.runStep(i+1, token)
		})
	})
}

func (c *Controller) terminate() {
	if c.finish == nil {
		return
	}
	c.finish.Settle(struct{}{})
}

func (c *Controller) complete(struct{}) {
	c.release()
	out := c.result
	out.ResponseOptimal = trial.IsOptimal(c.spec, out.Response)
	c.enter(trial.StateTerminal)
	c.Surface.Render(trial.Frame{State: trial.StateTerminal}, func() {})
	c.reset()
	c.Sink.Complete(out)
}

// release deactivates every timer and listener and invalidates queued callbacks.
func (c *Controller) release() {
	c.token++
	c.Timers.ClearAllTimers()
	c.Keys.CancelKeyListener()
}

func (c *Controller) reset() {
	c.active = false
	c.spec = trial.Spec{}
	c.result = trial.Result{}
	c.steps = nil
	c.step = -1
}

func (c *Controller) stale(token uint64) bool {
	return !c.active || token != c.token
}

func (c *Controller) enter(st trial.State) {
	c.state = st
	if c.Logger != nil {
		c.Logger.Debug("trial state", slog.String("state", string(st)))
	}
}
