package simulate

import (
	"github.com/m-mizutani/goerr/v2"

	"piltlab/internal/adapter/render/view"
	"piltlab/internal/adapter/runtime/virtual"
	"piltlab/internal/app/ports"
	"piltlab/internal/domain/trial"
)

const headlessTimerLimit = 64

// Visual runs the full controller on a virtual runtime and returns once the
// trial has terminated. The rendered frames are returned for inspection.
func (s *Simulator) Visual(spec trial.Spec, ov Overrides, sink ports.ResultSink) (trial.Result, []trial.Frame, error) {
	rt := virtual.New()
	surface := &view.Surface{KeepHistory: true}

	var (
		out      trial.Result
		checkErr error
		finished bool
	)
	_, err := s.StartVisual(Host{Surface: surface, Clock: rt, Timers: rt}, spec, ov, func(r trial.Result, err error) {
		out, checkErr, finished = r, err, true
	})
	if err != nil {
		return trial.Result{}, nil, err
	}
	rt.RunUntilIdle(headlessTimerLimit)
	if !finished {
		return trial.Result{}, surface.History(), goerr.New("visual simulation did not terminate", goerr.V("pending_timers", rt.Pending()))
	}
	if checkErr != nil {
		return trial.Result{}, surface.History(), checkErr
	}
	if sink != nil {
		sink.Complete(out)
	}
	return out, surface.History(), nil
}
