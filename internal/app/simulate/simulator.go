package simulate

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"piltlab/internal/app/pilt"
	"piltlab/internal/app/ports"
	"piltlab/internal/domain/trial"
)

// Overrides pins parts of the fabricated input. Empty fields are sampled.
type Overrides struct {
	Key            string         `json:"key,omitempty"`
	Response       trial.Response `json:"response,omitempty"`
	ReactionTimeMs *float64       `json:"reaction_time_ms,omitempty"`
}

type Simulator struct {
	Rand    *rand.Rand
	Latency Latency
	Logger  *slog.Logger
}

func New(seed uint64) *Simulator {
	return &Simulator{
		Rand:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Latency: DefaultLatency,
	}
}

// maxReactionTimeMs keeps a reaction time representable as a time.Duration.
const maxReactionTimeMs = float64(math.MaxInt64 / int64(time.Millisecond))

func (s *Simulator) fabricate(ov Overrides) (string, float64, error) {
	key := trial.NormalizeKey(ov.Key)
	if key == "" {
		keys := trial.ValidKeys()
		key = keys[s.Rand.IntN(len(keys))]
	}
	var rt float64
	if ov.ReactionTimeMs != nil {
		rt = *ov.ReactionTimeMs
	} else {
		rt = s.Latency.Sample(s.Rand)
	}
	if math.IsNaN(rt) || rt > maxReactionTimeMs {
		return "", 0, goerr.Wrap(ErrInconsistent, "reaction time out of range", goerr.V("reaction_time_ms", rt))
	}
	return key, rt, nil
}

// DataOnly fabricates a trial record without rendering or waiting and hands it
// to sink. Nothing reaches sink when the fabricated fields disagree.
func (s *Simulator) DataOnly(spec trial.Spec, ov Overrides, sink ports.ResultSink) (trial.Result, error) {
	if err := trial.Validate(spec); err != nil {
		return trial.Result{}, err
	}
	key, rt, err := s.fabricate(ov)
	if err != nil {
		return trial.Result{}, err
	}
	r, err := trial.ResolveKey(spec, key, rt)
	if err != nil {
		return trial.Result{}, goerr.Wrap(ErrInconsistent, "fabricated key is not a response key", goerr.V("key", key), goerr.V("cause", err.Error()))
	}
	if ov.Response != "" {
		r.Response = ov.Response
	}
	if err := Check(spec, r); err != nil {
		return trial.Result{}, err
	}
	if sink != nil {
		sink.Complete(r)
	}
	return r, nil
}

// Host is the runtime a visual simulation renders on.
type Host struct {
	Surface ports.Surface
	Clock   ports.Clock
	Timers  ports.Scheduler
}

// StartVisual runs the real controller on host, driving it with a synthetic
// keypress. done receives the checked result once the trial terminates.
func (s *Simulator) StartVisual(host Host, spec trial.Spec, ov Overrides, done func(trial.Result, error)) (*pilt.Controller, error) {
	key, rt, err := s.fabricate(ov)
	if err != nil {
		return nil, err
	}
	side, ok := trial.ResponseKeys[key]
	if !ok {
		return nil, goerr.Wrap(ErrInconsistent, "fabricated key is not a response key", goerr.V("key", key))
	}
	if ov.Response != "" && ov.Response != trial.ResponseFor(side) {
		return nil, goerr.Wrap(ErrInconsistent, "response override does not follow from key",
			goerr.V("key", key), goerr.V("response", ov.Response))
	}
	if rt < 0 {
		return nil, goerr.Wrap(ErrInconsistent, "negative reaction time", goerr.V("reaction_time_ms", rt))
	}

	c := &pilt.Controller{
		Surface: host.Surface,
		Clock:   host.Clock,
		Timers:  host.Timers,
		Keys:    &injector{timers: host.Timers, clock: host.Clock, key: key, rtMs: rt},
		Logger:  s.Logger,
	}
	c.Sink = ports.ResultSinkFunc(func(r trial.Result) {
		done(r, Check(spec, r))
	})
	if err := c.Invoke(spec); err != nil {
		return nil, err
	}
	return c, nil
}

// injector stands in for the keyboard: once registered it presses key rtMs
// after registration through the trial's own scheduler.
type injector struct {
	timers ports.Scheduler
	clock  ports.Clock
	key    string
	rtMs   float64
	gen    uint64
}

func (i *injector) RegisterKeyListener(_ []string, fn func(trial.KeyEvent)) {
	i.gen++
	gen := i.gen
	at := i.clock.NowMs() + i.rtMs
	i.timers.SetTimer(time.Duration(i.rtMs*float64(time.Millisecond)), func() {
		if gen != i.gen {
			return
		}
		fn(trial.KeyEvent{Key: i.key, AtMs: at})
	})
}

func (i *injector) CancelKeyListener() {
	i.gen++
}
