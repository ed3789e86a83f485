package virtual

import (
	"sort"
	"time"
)

// Runtime is a deterministic clock and timer queue. Timers only fire from
// Advance or RunUntilIdle, on the caller's goroutine.
type Runtime struct {
	now    time.Duration
	seq    uint64
	groups uint64
	queue  []*timer
}

type timer struct {
	due   time.Duration
	seq   uint64
	group uint64
	fn    func()
}

func New() *Runtime {
	return &Runtime{}
}

func (r *Runtime) NowMs() float64 {
	return float64(r.now) / float64(time.Millisecond)
}

func (r *Runtime) Now() time.Duration {
	return r.now
}

func (r *Runtime) SetTimer(d time.Duration, fn func()) {
	r.schedule(0, d, fn)
}

func (r *Runtime) schedule(group uint64, d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	r.seq++
	r.queue = append(r.queue, &timer{due: r.now + d, seq: r.seq, group: group, fn: fn})
	sort.SliceStable(r.queue, func(i, j int) bool {
		if r.queue[i].due == r.queue[j].due {
			return r.queue[i].seq < r.queue[j].seq
		}
		return r.queue[i].due < r.queue[j].due
	})
}

func (r *Runtime) ClearAllTimers() {
	r.queue = nil
}

// Group returns a scheduler sharing this runtime's clock whose ClearAllTimers
// only drops the timers it set.
func (r *Runtime) Group() *Group {
	r.groups++
	return &Group{rt: r, id: r.groups}
}

type Group struct {
	rt *Runtime
	id uint64
}

func (g *Group) SetTimer(d time.Duration, fn func()) {
	g.rt.schedule(g.id, d, fn)
}

func (g *Group) ClearAllTimers() {
	kept := g.rt.queue[:0]
	for _, t := range g.rt.queue {
		if t.group != g.id {
			kept = append(kept, t)
		}
	}
	g.rt.queue = kept
}

func (r *Runtime) Pending() int {
	return len(r.queue)
}

// Advance moves time forward by d, firing due timers in order.
func (r *Runtime) Advance(d time.Duration) {
	target := r.now + d
	for len(r.queue) > 0 && r.queue[0].due <= target {
		t := r.queue[0]
		r.queue = r.queue[1:]
		r.now = t.due
		t.fn()
	}
	r.now = target
}

// RunUntilIdle fires timers until none are pending or limit timers have fired.
// It returns the number fired.
func (r *Runtime) RunUntilIdle(limit int) int {
	fired := 0
	for len(r.queue) > 0 && fired < limit {
		t := r.queue[0]
		r.queue = r.queue[1:]
		r.now = t.due
		t.fn()
		fired++
	}
	return fired
}
