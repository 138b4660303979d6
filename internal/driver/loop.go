package driver

import (
	"context"
	"time"

	"github.com/openidn/idnserver/internal/adapter"
	"github.com/openidn/idnserver/internal/bex"
	"github.com/openidn/idnserver/internal/diag"
	"github.com/openidn/idnserver/internal/point"
)

// PollInterval is how often the driver requests a BEX swap and, on a null
// result, how long it parks before retrying (spec.md §4.7, §5).
const PollInterval = 2 * time.Millisecond

// Loop runs the consumer side of one physical adapter output: it swaps
// chunk queues from a BEX, converts and writes slices through an adapter,
// and runs the Wave-mode speed controller. Loop blocks until ctx is
// cancelled.
type Loop struct {
	BEX     *bex.BEX
	Adapter adapter.Adapter
	Speed   *SpeedController

	current  *point.ChunkQ
	pos      int
	sleepFor func(time.Duration)
}

// NewLoop returns a Loop wired to bx/a with a fresh speed controller
// targeting targetMs.
func NewLoop(bx *bex.BEX, a adapter.Adapter, targetMs float64) *Loop {
	return &Loop{
		BEX:      bx,
		Adapter:  a,
		Speed:    NewSpeedController(targetMs),
		sleepFor: time.Sleep,
	}
}

// Run executes the driver loop until ctx is cancelled. On cancellation it
// emits one final safe empty point before returning, per spec.md §4.9
// abort-safety: the beam must never be left active mid-write.
func (l *Loop) Run(ctx context.Context) {
	defer l.emitSafe()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		l.Step()
		select {
		case <-ctx.Done():
			return
		case <-after(l.sleepFor, PollInterval):
		}
	}
}

// after returns a channel that fires once sleepFor(d) has been simulated;
// kept as a seam so tests can inject a zero-delay sleeper without a real
// timer per iteration.
func after(sleepFor func(time.Duration), d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	go func() {
		sleepFor(d)
		ch <- time.Now()
	}()
	return ch
}

// Step runs one iteration of the driver loop's body: acquire-or-continue,
// write, speed update. It is exported separately from Run so tests can
// drive it deterministically without real sleeps.
func (l *Loop) Step() {
	mode := l.BEX.Mode()

	if q := l.BEX.Swap(); !q.Empty() {
		l.current = q
		l.pos = 0
		if mode == point.Wave {
			l.recomputeSpeed()
		}
	}

	if l.current.Empty() || mode == point.Inactive {
		l.emitSafe()
		l.Speed.Reset()
		return
	}

	slice := l.current.Slices[l.pos]
	speed := 1.0
	if mode == point.Wave {
		speed = l.Speed.Current()
	}
	if err := l.Adapter.WriteFrame(slice, speed*float64(slice.DurationUs)); err != nil {
		diag.At(diag.LevelSimple, "driver: write_frame error: %v", err)
	}

	switch mode {
	case point.Frame, point.FrameOnce:
		// The ring repeats until replaced; FrameOnce playback-termination
		// policy is left to the caller (it simply stops calling Step after
		// one full cycle — see Loop.Cycled).
		l.pos++
		if l.pos >= len(l.current.Slices) {
			l.pos = 0
		}
	case point.Wave:
		// Discard after write: the queue is the next wave segment.
		l.pos++
		if l.pos >= len(l.current.Slices) {
			l.current.Reset()
			l.pos = 0
		}
	}
}

// Cycled reports whether the current Frame-mode queue has just completed a
// full pass (pos wrapped to 0), used by FrameOnce callers to stop feeding.
func (l *Loop) Cycled() bool {
	return l.pos == 0
}

func (l *Loop) recomputeSpeed() {
	if l.current.Empty() {
		return
	}
	usageMs := bufferUsageMs(l.current)
	l.Speed.Update(usageMs)
}

func bufferUsageMs(q *point.ChunkQ) float64 {
	if q.Empty() {
		return 0
	}
	return float64(len(q.Slices)) * float64(q.Slices[0].DurationUs) / 1000.0
}

func (l *Loop) emitSafe() {
	safe := point.Safe()
	slice := point.Slice{Bytes: l.Adapter.ConvertPoints([]point.Point{safe}), DurationUs: 1000}
	if err := l.Adapter.WriteFrame(slice, float64(slice.DurationUs)); err != nil {
		diag.At(diag.LevelSimple, "driver: failed to emit safe point: %v", err)
	}
}
