package driver

// SpeedController implements the Wave-mode adaptive playback-speed control
// law from spec.md §4.7: it keeps the downstream buffer's implied fill
// depth near a configured target by nudging a scalar speed factor applied
// to slice durations.
type SpeedController struct {
	// TargetMs is the configured setpoint (default 40ms per spec.md).
	TargetMs float64
	// HysteresisMs is the +-10ms band inside which off_center is zero.
	HysteresisMs float64

	current float64
	accum   float64
}

// NewSpeedController returns a controller at the documented defaults with
// speed factor starting at 1.0 (no adjustment).
func NewSpeedController(targetMs float64) *SpeedController {
	if targetMs <= 0 {
		targetMs = 40
	}
	return &SpeedController{TargetMs: targetMs, HysteresisMs: 10, current: 1.0}
}

// Current returns the most recently computed speed factor.
func (s *SpeedController) Current() float64 {
	if s.current == 0 {
		return 1.0
	}
	return s.current
}

// Reset zeroes the integral accumulator, as happens whenever the driver
// goes Inactive (spec.md §4.7).
func (s *SpeedController) Reset() {
	s.accum = 0
}

// SpeedClampMin and SpeedClampMax are the tighter of the two clamp ranges
// found in the original source (spec.md §9 design note): [0.01,10.0] and
// [0.83,1.3]. The tighter band is documented as current intent.
const (
	SpeedClampMin = 0.83
	SpeedClampMax = 1.3
)

// Update computes the next speed factor given the current implied buffer
// fill depth in milliseconds (queueLen * frontSliceDurationUs / 1000).
func (s *SpeedController) Update(bufferUsageMs float64) float64 {
	if s.current == 0 {
		s.current = 1.0
	}

	offCenter := 0.0
	delta := s.TargetMs - bufferUsageMs
	if delta > s.HysteresisMs || delta < -s.HysteresisMs {
		offCenter = delta / s.TargetMs
	}

	// Reserved integral term: currently weighted 0 in the final control law
	// (spec.md §4.7), kept so a future revision can re-enable it without
	// restructuring the loop.
	s.accum += offCenter

	raw := 1.0 + 0.3*offCenter
	next := (raw + 4*s.current) / 5

	if next < SpeedClampMin {
		next = SpeedClampMin
	} else if next > SpeedClampMax {
		next = SpeedClampMax
	}
	s.current = next
	return next
}
