package driver

import "github.com/openidn/idnserver/internal/point"

// ModeWeight is the configured integer priority for one playback mode, read
// from the persisted [mode_priority] INI section (spec.md §6,
// SPEC_FULL.md §12). Higher weight wins when more than one channel is
// feeding the same physical adapter output.
type ModeWeight struct {
	Mode   point.Mode
	Weight int
}

// Priorities selects which of several candidate queues should feed the
// single physical adapter output when more than one channel is active
// simultaneously, per the mode_priority weighting described in
// SPEC_FULL.md §12. Candidates are indexed by channel; Select returns the
// index of the winner, or -1 if candidates is empty.
type Priorities struct {
	weights map[point.Mode]int
}

// NewPriorities builds a Priorities table from the parsed INI weights,
// defaulting unlisted modes to weight 0.
func NewPriorities(weights []ModeWeight) *Priorities {
	m := make(map[point.Mode]int, len(weights))
	for _, w := range weights {
		m[w.Mode] = w.Weight
	}
	return &Priorities{weights: m}
}

// Select returns the index of the highest-priority non-empty candidate
// queue. Ties keep the first (lowest-index) candidate: a later candidate
// of equal weight never displaces an earlier one, whichever was written
// most recently.
func (p *Priorities) Select(candidates []*point.ChunkQ) int {
	best := -1
	bestWeight := 0
	for i, q := range candidates {
		if q.Empty() {
			continue
		}
		w := p.weights[q.Mode]
		if best == -1 || w > bestWeight {
			best = i
			bestWeight = w
		}
	}
	return best
}
