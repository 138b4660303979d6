package session

import (
	"time"

	"github.com/openidn/idnserver/internal/dictionary"
	"github.com/openidn/idnserver/internal/point"
)

// ChState is a channel's lifecycle state (spec.md §4.4).
type ChState int

const (
	ChClosed ChState = iota
	ChOpen
)

// MaxChannels is the per-session channel table size (spec.md §3: 0..63).
const MaxChannels = 64

// Ch is one channel within a session: routing, dictionary, and the flags
// accumulated while open.
type Ch struct {
	ID          int
	State       ChState
	ServiceID   uint16
	ServiceMode uint16
	Dict        dictionary.Dict // shared by reference with the session; immutable once installed
	LastSeen    time.Time
	Pipeline    FlagSet[PipelineEvent]

	// LastQueue is this channel's most recently built (not necessarily
	// published) sample group, kept so the server's per-output arbitration
	// (SPEC_FULL.md §12 mode-priority weighting) can compare every open
	// channel routed to the same service_id without re-decoding anything.
	LastQueue *point.ChunkQ

	// currentMode is the driver-facing playback mode published on the most
	// recent sample group (spec.md §4.4 mode transition policy).
	currentMode int
}

// NewCh returns a closed channel with the given ID.
func NewCh(id int) *Ch {
	return &Ch{ID: id, State: ChClosed}
}

// Open transitions the channel to Open given a (possibly empty) dictionary
// and a resolved service binding. Per spec.md §3 invariant, a channel is
// open only if it has a dictionary and a successful routing step; an empty
// dictionary is valid (it selects the fixed IDTF layout via serviceMode).
func (c *Ch) Open(dict dictionary.Dict, serviceID, serviceMode uint16) {
	c.Dict = dict
	c.ServiceID = serviceID
	c.ServiceMode = serviceMode
	c.State = ChOpen
	c.Pipeline.Set(PipelineRouted)
}

// Close transitions the channel back to Closed, e.g. on a close flag,
// session teardown, or service error.
func (c *Ch) Close() {
	c.State = ChClosed
	c.Pipeline.Set(PipelineClosed)
}

// Touch records that a sample group or channel message was just processed.
func (c *Ch) Touch(now time.Time) {
	c.LastSeen = now
}
