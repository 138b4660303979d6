package session

import (
	"time"

	"github.com/google/uuid"
)

// Conn is a network-level peer binding: one Conn per remote endpoint +
// client-group pair (spec.md §3 invariant), tracking sequence-number
// validity and owning exactly one Sess.
type Conn struct {
	ID         uuid.UUID
	Endpoint   Endpoint
	NextSeq    uint16
	haveSeq    bool
	InputTime  time.Time
	InputFlags FlagSet[InputEvent]
	Sess       *Sess
}

// NewConn creates a Conn bound to ep with a brand-new attached Sess.
func NewConn(ep Endpoint) *Conn {
	return &Conn{
		ID:       uuid.New(),
		Endpoint: ep,
		Sess:     NewSess(ep),
	}
}

// SeqKind classifies a sequence-number observation (spec.md §4.8).
type SeqKind int

const (
	SeqOK SeqKind = iota
	SeqNotIncremented
	SeqDuplicate
	SeqOutOfOrder
)

// ValidateSeq classifies seq against the connection's expectation and
// advances NextSeq. Per spec.md §4.8, the packet is accepted regardless of
// classification ("realtime trumps ordering") — only the flag differs.
func (c *Conn) ValidateSeq(seq uint16) SeqKind {
	if !c.haveSeq {
		c.haveSeq = true
		c.NextSeq = seq + 1
		return SeqOK
	}
	kind := SeqOK
	switch {
	case seq == c.NextSeq-1:
		kind = SeqDuplicate
	case seq == c.NextSeq:
		kind = SeqOK
	case seq < c.NextSeq:
		kind = SeqOutOfOrder
	default:
		kind = SeqNotIncremented // a gap: sequence jumped ahead
	}
	c.NextSeq = seq + 1
	return kind
}

// RecordSeqFlag sets the InputEvent flag bit corresponding to kind.
func (c *Conn) RecordSeqFlag(kind SeqKind) {
	switch kind {
	case SeqNotIncremented:
		c.InputFlags.Set(InputSeqErrNotIncremented)
	case SeqDuplicate:
		c.InputFlags.Set(InputSeqErrDuplicate)
	case SeqOutOfOrder:
		c.InputFlags.Set(InputSeqErrMissing)
	}
}

// Touch updates the connection's last-seen time.
func (c *Conn) Touch(now time.Time) {
	c.InputTime = now
}

// TimedOut reports whether the connection has been silent for at least
// timeout (spec.md §5: 1s link inactivity).
func (c *Conn) TimedOut(now time.Time, timeout time.Duration) bool {
	if c.InputTime.IsZero() {
		return false
	}
	return now.Sub(c.InputTime) >= timeout
}
