package session

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// State is a session's lifecycle state (spec.md §3).
type State int

const (
	Attached State = iota
	Detached
	Closing
	Abandoned
)

func (s State) String() string {
	switch s {
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	case Closing:
		return "closing"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Endpoint identifies a client by address/port/family plus client-group,
// per spec.md §3 ("Identified by the client-endpoint triple ... plus client
// group bits").
type Endpoint struct {
	Addr        string // net.IP.String()
	Port        int
	ClientGroup uint8
}

// Sess is a session attached to one Conn. A session owns up to
// MaxChannels Ch entries, addressed by a sparse index.
type Sess struct {
	ID         uuid.UUID // diagnostic/log correlation identity, not wire-visible
	LogIdent   string
	Endpoint   Endpoint
	Channels   [MaxChannels]*Ch
	InputTime  time.Time // monotonic time of last received packet
	State      State
	InputFlags FlagSet[InputEvent]
}

// NewSess returns a freshly attached session for ep.
func NewSess(ep Endpoint) *Sess {
	s := &Sess{
		ID:       uuid.New(),
		Endpoint: ep,
		State:    Attached,
	}
	s.LogIdent = ep.Addr
	s.InputFlags.Set(InputNew)
	return s
}

// Channel returns (creating if necessary) the channel at id, or nil if id
// is out of range.
func (s *Sess) Channel(id int) *Ch {
	if id < 0 || id >= MaxChannels {
		return nil
	}
	if s.Channels[id] == nil {
		s.Channels[id] = NewCh(id)
	}
	return s.Channels[id]
}

// Touch updates InputTime and, if the session had timed out into Detached,
// does not resurrect it: per spec.md §3, a detached session stays detached
// until its queues drain; only a brand new Conn creates a brand new Sess.
func (s *Sess) Touch(now time.Time) {
	s.InputTime = now
}

// TimedOut reports whether the session has been silent for at least
// timeout (spec.md §5: 1s session inactivity).
func (s *Sess) TimedOut(now time.Time, timeout time.Duration) bool {
	if s.InputTime.IsZero() {
		return false
	}
	return now.Sub(s.InputTime) >= timeout
}

// Close transitions to Closing (graceful): the driver finishes the current
// chunk queue before parking.
func (s *Sess) Close() {
	if s.State == Attached || s.State == Detached {
		s.State = Closing
	}
}

// Abort transitions to Abandoned (immediate teardown).
func (s *Sess) Abort() {
	s.State = Abandoned
}

// Detach marks the session detached because its Conn timed out while
// output is still draining.
func (s *Sess) Detach() {
	if s.State == Attached {
		s.State = Detached
	}
}

// UDPEndpoint converts a *net.UDPAddr plus client-group bits into an
// Endpoint key.
func UDPEndpoint(addr *net.UDPAddr, clientGroup uint8) Endpoint {
	return Endpoint{Addr: addr.IP.String(), Port: addr.Port, ClientGroup: clientGroup}
}
