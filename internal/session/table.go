package session

import "time"

// Timeout is the connection/session inactivity deadline (spec.md §5: 1s).
const Timeout = 1 * time.Second

// Table owns the live Conn set, keyed by Endpoint. It is touched only by
// the network thread (spec.md §5: "Session and channel tables: owned by
// the network thread; driver never touches them").
type Table struct {
	conns map[Endpoint]*Conn
}

// NewTable returns an empty connection table.
func NewTable() *Table {
	return &Table{conns: make(map[Endpoint]*Conn)}
}

// Get returns the existing Conn for ep, creating one (with a freshly
// attached Sess) on first contact — spec.md §3: "Conn created on first
// valid packet from a new endpoint".
func (t *Table) Get(ep Endpoint) *Conn {
	if c, ok := t.conns[ep]; ok {
		return c
	}
	c := NewConn(ep)
	t.conns[ep] = c
	return c
}

// Remove deletes the Conn for ep, e.g. after RT_ABORT or timeout teardown.
func (t *Table) Remove(ep Endpoint) {
	delete(t.conns, ep)
}

// Len returns the number of live connections.
func (t *Table) Len() int {
	return len(t.conns)
}

// SweepTimeouts walks the table and, for each Conn silent for at least
// Timeout, either detaches its session (if still draining output) or
// removes the connection outright. draining(s) reports whether the
// session's output is still active and the Conn should be kept.
func (t *Table) SweepTimeouts(now time.Time, draining func(*Sess) bool) {
	for ep, c := range t.conns {
		if !c.TimedOut(now, Timeout) {
			continue
		}
		if draining != nil && draining(c.Sess) {
			c.Sess.Detach()
			continue
		}
		delete(t.conns, ep)
	}
}

// All returns a snapshot slice of all live connections, for diagnostics
// (e.g. the admin HTTP surface).
func (t *Table) All() []*Conn {
	out := make([]*Conn, 0, len(t.conns))
	for _, c := range t.conns {
		out = append(out, c)
	}
	return out
}
