package server

import (
	"context"
	"net"
	"time"

	"github.com/openidn/idnserver/internal/diag"
	"github.com/openidn/idnserver/internal/point"
	"github.com/openidn/idnserver/internal/session"
)

// readDeadline bounds each ReadFromUDP call so the receive loop can observe
// ctx cancellation promptly, per spec.md §5 ("blocking recvfrom with small
// timeout ~1ms for cancellation responsiveness").
const readDeadline = 1 * time.Millisecond

// ListenAndServe binds addr and runs the UDP receive loop until ctx is
// cancelled. Each datagram is handled synchronously and in order, matching
// spec.md §5's single-network-thread serialization guarantee.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	diag.Logf("server: listening on %s", addr)
	buf := make([]byte, 1500)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return err
		}
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			diag.At(diag.LevelSimple, "server: read error: %v", err)
			continue
		}

		resp := s.HandleDatagram(time.Now(), remote, buf[:n])
		if resp == nil {
			continue
		}
		if _, err := conn.WriteToUDP(resp, remote); err != nil {
			diag.At(diag.LevelSimple, "server: write to %s failed: %v", remote, err)
		}
	}
}

// SweepTimeouts is invoked periodically (not per-datagram) to age out
// silent connections, per spec.md §5 Timeout handling. A session is kept
// around in Detached state, rather than removed outright, while any of its
// open channels is routed to an output whose BEX mode is not Inactive; the
// BEX's queue contents are not inspected.
func (s *Server) SweepTimeouts(now time.Time) {
	s.Conns.SweepTimeouts(now, func(sess *session.Sess) bool {
		for i := 0; i < session.MaxChannels; i++ {
			ch := sess.Channels[i]
			if ch == nil || ch.State != session.ChOpen {
				continue
			}
			if out, err := s.lookupOutput(ch.ServiceID); err == nil && out.BEX.Mode() != point.Inactive {
				return true
			}
		}
		return false
	})
}
