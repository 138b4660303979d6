package mgmt

import (
	"context"
	"net"
	"time"

	"github.com/openidn/idnserver/internal/diag"
)

const readDeadline = 1 * time.Millisecond

// ListenAndServe binds addr (normally :7355) and serves management-channel
// requests until ctx is cancelled, mirroring the realtime front end's
// bounded-recvfrom receive loop (spec.md §5).
func (m *Manager) ListenAndServe(ctx context.Context, addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	diag.Logf("mgmt: listening on %s", addr)
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
			diag.At(diag.LevelSimple, "mgmt: read error: %v", err)
			continue
		}

		resp := m.HandleDatagram(buf[:n])
		if resp == nil {
			continue
		}
		if _, err := conn.WriteToUDP(resp, remote); err != nil {
			diag.At(diag.LevelSimple, "mgmt: write to %s failed: %v", remote, err)
		}
	}
}
