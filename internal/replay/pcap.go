//go:build pcap
// +build pcap

// Package replay re-sends IDN UDP packets captured in a PCAP file against a
// live server, honoring (optionally speed-scaled) original capture timing —
// useful for regression-testing the driver/BEX pipeline against a recorded
// session without the original laser hardware. Requires libpcap and the
// "pcap" build tag, matching the teacher's internal/lidar/network pcap
// readers (also libpcap-gated).
package replay

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/openidn/idnserver/internal/diag"
)

// Config controls replay pacing and destination.
type Config struct {
	// SpeedMultiplier scales inter-packet delay: 1.0 = real time, 2.0 = 2x
	// speed, 0 defaults to 1.0.
	SpeedMultiplier float64
	// TargetAddr is the UDP address (host:port) to forward payloads to,
	// normally the live server's :7255 listener.
	TargetAddr string
}

// Replay reads pcapFile, filters to UDP traffic on udpPort, and forwards
// each payload to cfg.TargetAddr with the capture's original relative
// timing (scaled by cfg.SpeedMultiplier). It blocks until the file is
// exhausted or ctx is cancelled.
func Replay(ctx context.Context, pcapFile string, udpPort int, cfg Config) error {
	if cfg.SpeedMultiplier <= 0 {
		cfg.SpeedMultiplier = 1.0
	}

	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return fmt.Errorf("replay: open %s: %w", pcapFile, err)
	}
	defer handle.Close()

	filter := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filter); err != nil {
		return fmt.Errorf("replay: set BPF filter %q: %w", filter, err)
	}

	targetAddr, err := net.ResolveUDPAddr("udp", cfg.TargetAddr)
	if err != nil {
		return fmt.Errorf("replay: resolve %s: %w", cfg.TargetAddr, err)
	}
	conn, err := net.DialUDP("udp", nil, targetAddr)
	if err != nil {
		return fmt.Errorf("replay: dial %s: %w", cfg.TargetAddr, err)
	}
	defer conn.Close()

	diag.Logf("replay: forwarding %s (filter %q) to %s at %.1fx", pcapFile, filter, cfg.TargetAddr, cfg.SpeedMultiplier)

	src := gopacket.NewPacketSource(handle, handle.LinkType())
	var lastCapture time.Time
	count := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case packet := <-src.Packets():
			if packet == nil {
				diag.Logf("replay: complete, %d packets forwarded", count)
				return nil
			}

			captureTime := packet.Metadata().Timestamp
			if !lastCapture.IsZero() {
				delay := captureTime.Sub(lastCapture)
				scaled := time.Duration(float64(delay) / cfg.SpeedMultiplier)
				if scaled > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(scaled):
					}
				}
			}
			lastCapture = captureTime

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok || len(udp.Payload) == 0 {
				continue
			}

			if _, err := conn.Write(udp.Payload); err != nil {
				diag.At(diag.LevelSimple, "replay: write failed: %v", err)
				continue
			}
			count++
		}
	}
}
