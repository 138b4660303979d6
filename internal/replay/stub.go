//go:build !pcap
// +build !pcap

package replay

import (
	"context"
	"fmt"
)

// Replay is a stub used when libpcap support is disabled. Build with
// -tags=pcap (and a system libpcap) to enable PCAP file replay.
func Replay(ctx context.Context, pcapFile string, udpPort int, cfg Config) error {
	return fmt.Errorf("replay: pcap support not enabled: rebuild with -tags=pcap")
}

// Config controls replay pacing and destination (see pcap.go for the
// build-tagged implementation's field documentation).
type Config struct {
	SpeedMultiplier float64
	TargetAddr      string
}
