// Command idnreplay re-sends a recorded IDN session (a PCAP capture of UDP
// traffic to port 7255) against a live idnserver, for regression testing
// without the original hardware.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/openidn/idnserver/internal/replay"
)

var (
	pcapFile   = flag.String("pcap", "", "path to a pcap capture of IDN UDP traffic")
	udpPort    = flag.Int("udp-port", 7255, "UDP port the capture's IDN traffic used")
	targetAddr = flag.String("target", "127.0.0.1:7255", "address of the server to replay against")
	speed      = flag.Float64("speed", 1.0, "replay speed multiplier (1.0 = real time)")
)

func main() {
	flag.Parse()
	if *pcapFile == "" {
		log.Fatal("idnreplay: -pcap is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := replay.Config{SpeedMultiplier: *speed, TargetAddr: *targetAddr}
	if err := replay.Replay(ctx, *pcapFile, *udpPort, cfg); err != nil {
		log.Fatalf("idnreplay: %v", err)
	}
}
