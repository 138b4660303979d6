package config

import "flag"

// Flags is the CLI surface from spec.md §6, parsed with the standard flag
// package exactly as the teacher's cmd/radar/radar.go and root main.go do
// (no cobra/pflag anywhere in the teacher).
type Flags struct {
	MaxPointRate    uint
	ChunkLengthUs   uint
	BufferTargetMs  uint
	Debug           bool
	DebugLive       bool
	DebugSimple     bool
	ConfigPath      string
	Listen          string
	ManagementAddr  string
}

// RegisterFlags binds Flags to fs (normally flag.CommandLine) with the
// documented defaults and returns the struct flag.Parse will populate.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.UintVar(&f.MaxPointRate, "setMaxPointRate", 30000, "adapter pps ceiling")
	fs.UintVar(&f.ChunkLengthUs, "setChunkLengthUs", 5000, "producer's WAVE slice target duration (us)")
	fs.UintVar(&f.BufferTargetMs, "setBufferTargetMs", 40, "driver's speed-control setpoint (ms)")
	fs.BoolVar(&f.Debug, "debug", false, "enable debug-level diagnostic logging")
	fs.BoolVar(&f.DebugLive, "debuglive", false, "enable per-slice driver-loop tracing")
	fs.BoolVar(&f.DebugSimple, "debugsimple", false, "enable one-line-per-event diagnostic logging")
	fs.StringVar(&f.ConfigPath, "config", "/etc/openidn/openidn.ini", "path to persisted INI settings file")
	fs.StringVar(&f.Listen, "listen", ":7255", "UDP listen address for IDN ingress")
	fs.StringVar(&f.ManagementAddr, "management-listen", ":7355", "UDP listen address for the management channel")
	return f
}

// ExitCodeOK and ExitCodeArgError mirror spec.md §6's documented exit codes.
const (
	ExitCodeOK       = 0
	ExitCodeArgError = -1
)
