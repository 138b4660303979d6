// Package fileadapter is a reference adapter.Adapter backed by a real
// serial port, for DACs that accept a flat point stream over RS-232/USB-
// serial rather than a bespoke protocol. Grounded on the teacher's
// internal/serialmux (go.bug.st/serial port options and open sequence);
// point encoding reuses adapter.Dummy's big-endian flat layout since no
// device-specific framing is in scope here (spec.md §1: real hardware
// protocols are out of scope; this is the one reference implementation).
package fileadapter

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/openidn/idnserver/internal/point"
)

// PortOptions describes the serial connection parameters for a laser DAC's
// point-stream link. The field set follows the teacher's
// serialmux.PortOptions (the connection parameters any serial peripheral
// needs), but Normalize enforces a domain-specific floor on BaudRate: a
// real-time point stream at even a modest rate needs more sustained
// throughput than serialmux's generic default assumes (see minBaudRate).
type PortOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// minBaudRate is the slowest link this adapter accepts; Normalize rejects
// anything below it. At this floor an 8-N-1 link carries 960 bytes/s, so
// one BytesPerPoint()-sized (22-byte) point takes about 23ms to send.
const minBaudRate = 9600

// defaultBaudRate is higher than serialmux's generic 19200 default: a
// laser projector's point stream needs materially more throughput than the
// telemetry links serialmux was written for.
const defaultBaudRate = 115200

// Normalize validates opts and fills in defaults.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	if opts.BaudRate <= 0 {
		opts.BaudRate = defaultBaudRate
	}
	if opts.BaudRate < minBaudRate {
		return opts, fmt.Errorf("fileadapter: baud rate %d too low for real-time point streaming (minimum %d)", opts.BaudRate, minBaudRate)
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("fileadapter: data bits %d out of range (5-8)", opts.DataBits)
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("fileadapter: stop bits %d not supported (must be 1 or 2)", opts.StopBits)
	}
	opts.Parity = normalizeParity(opts.Parity)
	if opts.Parity == "" {
		return opts, fmt.Errorf("fileadapter: unsupported parity %q", o.Parity)
	}
	return opts, nil
}

// normalizeParity maps any accepted parity spelling to its single-letter
// wire form, or "" if unrecognized.
func normalizeParity(p string) string {
	switch strings.ToUpper(strings.TrimSpace(p)) {
	case "", "N", "NONE":
		return "N"
	case "E", "EVEN":
		return "E"
	case "O", "ODD":
		return "O"
	default:
		return ""
	}
}

// BytesPerSecond estimates the link's sustained throughput ceiling (8-N-1
// framing assumed), used to sanity-check a configured MaxPointRate against
// what the wire can actually carry.
func (o PortOptions) BytesPerSecond() float64 {
	opts, err := o.Normalize()
	if err != nil {
		return 0
	}
	frameBits := 1 + opts.DataBits + opts.StopBits
	if opts.Parity != "N" {
		frameBits++
	}
	return float64(opts.BaudRate) / float64(frameBits)
}

// SerialMode converts opts into go.bug.st/serial's open parameters.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.StopBits(opts.StopBits),
	}
	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

const bytesPerPoint = 11 * 2 // matches point.Point's 11 uint16 fields

// Adapter is a serial-port-backed adapter.Adapter.
type Adapter struct {
	port   serial.Port
	name   string
	maxPPS uint32
}

// Open opens path with opts and returns a ready Adapter.
func Open(path string, opts PortOptions, maxPPS uint32) (*Adapter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("fileadapter: open %s: %w", path, err)
	}
	if maxPPS == 0 {
		maxPPS = 30000
	}
	return &Adapter{port: port, name: path, maxPPS: maxPPS}, nil
}

// Close releases the underlying serial port.
func (a *Adapter) Close() error {
	return a.port.Close()
}

// BytesPerPoint implements adapter.Adapter.
func (a *Adapter) BytesPerPoint() uint32 { return bytesPerPoint }

// ConvertPoints implements adapter.Adapter: the same flat big-endian
// 11-field layout as adapter.Dummy.
func (a *Adapter) ConvertPoints(points []point.Point) []byte {
	out := make([]byte, 0, len(points)*bytesPerPoint)
	for _, p := range points {
		for _, v := range [...]uint16{p.X, p.Y, p.R, p.G, p.B, p.Intensity, p.Shutter, p.U1, p.U2, p.U3, p.U4} {
			out = append(out, byte(v>>8), byte(v))
		}
	}
	return out
}

// MaxBytesPerTransmission implements adapter.Adapter: serial links have no
// fixed transaction size limit, only a sustained-throughput ceiling
// expressed through MaxPointRate.
func (a *Adapter) MaxBytesPerTransmission() uint32 {
	return 0xFFFFFFFF
}

// MaxPointRate implements adapter.Adapter.
func (a *Adapter) MaxPointRate() uint32 { return a.maxPPS }

// SetMaxPointRate implements adapter.Adapter.
func (a *Adapter) SetMaxPointRate(pps uint32) { a.maxPPS = pps }

// Name implements adapter.Adapter.
func (a *Adapter) Name() string {
	n := a.name
	if len(n) > 20 {
		n = n[len(n)-20:]
	}
	return n
}

// WriteFrame implements adapter.Adapter: writes slice.Bytes to the serial
// port, then sleeps out the remainder of durationUs if the write completed
// faster than the scheduled slice duration (spec.md §4.7 write semantics:
// "must complete in bounded real-time ≈ duration_us"). A write error is
// returned to the caller; driver.Loop logs it and carries on, and no
// pipeline-event flag is set for it.
func (a *Adapter) WriteFrame(slice point.Slice, durationUs float64) error {
	start := time.Now()
	_, err := a.port.Write(slice.Bytes)
	elapsed := time.Since(start)
	target := time.Duration(durationUs) * time.Microsecond
	if remaining := target - elapsed; remaining > 0 {
		time.Sleep(remaining)
	}
	return err
}
