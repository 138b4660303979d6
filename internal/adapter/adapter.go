// Package adapter defines the narrow device-adapter contract the core
// consumes (spec.md §6) and a dependency-free Dummy implementation used by
// tests, the bench CLI, and as the fallback when no hardware is attached.
// Per spec.md §9 ("Dynamic dispatch for adapters"), this is a plain
// interface rather than a tagged union: the capability set is narrow (six
// operations) and a heap-free Dummy satisfies it without reflection.
package adapter

import (
	"fmt"

	"github.com/openidn/idnserver/internal/point"
)

// Unbounded signals "no maximum transmission size" per spec.md §6.
const Unbounded uint32 = 0xFFFFFFFF

// Adapter is the abstract interface every hardware-specific DAC driver
// implements. Real adapters (USB, SPI-to-MCU) are out of this repo's scope
// per spec.md §1; only the interface and a couple of reference
// implementations (Dummy here, the serial-backed one in internal/fileadapter)
// live in the core.
type Adapter interface {
	// ConvertPoints deterministically encodes points into the device's byte
	// layout, preserving order. len(result) == len(points)*BytesPerPoint().
	ConvertPoints(points []point.Point) []byte
	// BytesPerPoint is the constant per-point encoded size for this adapter.
	BytesPerPoint() uint32
	// MaxBytesPerTransmission returns Unbounded if there is no cap.
	MaxBytesPerTransmission() uint32
	// MaxPointRate returns the device's point-per-second ceiling.
	MaxPointRate() uint32
	// SetMaxPointRate overrides the device pps ceiling (e.g. via --setMaxPointRate).
	SetMaxPointRate(pps uint32)
	// WriteFrame blocks for approximately durationUs microseconds while
	// transmitting slice to the device. The returned error is informational:
	// callers must not tear down the session on a write failure (spec.md §7).
	WriteFrame(slice point.Slice, durationUs float64) error
	// Name returns a short, human-readable device identifier (<=20 bytes).
	Name() string
}

// Dummy is a zero-dependency reference adapter: it encodes points as a flat
// sequence of big-endian uint16 fields and "writes" by doing nothing. It
// backs tests and idnserver runs started without -serial-port.
type Dummy struct {
	maxPPS uint32
	label  string
}

// NewDummy returns a Dummy with the given initial point-rate ceiling.
func NewDummy(maxPPS uint32) *Dummy {
	if maxPPS == 0 {
		maxPPS = 30000
	}
	return &Dummy{maxPPS: maxPPS, label: "Unknown DAC"}
}

const dummyFieldsPerPoint = 11 // matches point.Point's 11 uint16 fields

func (d *Dummy) BytesPerPoint() uint32 { return dummyFieldsPerPoint * 2 }

func (d *Dummy) ConvertPoints(points []point.Point) []byte {
	out := make([]byte, 0, len(points)*int(d.BytesPerPoint()))
	for _, p := range points {
		for _, v := range [...]uint16{p.X, p.Y, p.R, p.G, p.B, p.Intensity, p.Shutter, p.U1, p.U2, p.U3, p.U4} {
			out = append(out, byte(v>>8), byte(v))
		}
	}
	return out
}

func (d *Dummy) MaxBytesPerTransmission() uint32 { return Unbounded }

func (d *Dummy) MaxPointRate() uint32 { return d.maxPPS }

func (d *Dummy) SetMaxPointRate(pps uint32) { d.maxPPS = pps }

func (d *Dummy) WriteFrame(slice point.Slice, durationUs float64) error {
	if len(slice.Bytes)%int(d.BytesPerPoint()) != 0 {
		return fmt.Errorf("adapter: slice length %d not a multiple of %d bytes/point", len(slice.Bytes), d.BytesPerPoint())
	}
	return nil
}

func (d *Dummy) Name() string { return d.label }
