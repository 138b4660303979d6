// Package decode maps a session's descriptor dictionary and a region of
// wire sample bytes into canonical point.Point values (spec.md §4.3).
package decode

import (
	"github.com/openidn/idnserver/internal/dictionary"
	"github.com/openidn/idnserver/internal/point"
	"github.com/openidn/idnserver/internal/wire"
)

// Mode selects how a sample's raw bytes are interpreted.
type Mode int

const (
	// ModeDictionary decodes per the session's installed descriptor dictionary.
	ModeDictionary Mode = iota
	// ModeIDTF decodes the fixed 8-byte legacy layout (spec.md §4.3).
	ModeIDTF
)

// biasU16 applies the +0x8000 signed-to-unsigned center shift used for
// 16-bit X/Y fields, wrapping mod 2^16.
func biasU16(w uint16) uint16 {
	return w + 0x8000
}

// biasU8 applies the +0x80 center shift for 8-bit X/Y fields, then
// replicates the byte into both halves of the 16-bit field.
func biasU8(b uint8) uint16 {
	v := uint16(b) + 0x80
	v &= 0xFF
	return v | v<<8
}

// replicateU8 replicates an 8-bit wire value into both halves of a 16-bit
// canonical field (used for color/intensity fields with no center bias).
func replicateU8(b uint8) uint16 {
	v := uint16(b)
	return v | v<<8
}

// Sample decodes one sample from c per dict, returning the canonical point
// and advancing c past the bytes it consumed; it returns the cursor's
// ErrUnderflow if the sample is truncated. It is a pure function of its inputs
// (spec.md §8 decode determinism).
func Sample(dict dictionary.Dict, c *wire.Cursor) (point.Point, error) {
	var p point.Point
	var cscl, iscl uint8

	for _, f := range dict.Fields {
		switch f.Kind {
		case dictionary.KindNOP:
			if err := c.Skip(1); err != nil {
				return p, err
			}
		case dictionary.KindIntensity:
			// Consumes one byte unconditionally (spec.md §4.2).
			b, err := c.ReadU8()
			if err != nil {
				return p, err
			}
			p.Intensity = replicateU8(b)
		case dictionary.KindDrawControl0, dictionary.KindDrawControl1:
			b, err := c.ReadU8()
			if err != nil {
				return p, err
			}
			cscl = (b >> 6) & 0x3
			iscl = (b >> 4) & 0x3
		case dictionary.KindX, dictionary.KindY, dictionary.KindZ:
			if f.ScannerID != 0 {
				// Other scanners consume their bytes but are discarded.
				n := 1
				if f.Precision == dictionary.Precision16 {
					n = 2
				}
				if err := c.Skip(n); err != nil {
					return p, err
				}
				continue
			}
			var v uint16
			if f.Precision == dictionary.Precision16 {
				w, err := c.ReadU16()
				if err != nil {
					return p, err
				}
				v = biasU16(w)
			} else {
				b, err := c.ReadU8()
				if err != nil {
					return p, err
				}
				v = biasU8(b)
			}
			switch f.Kind {
			case dictionary.KindX:
				p.X = v
			case dictionary.KindY:
				p.Y = v
			case dictionary.KindZ:
				// Z has no canonical field; decoded but not stored,
				// matching the canonical Point layout of spec.md §3.
			}
		case dictionary.KindColor:
			var v uint16
			if f.Precision == dictionary.Precision16 {
				w, err := c.ReadU16()
				if err != nil {
					return p, err
				}
				v = w
			} else {
				b, err := c.ReadU8()
				if err != nil {
					return p, err
				}
				v = replicateU8(b)
			}
			switch f.Wavelength {
			case dictionary.WavelengthRed:
				p.R = v
			case dictionary.WavelengthGreen:
				p.G = v
			case dictionary.WavelengthBlue:
				p.B = v
			}
		case dictionary.KindWavelength, dictionary.KindBeamBrush:
			if err := c.Skip(1); err != nil {
				return p, err
			}
		}
	}

	p.R >>= 2 * cscl
	p.G >>= 2 * cscl
	p.B >>= 2 * cscl
	p.Intensity >>= 2 * iscl

	return p, nil
}

// IDTFSample decodes the fixed 8-byte legacy layout: u16 X, u16 Y at bytes
// 0..3, u8 R/G/B/intensity at bytes 4..7, all other fields zero.
func IDTFSample(c *wire.Cursor) (point.Point, error) {
	var p point.Point
	x, err := c.ReadU16()
	if err != nil {
		return p, err
	}
	y, err := c.ReadU16()
	if err != nil {
		return p, err
	}
	r, err := c.ReadU8()
	if err != nil {
		return p, err
	}
	g, err := c.ReadU8()
	if err != nil {
		return p, err
	}
	b, err := c.ReadU8()
	if err != nil {
		return p, err
	}
	i, err := c.ReadU8()
	if err != nil {
		return p, err
	}
	p.X, p.Y = x, y
	p.R, p.G, p.B = replicateU8(r), replicateU8(g), replicateU8(b)
	p.Intensity = replicateU8(i)
	return p, nil
}

// Group decodes n consecutive samples from buf using mode and (for
// ModeDictionary) dict, stopping early without error if the buffer runs out
// mid-sample — callers observe this as len(result) < n and may choose to
// treat it as MVERR.
func Group(mode Mode, dict dictionary.Dict, buf []byte, n int) []point.Point {
	c := wire.NewCursor(buf)
	out := make([]point.Point, 0, n)
	for i := 0; i < n; i++ {
		var p point.Point
		var err error
		if mode == ModeIDTF {
			p, err = IDTFSample(c)
		} else {
			p, err = Sample(dict, c)
		}
		if err != nil {
			break
		}
		out = append(out, p)
	}
	return out
}
