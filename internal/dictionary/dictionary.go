// Package dictionary parses the IDN descriptor-tag stream a session installs
// in its channel-config header into an ordered, dense slice of field
// descriptors (spec.md §4.2). Traversal happens on every decoded sample, so
// the dictionary is a flat array rather than the source's linked list (see
// spec.md §9 "Dictionary as a linked list").
package dictionary

import "github.com/openidn/idnserver/internal/wire"

// Kind identifies what a descriptor contributes to a decoded Point.
type Kind int

const (
	KindNOP Kind = iota
	KindDrawControl0
	KindDrawControl1
	KindX
	KindY
	KindZ
	KindColor
	KindWavelength
	KindIntensity
	KindBeamBrush
)

// Recognized COLOR wavelengths (spec.md §4.2).
const (
	WavelengthRed   = 0x27E
	WavelengthGreen = 0x214
	WavelengthBlue  = 0x1CC
)

// Precision selects the wire width of a field: 0 = 8-bit, 1 = 16-bit.
type Precision int

const (
	Precision8 Precision = iota
	Precision16
)

// Descriptor is one field in a session's sample layout.
type Descriptor struct {
	Kind       Kind
	Precision  Precision
	ScannerID  uint8  // for X/Y/Z; nonzero scanners are parsed but discarded
	Wavelength uint16 // for COLOR kinds, tag & 0x3FF
}

// Dict is the parsed, ordered field layout for a session's samples. It is
// immutable once installed (spec.md §3 invariant): a new routing always
// produces a new Dict rather than mutating one in place.
type Dict struct {
	Fields []Descriptor
}

// tag category/sub/id/param decomposition: category:4 | sub:4 | id:4 | param:4.
func tagParts(tag uint16) (category, sub, id, param uint8) {
	category = uint8(tag >> 12 & 0xF)
	sub = uint8(tag >> 8 & 0xF)
	id = uint8(tag >> 4 & 0xF)
	param = uint8(tag & 0xF)
	return
}

// Parse decodes scwc 16-bit tag words from buf into a Dict. scwc ("sample
// component word count") bounds how many tag words are consumed; parsing
// stops early (without error) if buf runs out, since a short dictionary is
// not itself invalid — only desync during decode is an error (spec.md §9
// open question: bound-check every tag read and terminate on underflow).
func Parse(buf []byte, scwc int) (Dict, error) {
	c := wire.NewCursor(buf)
	var d Dict
	remaining := scwc
	for remaining > 0 {
		if c.Remaining() < 2 {
			break
		}
		tagWord, err := c.ReadU16()
		if err != nil {
			break
		}
		remaining--
		category, sub, id, param := tagParts(tagWord)

		switch {
		case category == 0:
			// Reserved/padding: skip `param` further 16-bit words.
			skip := int(param)
			for i := 0; i < skip && remaining > 0; i++ {
				if c.Remaining() < 2 {
					remaining = 0
					break
				}
				if _, err := c.ReadU16(); err != nil {
					remaining = 0
					break
				}
				remaining--
			}
		case category == 1:
			// Break/modifier tags: ignored for point reconstruction.
		case category == 4 && sub == 0 && id == 0:
			d.Fields = append(d.Fields, Descriptor{Kind: KindNOP})
		case category == 4 && sub == 0 && id == 1:
			// Promote the previous descriptor's precision 8->16.
			if n := len(d.Fields); n > 0 {
				d.Fields[n-1].Precision = Precision16
			}
		case category == 4 && sub == 1 && (id == 0 || id == 1):
			kind := KindDrawControl0
			if id == 1 {
				kind = KindDrawControl1
			}
			d.Fields = append(d.Fields, Descriptor{Kind: kind})
		case category == 4 && sub == 2 && id <= 2:
			kind := []Kind{KindX, KindY, KindZ}[id]
			d.Fields = append(d.Fields, Descriptor{Kind: kind, ScannerID: param})
		case category == 5 && sub <= 3:
			d.Fields = append(d.Fields, Descriptor{Kind: KindColor, Wavelength: tagWord & 0x3FF})
		case category == 5 && sub == 12 && id <= 2:
			kind := []Kind{KindWavelength, KindIntensity, KindBeamBrush}[id]
			d.Fields = append(d.Fields, Descriptor{Kind: kind})
		default:
			// Unrecognized tag: ignored, consumes only its own word.
		}
	}
	return d, nil
}

// BytesPerSample returns how many sample-data bytes one decoded sample
// consumes under this dictionary, used to validate/size incoming sample
// groups before decode.
func (d Dict) BytesPerSample() int {
	n := 0
	for _, f := range d.Fields {
		switch f.Kind {
		case KindNOP, KindIntensity:
			n++
		case KindDrawControl0, KindDrawControl1:
			n++
		case KindX, KindY, KindZ, KindColor:
			if f.Precision == Precision16 {
				n += 2
			} else {
				n++
			}
		case KindWavelength, KindBeamBrush:
			n++
		}
	}
	return n
}
