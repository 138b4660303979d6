package decode

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openidn/idnserver/internal/dictionary"
	"github.com/openidn/idnserver/internal/point"
	"github.com/openidn/idnserver/internal/wire"
)

func s4Dict() dictionary.Dict {
	return dictionary.Dict{Fields: []dictionary.Descriptor{
		{Kind: dictionary.KindDrawControl0},
		{Kind: dictionary.KindX, Precision: dictionary.Precision16},
		{Kind: dictionary.KindY, Precision: dictionary.Precision16},
		{Kind: dictionary.KindColor, Precision: dictionary.Precision16, Wavelength: dictionary.WavelengthRed},
		{Kind: dictionary.KindColor, Precision: dictionary.Precision16, Wavelength: dictionary.WavelengthGreen},
		{Kind: dictionary.KindColor, Precision: dictionary.Precision16, Wavelength: dictionary.WavelengthBlue},
	}}
}

// TestS4SingleWaveSample reproduces spec.md scenario S4.
func TestS4SingleWaveSample(t *testing.T) {
	buf := []byte{
		0x00,       // draw-control = 0
		0xFF, 0x80, // x = 0xFF80
		0xFF, 0x80, // y = 0xFF80
		0xAA, 0xAA, // r
		0xBB, 0xBB, // g
		0xCC, 0xCC, // b
	}
	c := wire.NewCursor(buf)
	got, err := Sample(s4Dict(), c)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	want := point.Point{X: 0x7F80, Y: 0x7F80, R: 0xAAAA, G: 0xBBBB, B: 0xCCCC}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sample() mismatch (-want +got):\n%s", diff)
	}
}

func TestXYBiasRoundTrip(t *testing.T) {
	for w := 0; w <= 0xFFFF; w += 4093 {
		got := biasU16(uint16(w))
		want := uint16(uint32(w)+0x8000) & 0xFFFF
		if got != want {
			t.Fatalf("biasU16(%#x) = %#x, want %#x", w, got, want)
		}
	}
}

func TestScaleIdempotenceWhenScalesZero(t *testing.T) {
	dict := s4Dict()
	buf := []byte{0x00, 0, 0, 0, 0, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	c := wire.NewCursor(buf)
	p, err := Sample(dict, c)
	if err != nil {
		t.Fatal(err)
	}
	if p.R != 0x1122 || p.G != 0x3344 || p.B != 0x5566 {
		t.Errorf("unscaled colors mutated: %+v", p)
	}
}

func TestColorScaleShift(t *testing.T) {
	dict := s4Dict()
	// draw control byte with cscl=1 (bits 6..7 = 01)
	buf := []byte{0b01000000, 0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	c := wire.NewCursor(buf)
	p, err := Sample(dict, c)
	if err != nil {
		t.Fatal(err)
	}
	if p.R != 0xFFFF>>2 || p.G != 0xFFFF>>2 || p.B != 0xFFFF>>2 {
		t.Errorf("cscl=1 did not shift colors by 2 bits: %+v", p)
	}
}

func TestOtherScannerDiscarded(t *testing.T) {
	dict := dictionary.Dict{Fields: []dictionary.Descriptor{
		{Kind: dictionary.KindX, Precision: dictionary.Precision16, ScannerID: 1},
		{Kind: dictionary.KindX, Precision: dictionary.Precision16, ScannerID: 0},
	}}
	buf := []byte{0x11, 0x11, 0x00, 0x00} // scanner1 X ignored, scanner0 X = 0
	c := wire.NewCursor(buf)
	p, err := Sample(dict, c)
	if err != nil {
		t.Fatal(err)
	}
	if p.X != 0x8000 {
		t.Errorf("expected scanner0 X centered at 0x8000, got %#x", p.X)
	}
}

func TestUnderflowMidSampleStopsGroupEarly(t *testing.T) {
	dict := s4Dict()
	buf := []byte{0x00, 0xFF} // truncated after draw-control + 1 byte of X
	pts := Group(ModeDictionary, dict, buf, 3)
	if len(pts) != 0 {
		t.Errorf("expected 0 decoded points from truncated buffer, got %d", len(pts))
	}
}

func TestIDTFFixedLayout(t *testing.T) {
	buf := []byte{0x7F, 0x80, 0x7F, 0x80, 0xAA, 0xBB, 0xCC, 0xDD}
	c := wire.NewCursor(buf)
	p, err := IDTFSample(c)
	if err != nil {
		t.Fatal(err)
	}
	if p.X != 0x7F80 || p.Y != 0x7F80 {
		t.Errorf("IDTF XY = %#x,%#x", p.X, p.Y)
	}
	if p.R != replicateU8(0xAA) || p.G != replicateU8(0xBB) || p.B != replicateU8(0xCC) || p.Intensity != replicateU8(0xDD) {
		t.Errorf("IDTF RGBI = %+v", p)
	}
}

func TestGroupDecodesMultipleSamples(t *testing.T) {
	dict := s4Dict()
	one := []byte{0x00, 0, 0, 0, 0, 1, 1, 2, 2, 3, 3}
	buf := append(append([]byte{}, one...), one...)
	pts := Group(ModeDictionary, dict, buf, 2)
	if len(pts) != 2 {
		t.Fatalf("got %d points, want 2", len(pts))
	}
}
