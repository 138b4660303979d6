// Package point defines the canonical internal laser-sample representation
// and the carriers (Chunk, ChunkQ) that move sequences of it between the
// decoder, the driver, and the device adapter.
package point

// Point is the canonical laser sample: XY position, RGB color, intensity,
// shutter state, and four auxiliary channels, all unsigned 16-bit. The
// geometric center of the scan field is 0x8000 on both axes.
type Point struct {
	X, Y      uint16
	R, G, B   uint16
	Intensity uint16
	Shutter   uint16
	U1        uint16
	U2        uint16
	U3        uint16
	U4        uint16
}

// Center is the geometric center coordinate value on both axes.
const Center uint16 = 0x8000

// Safe returns the beam-parked point: centered, all lasers off. The driver
// emits this whenever it has nothing to play so the beam never idles on an
// arbitrary last-drawn position.
func Safe() Point {
	return Point{X: Center, Y: Center}
}

// Mode describes how a ChunkQ's contents are intended to be played back.
type Mode int

const (
	// Inactive means the driver should not play anything for this queue.
	Inactive Mode = iota
	// Wave is a continuous waveform; the consumer plays each slice once
	// and discards it.
	Wave
	// Frame is a discrete, complete image; the consumer plays it to
	// completion and repeats it until replaced.
	Frame
	// FrameOnce plays once then stops (no repeat).
	FrameOnce
)

func (m Mode) String() string {
	switch m {
	case Inactive:
		return "inactive"
	case Wave:
		return "wave"
	case Frame:
		return "frame"
	case FrameOnce:
		return "frame_once"
	default:
		return "unknown"
	}
}

// Chunk is an ordered sequence of Points intended to play for DurationUs
// microseconds, tagged with the playback Mode it was produced under.
type Chunk struct {
	Points     []Point
	DurationUs uint32
	ModeFlag   Mode
}

// Valid reports whether c satisfies the ChunkQ invariant: non-empty points
// and a strictly positive duration.
func (c Chunk) Valid() bool {
	return len(c.Points) > 0 && c.DurationUs > 0
}

// Slice is an opaque, device-encoded byte buffer produced by an adapter from
// a Point sequence, carrying the duration it should be transmitted over.
type Slice struct {
	Bytes      []byte
	DurationUs uint32
}

// ChunkQ is an ordered sequence of slices. In Wave mode the driver plays
// the slices once in order and then empties the queue. In Frame mode the
// driver cycles through it, and it is replaced wholesale at the end of a
// complete frame.
type ChunkQ struct {
	Slices []Slice
	Mode   Mode
}

// Empty reports whether the queue has no slices to play.
func (q *ChunkQ) Empty() bool {
	return q == nil || len(q.Slices) == 0
}

// Reset clears the queue's slices in place, keeping the backing array so
// re-use avoids an allocation on the hot producer path.
func (q *ChunkQ) Reset() {
	q.Slices = q.Slices[:0]
}

// Push appends a slice to the queue.
func (q *ChunkQ) Push(s Slice) {
	q.Slices = append(q.Slices, s)
}
