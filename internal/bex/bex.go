// Package bex implements the buffer-exchange: a single-producer/single-
// consumer lock-free hand-off of point.ChunkQ values from the network
// thread to the driver thread (spec.md §4.6).
package bex

import (
	"sync"
	"sync/atomic"

	"github.com/openidn/idnserver/internal/point"
)

// BEX is the single-slot exchange. hot is owned exclusively by the
// producer; published is the atomic hand-off slot the consumer acquires
// from. modeMu guards the rare mode-change path only — the append/swap hot
// path never takes a lock.
type BEX struct {
	hot       *point.ChunkQ
	published atomic.Pointer[point.ChunkQ]

	modeMu sync.Mutex
	mode   point.Mode
}

// New returns a BEX starting in Inactive mode with an empty hot buffer.
func New() *BEX {
	return &BEX{hot: &point.ChunkQ{}}
}

// Mode returns the current mode.
func (b *BEX) Mode() point.Mode {
	b.modeMu.Lock()
	defer b.modeMu.Unlock()
	return b.mode
}

// SetMode changes the producer's mode. Per spec.md §4.4 and the Mode
// transition testable property, any change to a different mode clears both
// buffers immediately: the hot buffer is reset in place and published is
// set to an empty queue so a consumer swap never mixes sample types across
// a mode boundary.
func (b *BEX) SetMode(m point.Mode) {
	b.modeMu.Lock()
	defer b.modeMu.Unlock()
	if m == b.mode {
		return
	}
	b.mode = m
	b.hot = &point.ChunkQ{Mode: m}
	b.published.Store(&point.ChunkQ{Mode: m})
}

// Append publishes slice onto the producer's queue. In Wave mode it
// immediately hands the appended queue to the consumer via the
// double-exchange pattern described in spec.md §4.6 and §9: the first
// exchange publishes hot and retrieves whatever the consumer left behind;
// if that is nil (the consumer already took the previous publication) a
// fresh queue is built containing the same slice and published again.
// Either way the producer ends holding an emptied hot queue, so each Wave
// publication holds only the slice just appended. In Frame mode, Append only stages the slice; PublishReset does the
// exchange at end-of-frame.
func (b *BEX) Append(s point.Slice) {
	b.modeMu.Lock()
	mode := b.mode
	b.modeMu.Unlock()

	if mode == point.Inactive {
		return
	}

	b.hot.Push(s)

	if mode != point.Wave {
		return
	}

	prior := b.published.Swap(b.hot)
	if prior == nil {
		// Consumer had already taken the previous publication before this
		// append could even land: build a fresh queue containing slice and
		// publish it too, so the consumer is guaranteed to see it even if
		// it raced ahead of the first exchange.
		fresh := &point.ChunkQ{Mode: mode}
		fresh.Push(s)
		prior2 := b.published.Swap(fresh)
		if prior2 == nil {
			b.hot = &point.ChunkQ{Mode: mode}
		} else {
			prior2.Reset()
			b.hot = prior2
		}
		return
	}
	// prior is the stale, not-yet-consumed publication from before this
	// append; it is safe to reclaim as the producer's next writable buffer
	// since the consumer only ever sees what is reachable through
	// `published`, and prior was just atomically replaced there.
	prior.Reset()
	b.hot = prior
}

// PublishReset hands the current hot buffer to the consumer and prepares a
// fresh hot. Used by the Frame re-chunker at end-of-frame (spec.md §4.6).
func (b *BEX) PublishReset() {
	prior := b.published.Swap(b.hot)
	if prior == nil {
		b.hot = &point.ChunkQ{Mode: b.Mode()}
	} else {
		prior.Reset()
		b.hot = prior
	}
}

// Swap is the consumer-side acquire: it atomically takes whatever is
// currently published, leaving nil behind, and returns it (possibly nil).
// The exchange is the sole synchronization point between the two threads;
// all writes to the returned queue's contents happen-before this call
// returns (spec.md §8 BEX safety).
func (b *BEX) Swap() *point.ChunkQ {
	return b.published.Swap(nil)
}
