// Package driver consumes chunk queues from bex, downsamples and re-chunks
// them into device-specific slices, and plays them back through an adapter
// under adaptive speed control (spec.md §4.5, §4.7).
package driver

import (
	"github.com/openidn/idnserver/internal/adapter"
	"github.com/openidn/idnserver/internal/point"
)

// Downsample drops samples from chunk to bring its implied point rate down
// to at most maxPPS, per spec.md §4.5. It returns the retained samples in
// original order. If the chunk's target rate is already at or below
// maxPPS, samples is returned unmodified.
func Downsample(samples []point.Point, durationUs uint32, maxPPS uint32) []point.Point {
	n := len(samples)
	if n == 0 || durationUs == 0 {
		return samples
	}
	targetPPS := uint64(1_000_000) * uint64(n) / uint64(durationUs)
	if targetPPS <= uint64(maxPPS) || maxPPS == 0 {
		return samples
	}

	ratio := float64(maxPPS) / float64(targetPPS) // in (0,1)
	out := make([]point.Point, 0, int(ratio*float64(n))+1)
	skip := 0.0
	for _, s := range samples {
		// skip accumulates ratio on every sample, kept or dropped, and is
		// reduced modulo 1 (truncating toward zero, matching the original
		// DACHWInterface::sendWave skipCounter), not conditionally
		// incremented/decremented: that conditional form makes skip
		// oscillate between exactly 0 and ratio forever, always keeping
		// 50% of samples regardless of the true ratio.
		keep := skip < ratio
		skip += ratio
		skip -= float64(int(skip))
		if !keep {
			continue
		}
		out = append(out, s)
		// advance the slice-time clock happens implicitly: every input
		// sample consumes 1/n of durationUs regardless of whether it was
		// emitted, and the Rechunk functions spread the chunk's full
		// durationUs over the retained samples.
	}
	return out
}

// expectedDownsampleCount returns ceil(ratio*n), the number of samples
// Downsample retains to first order for n input samples at the given ratio.
func expectedDownsampleCount(n int, ratio float64) int {
	c := int(ratio * float64(n))
	if float64(c) < ratio*float64(n) {
		c++
	}
	return c
}

// RechunkWave splits a (possibly downsampled) sample sequence into slices
// sized for Wave playback: a slice is emitted whenever either the
// per-slice target duration has elapsed, or encoding the current run would
// exceed the adapter's max transmission size (spec.md §4.5).
func RechunkWave(a adapter.Adapter, samples []point.Point, totalDurationUs uint32, targetSliceUs uint32) []point.Slice {
	if len(samples) == 0 {
		return nil
	}
	if targetSliceUs == 0 {
		targetSliceUs = 5000
	}
	bytesPerPoint := a.BytesPerPoint()
	maxBytes := a.MaxBytesPerTransmission()
	maxPointsPerSlice := int(^uint32(0))
	if maxBytes != adapter.Unbounded && bytesPerPoint > 0 {
		maxPointsPerSlice = int(maxBytes / bytesPerPoint)
		if maxPointsPerSlice == 0 {
			maxPointsPerSlice = 1
		}
	}

	perSampleUs := float64(totalDurationUs) / float64(len(samples))

	var slices []point.Slice
	start := 0
	accum := 0.0
	for i := range samples {
		accum += perSampleUs
		run := i - start + 1
		atSizeLimit := run >= maxPointsPerSlice
		atTimeLimit := accum >= float64(targetSliceUs)
		if atSizeLimit || atTimeLimit || i == len(samples)-1 {
			chunk := samples[start : i+1]
			slices = append(slices, point.Slice{
				Bytes:      a.ConvertPoints(chunk),
				DurationUs: uint32(accum),
			})
			start = i + 1
			accum = 0
		}
	}
	return slices
}

// RechunkFrame splits a complete frame's samples into slices per spec.md
// §4.5: chunks = ceil(n*bytesPerPoint/maxBytes), target size = ceil(n/chunks).
// If maxBytes is unbounded, the whole frame becomes one slice.
func RechunkFrame(a adapter.Adapter, samples []point.Point, totalDurationUs uint32) []point.Slice {
	n := len(samples)
	if n == 0 {
		return nil
	}
	maxBytes := a.MaxBytesPerTransmission()
	bytesPerPoint := a.BytesPerPoint()

	if maxBytes == adapter.Unbounded || bytesPerPoint == 0 {
		return []point.Slice{{
			Bytes:      a.ConvertPoints(samples),
			DurationUs: totalDurationUs,
		}}
	}

	totalBytes := uint64(n) * uint64(bytesPerPoint)
	chunks := int(ceilDiv(totalBytes, uint64(maxBytes)))
	if chunks < 1 {
		chunks = 1
	}
	targetSize := int(ceilDiv(uint64(n), uint64(chunks)))
	if targetSize < 1 {
		targetSize = 1
	}

	perSampleUs := float64(totalDurationUs) / float64(n)

	var slices []point.Slice
	for start := 0; start < n; start += targetSize {
		end := start + targetSize
		if end > n {
			end = n
		}
		dur := uint32(perSampleUs * float64(end-start))
		slices = append(slices, point.Slice{
			Bytes:      a.ConvertPoints(samples[start:end]),
			DurationUs: dur,
		})
	}
	return slices
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
