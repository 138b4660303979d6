package server

import (
	"fmt"

	"github.com/openidn/idnserver/internal/decode"
	"github.com/openidn/idnserver/internal/dictionary"
	"github.com/openidn/idnserver/internal/driver"
	"github.com/openidn/idnserver/internal/point"
	"github.com/openidn/idnserver/internal/session"
	"github.com/openidn/idnserver/internal/wire"
)

// channelMsgFlags bits within a channel message's per-channel header. The
// wire layout of RT_CNLMSG is left unspecified by the protocol description
// beyond its semantics (spec.md §4.4/§4.8); this lays the fields out in the
// same u8/u16/u24 style as every other envelope in this protocol, recorded
// as an Open Question resolution.
const (
	flagRoutingPresent = 1 << 0
	flagOnce           = 1 << 1
	flagConfigMatch    = 1 << 2
	flagChunkFrame     = 1 << 3 // unset = WAVE, set = FRAME/FRAME_ONCE
)

// processChannelMessage parses and applies one channel message's header,
// routing config (if present), and sample data against sess, per spec.md
// §4.4-§4.6. It returns the addressed channel id for RT_ACKNOWLEDGE
// synthesis, plus any processing error (already reflected into the
// channel's pipeline-event flags, so callers only need it for logging).
func (s *Server) processChannelMessage(sess *session.Sess, buf []byte, closing bool) (int, error) {
	c := wire.NewCursor(buf)
	chIDByte, err := c.ReadU8()
	if err != nil {
		return 0, err
	}
	chID := int(chIDByte)
	ch := sess.Channel(chID)
	if ch == nil {
		return chID, fmt.Errorf("channel id %d out of range", chID)
	}

	msgFlags, err := c.ReadU8()
	if err != nil {
		return chID, err
	}
	durationUs, err := c.ReadU24()
	if err != nil {
		return chID, err
	}

	if msgFlags&flagRoutingPresent != 0 {
		serviceID, err := c.ReadU16()
		if err != nil {
			ch.Pipeline.Set(session.PipelineCfgErr)
			return chID, err
		}
		serviceMode, err := c.ReadU16()
		if err != nil {
			ch.Pipeline.Set(session.PipelineCfgErr)
			return chID, err
		}
		scwc, err := c.ReadU16()
		if err != nil {
			ch.Pipeline.Set(session.PipelineCfgErr)
			return chID, err
		}
		tagBuf, err := c.ReadBytes(int(scwc) * 2)
		if err != nil {
			// A short dictionary is tolerated (spec.md §4.2/§9): parse what's
			// left rather than failing the whole message.
			tagBuf = buf[c.Offset:]
			c.Offset = len(buf)
		}
		dict, _ := dictionary.Parse(tagBuf, int(scwc))

		if _, err := s.Registry.Resolve(serviceID, serviceMode); err != nil {
			ch.Pipeline.Set(session.PipelineSMErr)
			ch.Close()
			return chID, err
		}
		ch.Open(dict, serviceID, serviceMode)
	}

	if closing {
		ch.Close()
		if out, err := s.lookupOutput(ch.ServiceID); err == nil {
			out.BEX.SetMode(point.Inactive)
		}
		return chID, nil
	}

	if ch.State != session.ChOpen {
		return chID, nil
	}

	if msgFlags&flagConfigMatch == 0 {
		ch.Pipeline.Set(session.PipelineDCMErr)
		return chID, fmt.Errorf("channel %d: service-configuration-match disagreement", chID)
	}

	sampleBuf := buf[c.Offset:]
	mode := decode.ModeDictionary
	bytesPerSample := ch.Dict.BytesPerSample()
	if len(ch.Dict.Fields) == 0 {
		mode = decode.ModeIDTF
		bytesPerSample = 8
	}
	if bytesPerSample == 0 {
		return chID, fmt.Errorf("channel %d: empty sample layout", chID)
	}
	n := len(sampleBuf) / bytesPerSample
	samples := decode.Group(mode, ch.Dict, sampleBuf, n)
	if len(samples) < n {
		ch.Pipeline.Set(session.PipelineCfgErr)
	}

	out, err := s.lookupOutput(ch.ServiceID)
	if err != nil {
		ch.Pipeline.Set(session.PipelineBsyErr)
		return chID, err
	}
	svc, err := s.Registry.Resolve(ch.ServiceID, ch.ServiceMode)
	if err != nil {
		ch.Pipeline.Set(session.PipelineSMErr)
		return chID, err
	}

	playMode := point.Wave
	if msgFlags&flagChunkFrame != 0 {
		playMode = point.Frame
		if msgFlags&flagOnce != 0 {
			playMode = point.FrameOnce
		}
	}

	samples = driver.Downsample(samples, durationUs, svc.Adapter.MaxPointRate())

	var slices []point.Slice
	if playMode == point.Wave {
		slices = driver.RechunkWave(svc.Adapter, samples, durationUs, out.TargetSliceUs)
	} else {
		slices = driver.RechunkFrame(svc.Adapter, samples, durationUs)
	}
	ch.LastQueue = &point.ChunkQ{Mode: playMode, Slices: slices}

	if !s.arbitrationWinner(sess, ch) {
		// A higher-priority channel is also feeding this service_id this
		// round (SPEC_FULL.md §12): this channel's data is decoded (so its
		// LastQueue stays current for the next arbitration round) but not
		// published to the shared output.
		return chID, nil
	}

	out.BEX.SetMode(playMode)
	for _, sl := range slices {
		out.BEX.Append(sl)
	}
	if playMode != point.Wave {
		out.BEX.PublishReset()
	}
	ch.Touch(sess.InputTime)
	return chID, nil
}

// arbitrationWinner reports whether ch should be allowed to publish to its
// service_id's shared output this round. With no Priorities configured, or
// with at most one channel in sess currently routed to the same
// service_id, every channel always wins (the common case: one channel per
// output, no arbitration needed). Otherwise the highest [mode_priority]
// weight among contending channels' most recent sample groups wins, and
// on equal weight the lowest-numbered channel wins (SPEC_FULL.md §12).
func (s *Server) arbitrationWinner(sess *session.Sess, ch *session.Ch) bool {
	if s.Priorities == nil {
		return true
	}
	var candidates []*point.ChunkQ
	var channels []*session.Ch
	for _, other := range sess.Channels {
		if other == nil || other.State != session.ChOpen || other.ServiceID != ch.ServiceID || other.LastQueue.Empty() {
			continue
		}
		candidates = append(candidates, other.LastQueue)
		channels = append(channels, other)
	}
	if len(candidates) <= 1 {
		return true
	}
	i := s.Priorities.Select(candidates)
	return i >= 0 && channels[i].ID == ch.ID
}
