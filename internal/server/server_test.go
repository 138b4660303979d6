package server

import (
	"net"
	"testing"
	"time"

	"github.com/openidn/idnserver/internal/adapter"
	"github.com/openidn/idnserver/internal/bex"
	"github.com/openidn/idnserver/internal/driver"
	"github.com/openidn/idnserver/internal/point"
	"github.com/openidn/idnserver/internal/registry"
	"github.com/openidn/idnserver/internal/wire"
)

func testServer(t *testing.T) (*Server, *bex.BEX) {
	t.Helper()
	return testServerWithPriorities(t, nil)
}

func testServerWithPriorities(t *testing.T, priorities *driver.Priorities) (*Server, *bex.BEX) {
	t.Helper()
	reg := registry.New()
	reg.Register(registry.Service{ID: 1, Mode: 0, Adapter: adapter.NewDummy(30000)})
	bx := bex.New()
	s := New("OpenIDN", reg, map[uint16]Output{1: {BEX: bx, TargetSliceUs: 5000}}, priorities)
	return s, bx
}

func remoteAddr(t *testing.T) *net.UDPAddr {
	t.Helper()
	return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40000}
}

// TestS1Ping reproduces spec.md scenario S1: PING echoes payload/sequence.
func TestS1Ping(t *testing.T) {
	s, _ := testServer(t)
	req := []byte{0x08, 0x00, 0x00, 0x2A}
	resp := s.HandleDatagram(time.Now(), remoteAddr(t), req)
	want := []byte{0x09, 0x00, 0x00, 0x2A}
	if string(resp) != string(want) {
		t.Fatalf("got % x, want % x", resp, want)
	}
}

// TestS2Scan reproduces spec.md scenario S2.
func TestS2Scan(t *testing.T) {
	s, _ := testServer(t)
	req := []byte{0x10, 0x00, 0x00, 0x01}
	resp := s.HandleDatagram(time.Now(), remoteAddr(t), req)
	if len(resp) != 4+1+1+1+16+20 {
		t.Fatalf("unexpected SCAN_RESPONSE length %d", len(resp))
	}
	if resp[0] != 0x11 || resp[4] != 0x28 || resp[5] != 0x10 || resp[6] != 0x01 {
		t.Fatalf("unexpected SCAN_RESPONSE header: % x", resp[:7])
	}
	name := resp[len(resp)-20:]
	if string(name[:7]) != "OpenIDN" {
		t.Fatalf("host name = %q, want OpenIDN prefix", name)
	}
	for _, b := range name[7:] {
		if b != 0 {
			t.Fatalf("host name not null-padded: % x", name)
		}
	}
}

// TestS3ServiceMap reproduces spec.md scenario S3.
func TestS3ServiceMap(t *testing.T) {
	s, _ := testServer(t)
	req := []byte{0x12, 0x00, 0x00, 0x01}
	resp := s.HandleDatagram(time.Now(), remoteAddr(t), req)
	body := resp[4:]
	if body[0] != 0x04 || body[1] != ServiceMapEntrySize || body[2] != 0x00 || body[3] != 0x01 {
		t.Fatalf("unexpected SERVICEMAP_RESPONSE counts: % x", body[:4])
	}
	entry := body[4:]
	if len(entry) != ServiceMapEntrySize {
		t.Fatalf("entry length = %d, want %d", len(entry), ServiceMapEntrySize)
	}
	if entry[1] != registry.ServiceType {
		t.Fatalf("service_type = %#x, want 0x80", entry[1])
	}
	if entry[2]&registry.ServiceFlagDefault == 0 {
		t.Fatal("sole registered service must carry the default flag")
	}
	name := entry[4:]
	if string(name[:11]) != "Unknown DAC" {
		t.Fatalf("service name = %q", name)
	}
}

// TestRTCnlMsgOpensChannelAndPublishesToBEX exercises the IDTF-mode path:
// an empty dictionary, one sample, routed through downsample/rechunk/BEX.
func TestRTCnlMsgOpensChannelAndPublishesToBEX(t *testing.T) {
	s, bx := testServer(t)

	msg := wire.AppendEnvelope(nil, wire.Envelope{Command: wire.CmdRTCnlMsg, Sequence: 1})
	msg = append(msg, 0x00) // channel_id 0
	msg = append(msg, flagRoutingPresent|flagConfigMatch)
	msg = wire.PutU24(msg, 1000)                              // duration_us
	msg = wire.PutU16(msg, 1)                                 // service_id
	msg = wire.PutU16(msg, 0)                                 // service_mode
	msg = wire.PutU16(msg, 0)                                 // scwc (empty dictionary -> IDTF)
	msg = append(msg, 0x10, 0x00, 0x20, 0x00, 10, 20, 30, 40) // one IDTF sample

	resp := s.HandleDatagram(time.Now(), remoteAddr(t), msg)
	if resp != nil {
		t.Fatalf("non-ACKREQ message should produce no response, got % x", resp)
	}

	q := bx.Swap()
	if q.Empty() {
		t.Fatal("expected a published chunk queue after RT_CNLMSG")
	}
	if q.Slices[0].Bytes == nil {
		t.Fatal("expected encoded slice bytes")
	}
}

// TestModePriorityArbitrationPrefersHigherWeightChannel reproduces
// SPEC_FULL.md §12: two channels in one session routed to the same
// service_id compete for the shared BEX, and only the higher
// [mode_priority]-weighted channel's data is actually published once both
// are contending.
func TestModePriorityArbitrationPrefersHigherWeightChannel(t *testing.T) {
	priorities := driver.NewPriorities([]driver.ModeWeight{
		{Mode: point.Wave, Weight: 1},
		{Mode: point.Frame, Weight: 10},
	})
	s, bx := testServerWithPriorities(t, priorities)
	remote := remoteAddr(t)

	openWave := func(chID byte) []byte {
		msg := wire.AppendEnvelope(nil, wire.Envelope{Command: wire.CmdRTCnlMsg, Sequence: 1})
		msg = append(msg, chID)
		msg = append(msg, flagRoutingPresent|flagConfigMatch)
		msg = wire.PutU24(msg, 1000)
		msg = wire.PutU16(msg, 1)
		msg = wire.PutU16(msg, 0)
		msg = wire.PutU16(msg, 0)
		msg = append(msg, 0x10, 0x00, 0x20, 0x00, 10, 20, 30, 40)
		return msg
	}
	openFrame := func(chID byte) []byte {
		msg := wire.AppendEnvelope(nil, wire.Envelope{Command: wire.CmdRTCnlMsg, Sequence: 1})
		msg = append(msg, chID)
		msg = append(msg, flagRoutingPresent|flagConfigMatch|flagChunkFrame)
		msg = wire.PutU24(msg, 1000)
		msg = wire.PutU16(msg, 1)
		msg = wire.PutU16(msg, 0)
		msg = wire.PutU16(msg, 0)
		msg = append(msg, 0x10, 0x00, 0x20, 0x00, 50, 60, 70, 80)
		return msg
	}

	// Channel 0 alone: nothing else contends for service_id 1, so it always
	// publishes regardless of weight.
	s.HandleDatagram(time.Now(), remote, openWave(0))
	if q := bx.Swap(); q.Empty() {
		t.Fatal("expected channel 0 alone to publish")
	}

	// Channel 1 opens on the same service_id with a higher-weighted mode: it
	// wins this round and publishes.
	s.HandleDatagram(time.Now(), remote, openFrame(1))
	q := bx.Swap()
	if q.Empty() {
		t.Fatal("expected channel 1 (higher priority) to publish")
	}
	if q.Slices[0].Bytes[4] != 50 {
		t.Fatalf("published slice = % x, want channel 1's payload", q.Slices[0].Bytes)
	}

	// Channel 0 sends again: channel 1's last queue still outweighs it, so
	// this round is suppressed and the BEX is left untouched.
	s.HandleDatagram(time.Now(), remote, openWave(0))
	if q := bx.Swap(); !q.Empty() {
		t.Fatalf("expected channel 0 to be suppressed by higher-priority channel 1, got % x", q.Slices)
	}
}

// TestRTCnlMsgAckReqSynthesizesAcknowledge checks that an ACKREQ channel
// message is answered with RT_ACKNOWLEDGE echoing the channel id (spec.md
// §4.8 step 4).
func TestRTCnlMsgAckReqSynthesizesAcknowledge(t *testing.T) {
	s, _ := testServer(t)

	msg := wire.AppendEnvelope(nil, wire.Envelope{Command: wire.CmdRTCnlMsgAckReq, Sequence: 7})
	msg = append(msg, 0x00)
	msg = append(msg, flagRoutingPresent|flagConfigMatch)
	msg = wire.PutU24(msg, 1000)
	msg = wire.PutU16(msg, 1)
	msg = wire.PutU16(msg, 0)
	msg = wire.PutU16(msg, 0)
	msg = append(msg, 0x10, 0x00, 0x20, 0x00, 10, 20, 30, 40)

	resp := s.HandleDatagram(time.Now(), remoteAddr(t), msg)
	if len(resp) < 4+1+4+4 {
		t.Fatalf("RT_ACKNOWLEDGE too short: % x", resp)
	}
	if resp[0] != byte(wire.CmdRTAcknowledge) {
		t.Fatalf("command = %#x, want RT_ACKNOWLEDGE", resp[0])
	}
	if resp[4] != 0x00 {
		t.Fatalf("channel id echo = %#x, want 0", resp[4])
	}
}

// TestRTAbortRemovesConnection reproduces the immediate-teardown path.
func TestRTAbortRemovesConnection(t *testing.T) {
	s, _ := testServer(t)
	ping := []byte{0x08, 0x00, 0x00, 0x01}
	s.HandleDatagram(time.Now(), remoteAddr(t), ping)
	if s.Conns.Len() != 1 {
		t.Fatalf("expected 1 connection after ping, got %d", s.Conns.Len())
	}
	abort := []byte{0x46, 0x00, 0x00, 0x01}
	s.HandleDatagram(time.Now(), remoteAddr(t), abort)
	if s.Conns.Len() != 0 {
		t.Fatalf("expected 0 connections after RT_ABORT, got %d", s.Conns.Len())
	}
}
