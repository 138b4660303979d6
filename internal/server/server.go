package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/openidn/idnserver/internal/bex"
	"github.com/openidn/idnserver/internal/diag"
	"github.com/openidn/idnserver/internal/driver"
	"github.com/openidn/idnserver/internal/point"
	"github.com/openidn/idnserver/internal/registry"
	"github.com/openidn/idnserver/internal/session"
	"github.com/openidn/idnserver/internal/wire"
)

// Output binds a registered service's BEX to the adapter's shaping
// parameters the channel-message processor needs (spec.md §4.5/§4.6): the
// chunk-length target a WAVE re-chunk aims for, alongside the BEX the
// resulting slices are appended to.
type Output struct {
	BEX           *bex.BEX
	TargetSliceUs uint32
}

// Server is the UDP front end (C9, spec.md §4.8): packet reception,
// discovery responses, and dispatch into the session/channel state
// machines. HandleDatagram is pure with respect to its inputs (aside from
// the Table/Registry/Outputs it mutates) so it can be exercised without a
// real socket.
type Server struct {
	Conns    *session.Table
	Registry *registry.Registry
	Outputs  map[uint16]*bex.BEX // keyed by service_id; one BEX per driver output
	Shaping  map[uint16]Output   // keyed by service_id

	// Priorities arbitrates which of several simultaneously-open channels
	// feeding the same service_id actually drives that output, per the
	// [mode_priority] INI weighting (SPEC_FULL.md §12). May be nil, in
	// which case every channel's output is always pushed (no arbitration
	// — the common single-channel-per-service case).
	Priorities *driver.Priorities

	HostName string
	MAC      net.HardwareAddr
}

// New returns a Server ready to dispatch datagrams.
func New(hostName string, reg *registry.Registry, outputs map[uint16]Output, priorities *driver.Priorities) *Server {
	bexes := make(map[uint16]*bex.BEX, len(outputs))
	for id, o := range outputs {
		bexes[id] = o.BEX
	}
	return &Server{
		Conns:      session.NewTable(),
		Registry:   reg,
		Outputs:    bexes,
		Shaping:    outputs,
		Priorities: priorities,
		HostName:   hostName,
		MAC:        localMAC(),
	}
}

// priorityModeNames maps a [mode_priority] INI key to the point.Mode it
// weights (spec.md §6 config keys; SPEC_FULL.md §12).
var priorityModeNames = map[string]point.Mode{
	"wave":       point.Wave,
	"frame":      point.Frame,
	"frame_once": point.FrameOnce,
}

// BuildPriorities converts the parsed [mode_priority] INI section into a
// driver.Priorities table, dropping any key that doesn't name a playback
// mode. A nil/empty weights map still returns a usable (no-op-weighted)
// table rather than nil, so callers don't need a separate empty case.
func BuildPriorities(weights map[string]int) *driver.Priorities {
	mw := make([]driver.ModeWeight, 0, len(weights))
	for name, w := range weights {
		if mode, ok := priorityModeNames[name]; ok {
			mw = append(mw, driver.ModeWeight{Mode: mode, Weight: w})
		}
	}
	return driver.NewPriorities(mw)
}

// HandleDatagram processes one received packet from remote at time now,
// returning the bytes to send back (nil if no response is warranted). It
// implements spec.md §4.8 steps 1-4: identify-or-create the Conn, validate
// sequence, dispatch by command, and (for ACKREQ variants) synthesize
// RT_ACKNOWLEDGE.
func (s *Server) HandleDatagram(now time.Time, remote *net.UDPAddr, buf []byte) []byte {
	env, rest, err := wire.ParseEnvelope(buf)
	if err != nil {
		diag.At(diag.LevelSimple, "server: short packet from %s: %v", remote, err)
		return nil
	}

	if env.Command == wire.CmdRTAbort {
		ep := session.UDPEndpoint(remote, env.ClientGroup)
		s.Conns.Remove(ep)
		return nil
	}

	ep := session.UDPEndpoint(remote, env.ClientGroup)
	conn := s.Conns.Get(ep)
	kind := conn.ValidateSeq(env.Sequence)
	conn.RecordSeqFlag(kind)
	conn.Touch(now)
	conn.Sess.Touch(now)

	switch env.Command {
	case wire.CmdPingRequest:
		return BuildPingResponse(env.Sequence, rest)

	case wire.CmdScanRequest:
		return BuildScanResponse(env.Sequence, s.HostName, s.MAC)

	case wire.CmdServicemapRequest:
		return BuildServiceMapResponse(env.Sequence, s.Registry.All())

	case wire.CmdRTCnlMsg, wire.CmdRTCnlMsgAckReq,
		wire.CmdRTCnlMsgClose, wire.CmdRTCnlMsgCloseAckReq:
		closing := env.Command == wire.CmdRTCnlMsgClose || env.Command == wire.CmdRTCnlMsgCloseAckReq
		ackReq := env.Command == wire.CmdRTCnlMsgAckReq || env.Command == wire.CmdRTCnlMsgCloseAckReq
		chID, err := s.processChannelMessage(conn.Sess, rest, closing)
		if err != nil {
			if errors.Is(err, wire.ErrUnderflow) {
				conn.InputFlags.Set(session.InputMVErr)
			}
			diag.At(diag.LevelSimple, "server: channel message from %s: %v", remote, err)
		}
		if ackReq {
			return s.buildAcknowledge(env.Sequence, conn, chID)
		}
		return nil

	default:
		return nil
	}
}

// buildAcknowledge synthesizes RT_ACKNOWLEDGE (0x47) draining and clearing
// the connection's and its session's input-event flags and the named
// channel's pipeline flags, per spec.md §4.8 step 4 / §7.
func (s *Server) buildAcknowledge(seq uint16, conn *session.Conn, chID int) []byte {
	out := wire.AppendEnvelope(nil, wire.Envelope{Command: wire.CmdRTAcknowledge, Sequence: seq})
	out = append(out, byte(chID))
	inputFlags := conn.InputFlags.DrainAndClear() | conn.Sess.InputFlags.DrainAndClear()
	out = wire.PutU32(out, uint32(inputFlags))
	var pipelineFlags uint32
	if ch := conn.Sess.Channel(chID); ch != nil {
		pipelineFlags = uint32(ch.Pipeline.DrainAndClear())
	}
	out = wire.PutU32(out, pipelineFlags)
	return out
}

// lookupOutput resolves a registered service's shaping/BEX pair, erroring
// if service_id is unknown to the Server (distinct from registry.Resolve
// failing, which is a routing error recorded as SMERR on the channel).
func (s *Server) lookupOutput(serviceID uint16) (Output, error) {
	o, ok := s.Shaping[serviceID]
	if !ok {
		return Output{}, fmt.Errorf("server: no output wired for service_id=%d", serviceID)
	}
	return o, nil
}
