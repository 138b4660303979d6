// Package server implements the UDP front end (C9, spec.md §4.8): IDN
// packet reception and dispatch, discovery responses (PING/SCAN/SERVICEMAP),
// and RT_ACKNOWLEDGE synthesis.
package server

import (
	"net"

	"github.com/openidn/idnserver/internal/registry"
	"github.com/openidn/idnserver/internal/wire"
)

// UnitID is the 16-byte MAC-derived identifier embedded in SCAN_RESPONSE
// (spec.md §4.8): {len, category, mac[6], pad...}.
func UnitID(mac net.HardwareAddr) [16]byte {
	var out [16]byte
	out[0] = 7 // len
	out[1] = 1 // category
	copy(out[2:8], mac)
	return out
}

// localMAC returns the first non-loopback interface's hardware address, or
// an all-zero address if none is found (e.g. in a container/test sandbox).
func localMAC() net.HardwareAddr {
	ifaces, err := net.Interfaces()
	if err != nil {
		return make(net.HardwareAddr, 6)
	}
	for _, ifc := range ifaces {
		if len(ifc.HardwareAddr) == 6 && ifc.Flags&net.FlagLoopback == 0 {
			return ifc.HardwareAddr
		}
	}
	return make(net.HardwareAddr, 6)
}

// padString returns s truncated or null-padded to exactly n bytes, never
// null-terminated if it fills the whole field (spec.md §4.8 host-name:
// "null-padded, not null-terminated").
func padString(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

// BuildPingResponse echoes payload back under CmdPingResponse with the same
// sequence number (spec.md §4.1, scenario S1).
func BuildPingResponse(seq uint16, payload []byte) []byte {
	out := wire.AppendEnvelope(nil, wire.Envelope{Command: wire.CmdPingResponse, Sequence: seq})
	return append(out, payload...)
}

// BuildScanResponse builds the SCAN_RESPONSE body (spec.md §4.8, scenario
// S2): struct_size 0x28, protocol 0x10 (1.0), status 1, 16-byte unit-id,
// 20-byte host name.
func BuildScanResponse(seq uint16, hostName string, mac net.HardwareAddr) []byte {
	out := wire.AppendEnvelope(nil, wire.Envelope{Command: wire.CmdScanResponse, Sequence: seq})
	out = append(out, 0x28)       // struct_size
	out = append(out, 0x10)       // protocol major/minor 1.0
	out = append(out, 0x01)       // status
	unit := UnitID(mac)
	out = append(out, unit[:]...)
	out = append(out, padString(hostName, 20)...)
	return out
}

// ServiceMapEntrySize is the fixed wire size of one SERVICEMAP_RESPONSE
// service entry (spec.md §4.8).
const ServiceMapEntrySize = 24

// BuildServiceMapResponse enumerates svcs (spec.md §4.8, scenario S3):
// struct_size 4, entry_size 24, 0 relay entries, N service entries. An
// entry's fixed 4-byte header (service_id, service_type, flags,
// relay_number) plus a 20-byte name totals exactly entry_size, so
// service_id is wire-encoded as a single byte.
func BuildServiceMapResponse(seq uint16, svcs []registry.Service) []byte {
	out := wire.AppendEnvelope(nil, wire.Envelope{Command: wire.CmdServicemapResponse, Sequence: seq})
	out = append(out, 0x04, ServiceMapEntrySize, 0x00, byte(len(svcs)))
	for _, s := range svcs {
		entry := make([]byte, 0, ServiceMapEntrySize)
		entry = append(entry, byte(s.ID))
		entry = append(entry, registry.ServiceType)
		entry = append(entry, s.Flags)
		entry = append(entry, 0x00) // relay_number
		entry = append(entry, padString(s.Name(), 20)...)
		out = append(out, entry...)
	}
	return out
}
