// Package mgmt implements the UDP management channel (port 7355, spec.md
// §4.8 supplement / SPEC_FULL.md §12): a small out-of-band command set for
// discovery pings, version queries, host-name changes, and settings-file
// introspection, distinct from the realtime IDN channel on port 7255.
package mgmt

import (
	"os"
	"sync"

	"github.com/openidn/idnserver/internal/config"
)

// Command/response prefix bytes (spec.md §4.8 supplement).
const (
	ReqPrefix  = 0xE5
	RespPrefix = 0xE6
)

// Subcommands recognized under the 0xE5 prefix.
const (
	SubPing            = 0x01
	SubVersion         = 0x02
	SubSetHostName     = 0x03
	SubGetSettingsText = 0x04
)

// StatusOK and StatusError are the two-byte status codes prefixing the
// get-settings-file-text response payload.
const (
	StatusOK    = 0x0000
	StatusError = 0x0001
)

// Manager owns the mutable server identity (host name) and the persisted
// settings file the management channel can report back verbatim. Reads and
// writes are synchronized since the management thread runs concurrently
// with the network thread (spec.md §5: "optional management thread").
type Manager struct {
	mu         sync.Mutex
	state      config.State
	configPath string
	version    string
}

// New returns a Manager seeded with st, persisting host-name changes to
// configPath.
func New(st config.State, configPath, version string) *Manager {
	return &Manager{state: st, configPath: configPath, version: version}
}

// HostName returns the current server host name under lock. The realtime
// front end's SCAN_RESPONSE uses the host name its Server was constructed
// with and does not read this value.
func (m *Manager) HostName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.HostName
}

// HandleDatagram dispatches one management-channel request, returning the
// response bytes (nil for malformed/unrecognized requests, matching the
// realtime channel's "unknown commands are ignored" policy).
func (m *Manager) HandleDatagram(buf []byte) []byte {
	if len(buf) < 2 || buf[0] != ReqPrefix {
		return nil
	}
	sub := buf[1]
	payload := buf[2:]

	switch sub {
	case SubPing:
		return []byte{RespPrefix, SubPing}

	case SubVersion:
		out := []byte{RespPrefix, SubVersion}
		return append(out, padVersion(m.version, 18)...)

	case SubSetHostName:
		name := string(payload)
		if len(name) > 20 {
			name = name[:20]
		}
		m.mu.Lock()
		m.state.HostName = name
		st := m.state
		m.mu.Unlock()
		if err := config.Save(m.configPath, st); err != nil {
			return []byte{RespPrefix, SubSetHostName, 0x01}
		}
		return []byte{RespPrefix, SubSetHostName}

	case SubGetSettingsText:
		m.mu.Lock()
		st := m.state
		path := m.configPath
		m.mu.Unlock()
		text, err := settingsText(path, st)
		out := []byte{RespPrefix, SubGetSettingsText}
		if err != nil {
			out = append(out, byte(StatusError>>8), byte(StatusError))
			return out
		}
		out = append(out, byte(StatusOK>>8), byte(StatusOK))
		return append(out, text...)

	default:
		return nil
	}
}

func padVersion(v string, n int) []byte {
	b := make([]byte, n)
	copy(b, v)
	return b
}

// settingsText returns the persisted settings file's exact bytes when
// present on disk, or a freshly rendered equivalent of st when it is not
// (e.g. before the first Save), so get-settings-file-text never fails just
// because nothing has been written yet.
func settingsText(path string, st config.State) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		return b, nil
	}
	if os.IsNotExist(err) {
		return []byte(config.Render(st)), nil
	}
	return nil, err
}
