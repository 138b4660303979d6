package mgmt

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/openidn/idnserver/internal/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "openidn.ini")
	return New(config.DefaultState(), path, "1.0.0")
}

// TestS1ManagementPing reproduces spec.md scenario S1's management half:
// "E5 01" -> exactly "E6 01".
func TestS1ManagementPing(t *testing.T) {
	m := testManager(t)
	resp := m.HandleDatagram([]byte{0xE5, 0x01})
	want := []byte{0xE6, 0x01}
	if string(resp) != string(want) {
		t.Fatalf("got % x, want % x", resp, want)
	}
}

func TestVersionQueryPadded(t *testing.T) {
	m := testManager(t)
	resp := m.HandleDatagram([]byte{0xE5, 0x02})
	if len(resp) != 2+18 {
		t.Fatalf("response length = %d, want 20", len(resp))
	}
	if string(resp[2:7]) != "1.0.0" {
		t.Fatalf("version = %q", resp[2:])
	}
	for _, b := range resp[2+len("1.0.0"):] {
		if b != 0 {
			t.Fatalf("version field not null-padded: % x", resp[2:])
		}
	}
}

func TestSetHostNamePersistsAndReflectsInHostName(t *testing.T) {
	m := testManager(t)
	req := append([]byte{0xE5, 0x03}, []byte("Bench Laser")...)
	resp := m.HandleDatagram(req)
	if string(resp) != string([]byte{0xE6, 0x03}) {
		t.Fatalf("unexpected set-host-name response: % x", resp)
	}
	if m.HostName() != "Bench Laser" {
		t.Fatalf("HostName() = %q, want %q", m.HostName(), "Bench Laser")
	}
}

func TestGetSettingsTextBeforeAnySaveReturnsRenderedDefaults(t *testing.T) {
	m := testManager(t)
	resp := m.HandleDatagram([]byte{0xE5, 0x04})
	if len(resp) < 4 {
		t.Fatalf("response too short: % x", resp)
	}
	if resp[0] != RespPrefix || resp[1] != SubGetSettingsText {
		t.Fatalf("unexpected header: % x", resp[:2])
	}
	status := uint16(resp[2])<<8 | uint16(resp[3])
	if status != StatusOK {
		t.Fatalf("status = %#x, want StatusOK", status)
	}
	text := string(resp[4:])
	if !strings.Contains(text, "name=OpenIDN") {
		t.Fatalf("settings text missing default host name: %q", text)
	}
}

func TestUnknownSubcommandIgnored(t *testing.T) {
	m := testManager(t)
	if resp := m.HandleDatagram([]byte{0xE5, 0x7F}); resp != nil {
		t.Fatalf("expected nil response for unknown subcommand, got % x", resp)
	}
}
