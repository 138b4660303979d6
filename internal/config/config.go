// Package config loads the persisted key=value INI file (spec.md §6) and
// the CLI flag surface (spec.md §6). The INI reader is hand-rolled rather
// than pulled from a library: none of the example repos imports an INI
// parser (they reach for encoding/json or hujson/yaml for structured
// config, none of which match this flat key=value dialect), so this is the
// one ambient concern in this module built on the standard library alone
// (see DESIGN.md).
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// State is the subset of the persisted INI file the core consumes:
// host_name from [idn_server], buffer_target_ms from [output], and the
// integer weights from [mode_priority].
type State struct {
	HostName       string
	BufferTargetMs int
	ModePriority   map[string]int
}

// DefaultState returns the documented defaults (spec.md §4.7: 40ms target;
// "OpenIDN" host name matching scenario S2).
func DefaultState() State {
	return State{
		HostName:       "OpenIDN",
		BufferTargetMs: 40,
		ModePriority:   map[string]int{},
	}
}

// Load reads the INI file at path, overlaying onto DefaultState() so a
// partially-present file still yields usable values. A missing file is not
// an error: it returns the defaults.
func Load(path string) (State, error) {
	st := DefaultState()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	section := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(line, "["), "]"))
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		switch section {
		case "idn_server":
			if key == "name" {
				st.HostName = val
			}
		case "output":
			if key == "buffer_duration" {
				if n, err := strconv.Atoi(val); err == nil {
					st.BufferTargetMs = n
				}
			}
		case "mode_priority":
			if n, err := strconv.Atoi(val); err == nil {
				st.ModePriority[key] = n
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return st, fmt.Errorf("config: scan %s: %w", path, err)
	}
	return st, nil
}

// Render formats st in the same INI dialect Load parses, used both to
// persist it (Save) and to answer the management channel's
// get-settings-file-text query without requiring a round trip through disk.
func Render(st State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[idn_server]\nname=%s\n\n", st.HostName)
	fmt.Fprintf(&b, "[output]\nbuffer_duration=%d\n\n", st.BufferTargetMs)
	b.WriteString("[mode_priority]\n")
	for k, v := range st.ModePriority {
		fmt.Fprintf(&b, "%s=%d\n", k, v)
	}
	return b.String()
}

// Save writes st back to path in the same format Load reads.
func Save(path string, st State) error {
	return os.WriteFile(path, []byte(Render(st)), 0o644)
}
