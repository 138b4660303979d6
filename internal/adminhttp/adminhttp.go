// Package adminhttp exposes a tsweb-gated `/debug/` surface for live
// inspection: the session/channel table, each output's BEX state, and its
// current WAVE-mode speed factor. Grounded on the teacher's
// internal/serialmux.AttachAdminRoutes and db/db.go's tsweb.Debugger usage.
package adminhttp

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/openidn/idnserver/internal/diagstore"
	"github.com/openidn/idnserver/internal/driver"
	"github.com/openidn/idnserver/internal/point"
	"github.com/openidn/idnserver/internal/session"
	"tailscale.com/tsweb"
)

// Output pairs a named driver loop with the registry service id it serves,
// so the debug handlers can report BEX mode and speed factor per output.
type Output struct {
	ServiceID uint16
	Loop      *driver.Loop
}

// AttachAdminRoutes registers the debug handlers onto mux.
func AttachAdminRoutes(mux *http.ServeMux, conns *session.Table, outputs []Output, diags *diagstore.Store) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("sessions", "dump the live connection/session/channel table", func(w http.ResponseWriter, r *http.Request) {
		for _, c := range conns.All() {
			fmt.Fprintf(w, "conn %s  state=%s  next_seq=%d\n", c.Endpoint.Addr, c.Sess.State, c.NextSeq)
			for i := 0; i < session.MaxChannels; i++ {
				ch := c.Sess.Channels[i]
				if ch == nil {
					continue
				}
				fmt.Fprintf(w, "  channel %2d  state=%v  service_id=%d  service_mode=%d\n",
					ch.ID, ch.State == session.ChOpen, ch.ServiceID, ch.ServiceMode)
			}
		}
	})

	debug.HandleFunc("bex", "dump each output's BEX mode and live speed factor", func(w http.ResponseWriter, r *http.Request) {
		sort.Slice(outputs, func(i, j int) bool { return outputs[i].ServiceID < outputs[j].ServiceID })
		for _, o := range outputs {
			mode := o.Loop.BEX.Mode()
			speed := 1.0
			if mode == point.Wave {
				speed = o.Loop.Speed.Current()
			}
			fmt.Fprintf(w, "service_id=%d  mode=%s  speed_factor=%.3f\n", o.ServiceID, mode, speed)
		}
	})

	if diags != nil {
		debug.HandleFunc("diagnostics", "dump recorded input/pipeline event counters", func(w http.ResponseWriter, r *http.Request) {
			counts, err := diags.Counts()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			for _, c := range counts {
				fmt.Fprintf(w, "%-8s %-24s %-20s %d\n", c.Scope, c.Ident, c.FlagName, c.Count)
			}
			if len(counts) == 0 {
				io.WriteString(w, "(no events recorded)\n")
				return
			}
			io.WriteString(w, "\nper-flag distribution:\n")
			for _, sum := range diagstore.Summarize(counts) {
				fmt.Fprintf(w, "%-20s mean=%.1f p50=%.1f p85=%.1f\n", sum.FlagName, sum.Mean, sum.P50, sum.P85)
			}
		})
	}
}
