// Command idnserver is the IDN server process: it binds the UDP front end
// (port 7255 by default), the management channel (port 7355), and one
// driver loop per registered output, wiring them together under a
// supervisor so a termination signal drains every driver cleanly before
// the process exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"syscall"
	"time"

	"github.com/openidn/idnserver/internal/adapter"
	"github.com/openidn/idnserver/internal/adminhttp"
	"github.com/openidn/idnserver/internal/bex"
	"github.com/openidn/idnserver/internal/config"
	"github.com/openidn/idnserver/internal/diag"
	"github.com/openidn/idnserver/internal/diagstore"
	"github.com/openidn/idnserver/internal/driver"
	"github.com/openidn/idnserver/internal/fileadapter"
	"github.com/openidn/idnserver/internal/mgmt"
	"github.com/openidn/idnserver/internal/registry"
	"github.com/openidn/idnserver/internal/server"
	"github.com/openidn/idnserver/internal/session"
	"github.com/openidn/idnserver/internal/supervisor"
)

var (
	diagDBPath  = flag.String("diag-db", "", "path to a SQLite file for diagnostic event counters (disabled if empty)")
	adminListen = flag.String("admin-listen", "", "HTTP listen address for the /debug/ admin surface (disabled if empty)")
	serialPort  = flag.String("serial-port", "", "path to a serial-attached DAC (e.g. /dev/ttyUSB0); falls back to a dummy adapter if empty")
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	switch {
	case flags.DebugLive:
		diag.SetLevel(diag.LevelLive)
	case flags.Debug:
		diag.SetLevel(diag.LevelDebug)
	case flags.DebugSimple:
		diag.SetLevel(diag.LevelSimple)
	}

	state, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("idnserver: load config: %v", err)
	}

	outputAdapter, err := buildAdapter(*serialPort, uint32(flags.MaxPointRate))
	if err != nil {
		log.Fatalf("idnserver: adapter: %v", err)
	}

	reg := registry.New()
	reg.Register(registry.Service{ID: 1, Mode: 0, Adapter: outputAdapter})

	outBex := bex.New()
	outputs := map[uint16]server.Output{
		1: {BEX: outBex, TargetSliceUs: uint32(flags.ChunkLengthUs)},
	}

	priorities := server.BuildPriorities(state.ModePriority)
	srv := server.New(state.HostName, reg, outputs, priorities)
	mgr := mgmt.New(state, flags.ConfigPath, "1.0.0")

	loop := driver.NewLoop(outBex, outputAdapter, float64(flags.BufferTargetMs))

	sup := supervisor.New()
	sup.Add("udp-frontend", func(ctx context.Context) {
		if err := srv.ListenAndServe(ctx, flags.Listen); err != nil && ctx.Err() == nil {
			diag.At(diag.LevelSimple, "udp-frontend: %v", err)
		}
	})
	sup.Add("management", func(ctx context.Context) {
		if err := mgr.ListenAndServe(ctx, flags.ManagementAddr); err != nil && ctx.Err() == nil {
			diag.At(diag.LevelSimple, "management: %v", err)
		}
	})
	sup.Add("driver:service-1", loop.Run)
	sup.Add("sweep", func(ctx context.Context) {
		ticker := time.NewTicker(session.Timeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				srv.SweepTimeouts(now)
			}
		}
	})

	var diags *diagstore.Store
	if *diagDBPath != "" {
		diags, err = diagstore.Open(*diagDBPath)
		if err != nil {
			log.Fatalf("idnserver: open diagnostics db: %v", err)
		}
		defer diags.Close()
	}

	if *adminListen != "" {
		mux := http.NewServeMux()
		adminhttp.AttachAdminRoutes(mux, srv.Conns, []adminhttp.Output{{ServiceID: 1, Loop: loop}}, diags)
		adminSrv := &http.Server{Addr: *adminListen, Handler: mux}
		sup.Add("admin-http", func(ctx context.Context) {
			go func() {
				<-ctx.Done()
				adminSrv.Close()
			}()
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				diag.At(diag.LevelSimple, "admin-http: %v", err)
			}
		})
	}

	diag.Logf("idnserver: listening udp=%s management=%s host_name=%q", flags.Listen, flags.ManagementAddr, state.HostName)
	sup.Run(context.Background())
	supervisor.RaiseDefault(syscall.SIGTERM)
}

// buildAdapter picks the serial-backed fileadapter.Adapter when -serial-port
// is given, falling back to the dependency-free adapter.Dummy otherwise
// (e.g. for bench/demo runs with no hardware attached).
func buildAdapter(path string, maxPPS uint32) (adapter.Adapter, error) {
	if path == "" {
		return adapter.NewDummy(maxPPS), nil
	}
	a, err := fileadapter.Open(path, fileadapter.PortOptions{}, maxPPS)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return a, nil
}
