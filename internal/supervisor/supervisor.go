// Package supervisor implements thread lifecycle management (C10, spec.md
// §4.9): starting the network, driver, and management goroutines together,
// and on interrupt cancelling the driver loops, emitting one safe empty
// point from each, then re-raising the signal so default termination
// proceeds — the abort-safety guarantee that the beam is never left active
// mid-write. Grounded on the teacher's cmd/lidar goroutine-per-concern
// pattern (signal.NotifyContext + sync.WaitGroup).
package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/openidn/idnserver/internal/diag"
)

// Runnable is anything with a blocking, context-cancellable run loop —
// satisfied by *server.Server.ListenAndServe, *mgmt.Manager.ListenAndServe,
// and *driver.Loop.Run once bound to their respective arguments via a
// closure.
type Runnable func(ctx context.Context)

// Supervisor starts a named set of Runnables and waits for them to return
// after a SIGINT/SIGTERM, or until explicitly stopped.
type Supervisor struct {
	tasks []namedTask
}

type namedTask struct {
	name string
	run  Runnable
}

// New returns an empty Supervisor.
func New() *Supervisor {
	return &Supervisor{}
}

// Add registers a named task to be started by Run.
func (s *Supervisor) Add(name string, run Runnable) {
	s.tasks = append(s.tasks, namedTask{name: name, run: run})
}

// Run starts every registered task in its own goroutine, blocks until a
// termination signal arrives (or ctx is otherwise cancelled), then waits for
// all tasks to observe cancellation and return. Run does not re-raise the
// signal; RaiseDefault does that once Run has returned.
func (s *Supervisor) Run(parent context.Context) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, t := range s.tasks {
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			diag.Logf("supervisor: %s starting", t.name)
			t.run(ctx)
			diag.Logf("supervisor: %s terminated", t.name)
		}()
	}

	<-ctx.Done()
	diag.Logf("supervisor: termination signal received, draining tasks")
	wg.Wait()
}

// RaiseDefault re-sends sig to this process with its default disposition
// restored, completing the "re-raise" half of spec.md §4.9 once every
// driver has emitted its final safe point. Callers typically invoke this
// after Run returns, from a signal-notified context's stop cause.
func RaiseDefault(sig os.Signal) {
	signal.Reset(sig)
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return
	}
	_ = p.Signal(sig)
}
