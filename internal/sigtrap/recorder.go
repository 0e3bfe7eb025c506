// Package sigtrap owns the crash-capture lifecycle: it registers for fatal
// signals, and on delivery writes a register dump and a memory-map dump for
// the faulting process, reports both paths, and terminates.
//
// The handler state is process-wide on purpose: the kernel, not this
// program, owns the signal registration table, so there is exactly one
// recorder lifecycle per process (Uninstalled → Installed → Handling →
// Terminated, with Terminated absorbing).
package sigtrap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/blackwell-systems/crashtrap/internal/memmap"
	"github.com/blackwell-systems/crashtrap/internal/regs"
)

// Recorder states. Handling has exactly one outgoing transition, to
// Terminated; the capture sequence therefore runs at most once per process.
const (
	stateUninstalled int32 = iota
	stateInstalled
	stateHandling
	stateTerminated
)

// FaultEvent is the unit of work delivered on a crash: which signal, whose
// address space, and (when the delivery path provides one) the machine
// context at the moment of the fault. The context must not be retained
// beyond the capture that consumes it.
type FaultEvent struct {
	Signal  os.Signal
	PID     int
	Context *regs.Context
}

// Recorder captures crash diagnostics into a dump directory. The zero value
// is not usable; call New.
type Recorder struct {
	dir string
	out io.Writer

	state  atomic.Int32
	exitFn func(int)

	mu        sync.Mutex
	ch        chan os.Signal
	installed map[os.Signal]bool
}

// New creates a Recorder that writes artifacts into dir and reports
// progress on out. A nil out defaults to os.Stdout.
func New(dir string, out io.Writer) *Recorder {
	if out == nil {
		out = os.Stdout
	}
	return &Recorder{
		dir:       dir,
		out:       out,
		exitFn:    os.Exit,
		installed: make(map[os.Signal]bool),
	}
}

// Install registers the recorder as the handler for the given signals.
// It must run before any fault of interest; repeated calls are idempotent
// (each signal is drained by a single goroutine no matter how often it is
// registered). An empty set or an uncatchable signal is a registration
// failure and is returned immediately; no partial registration happens.
//
// Signals arriving through this path are asynchronous deliveries, which on
// this platform carry no machine context; register capture degrades to an
// explicitly context-free dump while the memory-map capture proceeds in
// full. The drain goroutine runs outside the kernel's signal-delivery
// context, so ordinary file I/O is safe in the capture sequence.
func (r *Recorder) Install(sigs ...os.Signal) error {
	if len(sigs) == 0 {
		return errors.New("install: no signals to register")
	}
	for _, sig := range sigs {
		if sig == unix.SIGKILL || sig == unix.SIGSTOP {
			return fmt.Errorf("install: %v cannot be caught", sig)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.state.Load(); s == stateHandling || s == stateTerminated {
		return errors.New("install: recorder already handling a fault")
	}

	fresh := sigs[:0:0]
	for _, sig := range sigs {
		if !r.installed[sig] {
			fresh = append(fresh, sig)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	if r.ch == nil {
		r.ch = make(chan os.Signal, 1)
		go r.drain()
	}
	signal.Notify(r.ch, fresh...)
	for _, sig := range fresh {
		r.installed[sig] = true
	}
	r.state.CompareAndSwap(stateUninstalled, stateInstalled)
	return nil
}

func (r *Recorder) drain() {
	for sig := range r.ch {
		r.Handle(FaultEvent{Signal: sig, PID: os.Getpid()})
	}
}

// Handle runs the full capture-then-terminate sequence for one fault. It
// never returns control to the faulted path: the process exits with a
// non-zero status. A second invocation while a capture is in flight (or
// after one completed) is ignored, which is the at-most-once guarantee.
func (r *Recorder) Handle(ev FaultEvent) {
	if !r.state.CompareAndSwap(stateInstalled, stateHandling) &&
		!r.state.CompareAndSwap(stateUninstalled, stateHandling) {
		return
	}

	fmt.Fprintf(r.out, "\n[crash recorder] signal %d (%s) caught at pid %d\n",
		SignalNumber(ev.Signal), SignalName(ev.Signal), ev.PID)

	if err := r.Record(ev); err != nil {
		fmt.Fprintf(r.out, "[crash recorder] capture incomplete: %v\n", err)
	}

	r.state.Store(stateTerminated)
	r.exitFn(1)
}

// Record writes both artifacts for the event, best effort. A failed
// register dump does not block the memory-map dump and vice versa; each
// failure is reported on the diagnostic stream and the combined error is
// returned for callers that track capture completeness. Record does not
// terminate the process; Handle does.
func (r *Recorder) Record(ev FaultEvent) error {
	regsErr := r.writeRegs(ev)
	if regsErr != nil {
		fmt.Fprintf(r.out, "[crash recorder] register dump failed: %v\n", regsErr)
	}
	mapsErr := r.writeMaps(ev)
	if mapsErr != nil {
		fmt.Fprintf(r.out, "[crash recorder] memory map dump failed: %v\n", mapsErr)
	}
	return errors.Join(regsErr, mapsErr)
}

func (r *Recorder) writeRegs(ev FaultEvent) error {
	path := RegsPath(r.dir, ev.PID)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open register dump: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "=== CRASH CONTEXT ===")
	fmt.Fprintf(f, "Signal: %d (%s)\n", SignalNumber(ev.Signal), SignalName(ev.Signal))
	fmt.Fprintf(f, "PID: %d\n", ev.PID)
	fmt.Fprintln(f)

	if err := regs.Format(f, regs.Capture(ev.Context)); err != nil {
		return fmt.Errorf("write register dump: %w", err)
	}
	fmt.Fprintf(r.out, "[crash recorder] registers saved to %s\n", path)
	return nil
}

func (r *Recorder) writeMaps(ev FaultEvent) error {
	path := MapsPath(r.dir, ev.PID)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open memory map dump: %w", err)
	}
	defer f.Close()

	if err := memmap.WriteMaps(f, ev.PID); err != nil {
		return fmt.Errorf("write memory map dump: %w", err)
	}
	fmt.Fprintf(r.out, "[crash recorder] memory map saved to %s\n", path)
	return nil
}
