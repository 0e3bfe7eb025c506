//go:build linux

// Package trace runs a target program under ptrace so the supervisor can
// capture the target's machine context at the moment a fatal signal is
// delivered. This is the path that yields a populated register dump: a
// process cannot observe the context of its own synchronous fault from
// ordinary signal delivery, but its tracer can.
package trace

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/blackwell-systems/crashtrap/internal/regs"
	"github.com/blackwell-systems/crashtrap/internal/sigtrap"
)

// Result describes how a supervised run ended.
type Result struct {
	PID         int
	ExitCode    int  // child's exit status, or 128+signal when it died on one
	Faulted     bool // a fatal signal was captured
	FaultSignal os.Signal
}

// Session supervises one child process and records its crash diagnostics
// through the given recorder.
type Session struct {
	rec *sigtrap.Recorder
	out io.Writer
}

// New creates a supervision session. A nil out defaults to os.Stderr.
func New(rec *sigtrap.Recorder, out io.Writer) *Session {
	if out == nil {
		out = os.Stderr
	}
	return &Session{rec: rec, out: out}
}

// Run starts argv under ptrace and supervises it to completion. On the
// first fatal stop (SIGSEGV, SIGABRT, SIGFPE) it reads the child's
// registers, records both artifacts for the child's pid while the child is
// still stopped, then delivers the signal so the child dies exactly as it
// would have without a tracer.
func (s *Session) Run(argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("trace: no command given")
	}

	// ptrace requests must come from the thread that attached.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("trace: start %q: %w", argv[0], err)
	}
	pid := cmd.Process.Pid
	res := &Result{PID: pid}

	// The child stops with SIGTRAP as soon as it execs.
	var ws unix.WaitStatus
	if _, err := unix.Wait4(pid, &ws, 0, nil); err != nil {
		return nil, fmt.Errorf("trace: wait for exec stop: %w", err)
	}
	if err := unix.PtraceSetOptions(pid, unix.PTRACE_O_EXITKILL); err != nil {
		fmt.Fprintf(s.out, "trace: set ptrace options: %v\n", err)
	}

	deliver := 0
	for {
		if err := unix.PtraceCont(pid, deliver); err != nil {
			return nil, fmt.Errorf("trace: continue pid %d: %w", pid, err)
		}
		deliver = 0

		if _, err := unix.Wait4(pid, &ws, 0, nil); err != nil {
			return nil, fmt.Errorf("trace: wait pid %d: %w", pid, err)
		}

		switch {
		case ws.Exited():
			res.ExitCode = ws.ExitStatus()
			return res, nil

		case ws.Signaled():
			res.ExitCode = 128 + int(ws.Signal())
			return res, nil

		case ws.Stopped():
			sig := ws.StopSignal()
			if sigtrap.KindOf(sig) != sigtrap.KindOther {
				if !res.Faulted {
					res.Faulted = true
					res.FaultSignal = sig
					s.capture(pid, sig)
				}
				deliver = int(sig)
			} else if sig != unix.SIGTRAP {
				// Pass unrelated stops (SIGCHLD, job control, ...) through.
				deliver = int(sig)
			}
		}
	}
}

// capture records both artifacts for the stopped child. Register read
// failures degrade to a context-free dump rather than aborting the capture.
func (s *Session) capture(pid int, sig unix.Signal) {
	ctx, err := regs.ReadPtrace(pid)
	if err != nil {
		fmt.Fprintf(s.out, "trace: read registers of pid %d: %v\n", pid, err)
		ctx = nil
	}
	if err := s.rec.Record(sigtrap.FaultEvent{Signal: sig, PID: pid, Context: ctx}); err != nil {
		fmt.Fprintf(s.out, "trace: capture for pid %d incomplete: %v\n", pid, err)
	}
}
