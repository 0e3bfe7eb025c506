//go:build !linux

package trace

import (
	"fmt"
	"io"
	"os"

	"github.com/blackwell-systems/crashtrap/internal/sigtrap"
)

// Result describes how a supervised run ended.
type Result struct {
	PID         int
	ExitCode    int
	Faulted     bool
	FaultSignal os.Signal
}

// Session is unavailable off Linux; supervised capture needs ptrace and
// procfs semantics this package only implements there.
type Session struct{}

// New creates a placeholder session.
func New(rec *sigtrap.Recorder, out io.Writer) *Session {
	return &Session{}
}

// Run always fails on this platform.
func (s *Session) Run(argv []string) (*Result, error) {
	return nil, fmt.Errorf("trace: supervised capture requires linux")
}
