//go:build linux

package trace

import (
	"os"
	"strings"
	"testing"

	"github.com/blackwell-systems/crashtrap/internal/regs"
	"github.com/blackwell-systems/crashtrap/internal/sigtrap"
)

// TestRun_NoCommand_Fails verifies the argument check.
func TestRun_NoCommand_Fails(t *testing.T) {
	s := New(sigtrap.New(t.TempDir(), os.Stderr), nil)
	if _, err := s.Run(nil); err == nil {
		t.Fatal("Run(nil) should fail")
	}
}

// TestRun_CleanExit verifies that a well-behaved child runs to completion
// under supervision with no fault recorded.
func TestRun_CleanExit(t *testing.T) {
	var out strings.Builder
	s := New(sigtrap.New(t.TempDir(), &out), &out)

	res, err := s.Run([]string{"/bin/true"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d; want 0", res.ExitCode)
	}
	if res.Faulted {
		t.Error("clean exit should not record a fault")
	}
}

// TestRun_ChildExitStatusPropagates verifies the child's own non-zero exit
// status comes back unchanged.
func TestRun_ChildExitStatusPropagates(t *testing.T) {
	s := New(sigtrap.New(t.TempDir(), os.Stderr), os.Stderr)

	res, err := s.Run([]string{"/bin/sh", "-c", "exit 7"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.ExitCode != 7 {
		t.Errorf("ExitCode = %d; want 7", res.ExitCode)
	}
}

// TestRun_FatalSignal_RecordsChildArtifacts delivers a segmentation
// violation to a supervised child and verifies both artifacts exist for the
// CHILD's pid, the register dump names the signal, and the child's death is
// reflected as 128+signal.
func TestRun_FatalSignal_RecordsChildArtifacts(t *testing.T) {
	dir := t.TempDir()
	var out strings.Builder
	s := New(sigtrap.New(dir, &out), &out)

	res, err := s.Run([]string{"/bin/sh", "-c", "kill -s SEGV $$"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !res.Faulted {
		t.Fatalf("fault not recorded; supervisor output:\n%s", out.String())
	}
	if res.ExitCode != 139 {
		t.Errorf("ExitCode = %d; want 139 (128+SIGSEGV)", res.ExitCode)
	}

	body, err := os.ReadFile(sigtrap.RegsPath(dir, res.PID))
	if err != nil {
		t.Fatalf("register dump for child pid %d missing: %v", res.PID, err)
	}
	if !strings.Contains(string(body), "Signal: 11 (SIGSEGV)") {
		t.Errorf("register dump missing signal header:\n%s", body)
	}
	if regs.NativeArch != regs.ArchUnsupported &&
		strings.Contains(string(body), "no machine context available") {
		t.Errorf("ptrace capture should produce a populated register dump:\n%s", body)
	}

	mapsBody, err := os.ReadFile(sigtrap.MapsPath(dir, res.PID))
	if err != nil {
		t.Fatalf("memory map dump for child pid %d missing: %v", res.PID, err)
	}
	if len(mapsBody) == 0 {
		t.Error("memory map dump is empty")
	}
}
