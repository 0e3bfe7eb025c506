package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/blackwell-systems/crashtrap/internal/sigtrap"
)

var (
	demoMode       string
	demoIterations int
	demoSleep      time.Duration

	demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Crash on purpose with the crash recorder installed",
		Long: `Install the crash recorder for SIGSEGV, SIGABRT, and SIGFPE, do a bit
of visible work, then raise the chosen fatal signal against this process.
The recorder writes crash_dump_<pid>.regs and crash_dump_<pid>.maps into
the dump directory and exits non-zero.

The signal is raised with kill(2), so it reaches the handler as an
asynchronous delivery; the register dump records that no fault-time machine
context was available. Use 'crashtrap run' to capture a populated register
dump from a real fault.`,
		Example: `  # Default: segmentation violation after 3 iterations
  crashtrap demo

  # Abort, immediately
  crashtrap demo --mode abort --iterations 0

  # Write artifacts somewhere else
  crashtrap demo --dir /tmp/dumps --mode fpe`,
		RunE: runDemo,
	}
)

func init() {
	demoCmd.Flags().StringVar(&demoMode, "mode", "segv", "fault to raise: segv, abort, or fpe")
	demoCmd.Flags().IntVar(&demoIterations, "iterations", 3, "work iterations before the fault")
	demoCmd.Flags().DurationVar(&demoSleep, "sleep", time.Second, "pause between iterations")
}

// parseMode maps a demo mode name to the signal it raises.
func parseMode(mode string) (unix.Signal, error) {
	switch mode {
	case "segv":
		return unix.SIGSEGV, nil
	case "abort":
		return unix.SIGABRT, nil
	case "fpe":
		return unix.SIGFPE, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want segv, abort, or fpe)", mode)
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	sig, err := parseMode(demoMode)
	if err != nil {
		return err
	}

	fmt.Println("=== crashtrap demo ===")
	fmt.Printf("PID: %d\n", os.Getpid())
	fmt.Println("This program will intentionally crash to demonstrate crash capture.")
	fmt.Println()

	rec := sigtrap.New(dumpDir, os.Stdout)
	if err := rec.Install(sigtrap.FatalSignals()...); err != nil {
		return fmt.Errorf("failed to install crash recorder: %w", err)
	}
	fmt.Println("Signal handlers installed.")
	fmt.Println("Starting crash chain...")
	fmt.Println()

	for i := 0; i < demoIterations; i++ {
		fmt.Printf("Iteration %d...\n", i+1)
		time.Sleep(demoSleep)
	}

	fmt.Println()
	fmt.Println("Trigger the crash:")
	entryFunction(sig)

	// The recorder terminates the process from its handler; block until it
	// does rather than fall out of the command.
	select {}
}

// The three-deep call chain mirrors a typical crash path: an entry point, a
// dispatcher, and the function that actually faults.
func entryFunction(sig unix.Signal) {
	fmt.Println("→ entryFunction: calling intermediateFunction")
	intermediateFunction(sig)
}

func intermediateFunction(sig unix.Signal) {
	fmt.Println(" → intermediateFunction: calling faultingFunction")
	faultingFunction(sig)
}

func faultingFunction(sig unix.Signal) {
	fmt.Printf("  → faultingFunction: raising %s\n", sigtrap.SignalName(sig))
	if err := unix.Kill(os.Getpid(), sig); err != nil {
		fmt.Fprintf(os.Stderr, "failed to raise %s: %v\n", sigtrap.SignalName(sig), err)
		os.Exit(1)
	}
}
