package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/crashtrap/internal/sigtrap"
	"github.com/blackwell-systems/crashtrap/internal/trace"
)

var runCmd = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run a program under supervision and capture its crash",
	Long: `Run the target program under ptrace supervision. If it dies on a fatal
signal (SIGSEGV, SIGABRT, SIGFPE), crashtrap captures the target's CPU
registers at the moment of the fault together with its memory map, writes
both artifacts into the dump directory, and exits with the target's own
exit status (128+signal for a signal death).

This is the capture path that produces a populated register dump: the
supervisor reads the target's machine context while the target is stopped
on the fatal signal, before the signal is delivered.`,
	Example: `  crashtrap run -- ./flaky-server --port 8080
  crashtrap run --dir /tmp/dumps -- python3 repro.py`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	rec := sigtrap.New(dumpDir, os.Stdout)
	session := trace.New(rec, os.Stderr)

	res, err := session.Run(args)
	if err != nil {
		return err
	}

	if res.Faulted {
		fmt.Printf("\n[crashtrap] pid %d died on signal %d (%s); artifacts in %s\n",
			res.PID, sigtrap.SignalNumber(res.FaultSignal), sigtrap.SignalName(res.FaultSignal), dumpDir)
	}
	if res.ExitCode != 0 {
		// Mirror the child's fate so scripts around crashtrap see the
		// same status they would without supervision.
		os.Exit(res.ExitCode)
	}
	return nil
}
