package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/crashtrap/internal/memmap"
	"github.com/blackwell-systems/crashtrap/internal/sigtrap"
	"github.com/blackwell-systems/crashtrap/internal/watcher"
)

var (
	reportAddrs []string

	reportCmd = &cobra.Command{
		Use:   "report <maps-file | pid>",
		Short: "Summarize a memory-map dump by region class",
		Long: `Parse a memory-map dump and report region totals: how much of the
address space is mapped, writable, and executable, broken down by region
class (code, data, heap, stack, anonymous).

The argument is either a .maps artifact path or a pid. A pid resolves to
that process's artifact in the dump directory if one exists, otherwise to
its live /proc/<pid>/maps.

When the maps source is a capture artifact with a register dump sibling,
the crash registers (program counter, stack pointer, frame pointer, link
register) are resolved against the map: the report names the mapping each
one falls in, and a fault inside file-backed code gets the addr2line
invocation that symbolizes it. Additional addresses can be resolved with
--addr.`,
		Example: `  crashtrap report crash_dump_4321.maps
  crashtrap report 4321
  crashtrap report --addr 0x4005a0 crash_dump_4321.maps`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}
)

func init() {
	reportCmd.Flags().StringSliceVar(&reportAddrs, "addr", nil, "hex address to resolve against the map (repeatable)")
}

// resolveMapsSource turns the report argument into a readable maps path.
func resolveMapsSource(dir, arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}
	pid, err := strconv.Atoi(arg)
	if err != nil {
		return "", fmt.Errorf("%q is neither a readable file nor a pid", arg)
	}
	if artifact := sigtrap.MapsPath(dir, pid); fileExists(artifact) {
		return artifact, nil
	}
	return memmap.Path(pid), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// namedAddr is one address to resolve, labeled by the register name or flag
// value it came from.
type namedAddr struct {
	label string
	value uint64
}

// reportAddresses collects the addresses to resolve: explicit --addr values
// plus the annotated registers of the paired register dump, when the maps
// source is a capture artifact.
func reportAddresses(source string) ([]namedAddr, error) {
	var addrs []namedAddr
	for _, raw := range reportAddrs {
		v, err := strconv.ParseUint(strings.TrimPrefix(raw, "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad address %q: %w", raw, err)
		}
		addrs = append(addrs, namedAddr{label: raw, value: v})
	}

	if strings.HasSuffix(source, ".maps") {
		regsPath := strings.TrimSuffix(source, ".maps") + ".regs"
		if fileExists(regsPath) {
			dumped, err := watcher.ParseDumpRegisters(regsPath)
			if err != nil {
				return nil, err
			}
			for _, r := range dumped {
				if r.Note != "" {
					addrs = append(addrs, namedAddr{label: r.Name, value: r.Value})
				}
			}
		}
	}
	return addrs, nil
}

// describeAddress resolves one address against the region list: the
// containing mapping with its class and permissions. An address inside a
// file-backed executable mapping also gets the addr2line invocation for the
// backing file.
func describeAddress(a namedAddr, regions []memmap.Region) string {
	var sb strings.Builder
	reg := memmap.FindRegion(regions, a.value)
	if reg == nil {
		fmt.Fprintf(&sb, "%-4s 0x%016x  not mapped\n", a.label, a.value)
		return sb.String()
	}

	target := reg.Path
	if target == "" {
		target = "anonymous"
	}
	fmt.Fprintf(&sb, "%-4s 0x%016x  %s  %s %s\n",
		a.label, a.value, target, memmap.Classify(*reg), reg.Perms)
	if reg.Path != "" && !strings.HasPrefix(reg.Path, "[") && reg.Executable() {
		fmt.Fprintf(&sb, "     addr2line -e %s 0x%x\n", reg.Path, reg.FileOffset(a.value))
	}
	return sb.String()
}

func runReport(cmd *cobra.Command, args []string) error {
	source, err := resolveMapsSource(dumpDir, args[0])
	if err != nil {
		return err
	}

	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open memory map %s: %w", source, err)
	}
	defer f.Close()

	regions, err := memmap.ParseRegions(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", source, err)
	}

	fmt.Printf("Memory map: %s\n\n", source)
	if err := memmap.Summarize(regions).Render(os.Stdout); err != nil {
		return err
	}

	addrs, err := reportAddresses(source)
	if err != nil {
		return err
	}
	if len(addrs) > 0 {
		fmt.Println()
		fmt.Println("Addresses:")
		for _, a := range addrs {
			fmt.Print(describeAddress(a, regions))
		}
	}
	return nil
}
