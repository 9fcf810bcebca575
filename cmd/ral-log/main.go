// Command ral-log is a tool for viewing and analyzing ralgen event logs.
//
// Log files are written by ralgen with the -event-log flag, and by programs
// using generated registers that attach a log.Observer.
//
// Usage:
//
//	ral-log <command> [flags] <file.rlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	ral-log view gen.rlog
//
//	# View only warnings
//	ral-log view -category warning gen.rlog
//
//	# Export to JSONL
//	ral-log export -format jsonl gen.rlog
//
//	# Keep one run and save to new file
//	ral-log filter -run-id 4f1c2a9e-... -o run.rlog gen.rlog
//
//	# Show statistics
//	ral-log stats gen.rlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vkochnev/ral/cmd/ral-log/commands"
)

const usage = `ral-log - Register Generator Event Log Analyzer

Usage:
  ral-log <command> [flags] <file.rlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "ral-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// logPath returns the single positional argument or exits with usage.
func logPath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `ral-log view - View log file in human-readable format

Usage:
  ral-log view [flags] <file.rlog>

Flags:
`)
		fs.PrintDefaults()
	}

	stage := fs.String("stage", "", "Filter by stage (load, resolve, layout, synth, emit, check, runtime)")
	category := fs.String("category", "", "Filter by category (progress, warning, error, file, access)")
	pathPrefix := fs.String("path", "", "Filter by node or file path prefix")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	filter := commands.ViewFilter{PathPrefix: *pathPrefix}

	if *stage != "" {
		s, err := commands.ParseStageFlag(*stage)
		if err != nil {
			fail(err)
		}
		filter.Stage = &s
	}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `ral-log export - Export log file to JSON or CSV format

Usage:
  ral-log export [flags] <file.rlog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `ral-log filter - Filter log file and write to new file

Usage:
  ral-log filter [flags] <file.rlog>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	runID := fs.String("run-id", "", "Filter by run ID")
	pathPrefix := fs.String("path", "", "Filter by node or file path prefix")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	stage := fs.String("stage", "", "Filter by stage (load, resolve, layout, synth, emit, check, runtime)")
	category := fs.String("category", "", "Filter by category (progress, warning, error, file, access)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, commands.FilterOptions{
		Output:     *output,
		RunID:      *runID,
		PathPrefix: *pathPrefix,
		TimeStart:  *timeStart,
		TimeEnd:    *timeEnd,
		Stage:      *stage,
		Category:   *category,
	})
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `ral-log stats - Show statistics about the log file

Usage:
  ral-log stats <file.rlog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
