package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/vkochnev/ral/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByStage    map[log.Stage]int
	EventsByCategory map[log.Category]int
	Runs             map[string]*RunSummary
	Registers        map[string]*AccessStats
	Warnings         int
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// RunSummary holds statistics for a single generator run or runtime session.
type RunSummary struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Device    string
	Files     int
	Bytes     int
	Warnings  int
	Errors    int

	// Stages maps finished stages to their recorded duration.
	Stages map[log.Stage]time.Duration
}

// AccessStats counts runtime operations on one register.
type AccessStats struct {
	Borrows     int
	Contentions int
	Writes      int
}

// CollectStats reads every event of the log file into a Stats.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByStage:    make(map[log.Stage]int),
		EventsByCategory: make(map[log.Category]int),
		Runs:             make(map[string]*RunSummary),
		Registers:        make(map[string]*AccessStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByStage[event.Stage]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	run, ok := s.Runs[event.RunID]
	if !ok {
		run = &RunSummary{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
			Stages:    make(map[log.Stage]time.Duration),
		}
		s.Runs[event.RunID] = run
	}
	run.Events++
	if event.Timestamp.After(run.LastSeen) {
		run.LastSeen = event.Timestamp
	}
	if event.Device != "" && run.Device == "" {
		run.Device = event.Device
	}

	switch {
	case event.Progress != nil:
		if event.Progress.Done {
			run.Stages[event.Stage] = event.Progress.Duration
		}
	case event.Warning != nil:
		s.Warnings++
		run.Warnings++
	case event.Error != nil:
		s.Errors++
		run.Errors++
	case event.File != nil:
		run.Files++
		run.Bytes += event.File.Size
	case event.Access != nil:
		reg, ok := s.Registers[event.Path]
		if !ok {
			reg = &AccessStats{}
			s.Registers[event.Path] = reg
		}
		switch event.Access.Op {
		case log.AccessBorrow:
			reg.Borrows++
		case log.AccessContend:
			reg.Contentions++
		case log.AccessWrite:
			reg.Writes++
		}
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

var allStages = []log.Stage{
	log.StageLoad, log.StageResolve, log.StageLayout, log.StageSynth,
	log.StageEmit, log.StageCheck, log.StageRuntime,
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Register Generator Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Stage:")
	for _, stage := range allStages {
		if count := stats.EventsByStage[stage]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", stage.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryProgress, log.CategoryWarning, log.CategoryError, log.CategoryFile, log.CategoryAccess} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	if len(stats.Runs) > 0 {
		type runInfo struct {
			id    string
			stats *RunSummary
		}
		runs := make([]runInfo, 0, len(stats.Runs))
		for id, rs := range stats.Runs {
			runs = append(runs, runInfo{id, rs})
		}
		sort.Slice(runs, func(i, j int) bool {
			return runs[i].stats.FirstSeen.Before(runs[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, r := range runs {
			duration := r.stats.LastSeen.Sub(r.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenRunID(r.id), r.stats.Events, duration)
			if r.stats.Device != "" {
				fmt.Fprintf(w, "           Device: %s\n", r.stats.Device)
			}
			if r.stats.Files > 0 {
				fmt.Fprintf(w, "           Files: %d (%d bytes)\n", r.stats.Files, r.stats.Bytes)
			}
			for _, stage := range allStages {
				if d, ok := r.stats.Stages[stage]; ok {
					fmt.Fprintf(w, "           %-8s %s\n", stage.String()+":", formatDuration(d))
				}
			}
			if r.stats.Warnings > 0 || r.stats.Errors > 0 {
				fmt.Fprintf(w, "           Warnings: %d  Errors: %d\n", r.stats.Warnings, r.stats.Errors)
			}
		}
	}

	if len(stats.Registers) > 0 {
		names := make([]string, 0, len(stats.Registers))
		for name := range stats.Registers {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w)
		fmt.Fprintf(w, "Registers: %d\n", len(names))
		for _, name := range names {
			a := stats.Registers[name]
			fmt.Fprintf(w, "  %-24s borrows=%d contended=%d writes=%d\n", name, a.Borrows, a.Contentions, a.Writes)
		}
	}

	if stats.Warnings > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Warnings: %d\n", stats.Warnings)
	}
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
