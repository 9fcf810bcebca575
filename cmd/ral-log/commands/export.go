package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/vkochnev/ral/pkg/log"
)

// exportRecord is the flattened JSON form of an event.
type exportRecord struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id"`
	Stage     string `json:"stage"`
	Category  string `json:"category"`
	Device    string `json:"device,omitempty"`
	Path      string `json:"path,omitempty"`
	Detail    string `json:"detail,omitempty"`

	Done     *bool  `json:"done,omitempty"`
	Count    *int   `json:"count,omitempty"`
	Duration string `json:"duration,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Size     *int   `json:"size,omitempty"`
	Digest   string `json:"digest,omitempty"`
	Status   string `json:"status,omitempty"`
	Op       string `json:"op,omitempty"`
}

func toRecord(event log.Event) exportRecord {
	rec := exportRecord{
		Timestamp: event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		RunID:     event.RunID,
		Stage:     event.Stage.String(),
		Category:  event.Category.String(),
		Device:    event.Device,
		Path:      event.Path,
	}
	switch {
	case event.Progress != nil:
		rec.Done = &event.Progress.Done
		if event.Progress.Done {
			rec.Count = &event.Progress.Count
			rec.Duration = event.Progress.Duration.String()
		}
	case event.Warning != nil:
		rec.Detail = event.Warning.Message
	case event.Error != nil:
		rec.Detail = event.Error.Message
		rec.Kind = event.Error.Kind
	case event.File != nil:
		rec.Size = &event.File.Size
		rec.Digest = event.File.Digest
		rec.Status = event.File.Status
	case event.Access != nil:
		rec.Op = event.Access.Op.String()
	}
	return rec
}

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return export(reader, format, w)
}

func export(reader *log.Reader, format string, w io.Writer) error {
	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(toRecord(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "run_id", "stage", "category", "device", "path", "detail", "size", "digest", "status", "op"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		rec := toRecord(event)
		size := ""
		if rec.Size != nil {
			size = strconv.Itoa(*rec.Size)
		}
		row := []string{
			rec.Timestamp,
			rec.RunID,
			rec.Stage,
			rec.Category,
			rec.Device,
			rec.Path,
			rec.Detail,
			size,
			rec.Digest,
			rec.Status,
			rec.Op,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
