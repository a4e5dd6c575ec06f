package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dtree/evaluator"
)

type Writer struct {
	baseDir string
}

// NewWriter creates a subfolder of dir named by the current timestamp.
func NewWriter(dir string) (*Writer, error) {
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(dir, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WriteCalculationLog(entries []evaluator.LogEntry) error {
	header := []string{"id", "node_id", "node_label", "node_type", "formula", "result", "timestamp"}
	rows := make([][]string, len(entries))
	for i, entry := range entries {
		rows[i] = []string{
			entry.ID,
			entry.NodeID,
			entry.NodeLabel,
			entry.NodeType.String(),
			entry.Formula,
			strconv.FormatFloat(entry.Result, 'f', -1, 64),
			entry.Timestamp.Format(time.RFC3339Nano),
		}
	}
	return w.write("calculation_log.csv", header, rows)
}

func (w *Writer) WriteSolveMetrics(records []SolveMetric) error {
	header := []string{"kind", "start_time", "duration", "steps", "terminals", "cancelled", "solved"}
	rows := make([][]string, len(records))
	for i, record := range records {
		rows[i] = []string{
			string(record.Kind),
			record.StartTime.Format(time.RFC3339),
			record.Duration.String(),
			strconv.Itoa(record.Steps),
			strconv.Itoa(record.Terminals),
			strconv.FormatBool(record.Cancelled),
			strconv.FormatBool(record.Solved),
		}
	}
	return w.write("solve_metrics.csv", header, rows)
}

func (w *Writer) write(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	err = writer.WriteAll(rows)
	if err != nil {
		return fmt.Errorf("failed to write %s rows: %w", name, err)
	}
	return nil
}
