package monitor

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"heartbench/telemetry"
)

// WriteCSV writes samples as CSV with a header row. Timestamps are RFC 3339
// with nanoseconds so runs can be correlated with external logs.
func WriteCSV(w io.Writer, samples []telemetry.Sample) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"tick", "position_mm", "load", "status", "received_at"}); err != nil {
		return err
	}
	for _, s := range samples {
		rec := []string{
			strconv.FormatUint(uint64(s.Tick), 10),
			strconv.FormatFloat(s.Position, 'f', 4, 64),
			strconv.FormatFloat(s.Load, 'f', 4, 64),
			strconv.FormatUint(uint64(s.Status), 10),
			s.At.Format("2006-01-02T15:04:05.000000000Z07:00"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV records the ring's current contents to a file.
func SaveCSV(path string, ring *telemetry.Ring) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create recording %s: %w", path, err)
	}
	if err := WriteCSV(f, ring.Snapshot()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
