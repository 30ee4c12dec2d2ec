package metriclog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// Log is the append-only loss.csv of a run.
type Log struct {
	path string
}

// New returns the log stored in dir.
func New(dir string) *Log {
	return &Log{path: filepath.Join(dir, FileName)}
}

// Path returns the file path.
func (l *Log) Path() string {
	return l.path
}

// Append opens the file in append mode, writes one line and closes it.
// Earlier lines are never touched.
func (l *Log) Append(rec Record) error {
	//nolint:gosec // G304: path is inside the run directory
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, rec.Line()+"\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Read parses every record in the log. Benchmark columns are named after
// names by position; columns beyond len(names) get positional names.
// A missing file is an empty history.
func (l *Log) Read(names []string) ([]Record, error) {
	//nolint:gosec // G304: path is inside the run directory
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var history []Record
	for line := 1; ; line++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return history, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", l.path, err)
		}
		rec, err := parseFields(fields, names)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", l.path, line, err)
		}
		history = append(history, rec)
	}
}

func parseFields(fields []string, names []string) (Record, error) {
	if len(fields) < 3 || (len(fields)-3)%2 != 0 {
		return Record{}, fmt.Errorf("want 3 + 2k fields, got %d", len(fields))
	}
	var rec Record
	var err error
	if rec.Iteration, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
		return Record{}, fmt.Errorf("iteration: %w", err)
	}
	if rec.ValError, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return Record{}, fmt.Errorf("val error: %w", err)
	}
	if rec.EvalError, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return Record{}, fmt.Errorf("eval error: %w", err)
	}
	for i := 3; i < len(fields); i += 2 {
		k := (i - 3) / 2
		br := BenchmarkResult{Name: fmt.Sprintf("benchmark%d", k)}
		if k < len(names) {
			br.Name = names[k]
		}
		if br.PSNR, err = strconv.ParseFloat(fields[i], 64); err != nil {
			return Record{}, fmt.Errorf("%s psnr: %w", br.Name, err)
		}
		if br.SSIM, err = strconv.ParseFloat(fields[i+1], 64); err != nil {
			return Record{}, fmt.Errorf("%s ssim: %w", br.Name, err)
		}
		rec.Benchmarks = append(rec.Benchmarks, br)
	}
	return rec, nil
}
