// Package ingest reads gaze logs from delimited text files.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/verte-zerg/gazereport/internal/model"
)

// Column names recognised in the header row.
const (
	ColDuration  = "duration"
	ColTimestamp = "timestamp"
	ColX         = "x"
	ColY         = "y"
)

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

// RequiredColumns lists the header columns a variant needs.
func RequiredColumns(variant model.Variant) []string {
	if variant == model.VariantAOI {
		return []string{ColDuration, ColTimestamp, ColX, ColY}
	}
	return []string{ColDuration, ColTimestamp}
}

// WorkerID derives the worker identifier from a file name.
func WorkerID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Delimiter returns the field separator used for the file extension.
func Delimiter(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

// Load reads one worker's gaze log.
func Load(path string, variant model.Variant) (model.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.Dataset{}, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only input.
			_ = cerr
		}
	}()

	samples, err := Parse(file, Delimiter(path), variant)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return model.Dataset{
		WorkerID: WorkerID(path),
		Source:   path,
		Samples:  samples,
	}, nil
}

// Parse decodes samples from r. Rows are not validated beyond numeric parsing:
// a blank or missing cell becomes NaN, which the metrics skip.
func Parse(r io.Reader, delim rune, variant model.Variant) ([]model.GazeSample, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("no header row: %w", ErrMissingColumns)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := headerIndex(header)

	required := RequiredColumns(variant)
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var samples []model.GazeSample
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		fields := make(map[string]float64, len(required))
		for _, col := range required {
			raw := ""
			if i := index[col]; i < len(record) {
				raw = strings.TrimSpace(record[i])
			}
			if raw == "" {
				fields[col] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %q: invalid number %q", line, col, raw)
			}
			fields[col] = v
		}
		samples = append(samples, model.GazeSample{
			X:         fields[ColX],
			Y:         fields[ColY],
			Timestamp: fields[ColTimestamp],
			Duration:  fields[ColDuration],
		})
	}
	return samples, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := index[name]; ok {
			continue
		}
		index[name] = i
	}
	return index
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
