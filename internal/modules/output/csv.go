// Package output provides implementations for writer modules.
// This file implements the CSV writer. Columns follow the field schema
// order; fixed-point fields are rendered with their implied decimal point
// restored.
package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/logger"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/table"
)

// ctxCheckInterval is how many rows are written between context checks.
const ctxCheckInterval = 4096

// CSVConfig represents the configuration for a CSV writer module.
type CSVConfig struct {
	// Path is the output file path. Empty or "-" writes to stdout.
	Path string `json:"path,omitempty"`
	// NoHeader suppresses the header row.
	NoHeader bool `json:"noHeader,omitempty"`
}

// CSVModule writes the filtered table as CSV.
type CSVModule struct {
	config CSVConfig
}

// ParseCSVConfig parses a raw configuration map into CSVConfig.
func ParseCSVConfig(config map[string]interface{}) (CSVConfig, error) {
	var cfg CSVConfig
	if path, ok := config["path"].(string); ok {
		cfg.Path = path
	}
	if v, ok := config["noHeader"].(bool); ok {
		cfg.NoHeader = v
	}
	return cfg, nil
}

// NewCSVFromConfig creates a new CSV writer module from configuration.
func NewCSVFromConfig(config CSVConfig) (*CSVModule, error) {
	return &CSVModule{config: config}, nil
}

// Write serializes the table to the configured destination.
// On any error the partially written file is removed: the run produces
// either a complete artifact or none.
func (m *CSVModule) Write(ctx context.Context, t *table.Table) (int, error) {
	var dst io.Writer
	var file *os.File

	if m.config.Path == "" || m.config.Path == "-" {
		dst = os.Stdout
	} else {
		f, err := os.Create(m.config.Path)
		if err != nil {
			return 0, fmt.Errorf("creating output file: %w", err)
		}
		file = f
		dst = f
	}

	written, err := m.writeTable(ctx, dst, t)
	if file != nil {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(m.config.Path)
		}
	}
	if err != nil {
		return 0, err
	}

	logger.Info("csv output written",
		slog.String("path", m.config.Path),
		slog.Int("rows", written),
	)
	return written, nil
}

// writeTable writes the header and all rows.
func (m *CSVModule) writeTable(ctx context.Context, dst io.Writer, t *table.Table) (int, error) {
	w := csv.NewWriter(dst)
	cols := t.Columns()

	if !m.config.NoHeader {
		if err := w.Write(t.Fields()); err != nil {
			return 0, err
		}
	}

	record := make([]string, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		if i%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return i, ctx.Err()
			default:
			}
		}
		for j := range cols {
			record[j] = table.RenderCell(&cols[j], i)
		}
		if err := w.Write(record); err != nil {
			return i, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	return t.NumRows(), nil
}

// Close implements the Module interface; the CSV module holds no
// resources between Write calls.
func (m *CSVModule) Close() error {
	return nil
}

var _ Module = (*CSVModule)(nil)
