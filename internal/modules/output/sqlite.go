// Package output provides implementations for writer modules.
// This file implements the SQLite writer: it creates a table matching the
// field schema and bulk-inserts the filtered rows inside a single
// transaction, so a failed run leaves no partial artifact behind.
package output

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/glebarez/go-sqlite"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/logger"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/table"
)

// DefaultSQLiteTable is the destination table name when none is
// configured.
const DefaultSQLiteTable = "population"

// SQLiteConfig represents the configuration for a SQLite writer module.
type SQLiteConfig struct {
	// Path is the database file path (required).
	Path string `json:"path"`
	// Table is the destination table name. Defaults to "population".
	Table string `json:"table,omitempty"`
}

// SQLiteModule writes the filtered table into a SQLite database.
type SQLiteModule struct {
	config SQLiteConfig
	db     *sql.DB
}

// ParseSQLiteConfig parses a raw configuration map into SQLiteConfig.
func ParseSQLiteConfig(config map[string]interface{}) (SQLiteConfig, error) {
	var cfg SQLiteConfig
	path, ok := config["path"].(string)
	if !ok || path == "" {
		return cfg, errors.New("'path' is required and must be a non-empty string")
	}
	cfg.Path = path
	if tbl, ok := config["table"].(string); ok {
		cfg.Table = tbl
	}
	return cfg, nil
}

// NewSQLiteFromConfig creates a new SQLite writer module from
// configuration.
func NewSQLiteFromConfig(config SQLiteConfig) (*SQLiteModule, error) {
	if config.Path == "" {
		return nil, errors.New("path is required")
	}
	if config.Table == "" {
		config.Table = DefaultSQLiteTable
	}
	if !validIdentifier(config.Table) {
		return nil, fmt.Errorf("invalid table name %q", config.Table)
	}
	return &SQLiteModule{config: config}, nil
}

// Write creates the destination table and inserts all rows in one
// transaction.
func (m *SQLiteModule) Write(ctx context.Context, t *table.Table) (int, error) {
	if m.db != nil {
		m.db.Close()
	}
	db, err := sql.Open("sqlite", m.config.Path)
	if err != nil {
		return 0, fmt.Errorf("opening database: %w", err)
	}
	m.db = db

	cols := t.Columns()
	if err := m.createTable(ctx, cols); err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	written, err := insertRows(ctx, tx, m.config.Table, t)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}

	logger.Info("sqlite output written",
		slog.String("path", m.config.Path),
		slog.String("table", m.config.Table),
		slog.Int("rows", written),
	)
	return written, nil
}

// createTable drops and recreates the destination table to match the
// field schema. Integer and numeric-code columns become INTEGER; text and
// padded codes become TEXT; fixed-point columns become REAL.
func (m *SQLiteModule) createTable(ctx context.Context, cols []table.Column) error {
	defs := make([]string, len(cols))
	for i, c := range cols {
		if !validIdentifier(c.Name) {
			return fmt.Errorf("invalid column name %q", c.Name)
		}
		defs[i] = fmt.Sprintf("%q %s", c.Name, sqliteType(&c))
	}

	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", m.config.Table)); err != nil {
		return fmt.Errorf("dropping table: %w", err)
	}
	ddl := fmt.Sprintf("CREATE TABLE %q (%s)", m.config.Table, strings.Join(defs, ", "))
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	return nil
}

// insertRows bulk-inserts all rows with one prepared statement.
func insertRows(ctx context.Context, tx *sql.Tx, tableName string, t *table.Table) (int, error) {
	cols := t.Columns()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %q VALUES (%s)", tableName, placeholders))
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		if i%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return i, ctx.Err()
			default:
			}
		}
		for j := range cols {
			args[j] = cellArg(&cols[j], i)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return i, fmt.Errorf("inserting row %d: %w", i, err)
		}
	}
	return t.NumRows(), nil
}

// cellArg converts a cell to its SQL argument.
func cellArg(c *table.Column, i int) interface{} {
	switch c.Kind {
	case table.KindInt:
		if c.Scale > 0 {
			return float64(c.Ints[i]) / scaleFactor(c.Scale)
		}
		return c.Ints[i]
	default:
		return c.Strs[i]
	}
}

// sqliteType maps a column to its SQLite column type.
func sqliteType(c *table.Column) string {
	if c.Kind == table.KindInt {
		if c.Scale > 0 {
			return "REAL"
		}
		return "INTEGER"
	}
	return "TEXT"
}

// scaleFactor returns 10^scale.
func scaleFactor(scale int) float64 {
	f := 1.0
	for i := 0; i < scale; i++ {
		f *= 10
	}
	return f
}

// validIdentifier restricts table and column names to word characters.
func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// Close releases the database handle.
func (m *SQLiteModule) Close() error {
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

var _ Module = (*SQLiteModule)(nil)
