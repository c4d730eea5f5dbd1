// Package warehouse loads the star schema into queryable sinks.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/newthinker/nseetl/internal/core"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Table names, shared with the workbook sheets
const (
	TableFactBhav = "fact_bhavdata"
	TableFactMA   = "fact_MA_report"
	TableDimDate  = "dim_datetime"
)

const dateLayout = "2006-01-02"

var schemaDDL = []string{
	`DROP TABLE IF EXISTS ` + TableFactBhav,
	`CREATE TABLE ` + TableFactBhav + ` (
		ID_BHAV INTEGER PRIMARY KEY,
		SYMBOL TEXT NOT NULL,
		SECTOR TEXT NOT NULL,
		DATE TEXT NOT NULL,
		LAST_PRICE REAL NOT NULL
	)`,
	`DROP TABLE IF EXISTS ` + TableFactMA,
	`CREATE TABLE ` + TableFactMA + ` (
		ID_MA INTEGER PRIMARY KEY,
		SECTOR TEXT NOT NULL,
		DATE TEXT NOT NULL,
		CLOSE REAL NOT NULL
	)`,
	`DROP TABLE IF EXISTS ` + TableDimDate,
	`CREATE TABLE ` + TableDimDate + ` (
		ID_DATETIME INTEGER PRIMARY KEY,
		DATE TEXT NOT NULL UNIQUE,
		DAY INTEGER NOT NULL,
		WEEKDAY INTEGER NOT NULL,
		WEEK INTEGER NOT NULL,
		MONTH INTEGER NOT NULL,
		QUARTER INTEGER NOT NULL,
		YEAR INTEGER NOT NULL,
		FLAG TEXT NOT NULL
	)`,
}

// SQLite replaces the star schema tables in a SQLite database file
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path
func OpenSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, core.WrapError(core.ErrStorage, fmt.Errorf("creating %s: %w", dir, err))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStorage, fmt.Errorf("opening %s: %w", path, err))
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		logger.Warn("failed to set WAL mode", zap.Error(err))
	}

	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Name() string {
	return "sqlite"
}

// DB exposes the underlying handle for queries
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load recreates the three tables and inserts the schema in one transaction
func (s *SQLite) Load(ctx context.Context, schema *core.StarSchema) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrStorage, err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaDDL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return core.WrapError(core.ErrStorage, fmt.Errorf("recreating tables: %w", err))
		}
	}

	if err := insertAll(ctx, tx,
		`INSERT INTO `+TableFactBhav+` (ID_BHAV, SYMBOL, SECTOR, DATE, LAST_PRICE) VALUES (?, ?, ?, ?, ?)`,
		len(schema.FactBhav), func(i int) []any {
			f := schema.FactBhav[i]
			return []any{f.ID, f.Symbol, f.Sector, f.Date.Format(dateLayout), f.LastPrice}
		}); err != nil {
		return err
	}

	if err := insertAll(ctx, tx,
		`INSERT INTO `+TableFactMA+` (ID_MA, SECTOR, DATE, CLOSE) VALUES (?, ?, ?, ?)`,
		len(schema.FactMA), func(i int) []any {
			f := schema.FactMA[i]
			return []any{f.ID, f.Sector, f.Date.Format(dateLayout), f.Close}
		}); err != nil {
		return err
	}

	if err := insertAll(ctx, tx,
		`INSERT INTO `+TableDimDate+` (ID_DATETIME, DATE, DAY, WEEKDAY, WEEK, MONTH, QUARTER, YEAR, FLAG) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(schema.Dates), func(i int) []any {
			d := schema.Dates[i]
			return []any{d.ID, d.Date.Format(dateLayout), d.Day, d.Weekday, d.Week, d.Month, d.Quarter, d.Year, d.Flag}
		}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrStorage, err)
	}

	s.logger.Debug("sqlite warehouse loaded",
		zap.Int(TableFactBhav, len(schema.FactBhav)),
		zap.Int(TableFactMA, len(schema.FactMA)),
		zap.Int(TableDimDate, len(schema.Dates)),
	)
	return nil
}

func insertAll(ctx context.Context, tx *sql.Tx, query string, n int, args func(int) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return core.WrapError(core.ErrStorage, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return core.WrapError(core.ErrStorage, fmt.Errorf("row %d: %w", i, err))
		}
	}
	return nil
}
