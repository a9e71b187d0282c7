package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite stores tables as JSON-encoded rows in a single database file.
// It exists for local development and tests; production runs against
// the Sheets backend.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path. Use ":memory:"
// for an ephemeral store.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheet_tables (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS sheet_rows (
		tbl TEXT NOT NULL,
		rownum INTEGER NOT NULL,
		cells TEXT NOT NULL,
		PRIMARY KEY (tbl, rownum)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateTable registers a table name. ErrAlreadyExists if taken.
func (s *SQLite) CreateTable(ctx context.Context, table string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sheet_tables (name) VALUES (?)`, table)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "constraint failed") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (s *SQLite) tableExists(ctx context.Context, table string) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM sheet_tables WHERE name = ?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReadRange returns the cells inside the range, sliced to the range's
// column bounds and trimmed to the used extent.
func (s *SQLite) ReadRange(ctx context.Context, table, rangeSpec string) ([][]string, error) {
	ok, err := s.tableExists(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("read range %s!%s: %w", table, rangeSpec, err)
	}
	if !ok {
		return nil, fmt.Errorf("read range %s!%s: %w", table, rangeSpec, ErrTableNotFound)
	}

	r, err := ParseRange(rangeSpec)
	if err != nil {
		return nil, err
	}

	query := `SELECT rownum, cells FROM sheet_rows WHERE tbl = ? AND rownum >= ?`
	args := []any{table, max(r.StartRow, 1)}
	if r.EndRow > 0 {
		query += ` AND rownum <= ?`
		args = append(args, r.EndRow)
	}
	query += ` ORDER BY rownum`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read range %s!%s: %w", table, rangeSpec, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var rownum int
		var cellsJSON string
		if err := rows.Scan(&rownum, &cellsJSON); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(cellsJSON), &cells); err != nil {
			return nil, fmt.Errorf("decode row %d of %s: %w", rownum, table, err)
		}
		out = append(out, sliceColumns(cells, r))
	}
	return out, rows.Err()
}

// WriteRange overwrites whole rows starting at the range's first row.
// Like the Sheets API, writing more rows than a bounded range allows
// is an error. Column offsets other than A are not needed by this
// system.
func (s *SQLite) WriteRange(ctx context.Context, table, rangeSpec string, values [][]string) error {
	ok, err := s.tableExists(ctx, table)
	if err != nil {
		return fmt.Errorf("write range %s!%s: %w", table, rangeSpec, err)
	}
	if !ok {
		return fmt.Errorf("write range %s!%s: %w", table, rangeSpec, ErrTableNotFound)
	}

	r, err := ParseRange(rangeSpec)
	if err != nil {
		return err
	}
	start := max(r.StartRow, 1)
	if r.EndRow > 0 && len(values) > r.EndRow-start+1 {
		return fmt.Errorf("write range %s!%s: %d rows exceed range bounds", table, rangeSpec, len(values))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, row := range values {
		cells, err := json.Marshal(row)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sheet_rows (tbl, rownum, cells) VALUES (?, ?, ?)
			 ON CONFLICT(tbl, rownum) DO UPDATE SET cells = excluded.cells`,
			table, start+i, string(cells),
		)
		if err != nil {
			return fmt.Errorf("write row %d of %s: %w", start+i, table, err)
		}
	}
	return tx.Commit()
}

// AppendRows adds values after the last used row of the table.
func (s *SQLite) AppendRows(ctx context.Context, table, rangeSpec string, values [][]string) error {
	ok, err := s.tableExists(ctx, table)
	if err != nil {
		return fmt.Errorf("append to %s: %w", table, err)
	}
	if !ok {
		return fmt.Errorf("append to %s: %w", table, ErrTableNotFound)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(rownum) FROM sheet_rows WHERE tbl = ?`, table,
	).Scan(&last); err != nil {
		return fmt.Errorf("append to %s: %w", table, err)
	}
	next := int(last.Int64) + 1

	for i, row := range values {
		cells, err := json.Marshal(row)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sheet_rows (tbl, rownum, cells) VALUES (?, ?, ?)`,
			table, next+i, string(cells),
		)
		if err != nil {
			return fmt.Errorf("append row to %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// sliceColumns trims a stored row to the range's column bounds.
func sliceColumns(cells []string, r Range) []string {
	start := max(r.StartCol, 1) - 1
	if start >= len(cells) {
		return nil
	}
	end := len(cells)
	if r.EndCol > 0 && r.EndCol < end {
		end = r.EndCol
	}
	return cells[start:end]
}
