// Package store abstracts the tabular backend that holds the admin
// configuration table and the per-cohort result tables. Two backends
// implement it: Google Sheets for production and SQLite for local
// development and tests.
package store

import (
	"context"
	"errors"
)

// ErrAlreadyExists is returned by CreateTable when a table with the
// requested name already exists. Callers racing to create the same
// result table treat it as success.
var ErrAlreadyExists = errors.New("table already exists")

// ErrTableNotFound is returned by range operations against a table
// that does not exist.
var ErrTableNotFound = errors.New("table not found")

// Tabular is a remote table store addressed by table name and A1-style
// range specs.
type Tabular interface {
	// ReadRange returns the cell values inside the range, trimmed to
	// the used extent. Rows may be ragged.
	ReadRange(ctx context.Context, table, rangeSpec string) ([][]string, error)

	// WriteRange overwrites the cells of the range positionally.
	// Supplying more rows than a bounded range can hold is an error.
	WriteRange(ctx context.Context, table, rangeSpec string, values [][]string) error

	// AppendRows appends values after the last used row within the
	// range's columns.
	AppendRows(ctx context.Context, table, rangeSpec string, values [][]string) error

	// CreateTable creates an empty table. Returns ErrAlreadyExists if
	// the name is taken.
	CreateTable(ctx context.Context, table string) error
}
