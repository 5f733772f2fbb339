// Package types defines the shared data model for the Quarry system:
// tables and columns as seen by the catalog, query requests and results,
// and ingestion batch outcomes.
package types

// Column describes a single column of a materialized table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"pk"`
}

// Table describes a materialized table: its sanitized name, ordered
// columns, and current row count. Tables are created whole by ingestion
// and replaced whole on re-ingestion; they are never partially updated.
type Table struct {
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
	RowCount int64    `json:"row_count"`
}

// SQLite storage types used by the ingestion pipeline and reported by the
// catalog. Money columns use StorageInteger and hold minor units (cents).
const (
	StorageText    = "TEXT"
	StorageInteger = "INTEGER"
	StorageReal    = "REAL"
)
