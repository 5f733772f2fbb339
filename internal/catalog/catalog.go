// Package catalog serves metadata about the live store: table listings,
// schemas, sample rows, and generated example queries. All reads go
// against sqlite_master and PRAGMA table_info, so the catalog is always
// consistent with whatever ingestion last materialized.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	qerrors "github.com/quarrydb/quarry/internal/errors"
	"github.com/quarrydb/quarry/internal/store"
	"github.com/quarrydb/quarry/pkg/types"
)

// defaultSampleRows bounds Sample when the caller does not pick a limit.
const defaultSampleRows = 5

// Catalog answers metadata queries for one store.
type Catalog struct {
	store *store.Store
}

// New creates a catalog over the given store.
func New(s *store.Store) *Catalog {
	return &Catalog{store: s}
}

// ListTables returns every user table with its row count, sorted by name.
func (c *Catalog) ListTables(ctx context.Context) ([]types.Table, error) {
	names, err := c.store.TableNames(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]types.Table, 0, len(names))
	for _, name := range names {
		var count int64
		// Table names come from sqlite_master, not user input.
		err := c.store.Read().QueryRowContext(ctx,
			fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, name)).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("catalog: failed to count rows in %s: %w", name, err)
		}
		tables = append(tables, types.Table{Name: name, RowCount: count})
	}
	return tables, nil
}

// Schema returns column definitions for every user table.
func (c *Catalog) Schema(ctx context.Context) (map[string][]types.Column, error) {
	names, err := c.store.TableNames(ctx)
	if err != nil {
		return nil, err
	}

	schema := make(map[string][]types.Column, len(names))
	for _, name := range names {
		cols, err := c.tableColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		schema[name] = cols
	}
	return schema, nil
}

// TableSchema returns the column definitions of one table.
func (c *Catalog) TableSchema(ctx context.Context, table string) ([]types.Column, error) {
	if err := c.requireTable(ctx, table); err != nil {
		return nil, err
	}
	return c.tableColumns(ctx, table)
}

// Sample returns up to limit rows from the named table. The name is
// validated against the live table list before being interpolated, so
// arbitrary identifiers never reach the engine.
func (c *Catalog) Sample(ctx context.Context, table string, limit int) ([]map[string]interface{}, error) {
	if err := c.requireTable(ctx, table); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSampleRows
	}

	rows, err := c.store.Read().QueryContext(ctx,
		fmt.Sprintf(`SELECT * FROM "%s" LIMIT %d`, table, limit))
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to sample %s: %w", table, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// SampleQueries generates ready-to-run example queries from the current
// schema: a basic select per table, an aggregate when a numeric column
// exists, and a join when two tables share a column name.
func (c *Catalog) SampleQueries(ctx context.Context) ([]string, error) {
	schema, err := c.Schema(ctx)
	if err != nil {
		return nil, err
	}

	names, err := c.store.TableNames(ctx)
	if err != nil {
		return nil, err
	}

	var queries []string
	for _, name := range names {
		queries = append(queries, fmt.Sprintf(`SELECT * FROM "%s" LIMIT 10`, name))

		for _, col := range schema[name] {
			if col.Type == types.StorageInteger || col.Type == types.StorageReal {
				queries = append(queries, fmt.Sprintf(
					`SELECT COUNT(*), AVG("%s") FROM "%s"`, col.Name, name))
				break
			}
		}
	}

	if join := c.joinQuery(names, schema); join != "" {
		queries = append(queries, join)
	}
	return queries, nil
}

// joinQuery returns one join example over the first shared column name
// between two tables, or "" when none exists.
func (c *Catalog) joinQuery(names []string, schema map[string][]types.Column) string {
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			for _, a := range schema[names[i]] {
				for _, b := range schema[names[j]] {
					if strings.EqualFold(a.Name, b.Name) {
						return fmt.Sprintf(
							`SELECT * FROM "%s" a JOIN "%s" b ON a."%s" = b."%s" LIMIT 10`,
							names[i], names[j], a.Name, b.Name)
					}
				}
			}
		}
	}
	return ""
}

func (c *Catalog) requireTable(ctx context.Context, table string) error {
	ok, err := c.store.HasTable(ctx, table)
	if err != nil {
		return err
	}
	if !ok {
		return qerrors.NewCatalogError(qerrors.CodeUnknownTable,
			fmt.Sprintf("unknown table %q", table))
	}
	return nil
}

func (c *Catalog) tableColumns(ctx context.Context, table string) ([]types.Column, error) {
	rows, err := c.store.Read().QueryContext(ctx,
		fmt.Sprintf(`PRAGMA table_info("%s")`, table))
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to read schema for %s: %w", table, err)
	}
	defer rows.Close()

	var cols []types.Column
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("catalog: failed to scan column for %s: %w", table, err)
		}
		cols = append(cols, types.Column{
			Name:       name,
			Type:       typ,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: failed to iterate columns for %s: %w", table, err)
	}
	return cols, nil
}

// scanRows converts a result set into JSON-friendly row maps.
func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to read columns: %w", err)
	}

	var out []map[string]interface{}
	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("catalog: failed to scan row: %w", err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: failed to iterate rows: %w", err)
	}
	return out, nil
}
