// Package dbwalk enumerates database rows as discovery items. Each root
// spec is a SQL query whose first column is the item key and whose second
// column is the candidate name; any further columns ride along as the
// item payload.
package dbwalk

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/marcelocantos/capexec/internal/source"
)

// Querier is the query surface the adapter needs. *pgxpool.Pool satisfies
// it; tests substitute a fake.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Row is the raw item carried on each Encountered.
type Row struct {
	Key    string
	Name   string
	Values []any
}

// SelectName extracts the candidate name from an item enumerated by this
// adapter; pass it as the walker's name selector.
func SelectName(e source.Encountered) string {
	if r, ok := e.Item.(Row); ok {
		return r.Name
	}
	return ""
}

// Adapter enumerates rows from SQL query specs.
type Adapter struct {
	DB Querier
}

// Enumerate runs each query spec in order. A query that fails to execute
// is reported through onInvalid and skipped; a scan failure mid-query
// surfaces through Err.
func (a *Adapter) Enumerate(ctx context.Context, specs []string, onInvalid source.InvalidSpecFunc) source.Iterator {
	var items []source.Encountered
	for _, query := range specs {
		rows, err := a.DB.Query(ctx, query)
		if err != nil {
			if onInvalid != nil {
				onInvalid(query, err.Error())
			}
			continue
		}
		batch, err := collectRows(query, rows)
		items = append(items, batch...)
		if err != nil {
			return source.NewSliceIterator(items, err)
		}
	}
	return source.NewSliceIterator(items, nil)
}

func collectRows(query string, rows pgx.Rows) ([]source.Encountered, error) {
	defer rows.Close()
	var items []source.Encountered
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return items, fmt.Errorf("scan row: %w", err)
		}
		if len(values) < 2 {
			return items, fmt.Errorf("query must select key and name columns: %s", query)
		}
		row := Row{
			Key:    fmt.Sprint(values[0]),
			Name:   fmt.Sprint(values[1]),
			Values: values,
		}
		item := source.Encountered{Key: row.Key, Spec: query, Item: row}
		if len(values) > 2 {
			item.Payload = values[2:]
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return items, fmt.Errorf("enumerate rows: %w", err)
	}
	return items, nil
}
