// Package dataset reads a table directory's raw data file directly, bypassing
// the store client. It is the last-resort access path when the client cannot
// open a table: the file is introspected generically, so it works even when
// the table was written with an unexpected schema. The reader has no
// similarity search; callers taking rows from here get unranked data.
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deutschlab/wortwerk/internal/store"
)

// Dataset is an open raw data file.
type Dataset struct {
	path string
	db   *sql.DB
}

// Open opens the data file inside the given table directory.
func Open(tableDir string) (*Dataset, error) {
	path := store.DataFilePath(tableDir)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	return &Dataset{path: path, db: db}, nil
}

// Close releases the underlying handle.
func (d *Dataset) Close() error {
	return d.db.Close()
}

// ReadAll returns the ordered column names and every row of the first user
// table in the file, with all values rendered as strings. BLOB columns are
// skipped; they carry embeddings, which unranked consumers have no use for.
func (d *Dataset) ReadAll(ctx context.Context) (columns []string, rows []map[string]string, err error) {
	var table string
	err = d.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid LIMIT 1`,
	).Scan(&table)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("dataset: %s contains no tables", d.path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: introspect %s: %w", d.path, err)
	}

	res, err := d.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %q`, table))
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: read %s: %w", table, err)
	}
	defer res.Close()

	all, err := res.Columns()
	if err != nil {
		return nil, nil, err
	}
	types, err := res.ColumnTypes()
	if err != nil {
		return nil, nil, err
	}
	keep := make([]bool, len(all))
	for i, t := range types {
		if t.DatabaseTypeName() != "BLOB" {
			keep[i] = true
			columns = append(columns, all[i])
		}
	}

	values := make([]any, len(all))
	ptrs := make([]any, len(all))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for res.Next() {
		if err := res.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]string, len(columns))
		for i, col := range all {
			if !keep[i] {
				continue
			}
			row[col] = renderValue(values[i])
		}
		rows = append(rows, row)
	}
	return columns, rows, res.Err()
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}
