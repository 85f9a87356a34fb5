// Package store implements the embedded vocabulary table store.
//
// A store is a root directory holding one subdirectory per table, named
// "<table><TableSuffix>", each containing a SQLite data file. The writer also
// maintains a catalog database at the root listing registered table names; the
// catalog is an optional capability, readers must cope with its absence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// TableSuffix is the fixed storage-format suffix appended to table
	// directory names.
	TableSuffix = ".table"

	dataFile    = "vocab.db"
	catalogFile = "catalog.db"
)

// ErrNoCatalog is returned by ListTables when the store has no catalog
// database (e.g. the tables were copied in by hand).
var ErrNoCatalog = errors.New("store: catalog not available")

// Conn is a handle to a store root. It is cheap to create and holds no
// open files; tables opened through it must be closed individually.
type Conn struct {
	root string
}

// Connect opens a connection scoped to the store root directory.
// The root must already exist; this package never creates it implicitly.
func Connect(root string) (*Conn, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("store: open root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store: root %s is not a directory", root)
	}
	return &Conn{root: root}, nil
}

// Root returns the store root directory.
func (c *Conn) Root() string {
	return c.root
}

// ListTables enumerates table names from the catalog database. The catalog is
// authoritative when present; ErrNoCatalog is returned when it does not exist.
func (c *Conn) ListTables() ([]string, error) {
	path := filepath.Join(c.root, catalogFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCatalog
		}
		return nil, fmt.Errorf("store: stat catalog: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open catalog: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM tables ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: read catalog: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ScanTables enumerates table names by inspecting the on-disk layout directly,
// independent of the catalog. Used for diagnostics when the catalog is absent
// or suspected stale.
func (c *Conn) ScanTables() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, fmt.Errorf("store: scan root: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasSuffix(e.Name(), TableSuffix) {
			names = append(names, strings.TrimSuffix(e.Name(), TableSuffix))
		}
	}
	return names, nil
}

// OpenTable opens a table by its registered name. It consults the catalog and
// fails if the catalog is missing or the name is not registered there.
func (c *Conn) OpenTable(name string) (*Table, error) {
	names, err := c.ListTables()
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if n == name {
			return c.openDir(name, c.tableDir(name))
		}
	}
	return nil, fmt.Errorf("store: table %q not registered in catalog", name)
}

// Table opens a table by deriving its directory from the name, bypassing the
// catalog. The name may be given with or without the storage suffix.
func (c *Conn) Table(name string) (*Table, error) {
	return c.openDir(strings.TrimSuffix(name, TableSuffix), c.tableDir(name))
}

// Get is the lenient accessor: it tolerates surrounding whitespace and
// case differences by scanning the on-disk layout for a match.
func (c *Conn) Get(name string) (*Table, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(name, TableSuffix))
	if t, err := c.Table(trimmed); err == nil {
		return t, nil
	}
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, fmt.Errorf("store: scan root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), TableSuffix) {
			continue
		}
		base := strings.TrimSuffix(e.Name(), TableSuffix)
		if strings.EqualFold(base, trimmed) {
			return c.openDir(base, filepath.Join(c.root, e.Name()))
		}
	}
	return nil, fmt.Errorf("store: no table matching %q", name)
}

// CreateTable creates the table directory and data file and registers the name
// in the catalog, creating the catalog if needed. Existing tables are reused.
func (c *Conn) CreateTable(ctx context.Context, name string) (*Table, error) {
	dir := c.tableDir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: create table dir: %w", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, dataFile))
	if err != nil {
		return nil, fmt.Errorf("store: open data file: %w", err)
	}
	if _, err := db.ExecContext(ctx, vocabularySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	if err := c.register(ctx, name); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Table{name: name, dir: dir, db: db}, nil
}

func (c *Conn) register(ctx context.Context, name string) error {
	db, err := sql.Open("sqlite3", filepath.Join(c.root, catalogFile))
	if err != nil {
		return fmt.Errorf("store: open catalog: %w", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS tables (
			name TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("store: init catalog: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tables (name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("store: register table: %w", err)
	}
	return nil
}

func (c *Conn) tableDir(name string) string {
	if strings.HasSuffix(name, TableSuffix) {
		return filepath.Join(c.root, name)
	}
	return filepath.Join(c.root, name+TableSuffix)
}

func (c *Conn) openDir(name, dir string) (*Table, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("store: table %q: %w", name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store: table %q: %s is not a directory", name, dir)
	}
	path := filepath.Join(dir, dataFile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("store: table %q has no data file: %w", name, err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open table %q: %w", name, err)
	}
	// The client only understands its own schema. Data files written by other
	// tools stay readable through the raw dataset reader, never through here.
	var have string
	err = db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'vocabulary'`,
	).Scan(&have)
	if err != nil {
		_ = db.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: table %q: data file has no vocabulary schema", name)
		}
		return nil, fmt.Errorf("store: table %q: %w", name, err)
	}
	return &Table{name: name, dir: dir, db: db}, nil
}

// DataFilePath returns the path of the data file inside a table directory.
// Exposed for the raw dataset reader, which bypasses the table client.
func DataFilePath(tableDir string) string {
	return filepath.Join(tableDir, dataFile)
}
