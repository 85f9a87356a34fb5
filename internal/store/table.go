package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/deutschlab/wortwerk/internal/models"
)

const vocabularySchema = `
CREATE TABLE IF NOT EXISTS vocabulary (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	german_term TEXT NOT NULL,
	english_translation TEXT NOT NULL,
	embedding BLOB NOT NULL
);
`

// Table is an open vocabulary table.
type Table struct {
	name string
	dir  string
	db   *sql.DB
}

// Name returns the table name without the storage suffix.
func (t *Table) Name() string {
	return t.name
}

// Dir returns the table directory on disk.
func (t *Table) Dir() string {
	return t.dir
}

// Close releases the underlying database handle.
func (t *Table) Close() error {
	return t.db.Close()
}

// Insert appends a vocabulary row with its embedding vector.
func (t *Table) Insert(ctx context.Context, entry models.VocabularyEntry, embedding []float32) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO vocabulary (german_term, english_translation, embedding) VALUES (?, ?, ?)`,
		entry.GermanTerm, entry.EnglishTranslation, EncodeVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("store: insert row: %w", err)
	}
	return nil
}

// Count returns the number of rows in the table.
func (t *Table) Count(ctx context.Context) (int64, error) {
	var n int64
	err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vocabulary`).Scan(&n)
	return n, err
}

// Rows returns all entries in insertion order, without embeddings.
func (t *Table) Rows(ctx context.Context) ([]models.VocabularyEntry, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT german_term, english_translation FROM vocabulary ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: read rows: %w", err)
	}
	defer rows.Close()

	var out []models.VocabularyEntry
	for rows.Next() {
		var e models.VocabularyEntry
		if err := rows.Scan(&e.GermanTerm, &e.EnglishTranslation); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Match is a similarity search hit. Distance is cosine distance, so lower
// means more similar.
type Match struct {
	Entry    models.VocabularyEntry
	Distance float64
}

// Search starts a nearest-neighbor query against the embedding column.
// Call Limit and then Rows to execute.
func (t *Table) Search(vector []float32) *Search {
	return &Search{table: t, vector: vector, limit: 10}
}

// Search is a pending similarity query.
type Search struct {
	table  *Table
	vector []float32
	limit  int
}

// Limit caps the number of returned matches. Non-positive values leave the
// default of 10 in place.
func (s *Search) Limit(n int) *Search {
	if n > 0 {
		s.limit = n
	}
	return s
}

// Rows executes the search and returns matches ordered by ascending distance.
// The scan is brute force over all rows; vocabulary tables are small.
func (s *Search) Rows(ctx context.Context) ([]Match, error) {
	rows, err := s.table.db.QueryContext(ctx,
		`SELECT german_term, english_translation, embedding FROM vocabulary`)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var e models.VocabularyEntry
		var blob []byte
		if err := rows.Scan(&e.GermanTerm, &e.EnglishTranslation, &blob); err != nil {
			return nil, err
		}
		vec := DecodeVector(blob)
		if len(vec) != len(s.vector) {
			return nil, fmt.Errorf("store: embedding dimension mismatch: row has %d, query has %d",
				len(vec), len(s.vector))
		}
		matches = append(matches, Match{Entry: e, Distance: CosineDistance(s.vector, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > s.limit {
		matches = matches[:s.limit]
	}
	return matches, nil
}
