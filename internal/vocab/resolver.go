// Package vocab resolves (query, level) pairs into ranked vocabulary lists.
//
// The defining design choice is the table-resolution ladder: rather than
// trusting a single open call, the resolver enumerates the store catalog,
// resolves the identifier (exact, then case-insensitive, then the expected
// name itself), tries every client access convention for it, probes the
// on-disk layout, and finally falls back to the raw dataset reader. It fails
// only after all of that, and the failure carries the whole attempt history.
// The ladder trades latency for robustness against naming drift between the
// writer and reader of the store.
package vocab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/deutschlab/wortwerk/internal/dataset"
	"github.com/deutschlab/wortwerk/internal/embedding"
	"github.com/deutschlab/wortwerk/internal/models"
	"github.com/deutschlab/wortwerk/internal/store"
)

// DefaultLimit is the vocabulary list cap when the caller does not set one.
const DefaultLimit = 10

// Result sources. Anything other than SourceSearch means degraded relevance.
const (
	SourceSearch  = "search"  // ranked nearest-neighbor result
	SourceKeyword = "keyword" // embedding model unavailable, textual match
	SourceDataset = "dataset" // raw reader fallback, first-N unranked rows
)

// Result is the outcome of a vocabulary fetch. Ranked is false on the
// degraded paths so callers can tell real similarity ranking from fallbacks.
type Result struct {
	Table   string
	Entries []models.VocabularyEntry
	Ranked  bool
	Source  string
}

// KeywordSearcher matches entries against a query textually. Used when the
// embedding model cannot be loaded.
type KeywordSearcher interface {
	Search(query string, entries []models.VocabularyEntry, limit int) ([]models.VocabularyEntry, error)
}

// Resolver fetches vocabulary from the embedded store.
type Resolver struct {
	root     string
	provider *embedding.Provider
	logger   *zap.Logger
	keyword  KeywordSearcher
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger attaches a logger for resolution diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithKeywordFallback enables the textual fallback used when the embedding
// model cannot be constructed.
func WithKeywordFallback(k KeywordSearcher) Option {
	return func(r *Resolver) { r.keyword = k }
}

// NewResolver returns a resolver over the store at root. The embedding model
// behind provider is constructed lazily on the first ranked search.
func NewResolver(root string, provider *embedding.Provider, opts ...Option) *Resolver {
	r := &Resolver{root: root, provider: provider, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchVocabulary returns at most n entries for the level's table, ranked by
// similarity to query. n defaults to DefaultLimit when non-positive. An empty
// table yields an empty result, not an error.
func (r *Resolver) FetchVocabulary(ctx context.Context, query string, level models.Level, n int) (*Result, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %q (must be one of A1, A2, B1, B2)", ErrInvalidLevel, string(level))
	}
	if n <= 0 {
		n = DefaultLimit
	}
	expected := level.TableName()

	if _, err := os.Stat(r.root); err != nil {
		return nil, fmt.Errorf("%w: root %s: %v", ErrStoreUnavailable, r.root, err)
	}
	conn, err := store.Connect(r.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	resolved, discovered := r.resolveIdentifier(conn, expected)

	table, attempts := r.openLadder(conn, resolved, expected)
	if table == nil {
		table, attempts = r.openFromDisk(attempts, expected)
	}
	if table == nil {
		if res, ok := r.readRawDataset(ctx, expected, n, &attempts); ok {
			return res, nil
		}
		err := &TableNotFoundError{Expected: expected, Attempts: attempts, Discovered: discovered}
		r.logger.Error("table resolution exhausted",
			zap.String("expected", expected),
			zap.Strings("attempted", err.AttemptedIdentifiers()),
			zap.Strings("discovered", discovered),
		)
		return nil, err
	}
	defer table.Close()

	return r.search(ctx, table, query, n)
}

// resolveIdentifier picks the identifier to open. Catalog enumeration is
// authoritative when available: an exact match wins, then a case-insensitive
// one. Without a catalog (or without a match) the expected identifier is used
// unchanged; a directory scan still feeds the diagnostics.
func (r *Resolver) resolveIdentifier(conn *store.Conn, expected string) (resolved string, discovered []string) {
	names, err := conn.ListTables()
	if err != nil {
		r.logger.Debug("catalog enumeration unavailable", zap.Error(err))
		if scanned, scanErr := conn.ScanTables(); scanErr == nil {
			discovered = scanned
		}
		return expected, discovered
	}
	discovered = names
	for _, name := range names {
		if name == expected {
			return expected, discovered
		}
	}
	for _, name := range names {
		if strings.EqualFold(name, expected) {
			r.logger.Info("resolved table by case-insensitive match",
				zap.String("expected", expected), zap.String("resolved", name))
			return name, discovered
		}
	}
	return expected, discovered
}

// openLadder tries every client access convention for the resolved identifier
// and, if that identifier differs from the expected one, retries the sequence
// with the expected identifier. First success wins.
func (r *Resolver) openLadder(conn *store.Conn, resolved, expected string) (*store.Table, []Attempt) {
	type accessMethod struct {
		name string
		open func(string) (*store.Table, error)
	}
	methods := []accessMethod{
		{"open", conn.OpenTable},
		{"index", conn.Table},
		{"get", conn.Get},
	}

	identifiers := []string{resolved}
	if resolved != expected {
		identifiers = append(identifiers, expected)
	}

	var attempts []Attempt
	for _, id := range identifiers {
		for _, m := range methods {
			table, err := m.open(id)
			if err == nil {
				r.logger.Debug("table opened",
					zap.String("identifier", id), zap.String("method", m.name))
				return table, attempts
			}
			attempts = append(attempts, Attempt{Identifier: id, Method: m.name, Err: err})
		}
	}
	return nil, attempts
}

// openFromDisk probes the on-disk layout directly: when a directory matching
// the expected identifier plus the storage suffix exists, a fresh connection
// scoped to its parent is used to open it.
func (r *Resolver) openFromDisk(attempts []Attempt, expected string) (*store.Table, []Attempt) {
	dir := filepath.Join(r.root, expected+store.TableSuffix)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, attempts
	}
	parent, err := store.Connect(filepath.Dir(dir))
	if err != nil {
		return nil, append(attempts, Attempt{Identifier: expected, Method: "scoped", Err: err})
	}
	table, err := parent.Table(filepath.Base(dir))
	if err != nil {
		return nil, append(attempts, Attempt{Identifier: expected, Method: "scoped", Err: err})
	}
	r.logger.Debug("table opened via scoped connection", zap.String("dir", dir))
	return table, attempts
}

// readRawDataset bypasses the table client entirely and reads the raw data
// file. The reader has no similarity search, so the first n rows are returned
// unranked; the result is flagged so callers can detect degraded relevance.
func (r *Resolver) readRawDataset(ctx context.Context, expected string, n int, attempts *[]Attempt) (*Result, bool) {
	dir := filepath.Join(r.root, expected+store.TableSuffix)
	ds, err := dataset.Open(dir)
	if err != nil {
		*attempts = append(*attempts, Attempt{Identifier: expected, Method: "dataset", Err: err})
		return nil, false
	}
	defer ds.Close()

	columns, rows, err := ds.ReadAll(ctx)
	if err != nil {
		*attempts = append(*attempts, Attempt{Identifier: expected, Method: "dataset", Err: err})
		return nil, false
	}
	if len(rows) > n {
		rows = rows[:n]
	}
	entries := projectEntries(columns, rows)
	r.logger.Warn("table client unreachable, returning unranked rows from raw dataset",
		zap.String("table", expected), zap.Int("rows", len(entries)))
	return &Result{Table: expected, Entries: entries, Ranked: false, Source: SourceDataset}, true
}

// search runs the ranked path: lazily obtain the shared embedding model,
// encode the query, and take the n nearest rows. When the model cannot be
// constructed and a keyword fallback is configured, the query is matched
// textually instead (flagged degraded).
func (r *Resolver) search(ctx context.Context, table *store.Table, query string, n int) (*Result, error) {
	embedder, err := r.provider.Get()
	if err != nil {
		if r.keyword != nil {
			if res, kerr := r.keywordSearch(ctx, table, query, n); kerr == nil {
				r.logger.Warn("embedding model unavailable, used keyword fallback",
					zap.String("table", table.Name()), zap.Error(err))
				return res, nil
			}
		}
		return nil, fmt.Errorf("vocab: load embedding model: %w", err)
	}

	vector, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vocab: embed query: %w", err)
	}
	matches, err := table.Search(vector).Limit(n).Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("vocab: search table %s: %w", table.Name(), err)
	}

	entries := make([]models.VocabularyEntry, len(matches))
	for i, m := range matches {
		entries[i] = m.Entry
	}
	return &Result{Table: table.Name(), Entries: entries, Ranked: true, Source: SourceSearch}, nil
}

func (r *Resolver) keywordSearch(ctx context.Context, table *store.Table, query string, n int) (*Result, error) {
	rows, err := table.Rows(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := r.keyword.Search(query, rows, n)
	if err != nil {
		return nil, err
	}
	return &Result{Table: table.Name(), Entries: entries, Ranked: false, Source: SourceKeyword}, nil
}

// vocabColumns, in preference order, name the column holding the vocabulary
// string in foreign schemas.
var vocabColumns = []string{"word", "vocab", "text", "term", "vocabulary"}

// projectEntries maps generic rows onto (german_term, english_translation)
// pairs. Rows already carrying those columns map directly; otherwise the
// vocabulary column is picked by name preference, falling back to the first
// column, and the translation is left best-effort.
func projectEntries(columns []string, rows []map[string]string) []models.VocabularyEntry {
	entries := make([]models.VocabularyEntry, 0, len(rows))
	hasGerman := containsColumn(columns, "german_term")
	hasEnglish := containsColumn(columns, "english_translation")

	germanCol := "german_term"
	if !hasGerman {
		germanCol = pickVocabColumn(columns)
	}
	englishCol := "english_translation"
	if !hasEnglish {
		englishCol = pickTranslationColumn(columns, germanCol)
	}

	for _, row := range rows {
		entries = append(entries, models.VocabularyEntry{
			GermanTerm:         row[germanCol],
			EnglishTranslation: row[englishCol],
		})
	}
	return entries
}

func pickVocabColumn(columns []string) string {
	for _, want := range vocabColumns {
		if containsColumn(columns, want) {
			return want
		}
	}
	for _, c := range columns {
		if c != "id" {
			return c
		}
	}
	if len(columns) > 0 {
		return columns[0]
	}
	return ""
}

func pickTranslationColumn(columns []string, germanCol string) string {
	for _, want := range []string{"translation", "english"} {
		if containsColumn(columns, want) {
			return want
		}
	}
	for _, c := range columns {
		if c != germanCol && c != "id" {
			return c
		}
	}
	return ""
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
