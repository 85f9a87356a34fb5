// Package seed populates vocabulary tables from CSV and XLSX word lists.
// Each row is a german,english pair; the first row is skipped when it looks
// like a header.
package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/deutschlab/wortwerk/internal/embedding"
	"github.com/deutschlab/wortwerk/internal/models"
	"github.com/deutschlab/wortwerk/internal/store"
)

// Writer loads word lists, embeds the German terms, and writes them into the
// vocabulary store.
type Writer struct {
	root     string
	embedder embedding.Embedder
	logger   *zap.Logger
}

// NewWriter builds a Writer. logger may be nil.
func NewWriter(root string, embedder embedding.Embedder, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{root: root, embedder: embedder, logger: logger}
}

// SeedFile reads the word list at path (.csv or .xlsx) and writes it into the
// table for the given level, creating the table if needed. Returns the number
// of entries written.
func (w *Writer) SeedFile(ctx context.Context, path string, level models.Level) (int, error) {
	if !level.Valid() {
		return 0, fmt.Errorf("unsupported level %q", level)
	}
	entries, err := readWordList(path)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("no word pairs found in %s", path)
	}

	conn, err := store.Connect(w.root)
	if err != nil {
		return 0, err
	}
	table, err := conn.CreateTable(ctx, level.TableName())
	if err != nil {
		return 0, err
	}
	defer table.Close()

	written := 0
	for _, entry := range entries {
		vec, err := w.embedder.Embed(ctx, entry.GermanTerm)
		if err != nil {
			return written, fmt.Errorf("embed %q: %w", entry.GermanTerm, err)
		}
		if err := table.Insert(ctx, entry, vec); err != nil {
			return written, fmt.Errorf("insert %q: %w", entry.GermanTerm, err)
		}
		written++
	}
	w.logger.Info("seeded vocabulary table",
		zap.String("table", table.Name()),
		zap.String("file", path),
		zap.Int("entries", written))
	return written, nil
}

// readWordList dispatches on file extension.
func readWordList(path string) ([]models.VocabularyEntry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported word list format %q", filepath.Ext(path))
	}
}

func readCSV(path string) ([]models.VocabularyEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var entries []models.VocabularyEntry
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if entry, ok := pairFromRow(record); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func readXLSX(path string) ([]models.VocabularyEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in %s", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var entries []models.VocabularyEntry
	for _, row := range rows {
		if entry, ok := pairFromRow(row); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// pairFromRow extracts a german,english pair, skipping blanks and header rows.
func pairFromRow(row []string) (models.VocabularyEntry, bool) {
	if len(row) < 2 {
		return models.VocabularyEntry{}, false
	}
	german := strings.TrimSpace(row[0])
	english := strings.TrimSpace(row[1])
	if german == "" || english == "" {
		return models.VocabularyEntry{}, false
	}
	if isHeader(german) {
		return models.VocabularyEntry{}, false
	}
	return models.VocabularyEntry{GermanTerm: german, EnglishTranslation: english}, true
}

func isHeader(cell string) bool {
	switch strings.ToLower(cell) {
	case "german", "german_term", "word", "vocab", "term", "deutsch":
		return true
	}
	return false
}
