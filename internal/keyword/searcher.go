// Package keyword provides a textual vocabulary match used when the embedding
// model is unavailable. The index lives in memory only and is rebuilt per
// lookup; vocabulary tables are small enough that this stays cheap, and it
// keeps the store strictly read-only.
package keyword

import (
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/deutschlab/wortwerk/internal/models"
)

// Searcher matches vocabulary entries against a free-text query with Bleve.
type Searcher struct{}

// NewSearcher returns a ready searcher; it holds no state.
func NewSearcher() *Searcher {
	return &Searcher{}
}

// Search indexes the entries in memory and returns up to limit entries
// matching query, best score first. When nothing matches, the first limit
// entries are returned so degraded mode still produces usable material.
func (s *Searcher) Search(query string, entries []models.VocabularyEntry, limit int) ([]models.VocabularyEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if len(entries) == 0 {
		return nil, nil
	}

	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase + tokenize, no stemming. German stems
	// poorly under the English analyzer.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt("german", text)
	doc.AddFieldMappingsAt("english", text)
	im.DefaultMapping = doc

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("keyword: create index: %w", err)
	}
	defer index.Close()

	for i, e := range entries {
		err := index.Index(strconv.Itoa(i), map[string]string{
			"german":  e.GermanTerm,
			"english": e.EnglishTranslation,
		})
		if err != nil {
			return nil, fmt.Errorf("keyword: index entry: %w", err)
		}
	}

	match := bleve.NewMatchQuery(query)
	match.SetFuzziness(1)
	req := bleve.NewSearchRequest(match)
	req.Size = limit
	res, err := index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword: search: %w", err)
	}

	if len(res.Hits) == 0 {
		if len(entries) > limit {
			entries = entries[:limit]
		}
		return entries, nil
	}

	out := make([]models.VocabularyEntry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || i < 0 || i >= len(entries) {
			continue
		}
		out = append(out, entries[i])
	}
	return out, nil
}
