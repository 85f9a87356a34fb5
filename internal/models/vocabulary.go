package models

// VocabularyEntry is one vocabulary row: a German term and its English translation.
type VocabularyEntry struct {
	GermanTerm         string `json:"german_term"`
	EnglishTranslation string `json:"english_translation"`
}

// VocabularyRequest is the body of POST /api/v1/vocabulary.
type VocabularyRequest struct {
	Query string `json:"query"`
	Level string `json:"level"`
	Limit int    `json:"limit"`
}

// VocabularyResponse reports the resolved table and the ranked (or degraded) entries.
// Ranked is false when results came from a fallback path; Source names the path
// ("search", "keyword", "dataset") so callers can detect degraded relevance.
type VocabularyResponse struct {
	Table   string            `json:"table"`
	Ranked  bool              `json:"ranked"`
	Source  string            `json:"source"`
	Entries []VocabularyEntry `json:"entries"`
}
