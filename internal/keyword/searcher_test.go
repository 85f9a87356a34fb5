package keyword

import (
	"testing"

	"github.com/deutschlab/wortwerk/internal/models"
)

func entries(pairs ...[2]string) []models.VocabularyEntry {
	out := make([]models.VocabularyEntry, len(pairs))
	for i, p := range pairs {
		out[i] = models.VocabularyEntry{GermanTerm: p[0], EnglishTranslation: p[1]}
	}
	return out
}

func TestSearchExactMatch(t *testing.T) {
	s := NewSearcher()
	got, err := s.Search("Regen", entries(
		[2]string{"Tisch", "table"},
		[2]string{"Regen", "rain"},
		[2]string{"Stuhl", "chair"},
	), 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one hit")
	}
	if got[0].GermanTerm != "Regen" {
		t.Errorf("best hit = %q, want Regen", got[0].GermanTerm)
	}
}

func TestSearchFuzzyMatch(t *testing.T) {
	s := NewSearcher()
	// One character off; fuzziness 1 should still find it.
	got, err := s.Search("Regan", entries(
		[2]string{"Regen", "rain"},
		[2]string{"Tisch", "table"},
	), 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) == 0 || got[0].GermanTerm != "Regen" {
		t.Errorf("got %v, want fuzzy hit on Regen", got)
	}
}

func TestSearchEnglishField(t *testing.T) {
	s := NewSearcher()
	got, err := s.Search("rain", entries(
		[2]string{"Tisch", "table"},
		[2]string{"Regen", "rain"},
	), 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) == 0 || got[0].GermanTerm != "Regen" {
		t.Errorf("got %v, want match via translation", got)
	}
}

func TestSearchNoHitsFallsBackToFirstN(t *testing.T) {
	s := NewSearcher()
	all := entries(
		[2]string{"Tisch", "table"},
		[2]string{"Stuhl", "chair"},
		[2]string{"Lampe", "lamp"},
	)
	got, err := s.Search("Quantenphysik", all, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want first 2", len(got))
	}
	if got[0].GermanTerm != "Tisch" || got[1].GermanTerm != "Stuhl" {
		t.Errorf("got %v, want original order", got)
	}
}

func TestSearchEmptyEntries(t *testing.T) {
	s := NewSearcher()
	got, err := s.Search("Wetter", nil, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want nothing", got)
	}
}

func TestSearchLimit(t *testing.T) {
	s := NewSearcher()
	all := entries(
		[2]string{"Regen", "rain"},
		[2]string{"Regen", "rain"},
		[2]string{"Regen", "rain"},
	)
	got, err := s.Search("Regen", all, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) > 2 {
		t.Errorf("got %d entries, want at most 2", len(got))
	}
}
