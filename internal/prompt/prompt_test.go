package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/deutschlab/wortwerk/internal/models"
)

var testVocab = []models.VocabularyEntry{
	{GermanTerm: "Regen", EnglishTranslation: "rain"},
	{GermanTerm: "Sonne", EnglishTranslation: "sun"},
}

func TestListeningPrompt(t *testing.T) {
	p := Listening("Wetter", models.LevelA1, testVocab, 11, "")
	for _, want := range []string{
		"EXACTLY 10 listening comprehension items",
		"CEFR A1",
		`"Wetter"`,
		"start_id: 11",
		`"Regen"`,
		`"Sonne"`,
		"MultipleChoice",
		`"skill": "LISTENING"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("listening prompt missing %q", want)
		}
	}
}

func TestListeningPromptDefaults(t *testing.T) {
	p := Listening("Wetter", models.LevelA1, nil, 0, "")
	if !strings.Contains(p, "start_id: 1") {
		t.Error("start_id should default to 1")
	}
	if !strings.Contains(p, "vocab_list: []") {
		t.Error("empty vocab should render as an empty JSON array")
	}
}

func TestReadingPrompt(t *testing.T) {
	p := Reading("Einkaufen", models.LevelB1, testVocab, 1, "RichtigFalsch")
	for _, want := range []string{
		"reading comprehension items",
		"CEFR B1",
		"readingText",
		`"RichtigFalsch"`,
		`"skill": "READING"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("reading prompt missing %q", want)
		}
	}
}

func TestWritingPrompt(t *testing.T) {
	p := Writing("Arbeit", models.LevelA2, testVocab, 1, "")
	for _, want := range []string{
		"EXACTLY 5 writing tasks",
		"CEFR A2",
		`"email"`,
		"requiredPoints",
		`"skill": "WRITING"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("writing prompt missing %q", want)
		}
	}
}

func TestSpeakingPrompt(t *testing.T) {
	p := Speaking("Reisen", models.LevelB2, testVocab, 6, "roleplay")
	for _, want := range []string{
		"EXACTLY 5 speaking tasks",
		"CEFR B2",
		`"roleplay"`,
		"expectedPoints",
		`"skill": "SPEAKING"`,
		"start_id: 6",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("speaking prompt missing %q", want)
		}
	}
}

func TestEvaluateSpeakingPrompt(t *testing.T) {
	task := json.RawMessage(`{"question":"Was machst du am Wochenende?"}`)
	p := EvaluateSpeaking(task, "ich spiele fußball mit freunden")
	for _, want := range []string{
		"Was machst du am Wochenende?",
		"ich spiele fußball mit freunden",
		"task_completed",
		"is_acceptable",
		"score_out_of_10",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("evaluation prompt missing %q", want)
		}
	}
}

func TestVocabJSONIsValid(t *testing.T) {
	p := Listening("Wetter", models.LevelA1, testVocab, 1, "")
	start := strings.Index(p, "vocab_list: ")
	if start < 0 {
		t.Fatal("vocab_list not found")
	}
	line := p[start+len("vocab_list: "):]
	line = line[:strings.Index(line, "\n")]
	var terms []string
	if err := json.Unmarshal([]byte(line), &terms); err != nil {
		t.Fatalf("vocab_list is not valid JSON: %v", err)
	}
	if len(terms) != 2 || terms[0] != "Regen" {
		t.Errorf("terms = %v", terms)
	}
}
