// Package prompt builds the generation and evaluation prompts sent to the
// language model. Each builder inlines the vocabulary retrieved for the topic
// so generated items actually use level-appropriate words.
package prompt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/deutschlab/wortwerk/internal/models"
)

// vocabJSON renders the German terms as a JSON array for prompt inlining.
func vocabJSON(entries []models.VocabularyEntry) string {
	terms := make([]string, len(entries))
	for i, e := range entries {
		terms[i] = e.GermanTerm
	}
	b, err := json.Marshal(terms)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}

// Listening builds the listening-comprehension generation prompt. The model
// must return a single JSON array of exactly 10 items.
func Listening(topic string, level models.Level, vocab []models.VocabularyEntry, startID int, preferType string) string {
	if preferType == "" {
		preferType = "MultipleChoice"
	}
	if startID <= 0 {
		startID = 1
	}
	return fmt.Sprintf(`
Task:
Generate EXACTLY 10 listening comprehension items for CEFR %[1]s.
Each item must be of type "%[2]s" unless clearly unsuitable, then use "RichtigFalsch".
The output MUST be a SINGLE JSON ARRAY with 10 objects. No text before or after the JSON.

Inputs:
- vocab_list: %[3]s
- topic: "%[4]s"
- start_id: %[5]d
- max_audio_length: 12 seconds

JSON ARRAY STRUCTURE (exact):
[
  {
    "id": integer,
    "type": "MultipleChoice" | "RichtigFalsch",
    "question": string,
    "translation": string,
    "audioText": string,
    "audioText_translation": string,
    "audioDescription": string,
    "ttsPrompt": string,
    "options": [string],
    "options_translations": [string],
    "correctAnswer": string,
    "imagePlaceholder": string,
    "metadata": {
        "level": "%[1]s",
        "skill": "LISTENING",
        "topic": "%[4]s",
        "source": "generated",
        "timestamp": "%[6]s"
    }
  },
  ...
]  <-- exactly 10 objects

CRITICAL REQUIREMENTS:
- Start IDs at %[5]d and increment sequentially.
- Each audioText must include at least ONE word from vocab_list.
- audioText must be SIMPLE %[1]s German (max 15 words).
- distractors must be realistic (e.g., similar times, similar places).
- options MUST contain 3 items for MultipleChoice, 2 for RichtigFalsch.
- correctAnswer MUST be EXACTLY one of the options.
- No explanations, no prose, no markdown — ONLY the JSON array.

Content Rules:
- Use daily-life contexts: Bahnhof, Bus, Supermarkt, Café, Arbeit, Wetter, Termine.
- Use short, natural, realistic announcements or dialogues.
- Avoid proper nouns except common German cities (Berlin, Hamburg, München).

Return ONLY the JSON array with 10 objects.
`, level, preferType, vocabJSON(vocab), topic, startID, timestamp())
}

// Reading builds the reading-comprehension generation prompt.
func Reading(topic string, level models.Level, vocab []models.VocabularyEntry, startID int, preferType string) string {
	if preferType == "" {
		preferType = "MultipleChoice"
	}
	if startID <= 0 {
		startID = 1
	}
	return fmt.Sprintf(`
Task:
Generate EXACTLY 10 reading comprehension items for CEFR %[1]s.
Each item must be of type "%[2]s" unless clearly unsuitable, then use "RichtigFalsch".
The output MUST be a SINGLE JSON ARRAY with 10 objects. No text before or after the JSON.

Inputs:
- vocab_list: %[3]s
- topic: "%[4]s"
- start_id: %[5]d
- max_text_length: 60 words

JSON ARRAY STRUCTURE (exact):
[
  {
    "id": integer,
    "type": "MultipleChoice" | "RichtigFalsch",
    "question": string,
    "translation": string,
    "readingText": string,
    "readingText_translation": string,
    "options": [string],
    "options_translations": [string],
    "correctAnswer": string,
    "imagePlaceholder": string,
    "metadata": {
        "level": "%[1]s",
        "skill": "READING",
        "topic": "%[4]s",
        "source": "generated",
        "timestamp": "%[6]s"
    }
  },
  ...
]  <-- exactly 10 objects

CRITICAL REQUIREMENTS:
- Start IDs at %[5]d and increment sequentially.
- Each readingText must include at least ONE word from vocab_list.
- readingText must be SIMPLE %[1]s German.
- options MUST contain 3 items for MultipleChoice, 2 for RichtigFalsch.
- correctAnswer MUST be EXACTLY one of the options.
- No explanations, no prose, no markdown — ONLY the JSON array.

Content Rules:
- Use short everyday texts: notices, messages, signs, emails, timetables.
- Avoid proper nouns except common German cities (Berlin, Hamburg, München).

Return ONLY the JSON array with 10 objects.
`, level, preferType, vocabJSON(vocab), topic, startID, timestamp())
}

// Writing builds the writing-task generation prompt.
func Writing(topic string, level models.Level, vocab []models.VocabularyEntry, startID int, taskType string) string {
	if taskType == "" {
		taskType = "email"
	}
	if startID <= 0 {
		startID = 1
	}
	return fmt.Sprintf(`
Task:
Generate EXACTLY 5 writing tasks for CEFR %[1]s.
Each task must be of type "%[2]s" (e.g., email, message, postcard, form).
The output MUST be a SINGLE JSON ARRAY with 5 objects. No text before or after the JSON.

Inputs:
- vocab_list: %[3]s
- topic: "%[4]s"
- start_id: %[5]d

JSON ARRAY STRUCTURE (exact):
[
  {
    "id": integer,
    "type": "%[2]s",
    "instruction": string,
    "instruction_translation": string,
    "scenario": string,
    "scenario_translation": string,
    "requiredPoints": [string],
    "requiredPoints_translations": [string],
    "minWords": integer,
    "maxWords": integer,
    "sampleSolution": string,
    "metadata": {
        "level": "%[1]s",
        "skill": "WRITING",
        "topic": "%[4]s",
        "source": "generated",
        "timestamp": "%[6]s"
    }
  },
  ...
]  <-- exactly 5 objects

CRITICAL REQUIREMENTS:
- Start IDs at %[5]d and increment sequentially.
- Each scenario must encourage use of words from vocab_list.
- Instructions must be SIMPLE %[1]s German with an English translation.
- requiredPoints MUST contain exactly 3 content points.
- minWords/maxWords must fit the level (A1: 20-40, A2: 30-60, B1: 50-80, B2: 80-120).
- No explanations, no prose, no markdown — ONLY the JSON array.

Return ONLY the JSON array with 5 objects.
`, level, taskType, vocabJSON(vocab), topic, startID, timestamp())
}

// Speaking builds the speaking-task generation prompt.
func Speaking(topic string, level models.Level, vocab []models.VocabularyEntry, startID int, interactionType string) string {
	if interactionType == "" {
		interactionType = "interview"
	}
	if startID <= 0 {
		startID = 1
	}
	return fmt.Sprintf(`
Task:
Generate EXACTLY 5 speaking tasks for CEFR %[1]s.
Each task must be of interaction type "%[2]s" (e.g., interview, roleplay, description).
The output MUST be a SINGLE JSON ARRAY with 5 objects. No text before or after the JSON.

Inputs:
- vocab_list: %[3]s
- topic: "%[4]s"
- start_id: %[5]d
- max_response_length: 45 seconds

JSON ARRAY STRUCTURE (exact):
[
  {
    "id": integer,
    "type": "%[2]s",
    "question": string,
    "question_translation": string,
    "promptText": string,
    "promptText_translation": string,
    "expectedPoints": [string],
    "expectedPoints_translations": [string],
    "sampleResponse": string,
    "metadata": {
        "level": "%[1]s",
        "skill": "SPEAKING",
        "topic": "%[4]s",
        "source": "generated",
        "timestamp": "%[6]s"
    }
  },
  ...
]  <-- exactly 5 objects

CRITICAL REQUIREMENTS:
- Start IDs at %[5]d and increment sequentially.
- Each question must encourage use of words from vocab_list.
- Questions must be SIMPLE %[1]s German with an English translation.
- expectedPoints MUST contain exactly 3 content points.
- No explanations, no prose, no markdown — ONLY the JSON array.

Content Rules:
- Use daily-life contexts: Familie, Hobbys, Einkaufen, Reisen, Arbeit, Wetter.
- Keep questions answerable in under 45 seconds of speech.

Return ONLY the JSON array with 5 objects.
`, level, interactionType, vocabJSON(vocab), topic, startID, timestamp())
}

// EvaluateSpeaking builds the grading prompt for a transcribed speaking
// response. task is the original speaking-task object as submitted by the
// client; it is inlined verbatim so the grader sees exactly what was asked.
func EvaluateSpeaking(task json.RawMessage, transcript string) string {
	return fmt.Sprintf(`
Task:
You are a strict but fair CEFR German examiner. Evaluate the learner's spoken
response against the speaking task below. The response was transcribed
automatically, so ignore punctuation and capitalization issues.

Speaking task (JSON):
%s

Transcribed response:
"%s"

Return a SINGLE JSON OBJECT (no text before or after) with exactly:
{
  "task_completed": boolean,
  "is_acceptable": boolean,
  "score_out_of_10": integer,
  "grammar_feedback": string,
  "vocabulary_feedback": string,
  "content_feedback": string,
  "suggested_improvement": string
}

CRITICAL REQUIREMENTS:
- Judge only against the task's level; do not demand higher-level language.
- task_completed is true only if the expected content points were addressed.
- is_acceptable is true if a human examiner would pass the response.
- Feedback strings must be short, concrete, and in English.
- No explanations outside the JSON object.
`, string(task), transcript)
}
