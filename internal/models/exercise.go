package models

// Skill is an exercise skill category.
type Skill string

const (
	SkillListening Skill = "LISTENING"
	SkillReading   Skill = "READING"
	SkillWriting   Skill = "WRITING"
	SkillSpeaking  Skill = "SPEAKING"
)

// GenerateRequest is the body of the generation endpoints. Fields that only
// apply to some skills (PreferType, TaskType, InteractionType) are optional
// and defaulted per skill by the handler.
type GenerateRequest struct {
	Topic           string `json:"topic"`
	Level           string `json:"level"`
	ItemIDStart     int    `json:"item_id_start"`
	PreferType      string `json:"prefer_type,omitempty"`
	TaskType        string `json:"task_type,omitempty"`
	InteractionType string `json:"interaction_type,omitempty"`
}

// Event is an opaque client event accepted by the events endpoint.
type Event struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
}
