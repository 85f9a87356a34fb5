// Package models defines the request/response and domain types shared across packages.
package models

// Level is a CEFR proficiency level. Only A1-B2 have seeded vocabulary tables.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
)

// Levels lists the supported levels in ascending order.
func Levels() []Level {
	return []Level{LevelA1, LevelA2, LevelB1, LevelB2}
}

// Valid reports whether l is one of the supported levels.
func (l Level) Valid() bool {
	switch l {
	case LevelA1, LevelA2, LevelB1, LevelB2:
		return true
	}
	return false
}

// TableName returns the vocabulary table identifier for the level,
// matching the naming convention of the store writer.
func (l Level) TableName() string {
	return string(l) + "_MINIMAL_vocabulary"
}

func (l Level) String() string {
	return string(l)
}
