package models

import "time"

// ExportCheckpoint records how far the transcript exporter has progressed.
// Interactions answered at or before LastAnsweredAt have already been exported.
type ExportCheckpoint struct {
	Name           string    `gorm:"primaryKey;type:varchar(64)" json:"name"`
	LastAnsweredAt time.Time `gorm:"not null" json:"last_answered_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

// TrainingDataPoint represents a single training example in JSONL format for Gemini fine-tuning
type TrainingDataPoint struct {
	Contents []TrainingContent `json:"contents"`
}

type TrainingContent struct {
	Role  string         `json:"role"` // "user" or "model"
	Parts []TrainingPart `json:"parts"`
}

type TrainingPart struct {
	Text string `json:"text"`
}
