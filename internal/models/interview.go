package models

import "time"

// Session identifies one interview run. Rows are never updated or deleted.
type Session struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CandidateID *string   `gorm:"index;type:varchar(255)" json:"candidate_id,omitempty"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
}

// Interaction is one question/answer/feedback turn within a session.
// Answer, Feedback, Score and AnsweredAt are written together exactly once.
type Interaction struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID  string     `gorm:"not null;index:idx_interactions_session_ts,priority:1;type:varchar(36)" json:"session_id"`
	Question   string     `gorm:"type:text;not null" json:"question"`
	Answer     *string    `gorm:"type:text" json:"answer"`
	Feedback   *string    `gorm:"type:text" json:"feedback"`
	Score      *int       `json:"score"`
	Timestamp  time.Time  `gorm:"not null;index:idx_interactions_session_ts,priority:2" json:"timestamp"`
	AnsweredAt *time.Time `gorm:"index" json:"answered_at,omitempty"`
}

// Answered reports whether the candidate has responded to this turn.
func (i *Interaction) Answered() bool {
	return i.Answer != nil
}

// SkillProfileEntry is the latest proficiency snapshot for one (candidate, skill) pair.
type SkillProfileEntry struct {
	CandidateID string    `gorm:"primaryKey;type:varchar(255)" json:"candidate_id"`
	SkillName   string    `gorm:"primaryKey;type:varchar(64)" json:"skill_name"`
	Score       float64   `gorm:"not null;default:0" json:"score"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

func (SkillProfileEntry) TableName() string {
	return "skill_profiles"
}

// SkillHistoryRecord is an append-only audit entry written on every profile update.
type SkillHistoryRecord struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CandidateID string    `gorm:"not null;index:idx_skill_history_candidate,priority:1;type:varchar(255)" json:"candidate_id"`
	SkillName   string    `gorm:"not null;index:idx_skill_history_candidate,priority:2;type:varchar(64)" json:"skill_name"`
	Score       float64   `gorm:"not null" json:"score"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
}

func (SkillHistoryRecord) TableName() string {
	return "skill_history"
}
