package models

// next question for a session
type QuestionResponse struct {
	Question      string `json:"question"`
	SessionID     string `json:"session_id"`
	InteractionID uint   `json:"interaction_id,omitempty"`
	Degraded      bool   `json:"degraded"`
}

// evaluation of a submitted answer
type FeedbackResponse struct {
	Feedback      string             `json:"feedback"`
	Score         int                `json:"score"`
	InteractionID uint               `json:"interaction_id,omitempty"`
	Skills        map[string]float64 `json:"skills,omitempty"`
	Degraded      bool               `json:"degraded"`
}

type Pagination struct {
	Offset  int   `json:"offset"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

type SessionDetailResponse struct {
	SessionID    string        `json:"session_id"`
	Interactions []Interaction `json:"interactions"`
	Pagination   Pagination    `json:"pagination"`
}

type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

type AdviceResponse struct {
	Advice   string `json:"advice"`
	Degraded bool   `json:"degraded"`
}

type SkillProfileResponse struct {
	CandidateID string             `json:"candidate_id"`
	Skills      map[string]float64 `json:"skills"`
}

type SkillHistoryResponse struct {
	CandidateID string               `json:"candidate_id"`
	History     []SkillHistoryRecord `json:"history"`
	Pagination  Pagination           `json:"pagination"`
}

// result of a text generation call
type GenerationResponse struct {
	Content   string             `json:"content"`
	RequestID string             `json:"request_id"`
	Metadata  GenerationMetadata `json:"metadata"`
}

type GenerationMetadata struct {
	ProcessingTime int    `json:"processing_time_ms"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}

// generic envelope used by the transcript endpoints
type Resp struct {
	OK   bool        `json:"ok"`
	Info interface{} `json:"info"`
}

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}
