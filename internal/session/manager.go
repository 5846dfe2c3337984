// Package session owns interview sessions and their ordered question/answer turns.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"peerprep/interview/internal/events"
	"peerprep/interview/internal/models"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrInteractionNotFound = errors.New("interaction not found")
	ErrNoOpenInteraction   = errors.New("session has no interactions")
	ErrAlreadyAnswered     = errors.New("interaction already answered")
	ErrInvalidPagination   = fmt.Errorf("offset must be >= 0 and limit between 1 and %d", models.MaxPageLimit)
)

// newest first, insertion order breaks timestamp ties
const newestFirst = "timestamp DESC, id DESC"

// oldest first
const oldestFirst = "timestamp ASC, id ASC"

type Options struct {
	// RequireSession rejects interactions for sessions that were never started.
	// When false the session row is created on first use.
	RequireSession bool
	Publisher      events.Publisher
	Now            func() time.Time
}

// Manager persists sessions and interactions. Every mutating call has been written
// to the database by the time it returns.
type Manager struct {
	db             *gorm.DB
	requireSession bool
	publisher      events.Publisher
	now            func() time.Time
}

func NewManager(db *gorm.DB, opts Options) *Manager {
	m := &Manager{
		db:             db,
		requireSession: opts.RequireSession,
		publisher:      opts.Publisher,
		now:            opts.Now,
	}
	if m.publisher == nil {
		m.publisher = events.NopPublisher{}
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	return m
}

// RequiresSession reports whether RecordQuestion rejects unknown session ids.
func (m *Manager) RequiresSession() bool {
	return m.requireSession
}

// Page is one window of a session's interactions.
type Page struct {
	Interactions []models.Interaction
	Offset       int
	Limit        int
	Total        int64
}

func (p *Page) HasMore() bool {
	return int64(p.Offset+len(p.Interactions)) < p.Total
}

// StartSession allocates a new random session id and stores the session row.
func (m *Manager) StartSession(ctx context.Context, candidateID *string) (string, error) {
	sess := models.Session{
		ID:          uuid.NewString(),
		CandidateID: normalizeCandidate(candidateID),
		CreatedAt:   m.now(),
	}
	if err := m.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return sess.ID, nil
}

func (m *Manager) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var sess models.Session
	err := m.db.WithContext(ctx).Where("id = ?", sessionID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// ListSessions returns a candidate's sessions, newest first.
func (m *Manager) ListSessions(ctx context.Context, candidateID string) ([]models.Session, error) {
	sessions := []models.Session{}
	err := m.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// RecordQuestion appends an unanswered interaction to the session.
func (m *Manager) RecordQuestion(ctx context.Context, sessionID, question string) (uint, error) {
	if err := m.ensureSession(ctx, sessionID); err != nil {
		return 0, err
	}

	interaction := models.Interaction{
		SessionID: sessionID,
		Question:  question,
		Timestamp: m.now(),
	}
	if err := m.db.WithContext(ctx).Create(&interaction).Error; err != nil {
		return 0, fmt.Errorf("failed to record question: %w", err)
	}
	return interaction.ID, nil
}

func (m *Manager) ensureSession(ctx context.Context, sessionID string) error {
	if m.requireSession {
		var count int64
		if err := m.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}
		if count == 0 {
			return ErrSessionNotFound
		}
		return nil
	}

	// lazily materialize; a concurrent creator wins and we keep its row
	sess := models.Session{ID: sessionID, CreatedAt: m.now()}
	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&sess).Error
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// RecordAnswer fills the most recent interaction of the session. A score of 0 means
// the answer could not be scored and is stored as NULL.
func (m *Manager) RecordAnswer(ctx context.Context, sessionID, answer, feedback string, score int) (*models.Interaction, error) {
	current, err := m.CurrentInteraction(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	err = m.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("id = ?", current.ID).
		Updates(m.answerColumns(answer, feedback, score)).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}
	return m.answered(ctx, sessionID, current.ID)
}

// RecordAnswerFor fills a specific interaction. The write only succeeds while the
// interaction is still unanswered, so two racing submissions cannot both land.
func (m *Manager) RecordAnswerFor(ctx context.Context, sessionID string, interactionID uint, answer, feedback string, score int) (*models.Interaction, error) {
	result := m.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("id = ? AND session_id = ? AND answer IS NULL", interactionID, sessionID).
		Updates(m.answerColumns(answer, feedback, score))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to record answer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := m.GetInteraction(ctx, sessionID, interactionID); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyAnswered
	}
	return m.answered(ctx, sessionID, interactionID)
}

func (m *Manager) answerColumns(answer, feedback string, score int) map[string]interface{} {
	var stored *int
	if score != 0 {
		s := clampScore(score)
		stored = &s
	}
	return map[string]interface{}{
		"answer":      answer,
		"feedback":    feedback,
		"score":       stored,
		"answered_at": m.now(),
	}
}

func (m *Manager) answered(ctx context.Context, sessionID string, interactionID uint) (*models.Interaction, error) {
	interaction, err := m.GetInteraction(ctx, sessionID, interactionID)
	if err != nil {
		return nil, err
	}
	m.publisher.Publish(ctx, events.Event{
		Type:          events.TypeAnswerRecorded,
		SessionID:     sessionID,
		InteractionID: interaction.ID,
		Score:         float64(scoreValue(interaction.Score)),
		Timestamp:     *interaction.AnsweredAt,
	})
	return interaction, nil
}

func (m *Manager) GetInteraction(ctx context.Context, sessionID string, interactionID uint) (*models.Interaction, error) {
	var interaction models.Interaction
	err := m.db.WithContext(ctx).
		Where("id = ? AND session_id = ?", interactionID, sessionID).
		First(&interaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInteractionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load interaction %d: %w", interactionID, err)
	}
	return &interaction, nil
}

// CurrentInteraction returns the most recently created interaction of the session,
// answered or not.
func (m *Manager) CurrentInteraction(ctx context.Context, sessionID string) (*models.Interaction, error) {
	var interaction models.Interaction
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order(newestFirst).
		First(&interaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOpenInteraction
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load current interaction: %w", err)
	}
	return &interaction, nil
}

// ListInteractions returns one page of the session's interactions in chronological order.
// Each call reads a fresh snapshot.
func (m *Manager) ListInteractions(ctx context.Context, sessionID string, offset, limit int) (*Page, error) {
	if offset < 0 || limit < 1 || limit > models.MaxPageLimit {
		return nil, ErrInvalidPagination
	}
	if _, err := m.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	page := &Page{Interactions: []models.Interaction{}, Offset: offset, Limit: limit}
	query := m.db.WithContext(ctx).Model(&models.Interaction{}).Where("session_id = ?", sessionID)
	if err := query.Count(&page.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count interactions: %w", err)
	}
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order(oldestFirst).
		Offset(offset).
		Limit(limit).
		Find(&page.Interactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return page, nil
}

// InteractionsForSessions returns every interaction of the given sessions in
// chronological order across sessions.
func (m *Manager) InteractionsForSessions(ctx context.Context, sessionIDs []string) ([]models.Interaction, error) {
	interactions := []models.Interaction{}
	if len(sessionIDs) == 0 {
		return interactions, nil
	}
	err := m.db.WithContext(ctx).
		Where("session_id IN ?", sessionIDs).
		Order(oldestFirst).
		Find(&interactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load interactions: %w", err)
	}
	return interactions, nil
}

// GetQuestionContext returns the latest answer given in the session, or nil when
// nothing has been answered yet.
func (m *Manager) GetQuestionContext(ctx context.Context, sessionID string) (*string, error) {
	interaction, err := m.LastAnswered(ctx, sessionID)
	if err != nil || interaction == nil {
		return nil, err
	}
	return interaction.Answer, nil
}

// LastAnswered returns the most recent answered interaction, or nil when nothing has
// been answered yet.
func (m *Manager) LastAnswered(ctx context.Context, sessionID string) (*models.Interaction, error) {
	var interaction models.Interaction
	err := m.db.WithContext(ctx).
		Where("session_id = ? AND answer IS NOT NULL", sessionID).
		Order(newestFirst).
		First(&interaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load question context: %w", err)
	}
	return &interaction, nil
}

func normalizeCandidate(candidateID *string) *string {
	if candidateID == nil || *candidateID == "" {
		return nil
	}
	id := *candidateID
	return &id
}

func clampScore(score int) int {
	if score < models.MinInteractionScore {
		return models.MinInteractionScore
	}
	if score > models.MaxInteractionScore {
		return models.MaxInteractionScore
	}
	return score
}

func scoreValue(score *int) int {
	if score == nil {
		return 0
	}
	return *score
}
