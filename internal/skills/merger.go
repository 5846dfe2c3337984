// Package skills keeps each candidate's per-skill proficiency snapshot and its audit history.
package skills

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"peerprep/interview/internal/events"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/parser"
)

var (
	ErrUnknownSkill      = errors.New("unknown skill")
	ErrMissingCandidate  = errors.New("candidate id is required")
	ErrInvalidPagination = fmt.Errorf("offset must be >= 0 and limit between 1 and %d", models.MaxPageLimit)
)

// Merger folds new skill scores into stored profiles. Every update appends a history
// row and upserts the snapshot in the same transaction; the latest score wins.
type Merger struct {
	db         *gorm.DB
	vocabulary []string
	known      map[string]bool
	publisher  events.Publisher
}

func NewMerger(db *gorm.DB, vocabulary []string, publisher events.Publisher) *Merger {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	known := make(map[string]bool, len(vocabulary))
	for _, skill := range vocabulary {
		known[skill] = true
	}
	return &Merger{
		db:         db,
		vocabulary: append([]string(nil), vocabulary...),
		known:      known,
		publisher:  publisher,
	}
}

// Vocabulary returns the configured skill names.
func (m *Merger) Vocabulary() []string {
	return append([]string(nil), m.vocabulary...)
}

// GetProfile returns one score per vocabulary skill; skills never rated read as 0.
func (m *Merger) GetProfile(ctx context.Context, candidateID string) (map[string]float64, error) {
	if candidateID == "" {
		return nil, ErrMissingCandidate
	}

	var entries []models.SkillProfileEntry
	err := m.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load skill profile: %w", err)
	}

	profile := make(map[string]float64, len(m.vocabulary))
	for _, skill := range m.vocabulary {
		profile[skill] = models.MinSkillScore
	}
	for _, entry := range entries {
		// rows for skills dropped from the vocabulary stay stored but are not reported
		if m.known[entry.SkillName] {
			profile[entry.SkillName] = entry.Score
		}
	}
	return profile, nil
}

// ApplyUpdate records score for one skill at ts.
func (m *Merger) ApplyUpdate(ctx context.Context, candidateID, skill string, score float64, ts time.Time) error {
	if candidateID == "" {
		return ErrMissingCandidate
	}
	if !m.known[skill] {
		return fmt.Errorf("%w: %s", ErrUnknownSkill, skill)
	}
	score = parser.ClampSkillScore(score)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := models.SkillHistoryRecord{
			CandidateID: candidateID,
			SkillName:   skill,
			Score:       score,
			Timestamp:   ts,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		entry := models.SkillProfileEntry{
			CandidateID: candidateID,
			SkillName:   skill,
			Score:       score,
			UpdatedAt:   ts,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "candidate_id"}, {Name: "skill_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
		}).Create(&entry).Error
		if err != nil {
			return fmt.Errorf("upsert snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply skill update for %s: %w", skill, err)
	}

	m.publisher.Publish(ctx, events.Event{
		Type:        events.TypeSkillUpdated,
		CandidateID: candidateID,
		Skill:       skill,
		Score:       score,
		Timestamp:   ts,
	})
	return nil
}

// ApplyScores applies every entry of a parsed delta in skill name order. It stops at the
// first failure; updates already applied stay committed.
func (m *Merger) ApplyScores(ctx context.Context, candidateID string, scores map[string]float64, ts time.Time) error {
	names := make([]string, 0, len(scores))
	for skill := range scores {
		names = append(names, skill)
	}
	sort.Strings(names)

	for _, skill := range names {
		if err := m.ApplyUpdate(ctx, candidateID, skill, scores[skill], ts); err != nil {
			return err
		}
	}
	return nil
}

// History returns a candidate's audit trail newest first, optionally filtered to one skill.
func (m *Merger) History(ctx context.Context, candidateID, skill string, offset, limit int) ([]models.SkillHistoryRecord, int64, error) {
	if candidateID == "" {
		return nil, 0, ErrMissingCandidate
	}
	if offset < 0 || limit < 1 || limit > models.MaxPageLimit {
		return nil, 0, ErrInvalidPagination
	}

	query := m.db.WithContext(ctx).Model(&models.SkillHistoryRecord{}).Where("candidate_id = ?", candidateID)
	if skill != "" {
		if !m.known[skill] {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownSkill, skill)
		}
		query = query.Where("skill_name = ?", skill)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count skill history: %w", err)
	}

	records := []models.SkillHistoryRecord{}
	err := query.Order("timestamp DESC, id DESC").Offset(offset).Limit(limit).Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load skill history: %w", err)
	}
	return records, total, nil
}
