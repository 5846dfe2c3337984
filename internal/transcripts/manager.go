// Package transcripts exports answered interview turns as JSONL training data.
package transcripts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"peerprep/interview/internal/models"
)

// DefaultCheckpoint names the watermark advanced by the scheduled exporter.
const DefaultCheckpoint = "transcript_exporter"

// Manager reads answered interactions for export. It never modifies interactions;
// export progress lives in ExportCheckpoint rows.
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
	cache  *statsCache
	group  singleflight.Group
}

type Options struct {
	Logger   *zap.Logger
	Now      func() time.Time
	StatsTTL time.Duration
}

func NewManager(db *gorm.DB, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Manager{
		db:     db,
		logger: opts.Logger,
		now:    opts.Now,
		cache:  newStatsCache(opts.StatsTTL, opts.Now),
	}
}

// AnsweredSince returns interactions answered strictly after since, oldest first.
// A limit of 0 means no limit.
func (m *Manager) AnsweredSince(ctx context.Context, since time.Time, limit int) ([]models.Interaction, error) {
	interactions := []models.Interaction{}
	query := m.db.WithContext(ctx).
		Where("answered_at IS NOT NULL AND answered_at > ?", since).
		Order("answered_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&interactions).Error; err != nil {
		return nil, fmt.Errorf("failed to get interactions answered since %v: %w", since, err)
	}
	return interactions, nil
}

// Exportable reports whether an interaction is a usable training example: it has an
// answer, feedback and a score of at least minScore.
func Exportable(it models.Interaction, minScore int) bool {
	if it.Answer == nil || it.Feedback == nil || it.Score == nil {
		return false
	}
	return *it.Score >= minScore
}

// TrainingPoint converts one interaction into a Gemini tuning example: the user turn
// is the question and answer, the model turn is the graded evaluation.
func TrainingPoint(it models.Interaction) models.TrainingDataPoint {
	return models.TrainingDataPoint{
		Contents: []models.TrainingContent{
			{
				Role:  "user",
				Parts: []models.TrainingPart{{Text: "Question: " + it.Question + "\nAnswer: " + *it.Answer}},
			},
			{
				Role:  "model",
				Parts: []models.TrainingPart{{Text: "Feedback: " + *it.Feedback + "\nScore: " + strconv.Itoa(*it.Score)}},
			},
		},
	}
}

// ExportToJSONL writes every exportable interaction as one JSON line and returns how
// many lines were written.
func (m *Manager) ExportToJSONL(interactions []models.Interaction, minScore int) ([]byte, int, error) {
	var buf bytes.Buffer
	count := 0
	for _, it := range interactions {
		if !Exportable(it, minScore) {
			continue
		}
		line, err := json.Marshal(TrainingPoint(it))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal training data: %w", err)
		}
		if count > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(line)
		count++
	}

	m.logger.Info("exported transcripts to JSONL",
		zap.Int("exported", count),
		zap.Int("scanned", len(interactions)),
		zap.Int("min_score", minScore),
	)
	return buf.Bytes(), count, nil
}

// Checkpoint returns the watermark for name, or the zero time when nothing was exported yet.
func (m *Manager) Checkpoint(ctx context.Context, name string) (time.Time, error) {
	var cp models.ExportCheckpoint
	err := m.db.WithContext(ctx).Where("name = ?", name).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load checkpoint %s: %w", name, err)
	}
	return cp.LastAnsweredAt, nil
}

// AdvanceCheckpoint moves the watermark for name to answeredAt.
func (m *Manager) AdvanceCheckpoint(ctx context.Context, name string, answeredAt time.Time) error {
	cp := models.ExportCheckpoint{Name: name, LastAnsweredAt: answeredAt, UpdatedAt: m.now()}
	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_answered_at", "updated_at"}),
	}).Create(&cp).Error
	if err != nil {
		return fmt.Errorf("failed to advance checkpoint %s: %w", name, err)
	}
	m.cache.invalidate()
	return nil
}

type Stats struct {
	TotalInteractions int64      `json:"total_interactions"`
	AnsweredCount     int64      `json:"answered_count"`
	ExportableCount   int64      `json:"exportable_count"`
	PendingCount      int64      `json:"pending_count"`
	LastExportedAt    *time.Time `json:"last_exported_at,omitempty"`
	MinScore          int        `json:"min_score"`
}

// GetStats summarizes export progress for the default checkpoint. Concurrent cache
// misses for the same threshold share one computation.
func (m *Manager) GetStats(ctx context.Context, minScore int) (*Stats, error) {
	if cached, ok := m.cache.get(minScore); ok {
		return cached, nil
	}

	v, err, _ := m.group.Do(strconv.Itoa(minScore), func() (any, error) {
		return m.computeStats(ctx, minScore)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Stats), nil
}

func (m *Manager) computeStats(ctx context.Context, minScore int) (*Stats, error) {
	watermark, err := m.Checkpoint(ctx, DefaultCheckpoint)
	if err != nil {
		return nil, err
	}

	stats := &Stats{MinScore: minScore}
	if !watermark.IsZero() {
		stats.LastExportedAt = &watermark
	}

	g, gctx := errgroup.WithContext(ctx)
	count := func(dest *int64, where string, args ...any) {
		g.Go(func() error {
			query := m.db.WithContext(gctx).Model(&models.Interaction{})
			if where != "" {
				query = query.Where(where, args...)
			}
			if err := query.Count(dest).Error; err != nil {
				return fmt.Errorf("failed to count interactions: %w", err)
			}
			return nil
		})
	}
	count(&stats.TotalInteractions, "")
	count(&stats.AnsweredCount, "answer IS NOT NULL")
	count(&stats.ExportableCount, "answer IS NOT NULL AND feedback IS NOT NULL AND score >= ?", minScore)
	count(&stats.PendingCount, "answered_at IS NOT NULL AND answered_at > ?", watermark)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.cache.set(minScore, stats)
	return stats, nil
}
