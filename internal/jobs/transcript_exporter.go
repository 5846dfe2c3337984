package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"peerprep/interview/internal/transcripts"
)

// TranscriptExporterJob periodically writes newly answered, high scoring interview
// turns to JSONL files and advances the export checkpoint.
type TranscriptExporterJob struct {
	manager *transcripts.Manager
	config  *ExporterConfig
	cron    *cron.Cron
	logger  *zap.Logger
	now     func() time.Time

	// serializes scheduled and manual runs
	runMu sync.Mutex
}

// ExporterConfig contains configuration for the exporter job
type ExporterConfig struct {
	Schedule      string // Cron schedule (e.g., "0 2 * * *" for 2 AM daily)
	ExportDir     string // Directory to store exported files
	ExportEnabled bool   // Whether to run exports
	MinScore      int    // Minimum interaction score for a turn to be exported
	Checkpoint    string // Checkpoint name, defaults to transcripts.DefaultCheckpoint
}

// ExportResult describes one export run.
type ExportResult struct {
	Scanned  int    `json:"scanned"`
	Exported int    `json:"exported"`
	File     string `json:"file,omitempty"`
}

func NewTranscriptExporterJob(manager *transcripts.Manager, config *ExporterConfig, logger *zap.Logger) *TranscriptExporterJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Checkpoint == "" {
		config.Checkpoint = transcripts.DefaultCheckpoint
	}
	return &TranscriptExporterJob{
		manager: manager,
		config:  config,
		cron:    cron.New(),
		logger:  logger,
		now:     time.Now,
	}
}

// Start begins the scheduled export job
func (j *TranscriptExporterJob) Start() error {
	if !j.config.ExportEnabled {
		j.logger.Info("transcript export is disabled, skipping scheduler")
		return nil
	}

	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		if _, err := j.RunExport(context.Background()); err != nil {
			j.logger.Error("transcript export job failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule export job: %w", err)
	}

	j.cron.Start()
	j.logger.Info("transcript exporter started", zap.String("schedule", j.config.Schedule))
	return nil
}

// Stop stops the scheduler and waits for a running export to finish
func (j *TranscriptExporterJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("transcript exporter stopped")
	}
}

// RunExport exports everything answered since the checkpoint. The checkpoint advances
// past every scanned interaction, including those below the score threshold, so a
// turn is considered once unless it is answered again.
func (j *TranscriptExporterJob) RunExport(ctx context.Context) (*ExportResult, error) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	since, err := j.manager.Checkpoint(ctx, j.config.Checkpoint)
	if err != nil {
		return nil, err
	}

	interactions, err := j.manager.AnsweredSince(ctx, since, 0)
	if err != nil {
		return nil, err
	}
	result := &ExportResult{Scanned: len(interactions)}
	if len(interactions) == 0 {
		j.logger.Info("no newly answered interactions to export", zap.Time("since", since))
		return result, nil
	}

	data, count, err := j.manager.ExportToJSONL(interactions, j.config.MinScore)
	if err != nil {
		return nil, fmt.Errorf("failed to export to JSONL: %w", err)
	}
	result.Exported = count

	if count > 0 {
		if err := os.MkdirAll(j.config.ExportDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
		filename := fmt.Sprintf("transcripts_%s.jsonl", j.now().UTC().Format("20060102_150405"))
		path := filepath.Join(j.config.ExportDir, filename)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write export file: %w", err)
		}
		result.File = path
		j.logger.Info("exported transcripts", zap.Int("count", count), zap.String("file", path))
	} else {
		j.logger.Info("no interactions met the export threshold", zap.Int("scanned", len(interactions)), zap.Int("min_score", j.config.MinScore))
	}

	latest := *interactions[len(interactions)-1].AnsweredAt
	if err := j.manager.AdvanceCheckpoint(ctx, j.config.Checkpoint, latest); err != nil {
		return nil, fmt.Errorf("failed to advance checkpoint: %w", err)
	}
	return result, nil
}
