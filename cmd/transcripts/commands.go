package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"peerprep/interview/internal/jobs"
	"peerprep/interview/internal/models"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export interactions answered since the last checkpoint and advance it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			exporterCfg := &jobs.ExporterConfig{
				ExportDir:     s.cfg.Export.Dir,
				ExportEnabled: true,
				MinScore:      s.cfg.Export.MinScore,
			}
			if cmd.Flags().Changed("dir") {
				exporterCfg.ExportDir, _ = cmd.Flags().GetString("dir")
			}
			if cmd.Flags().Changed("min-score") {
				exporterCfg.MinScore, _ = cmd.Flags().GetInt("min-score")
			}
			if err := checkMinScore(exporterCfg.MinScore); err != nil {
				return err
			}
			exporterCfg.Checkpoint, _ = cmd.Flags().GetString("checkpoint")

			job := jobs.NewTranscriptExporterJob(s.manager, exporterCfg, s.logger)
			result, err := job.RunExport(cmd.Context())
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			s.logger.Debug("export finished", zap.Int("scanned", result.Scanned), zap.Int("exported", result.Exported))
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().String("dir", "", "directory for the JSONL file (default TRANSCRIPT_EXPORT_DIR)")
	cmd.Flags().Int("min-score", 0, "lowest interaction score exported (default TRANSCRIPT_EXPORT_MIN_SCORE)")
	cmd.Flags().String("checkpoint", "", "checkpoint name, separate names keep independent progress")
	return cmd
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print answered, exportable and pending interaction counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			minScore := s.cfg.Export.MinScore
			if cmd.Flags().Changed("min-score") {
				minScore, _ = cmd.Flags().GetInt("min-score")
			}
			if err := checkMinScore(minScore); err != nil {
				return err
			}

			stats, err := s.manager.GetStats(cmd.Context(), minScore)
			if err != nil {
				return fmt.Errorf("loading stats: %w", err)
			}
			return printJSON(cmd, stats)
		},
	}

	cmd.Flags().Int("min-score", 0, "score threshold for exportable turns (default TRANSCRIPT_EXPORT_MIN_SCORE)")
	return cmd
}

func checkMinScore(score int) error {
	if score < models.MinInteractionScore || score > models.MaxInteractionScore {
		return fmt.Errorf("min-score must be between %d and %d", models.MinInteractionScore, models.MaxInteractionScore)
	}
	return nil
}
