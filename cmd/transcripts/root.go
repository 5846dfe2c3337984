package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"peerprep/interview/internal/config"
	"peerprep/interview/internal/database"
	"peerprep/interview/internal/transcripts"
)

const app = "transcripts"

type store struct {
	cfg     *config.Config
	db      *gorm.DB
	manager *transcripts.Manager
	logger  *zap.Logger
}

func (s *store) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = s.logger.Sync()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           app,
		Short:         "Export answered interview turns as JSONL training data",
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")

	root.AddCommand(newExportCmd(), newStatsCmd())
	return root
}

// openStore loads the service configuration and connects to its database.
func openStore(cmd *cobra.Command) (*store, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	logger, err := newLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	return &store{
		cfg:     cfg,
		db:      db,
		manager: transcripts.NewManager(db, transcripts.Options{Logger: logger}),
		logger:  logger,
	}, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	// keep stdout for command output
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
