package database

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"peerprep/interview/internal/config"
	"peerprep/interview/internal/models"
)

// Open connects to the configured database and applies pending migrations.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.Open(cfg.PostgresDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// Migrate brings the schema up to date. Each migration is applied once and recorded
// in gormigrate's migrations table.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_sessions_interactions",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Session{}, &models.Interaction{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("interactions", "sessions")
			},
		},
		{
			ID: "002_skill_profiles_history",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.SkillProfileEntry{}, &models.SkillHistoryRecord{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("skill_history", "skill_profiles")
			},
		},
		{
			ID: "003_export_checkpoints",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.ExportCheckpoint{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("export_checkpoints")
			},
		},
	})
	return m.Migrate()
}
