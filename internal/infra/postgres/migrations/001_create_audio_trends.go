package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createAudioTrendsTable creates the current-view table keyed by platform and id.
func createAudioTrendsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "001_create_audio_trends",
		Migrate: func(tx *gorm.DB) error {
			err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS audio_trends (
					platform VARCHAR(20) NOT NULL,
					id VARCHAR(100) NOT NULL,
					title VARCHAR(500) NOT NULL,
					author VARCHAR(300) NOT NULL,

					-- Metrics
					play_count BIGINT NOT NULL DEFAULT 0,
					rank INTEGER NOT NULL,
					growth_rate DOUBLE PRECISION NOT NULL DEFAULT 0,

					cover_url TEXT NOT NULL DEFAULT '',
					updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,

					PRIMARY KEY (platform, id)
				);
			`).Error
			if err != nil {
				return err
			}

			return tx.Exec("CREATE INDEX IF NOT EXISTS idx_audio_trends_rank ON audio_trends(platform, rank);").Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS audio_trends;").Error
		},
	}
}
