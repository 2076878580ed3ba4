package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createAudioTrendHistoryTable creates the append-only snapshot table used for growth calculation.
func createAudioTrendHistoryTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "002_create_audio_trend_history",
		Migrate: func(tx *gorm.DB) error {
			err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS audio_trend_history (
					history_id BIGSERIAL PRIMARY KEY,
					platform VARCHAR(20) NOT NULL,
					id VARCHAR(100) NOT NULL,
					rank INTEGER,
					play_count BIGINT,
					snapshot_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`).Error
			if err != nil {
				return err
			}

			// Latest-snapshot lookups walk this index newest first
			return tx.Exec(
				"CREATE INDEX IF NOT EXISTS idx_audio_trend_history_lookup ON audio_trend_history(platform, id, snapshot_at DESC);",
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS audio_trend_history;").Error
		},
	}
}
