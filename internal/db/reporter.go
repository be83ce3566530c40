package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartStatsReporter logs dataset counters with interval
func StartStatsReporter(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var records, countries int64
				err := db.QueryRowContext(ctx, `
                    SELECT COUNT(*), COUNT(DISTINCT country) FROM covid_cases
                `).Scan(&records, &countries)
				if err != nil {
					log.Error("failed to collect dataset stats", zap.Error(err))
					continue
				}
				log.Info("dataset stats",
					zap.Int64("records", records),
					zap.Int64("countries", countries),
				)
			}
		}
	}()
}
