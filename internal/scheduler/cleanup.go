// internal/scheduler/cleanup.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtline/courtline/internal/config"
	"github.com/courtline/courtline/internal/db"
)

const cleanupJobTimeout = 2 * time.Minute

// RegisterCleanupJob schedules the nightly retention sweep: availability
// declarations older than the retention horizon are purged, and bookings
// still pending after their day has passed are cancelled.
func RegisterCleanupJob(svc *Service, database *db.DB, cfg config.RetentionConfig) error {
	if svc == nil {
		return fmt.Errorf("cleanup job requires scheduler")
	}
	if database == nil {
		return fmt.Errorf("cleanup job requires database")
	}

	jobName := "calendar_cleanup"
	jobLogger := log.With().
		Str("component", "calendar_cleanup_job").
		Str("job_name", jobName).
		Str("cron", cfg.CleanupCron).
		Logger()

	_, err := svc.AddJob(jobName, cfg.CleanupCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		RunCleanup(ctx, database, cfg.AvailabilityDays, time.Now())
	})
	if err != nil {
		return fmt.Errorf("register cleanup job: %w", err)
	}
	return nil
}

// RunCleanup performs one retention sweep relative to now. Split out from the
// cron registration so it can be invoked directly in tests.
func RunCleanup(ctx context.Context, database *db.DB, retentionDays int, now time.Time) {
	logger := log.Ctx(ctx)

	cutoff := now.In(database.Location()).AddDate(0, 0, -retentionDays)
	purged, err := database.PurgeAvailabilityBefore(ctx, cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to purge expired availability")
	} else if purged > 0 {
		logger.Info().
			Int64("purged", purged).
			Time("cutoff", cutoff).
			Msg("Purged expired availability")
	}

	today := now.In(database.Location())
	expired, err := database.ExpirePendingBookingsBefore(ctx, today)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to expire stale pending bookings")
	} else if expired > 0 {
		logger.Info().Int64("expired", expired).Msg("Cancelled stale pending bookings")
	}
}
