package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/courtline/courtline/internal/config"
	"github.com/courtline/courtline/internal/db"
	"github.com/courtline/courtline/internal/schedule"
	"github.com/courtline/courtline/internal/testutil"
)

func defaultRetention() config.RetentionConfig {
	return config.RetentionConfig{AvailabilityDays: 90, CleanupCron: "30 3 * * *"}
}

func TestRunCleanup(t *testing.T) {
	database := testutil.NewTestDB(t)
	testutil.SeedPlayer(t, database, "player-a", "Ada")
	ctx := context.Background()

	now := time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)

	stale, err := database.CreateAvailability(ctx, schedule.AvailabilityRecord{
		PlayerID:     "player-a",
		Date:         now.AddDate(0, 0, -120),
		StartMinute:  9 * 60,
		EndMinute:    10 * 60,
		Available:    true,
		PrivacyLevel: "public",
	})
	if err != nil {
		t.Fatalf("seed stale availability: %v", err)
	}
	fresh, err := database.CreateAvailability(ctx, schedule.AvailabilityRecord{
		PlayerID:     "player-a",
		Date:         now,
		StartMinute:  9 * 60,
		EndMinute:    10 * 60,
		Available:    true,
		PrivacyLevel: "public",
	})
	if err != nil {
		t.Fatalf("seed fresh availability: %v", err)
	}
	if _, err := database.CreateBooking(ctx, schedule.BookingRecord{
		PublicID:    "booking-stale",
		PlayerIDs:   []string{"player-a"},
		Date:        now.AddDate(0, 0, -3),
		StartMinute: 10 * 60,
		EndMinute:   11 * 60,
		Status:      schedule.BookingStatusPending,
	}); err != nil {
		t.Fatalf("seed pending booking: %v", err)
	}

	RunCleanup(ctx, database, 90, now)

	if err := database.DeleteAvailability(ctx, stale.ID, "player-a"); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("stale availability should be purged: %v", err)
	}
	if err := database.DeleteAvailability(ctx, fresh.ID, "player-a"); err != nil {
		t.Fatalf("fresh availability should remain: %v", err)
	}

	bookings, err := database.ListBookings(ctx, "player-a", now.AddDate(0, 0, -3), now.AddDate(0, 0, -3))
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	if len(bookings) != 1 || bookings[0].Status != schedule.BookingStatusCancelled {
		t.Fatalf("stale booking: %+v", bookings)
	}
}

func TestRegisterCleanupJob_RequiresDeps(t *testing.T) {
	database := testutil.NewTestDB(t)

	if err := RegisterCleanupJob(nil, database, defaultRetention()); err == nil {
		t.Fatal("expected error without scheduler")
	}

	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer svc.Stop()

	if err := RegisterCleanupJob(svc, nil, defaultRetention()); err == nil {
		t.Fatal("expected error without database")
	}
	if err := RegisterCleanupJob(svc, database, defaultRetention()); err != nil {
		t.Fatalf("register cleanup job: %v", err)
	}
}
