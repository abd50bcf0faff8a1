package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fixtureBusyProvider serves canned busy intervals per player, or a canned
// error for players listed in failFor.
type fixtureBusyProvider struct {
	busy    map[string][]Interval
	failFor map[string]error
}

func (p *fixtureBusyProvider) BusyIntervals(_ context.Context, playerID string, window Interval) ([]Interval, error) {
	if err, ok := p.failFor[playerID]; ok {
		return nil, err
	}
	var result []Interval
	for _, interval := range p.busy[playerID] {
		if interval.Overlaps(window) {
			result = append(result, interval)
		}
	}
	return result, nil
}

func busyAt(t *testing.T, day time.Time, startHour, startMinute, endHour, endMinute int) Interval {
	t.Helper()
	interval, err := NewInterval(
		day.Add(time.Duration(startHour)*time.Hour+time.Duration(startMinute)*time.Minute),
		day.Add(time.Duration(endHour)*time.Hour+time.Duration(endMinute)*time.Minute),
	)
	if err != nil {
		t.Fatalf("busy interval: %v", err)
	}
	return interval
}

func TestHasConflict(t *testing.T) {
	provider := &fixtureBusyProvider{
		busy: map[string][]Interval{
			"player-a": {busyAt(t, testDay, 10, 0, 11, 0)},
		},
	}
	detector, err := NewDetector(provider)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name      string
		candidate Interval
		want      bool
	}{
		{"inside booking", busyAt(t, testDay, 10, 15, 10, 45), true},
		{"after booking", busyAt(t, testDay, 11, 0, 11, 30), false},
		{"ends when booking begins", busyAt(t, testDay, 9, 0, 10, 0), false},
		{"starts when booking ends", busyAt(t, testDay, 11, 0, 12, 0), false},
		{"straddles booking start", busyAt(t, testDay, 9, 30, 10, 30), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detector.HasConflict(ctx, "player-a", tt.candidate)
			if err != nil {
				t.Fatalf("has conflict: %v", err)
			}
			if got != tt.want {
				t.Fatalf("conflict = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasConflict_NoCommitmentsNoConflict(t *testing.T) {
	detector, err := NewDetector(&fixtureBusyProvider{})
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}

	conflict, err := detector.HasConflict(context.Background(), "player-b", busyAt(t, testDay, 9, 0, 10, 0))
	if err != nil {
		t.Fatalf("has conflict: %v", err)
	}
	if conflict {
		t.Fatal("undeclared time should not be a conflict")
	}
}

func TestHasConflict_FailsClosedOnFetchError(t *testing.T) {
	fetchErr := errors.New("store unreachable")
	detector, err := NewDetector(&fixtureBusyProvider{
		failFor: map[string]error{"player-a": fetchErr},
	})
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}

	conflict, err := detector.HasConflict(context.Background(), "player-a", busyAt(t, testDay, 9, 0, 10, 0))
	if !conflict {
		t.Fatal("fetch failure must report a conflict")
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if len(upstream.PlayerIDs) != 1 || upstream.PlayerIDs[0] != "player-a" {
		t.Fatalf("unresolved players: %v", upstream.PlayerIDs)
	}
	if !errors.Is(err, fetchErr) {
		t.Fatal("UpstreamError should wrap the fetch error")
	}
}
