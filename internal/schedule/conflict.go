// internal/schedule/conflict.go
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// BusyProvider yields a player's committed intervals (confirmed bookings and
// explicitly blocked availability) intersecting a window. Production wires
// the SQLite store; tests inject fixtures.
type BusyProvider interface {
	BusyIntervals(ctx context.Context, playerID string, window Interval) ([]Interval, error)
}

// UpstreamError reports that one or more players' calendar data could not be
// retrieved. Callers use it to distinguish "nobody is free" from "we could
// not determine availability".
type UpstreamError struct {
	PlayerIDs []string
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("calendar data unavailable for %s: %v", strings.Join(e.PlayerIDs, ", "), e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Detector answers whether a candidate interval collides with a player's
// existing commitments. Undeclared time is not a conflict; only a concrete
// booking or block is.
type Detector struct {
	busy BusyProvider
}

// NewDetector builds a conflict detector over the given provider.
func NewDetector(busy BusyProvider) (*Detector, error) {
	if busy == nil {
		return nil, errors.New("conflict detector requires a busy provider")
	}
	return &Detector{busy: busy}, nil
}

// HasConflict reports whether candidate overlaps any committed interval for
// the player. On retrieval failure it fails closed: the candidate is reported
// as conflicting and the error carries the unresolved player.
func (d *Detector) HasConflict(ctx context.Context, playerID string, candidate Interval) (bool, error) {
	busy, err := d.busy.BusyIntervals(ctx, playerID, candidate)
	if err != nil {
		return true, &UpstreamError{PlayerIDs: []string{playerID}, Err: err}
	}
	for _, interval := range busy {
		if candidate.Overlaps(interval) {
			return true, nil
		}
	}
	return false, nil
}
