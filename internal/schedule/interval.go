// internal/schedule/interval.go
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidInterval is returned when an interval's start is not strictly
// before its end.
var ErrInvalidInterval = errors.New("interval start must be before end")

// Interval is a half-open time range [Start, End). All engine computations
// operate on intervals in a single resolved location; construction rejects
// zero-length and inverted ranges.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval validates and builds an interval. Malformed ranges are rejected
// here so downstream operations never have to re-check.
func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("%w: start=%s end=%s", ErrInvalidInterval,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints do not count as overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether point falls inside the interval. The start is
// inclusive, the end exclusive.
func (iv Interval) Contains(point time.Time) bool {
	return !point.Before(iv.Start) && point.Before(iv.End)
}

// Covers reports whether other lies entirely within the interval.
func (iv Interval) Covers(other Interval) bool {
	return !iv.Start.After(other.Start) && !other.End.After(iv.End)
}

// Clip returns the intersection of the interval with window. The second
// return value is false when the two are disjoint.
func (iv Interval) Clip(window Interval) (Interval, bool) {
	if !iv.Overlaps(window) {
		return Interval{}, false
	}
	clipped := iv
	if window.Start.After(clipped.Start) {
		clipped.Start = window.Start
	}
	if window.End.Before(clipped.End) {
		clipped.End = window.End
	}
	return clipped, true
}

// MergeIntervals unions overlapping or adjacent intervals into a sorted,
// minimal set. The input slice is not modified. The result is independent of
// input ordering, which keeps busy-set computations deterministic.
func MergeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].End.Before(sorted[j].End)
	})

	merged := []Interval{sorted[0]}
	for _, current := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !current.Start.After(last.End) {
			if current.End.After(last.End) {
				last.End = current.End
			}
			continue
		}
		merged = append(merged, current)
	}
	return merged
}
