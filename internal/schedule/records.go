// internal/schedule/records.go
package schedule

import (
	"fmt"
	"time"
)

// Booking statuses. Only confirmed bookings contribute to busy time; a
// cancelled booking drops out of every derivation.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

const minutesPerDay = 24 * 60

// AvailabilityRecord is one player's declared free (or blocked) time on a
// single calendar date. Start and end are minutes from midnight; a blocked
// record overrides its own availability flag.
type AvailabilityRecord struct {
	ID           int64
	PlayerID     string
	Date         time.Time // midnight in the engine location
	StartMinute  int
	EndMinute    int
	Available    bool
	Blocked      bool
	PrivacyLevel string
}

// Validate rejects malformed minute ranges before any derivation runs.
func (r AvailabilityRecord) Validate() error {
	return validateMinuteRange(r.StartMinute, r.EndMinute)
}

// Interval resolves the record to an absolute half-open interval.
func (r AvailabilityRecord) Interval() Interval {
	return minuteInterval(r.Date, r.StartMinute, r.EndMinute)
}

// BookingRecord is a confirmed (or pending/cancelled) match between one or
// more players on a single calendar date.
type BookingRecord struct {
	ID          int64
	PublicID    string
	PlayerIDs   []string
	Date        time.Time
	StartMinute int
	EndMinute   int
	Status      string

	// SourceAvailabilityID, when set, names the availability declaration
	// this booking supersedes. The declaration is consumed when the booking
	// is persisted.
	SourceAvailabilityID *int64
}

// Validate rejects malformed minute ranges.
func (b BookingRecord) Validate() error {
	return validateMinuteRange(b.StartMinute, b.EndMinute)
}

// Interval resolves the booking to an absolute half-open interval.
func (b BookingRecord) Interval() Interval {
	return minuteInterval(b.Date, b.StartMinute, b.EndMinute)
}

// Committed reports whether the booking occupies calendar time.
func (b BookingRecord) Committed() bool {
	return b.Status == BookingStatusConfirmed
}

func validateMinuteRange(start, end int) error {
	if start < 0 || end > minutesPerDay || start >= end {
		return fmt.Errorf("%w: minutes %d-%d", ErrInvalidInterval, start, end)
	}
	return nil
}

func minuteInterval(date time.Time, startMinute, endMinute int) Interval {
	return Interval{
		Start: date.Add(time.Duration(startMinute) * time.Minute),
		End:   date.Add(time.Duration(endMinute) * time.Minute),
	}
}
