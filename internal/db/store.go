// internal/db/store.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/courtline/courtline/internal/schedule"
)

const dayLayout = "2006-01-02"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Player is a registered league member. The engine treats player identity as
// opaque; this table exists so availability and bookings have an owner.
type Player struct {
	ID    string
	Name  string
	Email string
}

func (db *DB) dayString(date time.Time) string {
	return date.In(db.loc).Format(dayLayout)
}

func (db *DB) parseDay(raw string) (time.Time, error) {
	day, err := time.ParseInLocation(dayLayout, raw, db.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored day %q: %w", raw, err)
	}
	return day, nil
}

// CreatePlayer inserts a player row.
func (db *DB) CreatePlayer(ctx context.Context, player Player) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO players (id, name, email) VALUES (?, ?, ?)",
		player.ID, player.Name, player.Email,
	)
	if err != nil {
		return fmt.Errorf("create player: %w", err)
	}
	return nil
}

// GetPlayer loads one player by id.
func (db *DB) GetPlayer(ctx context.Context, playerID string) (Player, error) {
	var player Player
	err := db.QueryRowContext(ctx,
		"SELECT id, name, email FROM players WHERE id = ?", playerID,
	).Scan(&player.ID, &player.Name, &player.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return Player{}, fmt.Errorf("get player: %w", err)
	}
	return player, nil
}

// CreateAvailability inserts one availability declaration and returns it with
// its assigned id.
func (db *DB) CreateAvailability(ctx context.Context, record schedule.AvailabilityRecord) (schedule.AvailabilityRecord, error) {
	if err := record.Validate(); err != nil {
		return schedule.AvailabilityRecord{}, err
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO availability (player_id, day, start_minute, end_minute, is_available, is_blocked, privacy_level)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.PlayerID, db.dayString(record.Date), record.StartMinute, record.EndMinute,
		record.Available, record.Blocked, record.PrivacyLevel,
	)
	if err != nil {
		return schedule.AvailabilityRecord{}, fmt.Errorf("create availability: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return schedule.AvailabilityRecord{}, fmt.Errorf("availability id: %w", err)
	}
	record.ID = id
	record.Date = truncateDay(record.Date.In(db.loc))
	return record, nil
}

// DeleteAvailability removes one declaration; only the owning player's rows
// match.
func (db *DB) DeleteAvailability(ctx context.Context, id int64, playerID string) error {
	result, err := db.ExecContext(ctx,
		"DELETE FROM availability WHERE id = ? AND player_id = ?", id, playerID,
	)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("availability %d for %s: %w", id, playerID, ErrNotFound)
	}
	return nil
}

// ListAvailability returns a player's declarations over [startDate, endDate].
func (db *DB) ListAvailability(ctx context.Context, playerID string, startDate, endDate time.Time) ([]schedule.AvailabilityRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, player_id, day, start_minute, end_minute, is_available, is_blocked, privacy_level
		 FROM availability
		 WHERE player_id = ? AND day >= ? AND day <= ?
		 ORDER BY day, start_minute, id`,
		playerID, db.dayString(startDate), db.dayString(endDate),
	)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	defer rows.Close()

	var records []schedule.AvailabilityRecord
	for rows.Next() {
		var record schedule.AvailabilityRecord
		var day string
		if err := rows.Scan(&record.ID, &record.PlayerID, &day, &record.StartMinute,
			&record.EndMinute, &record.Available, &record.Blocked, &record.PrivacyLevel); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		if record.Date, err = db.parseDay(day); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return records, nil
}

// ListBookings returns every booking a player participates in over
// [startDate, endDate], regardless of status.
func (db *DB) ListBookings(ctx context.Context, playerID string, startDate, endDate time.Time) ([]schedule.BookingRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT b.id, b.public_id, b.day, b.start_minute, b.end_minute, b.status
		 FROM bookings b
		 JOIN booking_participants bp ON bp.booking_id = b.id
		 WHERE bp.player_id = ? AND b.day >= ? AND b.day <= ?
		 ORDER BY b.day, b.start_minute, b.id`,
		playerID, db.dayString(startDate), db.dayString(endDate),
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []schedule.BookingRecord
	for rows.Next() {
		var booking schedule.BookingRecord
		var day string
		if err := rows.Scan(&booking.ID, &booking.PublicID, &day,
			&booking.StartMinute, &booking.EndMinute, &booking.Status); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if booking.Date, err = db.parseDay(day); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	for i := range bookings {
		participants, err := db.listBookingParticipants(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].PlayerIDs = participants
	}
	return bookings, nil
}

func (db *DB) listBookingParticipants(ctx context.Context, bookingID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT player_id FROM booking_participants WHERE booking_id = ? ORDER BY player_id",
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list booking participants: %w", err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var playerID string
		if err := rows.Scan(&playerID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, playerID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list booking participants: %w", err)
	}
	return participants, nil
}

// CreateBooking inserts a booking and its participant rows in one
// transaction and returns the stored record.
func (db *DB) CreateBooking(ctx context.Context, booking schedule.BookingRecord) (schedule.BookingRecord, error) {
	if err := booking.Validate(); err != nil {
		return schedule.BookingRecord{}, err
	}
	if booking.PublicID == "" {
		return schedule.BookingRecord{}, errors.New("booking public id is required")
	}
	if len(booking.PlayerIDs) == 0 {
		return schedule.BookingRecord{}, errors.New("booking requires at least one participant")
	}
	if booking.Status == "" {
		booking.Status = schedule.BookingStatusConfirmed
	}

	err := db.RunInTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO bookings (public_id, day, start_minute, end_minute, status)
			 VALUES (?, ?, ?, ?, ?)`,
			booking.PublicID, db.dayString(booking.Date), booking.StartMinute, booking.EndMinute, booking.Status,
		)
		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("booking id: %w", err)
		}
		booking.ID = id

		for _, playerID := range booking.PlayerIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO booking_participants (booking_id, player_id) VALUES (?, ?)",
				id, playerID,
			); err != nil {
				return fmt.Errorf("add booking participant %s: %w", playerID, err)
			}
		}

		if booking.SourceAvailabilityID != nil {
			if err := consumeAvailability(ctx, tx, *booking.SourceAvailabilityID, booking.PlayerIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return schedule.BookingRecord{}, err
	}
	booking.Date = truncateDay(booking.Date.In(db.loc))
	return booking, nil
}

// consumeAvailability deletes the declaration a booking supersedes. The
// declaration must belong to one of the booking's participants; anything
// else rolls the booking back with ErrNotFound.
func consumeAvailability(ctx context.Context, tx *sql.Tx, availabilityID int64, playerIDs []string) error {
	placeholders := strings.Repeat("?,", len(playerIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(playerIDs)+1)
	args = append(args, availabilityID)
	for _, id := range playerIDs {
		args = append(args, id)
	}

	result, err := tx.ExecContext(ctx,
		"DELETE FROM availability WHERE id = ? AND player_id IN ("+placeholders+")", args...,
	)
	if err != nil {
		return fmt.Errorf("consume availability %d: %w", availabilityID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume availability %d: %w", availabilityID, err)
	}
	if affected == 0 {
		return fmt.Errorf("source availability %d: %w", availabilityID, ErrNotFound)
	}
	return nil
}

// CancelBooking marks a booking cancelled, removing it from every busy set.
func (db *DB) CancelBooking(ctx context.Context, publicID string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, cancelled_at = CURRENT_TIMESTAMP
		 WHERE public_id = ? AND status != ?`,
		schedule.BookingStatusCancelled, publicID, schedule.BookingStatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("booking %s: %w", publicID, ErrNotFound)
	}
	return nil
}

// BusyIntervals returns the union of a player's confirmed bookings and
// explicitly blocked availability intersecting window. Implements
// schedule.BusyProvider.
func (db *DB) BusyIntervals(ctx context.Context, playerID string, window schedule.Interval) ([]schedule.Interval, error) {
	startDay := db.dayString(window.Start)
	endDay := db.dayString(window.End)

	var intervals []schedule.Interval

	rows, err := db.QueryContext(ctx,
		`SELECT b.day, b.start_minute, b.end_minute
		 FROM bookings b
		 JOIN booking_participants bp ON bp.booking_id = b.id
		 WHERE bp.player_id = ? AND b.status = ? AND b.day >= ? AND b.day <= ?`,
		playerID, schedule.BookingStatusConfirmed, startDay, endDay,
	)
	if err != nil {
		return nil, fmt.Errorf("busy bookings: %w", err)
	}
	intervals, err = db.appendMinuteIntervals(intervals, rows, window)
	if err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx,
		`SELECT day, start_minute, end_minute
		 FROM availability
		 WHERE player_id = ? AND is_blocked = 1 AND day >= ? AND day <= ?`,
		playerID, startDay, endDay,
	)
	if err != nil {
		return nil, fmt.Errorf("busy blocks: %w", err)
	}
	intervals, err = db.appendMinuteIntervals(intervals, rows, window)
	if err != nil {
		return nil, err
	}

	return schedule.MergeIntervals(intervals), nil
}

// FreeIntervals returns the player's declared-available time intersecting
// window, merged. Blocked declarations do not count. Implements
// schedule.CalendarProvider together with BusyIntervals.
func (db *DB) FreeIntervals(ctx context.Context, playerID string, window schedule.Interval) ([]schedule.Interval, error) {
	startDay := db.dayString(window.Start)
	endDay := db.dayString(window.End)

	rows, err := db.QueryContext(ctx,
		`SELECT day, start_minute, end_minute
		 FROM availability
		 WHERE player_id = ? AND is_available = 1 AND is_blocked = 0 AND day >= ? AND day <= ?`,
		playerID, startDay, endDay,
	)
	if err != nil {
		return nil, fmt.Errorf("free intervals: %w", err)
	}

	var intervals []schedule.Interval
	intervals, err = db.appendMinuteIntervals(intervals, rows, window)
	if err != nil {
		return nil, err
	}
	return schedule.MergeIntervals(intervals), nil
}

func (db *DB) appendMinuteIntervals(intervals []schedule.Interval, rows *sql.Rows, window schedule.Interval) ([]schedule.Interval, error) {
	defer rows.Close()
	for rows.Next() {
		var day string
		var startMinute, endMinute int
		if err := rows.Scan(&day, &startMinute, &endMinute); err != nil {
			return nil, fmt.Errorf("scan calendar interval: %w", err)
		}
		date, err := db.parseDay(day)
		if err != nil {
			return nil, err
		}
		interval := schedule.Interval{
			Start: date.Add(time.Duration(startMinute) * time.Minute),
			End:   date.Add(time.Duration(endMinute) * time.Minute),
		}
		if interval.Overlaps(window) {
			intervals = append(intervals, interval)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("calendar intervals: %w", err)
	}
	return intervals, nil
}

// PurgeAvailabilityBefore deletes availability declarations for days strictly
// before cutoff. Used by the retention job.
func (db *DB) PurgeAvailabilityBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		"DELETE FROM availability WHERE day < ?", db.dayString(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("purge availability: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge availability: %w", err)
	}
	return affected, nil
}

// ExpirePendingBookingsBefore cancels bookings still pending once their day
// has passed.
func (db *DB) ExpirePendingBookingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, cancelled_at = CURRENT_TIMESTAMP
		 WHERE status = ? AND day < ?`,
		schedule.BookingStatusCancelled, schedule.BookingStatusPending, db.dayString(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("expire pending bookings: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire pending bookings: %w", err)
	}
	return affected, nil
}

// PlayersExist verifies every id has a player row, returning the missing ids.
func (db *DB) PlayersExist(ctx context.Context, playerIDs []string) ([]string, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(playerIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(playerIDs))
	for i, id := range playerIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx,
		"SELECT id FROM players WHERE id IN ("+placeholders+")", args...,
	)
	if err != nil {
		return nil, fmt.Errorf("players exist: %w", err)
	}
	defer rows.Close()

	found := make(map[string]struct{}, len(playerIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan player id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("players exist: %w", err)
	}

	var missing []string
	for _, id := range playerIDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func truncateDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}
