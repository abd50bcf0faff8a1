// internal/schedule/grid.go
package schedule

import (
	"errors"
	"time"
)

const (
	quarterMinutes  = 15
	quartersPerHour = 4

	// DefaultDayStartHour and DefaultDayEndHour bound the display window when
	// the caller supplies none.
	DefaultDayStartHour = 6
	DefaultDayEndHour   = 22
)

// CellState is the resolved occupancy of one 15-minute slice. Precedence when
// records overlap: Booked > Available > Unavailable.
type CellState int

const (
	StateUnavailable CellState = iota
	StateAvailable
	StateBooked
)

func (s CellState) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateBooked:
		return "booked"
	default:
		return "unavailable"
	}
}

// OccupancyCell is one derived 15-minute slice of a display hour. Cells are
// computed, never stored.
type OccupancyCell struct {
	Hour    int
	Quarter int
	State   CellState
}

// DayGrid is the resolved occupancy for one player on one date, four cells
// per display hour.
type DayGrid struct {
	Date  time.Time
	Cells []OccupancyCell
}

// StateAt returns the resolved state of the given quarter, or
// StateUnavailable for cells outside the display window.
func (d DayGrid) StateAt(hour, quarter int) CellState {
	for _, cell := range d.Cells {
		if cell.Hour == hour && cell.Quarter == quarter {
			return cell.State
		}
	}
	return StateUnavailable
}

// GridConfig bounds the hours a grid resolves.
type GridConfig struct {
	DayStartHour int
	DayEndHour   int
}

// DefaultGridConfig returns the 06:00-22:00 display window.
func DefaultGridConfig() GridConfig {
	return GridConfig{DayStartHour: DefaultDayStartHour, DayEndHour: DefaultDayEndHour}
}

func (c GridConfig) validate() error {
	if c.DayStartHour < 0 || c.DayEndHour > 24 || c.DayStartHour >= c.DayEndHour {
		return errors.New("grid display window must satisfy 0 <= start < end <= 24")
	}
	return nil
}

// BuildGrid derives the occupancy grid for a single player over
// [startDate, endDate], one DayGrid per date. Availability records are applied
// first, then confirmed bookings overlay Booked, which encodes the precedence
// rule. Records are a streaming merge: only the quarters a record actually
// touches are written, so cost scales with declared records rather than
// calendar span.
func BuildGrid(cfg GridConfig, startDate, endDate time.Time, availability []AvailabilityRecord, bookings []BookingRecord) ([]DayGrid, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	startDate = truncateToDay(startDate)
	endDate = truncateToDay(endDate)
	if endDate.Before(startDate) {
		return nil, errors.New("start date must be on or before end date")
	}

	quartersPerDay := (cfg.DayEndHour - cfg.DayStartHour) * quartersPerHour
	states := make(map[int64][]CellState)
	dayKey := func(date time.Time) int64 { return truncateToDay(date).Unix() }
	dayStates := func(date time.Time) []CellState {
		key := dayKey(date)
		if s, ok := states[key]; ok {
			return s
		}
		s := make([]CellState, quartersPerDay)
		states[key] = s
		return s
	}

	window := Interval{Start: startDate, End: endDate.AddDate(0, 0, 1)}

	for _, record := range availability {
		if err := record.Validate(); err != nil {
			return nil, err
		}
		if record.Blocked || !record.Available {
			// Blocked or withdrawn declarations leave cells unavailable.
			continue
		}
		if !record.Interval().Overlaps(window) {
			continue
		}
		paintQuarters(cfg, dayStates(record.Date), record.StartMinute, record.EndMinute, StateAvailable)
	}

	for _, booking := range bookings {
		if err := booking.Validate(); err != nil {
			return nil, err
		}
		if !booking.Committed() {
			continue
		}
		if !booking.Interval().Overlaps(window) {
			continue
		}
		paintQuarters(cfg, dayStates(booking.Date), booking.StartMinute, booking.EndMinute, StateBooked)
	}

	grids := make([]DayGrid, 0)
	for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
		cells := make([]OccupancyCell, 0, quartersPerDay)
		day := states[dayKey(date)]
		for i := 0; i < quartersPerDay; i++ {
			state := StateUnavailable
			if day != nil {
				state = day[i]
			}
			cells = append(cells, OccupancyCell{
				Hour:    cfg.DayStartHour + i/quartersPerHour,
				Quarter: i % quartersPerHour,
				State:   state,
			})
		}
		grids = append(grids, DayGrid{Date: date, Cells: cells})
	}
	return grids, nil
}

// paintQuarters writes state into every display quarter the minute range
// [startMinute, endMinute) intersects. The end boundary is half-open: a range
// ending exactly on a quarter boundary does not touch the following quarter.
func paintQuarters(cfg GridConfig, day []CellState, startMinute, endMinute int, state CellState) {
	firstQuarter := startMinute / quarterMinutes
	lastQuarter := (endMinute - 1) / quarterMinutes

	windowFirst := cfg.DayStartHour * quartersPerHour
	windowLast := cfg.DayEndHour*quartersPerHour - 1
	if firstQuarter < windowFirst {
		firstQuarter = windowFirst
	}
	if lastQuarter > windowLast {
		lastQuarter = windowLast
	}

	for q := firstQuarter; q <= lastQuarter; q++ {
		idx := q - windowFirst
		if state == StateBooked || day[idx] != StateBooked {
			day[idx] = state
		}
	}
}

func truncateToDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}
