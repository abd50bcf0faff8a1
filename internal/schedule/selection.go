// internal/schedule/selection.go
package schedule

import "time"

// SelectionPhase is the state of the drag-to-select machine.
type SelectionPhase int

const (
	PhaseIdle SelectionPhase = iota
	PhaseSelecting
	PhaseCommitted
)

func (p SelectionPhase) String() string {
	switch p {
	case PhaseSelecting:
		return "selecting"
	case PhaseCommitted:
		return "committed"
	default:
		return "idle"
	}
}

// GridCell identifies one 15-minute cell on one date, with its resolved state.
type GridCell struct {
	Date    time.Time
	Hour    int
	Quarter int
	State   CellState
}

// Eligible reports whether the cell can anchor a selection: declared
// available and not already booked.
func (c GridCell) Eligible() bool {
	return c.State == StateAvailable
}

func (c GridCell) startMinute() int {
	return c.Hour*60 + c.Quarter*quarterMinutes
}

func (c GridCell) sameDate(other GridCell) bool {
	return truncateToDay(c.Date).Equal(truncateToDay(other.Date))
}

// Selection turns a stream of discrete cell picks into one canonical interval.
// It never mutates persisted state; release hands the interval to the caller,
// which submits it through the booking interface. Driven by a single pointer
// stream, so it needs no synchronization.
type Selection struct {
	phase   SelectionPhase
	anchor  GridCell
	current GridCell
}

// NewSelection returns an idle machine.
func NewSelection() *Selection {
	return &Selection{phase: PhaseIdle}
}

// Phase returns the current machine state.
func (s *Selection) Phase() SelectionPhase {
	return s.phase
}

// Press begins a selection on an eligible cell. A press on an ineligible cell
// is ignored and the machine stays idle. A committed machine restarts.
func (s *Selection) Press(cell GridCell) bool {
	if s.phase == PhaseSelecting {
		return false
	}
	if !cell.Eligible() {
		s.phase = PhaseIdle
		return false
	}
	s.phase = PhaseSelecting
	s.anchor = cell
	s.current = cell
	return true
}

// Move extends the selection to cell. Cross-date drags are not supported: the
// anchor's date bounds the span, and moves onto another date are ignored.
func (s *Selection) Move(cell GridCell) {
	if s.phase != PhaseSelecting {
		return
	}
	if !cell.sameDate(s.anchor) {
		return
	}
	s.current = cell
}

// Release commits the selection. It returns the canonical interval from the
// earlier cell's start to the later cell's end, or false when no selection
// was in progress.
func (s *Selection) Release() (Interval, bool) {
	if s.phase != PhaseSelecting {
		s.phase = PhaseIdle
		return Interval{}, false
	}
	s.phase = PhaseCommitted

	first, last := s.anchor, s.current
	if last.startMinute() < first.startMinute() {
		first, last = last, first
	}
	date := truncateToDay(first.Date)
	return Interval{
		Start: date.Add(time.Duration(first.startMinute()) * time.Minute),
		End:   date.Add(time.Duration(last.startMinute()+quarterMinutes) * time.Minute),
	}, true
}

// Abandon resets a selection in progress, e.g. when the pointer leaves the
// interactive surface without release.
func (s *Selection) Abandon() {
	s.phase = PhaseIdle
}

// Reset returns the machine to idle; called when the owning view is torn down.
func (s *Selection) Reset() {
	s.phase = PhaseIdle
	s.anchor = GridCell{}
	s.current = GridCell{}
}
