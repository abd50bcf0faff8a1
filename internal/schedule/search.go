// internal/schedule/search.go
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultSearchStep is the enumeration step between candidate starts.
	DefaultSearchStep = 30 * time.Minute
	// DefaultMaxSuggestions caps the response size.
	DefaultMaxSuggestions = 10
)

// PreferredWindow narrows the search to a start/end hour on one weekday.
type PreferredWindow struct {
	DayOfWeek time.Weekday
	StartHour int
	EndHour   int
}

func (w PreferredWindow) validate() error {
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return fmt.Errorf("day_of_week %d out of range", w.DayOfWeek)
	}
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return fmt.Errorf("preferred hours %d-%d must satisfy 0 <= start < end <= 24", w.StartHour, w.EndHour)
	}
	return nil
}

// SearchRequest asks for time windows where every listed player is free.
type SearchRequest struct {
	PlayerIDs []string
	StartDate time.Time // midnight in the engine location
	EndDate   time.Time
	Duration  time.Duration
	Preferred []PreferredWindow
}

// SuggestionSlot is one candidate meeting time, conflict-free for every
// player listed.
type SuggestionSlot struct {
	Start            time.Time
	End              time.Time
	PlayersAvailable []string
}

// SearchConfig tunes the enumeration. The 30-minute step and 10-slot cap are
// defaults, not business rules.
type SearchConfig struct {
	Step           time.Duration
	MaxSuggestions int
	DayStartHour   int
	DayEndHour     int
}

// DefaultSearchConfig returns the stock step, cap, and display window.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Step:           DefaultSearchStep,
		MaxSuggestions: DefaultMaxSuggestions,
		DayStartHour:   DefaultDayStartHour,
		DayEndHour:     DefaultDayEndHour,
	}
}

// CalendarProvider yields both sides of a player's calendar: committed
// (busy) intervals and declared-available intervals. A slot is only worth
// offering when every participant has declared it free, so the searcher
// needs both.
type CalendarProvider interface {
	BusyProvider
	FreeIntervals(ctx context.Context, playerID string, window Interval) ([]Interval, error)
}

// playerCalendar is one player's fetched busy and declared-available sets,
// both merged.
type playerCalendar struct {
	busy []Interval
	free []Interval
}

// Searcher enumerates common free slots across players' calendars. It is
// stateless per invocation: calendars are fetched once per request and the
// compute pass is pure.
type Searcher struct {
	cfg      SearchConfig
	calendar CalendarProvider
}

// NewSearcher builds a searcher over the given provider. Zero config fields
// fall back to defaults.
func NewSearcher(cfg SearchConfig, calendar CalendarProvider) (*Searcher, error) {
	if calendar == nil {
		return nil, errors.New("searcher requires a calendar provider")
	}
	defaults := DefaultSearchConfig()
	if cfg.Step <= 0 {
		cfg.Step = defaults.Step
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = defaults.MaxSuggestions
	}
	if cfg.DayStartHour == 0 && cfg.DayEndHour == 0 {
		cfg.DayStartHour = defaults.DayStartHour
		cfg.DayEndHour = defaults.DayEndHour
	}
	if cfg.DayStartHour < 0 || cfg.DayEndHour > 24 || cfg.DayStartHour >= cfg.DayEndHour {
		return nil, errors.New("search window must satisfy 0 <= start < end <= 24")
	}
	return &Searcher{cfg: cfg, calendar: calendar}, nil
}

// FindCommonSlots fetches every player's calendar concurrently, then
// enumerates candidate intervals in chronological order, keeping those every
// player has declared free and no player has committed. Undeclared time is
// never offered. A failed fetch for any player fails the whole request; an
// empty result is a successful response.
func (s *Searcher) FindCommonSlots(ctx context.Context, req SearchRequest) ([]SuggestionSlot, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	startDate := truncateToDay(req.StartDate)
	endDate := truncateToDay(req.EndDate)
	window := Interval{Start: startDate, End: endDate.AddDate(0, 0, 1)}

	calendars, err := s.fetchCalendars(ctx, req.PlayerIDs, window)
	if err != nil {
		return nil, err
	}

	suggestions := s.enumerate(req, startDate, endDate, calendars)

	log.Ctx(ctx).Debug().
		Int("players", len(req.PlayerIDs)).
		Int("suggestions", len(suggestions)).
		Time("start_date", startDate).
		Time("end_date", endDate).
		Msg("Common availability search completed")

	return suggestions, nil
}

func (s *Searcher) validateRequest(req SearchRequest) error {
	if len(req.PlayerIDs) == 0 {
		return errors.New("at least one player is required")
	}
	if req.Duration <= 0 {
		return fmt.Errorf("%w: duration %s", ErrInvalidInterval, req.Duration)
	}
	if truncateToDay(req.EndDate).Before(truncateToDay(req.StartDate)) {
		return errors.New("start date must be on or before end date")
	}
	for _, window := range req.Preferred {
		if err := window.validate(); err != nil {
			return err
		}
	}
	return nil
}

// fetchCalendars retrieves all players' busy and declared-available
// intervals concurrently. Every fetch runs to completion so a single
// aggregate error can name every player that failed.
func (s *Searcher) fetchCalendars(ctx context.Context, playerIDs []string, window Interval) (map[string]playerCalendar, error) {
	calendars := make([]playerCalendar, len(playerIDs))
	fetchErrs := make([]error, len(playerIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, playerID := range playerIDs {
		g.Go(func() error {
			busy, err := s.calendar.BusyIntervals(gctx, playerID, window)
			if err != nil {
				fetchErrs[i] = err
				return nil
			}
			free, err := s.calendar.FreeIntervals(gctx, playerID, window)
			if err != nil {
				fetchErrs[i] = err
				return nil
			}
			calendars[i] = playerCalendar{busy: MergeIntervals(busy), free: MergeIntervals(free)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failed []string
	var firstErr error
	for i, err := range fetchErrs {
		if err == nil {
			continue
		}
		failed = append(failed, playerIDs[i])
		if firstErr == nil {
			firstErr = err
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return nil, &UpstreamError{PlayerIDs: failed, Err: firstErr}
	}

	result := make(map[string]playerCalendar, len(playerIDs))
	for i, playerID := range playerIDs {
		result[playerID] = calendars[i]
	}
	return result, nil
}

func (s *Searcher) enumerate(req SearchRequest, startDate, endDate time.Time, calendars map[string]playerCalendar) []SuggestionSlot {
	preferred := make(map[time.Weekday]PreferredWindow, len(req.Preferred))
	for _, window := range req.Preferred {
		preferred[window.DayOfWeek] = window
	}

	suggestions := make([]SuggestionSlot, 0, s.cfg.MaxSuggestions)
	for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
		startHour, endHour := s.cfg.DayStartHour, s.cfg.DayEndHour
		if window, ok := preferred[date.Weekday()]; ok {
			startHour, endHour = window.StartHour, window.EndHour
		}

		dayOpen := date.Add(time.Duration(startHour) * time.Hour)
		dayClose := date.Add(time.Duration(endHour) * time.Hour)
		for start := dayOpen; !start.Add(req.Duration).After(dayClose); start = start.Add(s.cfg.Step) {
			candidate := Interval{Start: start, End: start.Add(req.Duration)}
			if !s.freeForAll(candidate, req.PlayerIDs, calendars) {
				continue
			}
			suggestions = append(suggestions, SuggestionSlot{
				Start:            candidate.Start,
				End:              candidate.End,
				PlayersAvailable: append([]string(nil), req.PlayerIDs...),
			})
			if len(suggestions) == s.cfg.MaxSuggestions {
				return suggestions
			}
		}
	}
	return suggestions
}

// freeForAll reports whether every player both declared the candidate
// available and has no committed interval crossing it. A merged free set
// covers the candidate iff a single interval in it does.
func (s *Searcher) freeForAll(candidate Interval, playerIDs []string, calendars map[string]playerCalendar) bool {
	for _, playerID := range playerIDs {
		calendar := calendars[playerID]
		if !coveredBy(calendar.free, candidate) {
			return false
		}
		for _, busy := range calendar.busy {
			if candidate.Overlaps(busy) {
				return false
			}
		}
	}
	return true
}

func coveredBy(free []Interval, candidate Interval) bool {
	for _, interval := range free {
		if interval.Covers(candidate) {
			return true
		}
	}
	return false
}
