// internal/api/search/handlers.go
package search

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtline/courtline/internal/api/apiutil"
	appdb "github.com/courtline/courtline/internal/db"
	"github.com/courtline/courtline/internal/schedule"
)

var (
	store     *appdb.DB
	searcher  *schedule.Searcher
	storeOnce sync.Once
)

const (
	queryTimeout = 10 * time.Second

	// maxParticipants and maxRangeDays bound a single request so the
	// enumeration stays small.
	maxParticipants = 16
	maxRangeDays    = 31
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, cfg schedule.SearchConfig) {
	if database == nil {
		return
	}
	storeOnce.Do(func() {
		store = database
		searcher, _ = schedule.NewSearcher(cfg, database)
	})
}

type preferredTime struct {
	DayOfWeek int `json:"day_of_week"`
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

type searchRequest struct {
	ParticipantIDs  []string        `json:"participant_ids"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	DurationMinutes int             `json:"duration_minutes"`
	PreferredTimes  []preferredTime `json:"preferred_times,omitempty"`
}

type suggestion struct {
	Start                 string   `json:"start"`
	End                   string   `json:"end"`
	ParticipantsAvailable []string `json:"participants_available"`
}

type searchResponse struct {
	Suggestions []suggestion `json:"suggestions"`
}

// POST /api/v1/search
func HandleSearch(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil || searcher == nil {
		logger.Error().Msg("Search engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req searchRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	engineReq, err := buildEngineRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	slots, err := searcher.FindCommonSlots(ctx, engineReq)
	if err != nil {
		var upstream *schedule.UpstreamError
		if errors.As(err, &upstream) {
			logger.Error().
				Err(err).
				Strs("unresolved_players", upstream.PlayerIDs).
				Msg("Calendar data unavailable for search")
			http.Error(w, "Could not check availability, try again", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := searchResponse{Suggestions: make([]suggestion, 0, len(slots))}
	for _, slot := range slots {
		response.Suggestions = append(response.Suggestions, suggestion{
			Start:                 slot.Start.Format(time.RFC3339),
			End:                   slot.End.Format(time.RFC3339),
			ParticipantsAvailable: slot.PlayersAvailable,
		})
	}

	logger.Info().
		Int("participants", len(req.ParticipantIDs)).
		Int("suggestions", len(response.Suggestions)).
		Msg("Search completed")

	if err := apiutil.WriteJSON(w, http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("Failed to write search response")
	}
}

func buildEngineRequest(req searchRequest) (schedule.SearchRequest, error) {
	if len(req.ParticipantIDs) == 0 {
		return schedule.SearchRequest{}, apiutil.FieldError{Field: "participant_ids", Reason: "is required"}
	}
	if len(req.ParticipantIDs) > maxParticipants {
		return schedule.SearchRequest{}, apiutil.FieldError{Field: "participant_ids", Reason: "exceeds participant limit"}
	}
	if req.DurationMinutes <= 0 {
		return schedule.SearchRequest{}, apiutil.FieldError{Field: "duration_minutes", Reason: "must be greater than 0"}
	}

	startDate, err := apiutil.ParseDateField(req.StartDate, "start_date", store.Location())
	if err != nil {
		return schedule.SearchRequest{}, err
	}
	endDate, err := apiutil.ParseDateField(req.EndDate, "end_date", store.Location())
	if err != nil {
		return schedule.SearchRequest{}, err
	}
	if endDate.Before(startDate) {
		return schedule.SearchRequest{}, apiutil.FieldError{Field: "end_date", Reason: "must be on or after start_date"}
	}
	if endDate.Sub(startDate) > maxRangeDays*24*time.Hour {
		return schedule.SearchRequest{}, apiutil.FieldError{Field: "end_date", Reason: "exceeds maximum search range"}
	}

	preferred := make([]schedule.PreferredWindow, 0, len(req.PreferredTimes))
	for _, window := range req.PreferredTimes {
		if window.DayOfWeek < 0 || window.DayOfWeek > 6 {
			return schedule.SearchRequest{}, apiutil.FieldError{Field: "preferred_times.day_of_week", Reason: "must be 0-6"}
		}
		preferred = append(preferred, schedule.PreferredWindow{
			DayOfWeek: time.Weekday(window.DayOfWeek),
			StartHour: window.StartHour,
			EndHour:   window.EndHour,
		})
	}

	return schedule.SearchRequest{
		PlayerIDs: req.ParticipantIDs,
		StartDate: startDate,
		EndDate:   endDate,
		Duration:  time.Duration(req.DurationMinutes) * time.Minute,
		Preferred: preferred,
	}, nil
}
