// internal/api/conflicts/handlers.go
package conflicts

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
	detector  *schedule.Detector
	storeOnce sync.Once
)

const queryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	storeOnce.Do(func() {
		store = database
		detector, _ = schedule.NewDetector(database)
	})
}

type checkRequest struct {
	PlayerID  string `json:"player_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type checkResponse struct {
	HasConflict bool `json:"has_conflict"`
}

// POST /api/v1/conflicts/check
func HandleCheck(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil || detector == nil {
		logger.Error().Msg("Conflict detector not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req checkRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	playerID, err := apiutil.ParseRequiredString(req.PlayerID, "player_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := apiutil.ParseDateField(req.Date, "date", store.Location())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	startMinute, err := apiutil.ParseTimeOfDayField(req.StartTime, "start_time")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	endMinute, err := apiutil.ParseTimeOfDayField(req.EndTime, "end_time")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	candidate, err := schedule.NewInterval(
		date.Add(time.Duration(startMinute)*time.Minute),
		date.Add(time.Duration(endMinute)*time.Minute),
	)
	if err != nil {
		http.Error(w, "start_time must be before end_time", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	hasConflict, err := detector.HasConflict(ctx, playerID, candidate)
	if err != nil {
		var upstream *schedule.UpstreamError
		if errors.As(err, &upstream) {
			logger.Error().Err(err).Str("player_id", playerID).Msg("Busy intervals unavailable for conflict check")
			http.Error(w, "Could not check availability, try again", http.StatusServiceUnavailable)
			return
		}
		logger.Error().Err(err).Str("player_id", playerID).Msg("Conflict check failed")
		http.Error(w, "Failed to check conflicts", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, checkResponse{HasConflict: hasConflict}); err != nil {
		logger.Error().Err(err).Msg("Failed to write conflict response")
	}
}
