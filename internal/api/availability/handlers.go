// internal/api/availability/handlers.go
package availability

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
	gridCfg   schedule.GridConfig
	storeOnce sync.Once
)

const (
	queryTimeout = 5 * time.Second
	idParam      = "id"
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, cfg schedule.GridConfig) {
	if database == nil {
		return
	}
	storeOnce.Do(func() {
		store = database
		gridCfg = cfg
	})
}

type cellResponse struct {
	Hour    int    `json:"hour"`
	Quarter int    `json:"quarter"`
	State   string `json:"state"`
}

type dayResponse struct {
	Date  string         `json:"date"`
	Cells []cellResponse `json:"cells"`
}

type gridResponse struct {
	PlayerID string        `json:"player_id"`
	Days     []dayResponse `json:"days"`
}

// GET /api/v1/availability/grid?player_id=&start_date=&end_date=
func HandleGrid(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Availability store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	playerID, err := apiutil.ParseRequiredString(query.Get("player_id"), "player_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	startDate, err := apiutil.ParseDateField(query.Get("start_date"), "start_date", store.Location())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	endDate, err := apiutil.ParseDateField(query.Get("end_date"), "end_date", store.Location())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if endDate.Before(startDate) {
		http.Error(w, "start_date must be on or before end_date", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	availability, err := store.ListAvailability(ctx, playerID, startDate, endDate)
	if err != nil {
		logger.Error().Err(err).Str("player_id", playerID).Msg("Failed to load availability")
		http.Error(w, "Failed to load availability", http.StatusInternalServerError)
		return
	}
	bookings, err := store.ListBookings(ctx, playerID, startDate, endDate)
	if err != nil {
		logger.Error().Err(err).Str("player_id", playerID).Msg("Failed to load bookings")
		http.Error(w, "Failed to load bookings", http.StatusInternalServerError)
		return
	}

	grids, err := schedule.BuildGrid(gridCfg, startDate, endDate, availability, bookings)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := gridResponse{PlayerID: playerID, Days: make([]dayResponse, 0, len(grids))}
	for _, day := range grids {
		cells := make([]cellResponse, 0, len(day.Cells))
		for _, cell := range day.Cells {
			cells = append(cells, cellResponse{Hour: cell.Hour, Quarter: cell.Quarter, State: cell.State.String()})
		}
		response.Days = append(response.Days, dayResponse{Date: day.Date.Format("2006-01-02"), Cells: cells})
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("Failed to write grid response")
	}
}

type createRequest struct {
	PlayerID     string `json:"player_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	IsAvailable  *bool  `json:"is_available,omitempty"`
	IsBlocked    bool   `json:"is_blocked,omitempty"`
	PrivacyLevel string `json:"privacy_level,omitempty"`
}

type recordResponse struct {
	ID           int64  `json:"id"`
	PlayerID     string `json:"player_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	IsAvailable  bool   `json:"is_available"`
	IsBlocked    bool   `json:"is_blocked"`
	PrivacyLevel string `json:"privacy_level"`
}

// POST /api/v1/availability
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Availability store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req createRequest
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
	if startMinute >= endMinute {
		http.Error(w, "start_time must be before end_time", http.StatusBadRequest)
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	privacyLevel := req.PrivacyLevel
	if privacyLevel == "" {
		privacyLevel = "public"
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	record, err := store.CreateAvailability(ctx, schedule.AvailabilityRecord{
		PlayerID:     playerID,
		Date:         date,
		StartMinute:  startMinute,
		EndMinute:    endMinute,
		Available:    available,
		Blocked:      req.IsBlocked,
		PrivacyLevel: privacyLevel,
	})
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidInterval) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Error().Err(err).Str("player_id", playerID).Msg("Failed to create availability")
		http.Error(w, "Failed to create availability", http.StatusInternalServerError)
		return
	}

	logger.Info().
		Int64("availability_id", record.ID).
		Str("player_id", playerID).
		Str("date", req.Date).
		Msg("Availability created")

	writeRecord(w, r, http.StatusCreated, record)
}

// DELETE /api/v1/availability/{id}?player_id=
func HandleDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Availability store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := apiutil.ParsePositiveIntField(r.PathValue(idParam), "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	playerID, err := apiutil.ParseRequiredString(r.URL.Query().Get("player_id"), "player_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	if err := store.DeleteAvailability(ctx, int64(id), playerID); err != nil {
		if errors.Is(err, appdb.ErrNotFound) {
			http.Error(w, "Availability not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int("availability_id", id).Msg("Failed to delete availability")
		http.Error(w, "Failed to delete availability", http.StatusInternalServerError)
		return
	}

	logger.Info().Int("availability_id", id).Str("player_id", playerID).Msg("Availability deleted")
	w.WriteHeader(http.StatusNoContent)
}

func writeRecord(w http.ResponseWriter, r *http.Request, status int, record schedule.AvailabilityRecord) {
	response := recordResponse{
		ID:           record.ID,
		PlayerID:     record.PlayerID,
		Date:         record.Date.Format("2006-01-02"),
		StartTime:    apiutil.FormatMinuteOfDay(record.StartMinute),
		EndTime:      apiutil.FormatMinuteOfDay(record.EndMinute),
		IsAvailable:  record.Available,
		IsBlocked:    record.Blocked,
		PrivacyLevel: record.PrivacyLevel,
	}
	if err := apiutil.WriteJSON(w, status, response); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write availability response")
	}
}
