// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
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

const (
	queryTimeout = 5 * time.Second
	idParam      = "id"
)

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

type createRequest struct {
	ParticipantIDs       []string `json:"participant_ids"`
	Date                 string   `json:"date"`
	StartTime            string   `json:"start_time"`
	EndTime              string   `json:"end_time"`
	SourceAvailabilityID *int64   `json:"source_availability_id,omitempty"`
}

type bookingResponse struct {
	BookingID    string   `json:"booking_id"`
	Participants []string `json:"participants"`
	Date         string   `json:"date"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	Status       string   `json:"status"`
}

// POST /api/v1/bookings
//
// The booking-creation consumer of a committed selection: every participant
// is conflict-checked before the booking is persisted.
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil || detector == nil {
		logger.Error().Msg("Booking store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.ParticipantIDs) == 0 {
		http.Error(w, "participant_ids is required", http.StatusBadRequest)
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

	missing, err := store.PlayersExist(ctx, req.ParticipantIDs)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to validate participants")
		http.Error(w, "Failed to validate participants", http.StatusInternalServerError)
		return
	}
	if len(missing) > 0 {
		http.Error(w, "Unknown participants", http.StatusNotFound)
		return
	}

	for _, playerID := range req.ParticipantIDs {
		hasConflict, err := detector.HasConflict(ctx, playerID, candidate)
		if err != nil {
			logger.Error().Err(err).Str("player_id", playerID).Msg("Conflict check failed during booking")
			http.Error(w, "Could not check availability, try again", http.StatusServiceUnavailable)
			return
		}
		if hasConflict {
			logger.Info().Str("player_id", playerID).Msg("Booking rejected: conflicting commitment")
			http.Error(w, "Time conflicts with an existing commitment", http.StatusConflict)
			return
		}
	}

	booking, err := store.CreateBooking(ctx, schedule.BookingRecord{
		PublicID:             uuid.New().String(),
		PlayerIDs:            req.ParticipantIDs,
		Date:                 date,
		StartMinute:          startMinute,
		EndMinute:            endMinute,
		Status:               schedule.BookingStatusConfirmed,
		SourceAvailabilityID: req.SourceAvailabilityID,
	})
	if err != nil {
		if errors.Is(err, appdb.ErrNotFound) {
			http.Error(w, "Source availability not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to create booking")
		http.Error(w, "Failed to create booking", http.StatusInternalServerError)
		return
	}

	logger.Info().
		Str("booking_id", booking.PublicID).
		Str("date", req.Date).
		Int("participants", len(booking.PlayerIDs)).
		Msg("Booking created")

	response := bookingResponse{
		BookingID:    booking.PublicID,
		Participants: booking.PlayerIDs,
		Date:         booking.Date.Format("2006-01-02"),
		StartTime:    apiutil.FormatMinuteOfDay(booking.StartMinute),
		EndTime:      apiutil.FormatMinuteOfDay(booking.EndMinute),
		Status:       booking.Status,
	}
	if err := apiutil.WriteJSON(w, http.StatusCreated, response); err != nil {
		logger.Error().Err(err).Msg("Failed to write booking response")
	}
}

// POST /api/v1/bookings/{id}/cancel
func HandleCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Booking store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	publicID := r.PathValue(idParam)
	if publicID == "" {
		http.Error(w, "booking id is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	if err := store.CancelBooking(ctx, publicID); err != nil {
		if errors.Is(err, appdb.ErrNotFound) {
			http.Error(w, "Booking not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("booking_id", publicID).Msg("Failed to cancel booking")
		http.Error(w, "Failed to cancel booking", http.StatusInternalServerError)
		return
	}

	logger.Info().Str("booking_id", publicID).Msg("Booking cancelled")
	w.WriteHeader(http.StatusOK)
}
