// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/courtline/courtline/internal/api"
	"github.com/courtline/courtline/internal/api/availability"
	"github.com/courtline/courtline/internal/api/bookings"
	"github.com/courtline/courtline/internal/api/conflicts"
	"github.com/courtline/courtline/internal/api/search"
	"github.com/courtline/courtline/internal/config"
	"github.com/courtline/courtline/internal/db"
	"github.com/courtline/courtline/internal/ratelimit"
	"github.com/courtline/courtline/internal/schedule"
)

func newServer(cfg *config.Config, database *db.DB) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	registerRoutes(router, cfg, database)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config, database *db.DB) {
	gridCfg := schedule.GridConfig{
		DayStartHour: cfg.Schedule.DayStartHour,
		DayEndHour:   cfg.Schedule.DayEndHour,
	}
	searchCfg := schedule.SearchConfig{
		Step:           time.Duration(cfg.Schedule.SlotStepMinutes) * time.Minute,
		MaxSuggestions: cfg.Schedule.MaxSuggestions,
		DayStartHour:   cfg.Schedule.DayStartHour,
		DayEndHour:     cfg.Schedule.DayEndHour,
	}

	availability.InitHandlers(database, gridCfg)
	conflicts.InitHandlers(database)
	search.InitHandlers(database, searchCfg)
	bookings.InitHandlers(database)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Availability routes
	mux.HandleFunc("GET /api/v1/availability/grid", availability.HandleGrid)
	mux.HandleFunc("POST /api/v1/availability", availability.HandleCreate)
	mux.HandleFunc("DELETE /api/v1/availability/{id}", availability.HandleDelete)

	// Conflict check
	mux.HandleFunc("POST /api/v1/conflicts/check", conflicts.HandleCheck)

	// Common-availability search, rate limited per client IP
	limiter := ratelimit.New(nil)
	mux.Handle("POST /api/v1/search", limiter.Middleware(http.HandlerFunc(search.HandleSearch)))

	// Booking routes
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleCreate)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleCancel)
}
