package search

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	appdb "github.com/courtline/courtline/internal/db"
	"github.com/courtline/courtline/internal/schedule"
	"github.com/courtline/courtline/internal/testutil"
)

func setupSearchTest(t *testing.T) *appdb.DB {
	t.Helper()

	database := testutil.NewTestDB(t)
	testutil.SeedPlayer(t, database, "player-a", "Ada")
	testutil.SeedPlayer(t, database, "player-b", "Ben")

	store = nil
	searcher = nil
	storeOnce = sync.Once{}
	InitHandlers(database, schedule.SearchConfig{})

	t.Cleanup(func() {
		store = nil
		searcher = nil
		storeOnce = sync.Once{}
	})

	return database
}

func runSearch(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	HandleSearch(recorder, req)
	return recorder
}

func decodeSearch(t *testing.T, recorder *httptest.ResponseRecorder) searchResponse {
	t.Helper()

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", recorder.Code, recorder.Body.String())
	}
	var response searchResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return response
}

func seedAvailability(t *testing.T, database *appdb.DB, playerID string, day time.Time, startMinute, endMinute int) {
	t.Helper()

	if _, err := database.CreateAvailability(context.Background(), schedule.AvailabilityRecord{
		PlayerID:     playerID,
		Date:         day,
		StartMinute:  startMinute,
		EndMinute:    endMinute,
		Available:    true,
		PrivacyLevel: "public",
	}); err != nil {
		t.Fatalf("seed availability: %v", err)
	}
}

func seedBooking(t *testing.T, database *appdb.DB, publicID, playerID string, startMinute, endMinute int) {
	t.Helper()

	if _, err := database.CreateBooking(context.Background(), schedule.BookingRecord{
		PublicID:    publicID,
		PlayerIDs:   []string{playerID},
		Date:        time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		StartMinute: startMinute,
		EndMinute:   endMinute,
		Status:      schedule.BookingStatusConfirmed,
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

func TestHandleSearch_SkipsBusyMorning(t *testing.T) {
	database := setupSearchTest(t)
	// Both declared 09:00-17:00 free; Ben is booked 09:00-12:00.
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	seedAvailability(t, database, "player-a", day, 9*60, 17*60)
	seedAvailability(t, database, "player-b", day, 9*60, 17*60)
	seedBooking(t, database, "booking-1", "player-b", 9*60, 12*60)

	recorder := runSearch(t, `{
		"participant_ids": ["player-a", "player-b"],
		"start_date": "2024-07-01",
		"end_date": "2024-07-01",
		"duration_minutes": 60
	}`)

	response := decodeSearch(t, recorder)
	if len(response.Suggestions) == 0 {
		t.Fatal("expected suggestions")
	}
	first := response.Suggestions[0]
	if !strings.HasPrefix(first.Start, "2024-07-01T12:00:00") {
		t.Fatalf("first suggestion start: %s", first.Start)
	}
	if !strings.HasPrefix(first.End, "2024-07-01T13:00:00") {
		t.Fatalf("first suggestion end: %s", first.End)
	}
	if len(first.ParticipantsAvailable) != 2 {
		t.Fatalf("participants: %v", first.ParticipantsAvailable)
	}
}

func TestHandleSearch_CapsSuggestions(t *testing.T) {
	database := setupSearchTest(t)
	for i := 0; i < 7; i++ {
		day := time.Date(2024, 7, 1+i, 0, 0, 0, 0, time.UTC)
		seedAvailability(t, database, "player-a", day, 6*60, 22*60)
		seedAvailability(t, database, "player-b", day, 6*60, 22*60)
	}

	recorder := runSearch(t, `{
		"participant_ids": ["player-a", "player-b"],
		"start_date": "2024-07-01",
		"end_date": "2024-07-07",
		"duration_minutes": 60
	}`)

	response := decodeSearch(t, recorder)
	if len(response.Suggestions) != 10 {
		t.Fatalf("suggestion count: %d", len(response.Suggestions))
	}
	if !strings.HasPrefix(response.Suggestions[0].Start, "2024-07-01T06:00:00") {
		t.Fatalf("first suggestion start: %s", response.Suggestions[0].Start)
	}
}

func TestHandleSearch_NoSlotIsStillOK(t *testing.T) {
	database := setupSearchTest(t)
	// Both declared the day free, but Ben's whole window is booked over.
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	seedAvailability(t, database, "player-a", day, 6*60, 22*60)
	seedAvailability(t, database, "player-b", day, 6*60, 22*60)
	seedBooking(t, database, "booking-1", "player-b", 6*60, 22*60)

	recorder := runSearch(t, `{
		"participant_ids": ["player-a", "player-b"],
		"start_date": "2024-07-01",
		"end_date": "2024-07-01",
		"duration_minutes": 60
	}`)

	response := decodeSearch(t, recorder)
	if len(response.Suggestions) != 0 {
		t.Fatalf("suggestion count: %d", len(response.Suggestions))
	}
}

func TestHandleSearch_UndeclaredTimeNotOffered(t *testing.T) {
	database := setupSearchTest(t)
	// Only Ada declared availability; no slot is common.
	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	seedAvailability(t, database, "player-a", day, 9*60, 17*60)

	recorder := runSearch(t, `{
		"participant_ids": ["player-a", "player-b"],
		"start_date": "2024-07-01",
		"end_date": "2024-07-01",
		"duration_minutes": 60
	}`)

	response := decodeSearch(t, recorder)
	if len(response.Suggestions) != 0 {
		t.Fatalf("suggestion count: %d", len(response.Suggestions))
	}
}

func TestHandleSearch_Validation(t *testing.T) {
	setupSearchTest(t)

	cases := []struct {
		name string
		body string
	}{
		{"no participants", `{"participant_ids":[],"start_date":"2024-07-01","end_date":"2024-07-01","duration_minutes":60}`},
		{"zero duration", `{"participant_ids":["player-a"],"start_date":"2024-07-01","end_date":"2024-07-01","duration_minutes":0}`},
		{"inverted range", `{"participant_ids":["player-a"],"start_date":"2024-07-02","end_date":"2024-07-01","duration_minutes":60}`},
		{"range too long", `{"participant_ids":["player-a"],"start_date":"2024-07-01","end_date":"2024-09-01","duration_minutes":60}`},
		{"bad weekday", `{"participant_ids":["player-a"],"start_date":"2024-07-01","end_date":"2024-07-01","duration_minutes":60,"preferred_times":[{"day_of_week":7,"start_hour":9,"end_hour":17}]}`},
		{"bad date", `{"participant_ids":["player-a"],"start_date":"July 1","end_date":"2024-07-01","duration_minutes":60}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := runSearch(t, tc.body)
			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("status: %d (%s)", recorder.Code, recorder.Body.String())
			}
		})
	}
}
