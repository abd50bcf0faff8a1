package conflicts

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

func setupConflictsTest(t *testing.T) *appdb.DB {
	t.Helper()

	database := testutil.NewTestDB(t)
	testutil.SeedPlayer(t, database, "player-a", "Ada")

	store = nil
	detector = nil
	storeOnce = sync.Once{}
	InitHandlers(database)

	t.Cleanup(func() {
		store = nil
		detector = nil
		storeOnce = sync.Once{}
	})

	return database
}

func checkConflict(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conflicts/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	HandleCheck(recorder, req)
	return recorder
}

func TestHandleCheck_DetectsOverlap(t *testing.T) {
	database := setupConflictsTest(t)

	if _, err := database.CreateBooking(context.Background(), schedule.BookingRecord{
		PublicID:    "booking-1",
		PlayerIDs:   []string{"player-a"},
		Date:        time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		StartMinute: 10 * 60,
		EndMinute:   11 * 60,
		Status:      schedule.BookingStatusConfirmed,
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	recorder := checkConflict(t,
		`{"player_id":"player-a","date":"2024-06-10","start_time":"10:30","end_time":"11:30"}`)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", recorder.Code, recorder.Body.String())
	}
	var response checkResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !response.HasConflict {
		t.Fatal("expected conflict")
	}
}

func TestHandleCheck_TouchingBoundaryIsFree(t *testing.T) {
	database := setupConflictsTest(t)

	if _, err := database.CreateBooking(context.Background(), schedule.BookingRecord{
		PublicID:    "booking-1",
		PlayerIDs:   []string{"player-a"},
		Date:        time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		StartMinute: 10 * 60,
		EndMinute:   11 * 60,
		Status:      schedule.BookingStatusConfirmed,
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	recorder := checkConflict(t,
		`{"player_id":"player-a","date":"2024-06-10","start_time":"11:00","end_time":"12:00"}`)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", recorder.Code, recorder.Body.String())
	}
	var response checkResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.HasConflict {
		t.Fatal("back-to-back interval should not conflict")
	}
}

func TestHandleCheck_NoCommitments(t *testing.T) {
	setupConflictsTest(t)

	recorder := checkConflict(t,
		`{"player_id":"player-a","date":"2024-06-10","start_time":"10:00","end_time":"11:00"}`)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", recorder.Code, recorder.Body.String())
	}
	var response checkResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.HasConflict {
		t.Fatal("empty calendar should not conflict")
	}
}

func TestHandleCheck_RejectsInvertedRange(t *testing.T) {
	setupConflictsTest(t)

	recorder := checkConflict(t,
		`{"player_id":"player-a","date":"2024-06-10","start_time":"12:00","end_time":"10:00"}`)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", recorder.Code)
	}
}

func TestHandleCheck_RejectsBadTime(t *testing.T) {
	setupConflictsTest(t)

	recorder := checkConflict(t,
		`{"player_id":"player-a","date":"2024-06-10","start_time":"10am-ish","end_time":"11:00"}`)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", recorder.Code)
	}
}
