package apiutil

import (
	"testing"
	"time"
)

func TestParseTimeOfDayField(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"09:00", 9 * 60, false},
		{"00:00", 0, false},
		{"23:45", 23*60 + 45, false},
		{"9:30 AM", 9*60 + 30, false},
		{"9:30 pm", 21*60 + 30, false},
		{"12:00 AM", 0, false},
		{"12:00 PM", 12 * 60, false},
		{" 10:15 ", 10*60 + 15, false},
		{"24:00", 24 * 60, false},
		{"24:30", 0, true},
		{"", 0, true},
		{"25:00", 0, true},
		{"noonish", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDayField(tc.raw, "start_time")
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestParseDateField(t *testing.T) {
	loc := time.UTC
	parsed, err := ParseDateField("2024-06-10", "date", loc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)
	if !parsed.Equal(want) {
		t.Fatalf("got %v, want %v", parsed, want)
	}

	for _, raw := range []string{"", "06/10/2024", "2024-13-01"} {
		if _, err := ParseDateField(raw, "date", loc); err == nil {
			t.Errorf("%q: expected error", raw)
		}
	}
}

func TestFormatMinuteOfDay(t *testing.T) {
	if got := FormatMinuteOfDay(9 * 60); got != "09:00" {
		t.Fatalf("got %s", got)
	}
	if got := FormatMinuteOfDay(21*60 + 5); got != "21:05" {
		t.Fatalf("got %s", got)
	}
}
