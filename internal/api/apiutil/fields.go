package apiutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

func ParsePositiveIntField(raw string, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, FieldError{Field: field, Reason: "is required"}
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, FieldError{Field: field, Reason: "must be greater than 0"}
	}
	return value, nil
}

func ParseRequiredString(raw string, field string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	return raw, nil
}

// ParseDateField parses a YYYY-MM-DD calendar date in the given location.
func ParseDateField(raw string, field string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, FieldError{Field: field, Reason: "is required"}
	}
	parsed, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, FieldError{Field: field, Reason: "must be a YYYY-MM-DD date"}
	}
	return parsed, nil
}

// ParseTimeOfDayField parses a wall-clock time into minutes from midnight.
// Accepts HH:MM and H:MM AM/PM forms. "24:00" denotes end of day (1440
// minutes) so ranges can run through midnight.
func ParseTimeOfDayField(raw string, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, FieldError{Field: field, Reason: "is required"}
	}
	if raw == "24:00" {
		return 24 * 60, nil
	}
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		formats := []string{"3:04 PM", "03:04 PM", "3:04PM", "03:04PM"}
		for _, format := range formats {
			if parsed, err = time.Parse(format, strings.ToUpper(raw)); err == nil {
				return parsed.Hour()*60 + parsed.Minute(), nil
			}
		}
		return 0, FieldError{Field: field, Reason: "must be in HH:MM or H:MM AM/PM format"}
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatMinuteOfDay renders minutes from midnight as HH:MM.
func FormatMinuteOfDay(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
