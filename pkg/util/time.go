package util

import (
	"fmt"
	"strings"
	"time"
)

const scheduleTimeLayout = "2006-01-02T15:04:05"

// ParseScheduleTime parses a schedule timestamp of the form
// "YYYY-MM-DDTHH:MM" or "YYYY-MM-DDTHH:MM:SS" and returns it in UTC.
// Minute-precision input gets zero seconds. RFC3339 strings with an
// explicit offset are accepted as well.
func ParseScheduleTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty schedule time")
	}
	if len(s) == len("2006-01-02T15:04") {
		s += ":00"
	}
	if t, err := time.Parse(scheduleTimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule time %q: expected YYYY-MM-DDTHH:MM[:SS]", raw)
	}
	return t.UTC(), nil
}
