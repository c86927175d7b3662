package notification

import (
	"strconv"
	"strings"
	"time"

	"github.com/streamlinehq/notify-api/internal/models"
)

// IsSuppressed reports whether out-of-band delivery (push/email) should be
// held back at the given instant. Weekend suppression takes priority over the
// hourly window. A window whose start equals its end is zero-width and never
// suppresses; users who want full-day silence have the master channel toggles.
func IsSuppressed(now time.Time, prefs models.NotificationPreference) bool {
	if !prefs.QuietHoursEnabled {
		return false
	}
	if prefs.QuietHoursStart == nil || prefs.QuietHoursEnd == nil {
		return false
	}

	if weekday := now.Weekday(); (weekday == time.Saturday || weekday == time.Sunday) && !prefs.WeekendNotifications {
		return true
	}

	start, ok := parseClock(*prefs.QuietHoursStart)
	if !ok {
		return false
	}
	end, ok := parseClock(*prefs.QuietHoursEnd)
	if !ok {
		return false
	}

	current := now.Hour()*60 + now.Minute()

	if start > end {
		// Window wraps past midnight, e.g. 22:00-06:00.
		return current >= start || current < end
	}
	return current >= start && current < end
}

// parseClock converts an "HH:MM" wall-clock string to a minute of day.
func parseClock(value string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// IsValidClock reports whether value is a well-formed "HH:MM" bound. Used by
// the preferences handler to reject windows the evaluator would ignore.
func IsValidClock(value string) bool {
	_, ok := parseClock(value)
	return ok
}
