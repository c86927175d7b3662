package models

import "time"

type DigestFrequency string

const (
	DigestFrequencyDaily  DigestFrequency = "DAILY"
	DigestFrequencyWeekly DigestFrequency = "WEEKLY"
)

// Interval returns the minimum time between two digests at this frequency.
func (f DigestFrequency) Interval() time.Duration {
	if f == DigestFrequencyWeekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

func IsValidDigestFrequency(f DigestFrequency) bool {
	return f == DigestFrequencyDaily || f == DigestFrequencyWeekly
}

// NotificationPreference holds one user's delivery settings. Exactly one row
// exists per user; a missing row is equivalent to DefaultPreferences and is
// created lazily on first use.
type NotificationPreference struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	PushEnabled  bool `json:"push_enabled" db:"push_enabled"`
	EmailEnabled bool `json:"email_enabled" db:"email_enabled"`

	PushOnMessage           bool `json:"push_on_message" db:"push_on_message"`
	PushOnCalendarEvent     bool `json:"push_on_calendar_event" db:"push_on_calendar_event"`
	PushOnCalendarReminder  bool `json:"push_on_calendar_reminder" db:"push_on_calendar_reminder"`
	PushOnTaskAssigned      bool `json:"push_on_task_assigned" db:"push_on_task_assigned"`
	PushOnApplicationUpdate bool `json:"push_on_application_update" db:"push_on_application_update"`
	PushOnAnnouncement      bool `json:"push_on_announcement" db:"push_on_announcement"`

	EmailOnMessage           bool `json:"email_on_message" db:"email_on_message"`
	EmailOnCalendarEvent     bool `json:"email_on_calendar_event" db:"email_on_calendar_event"`
	EmailOnTaskAssigned      bool `json:"email_on_task_assigned" db:"email_on_task_assigned"`
	EmailOnApplicationUpdate bool `json:"email_on_application_update" db:"email_on_application_update"`
	EmailOnAnnouncement      bool `json:"email_on_announcement" db:"email_on_announcement"`

	QuietHoursEnabled    bool    `json:"quiet_hours_enabled" db:"quiet_hours_enabled"`
	QuietHoursStart      *string `json:"quiet_hours_start,omitempty" db:"quiet_hours_start"`
	QuietHoursEnd        *string `json:"quiet_hours_end,omitempty" db:"quiet_hours_end"`
	WeekendNotifications bool    `json:"weekend_notifications" db:"weekend_notifications"`

	DigestEnabled    bool            `json:"digest_enabled" db:"digest_enabled"`
	DigestFrequency  DigestFrequency `json:"digest_frequency" db:"digest_frequency"`
	DigestLastSentAt *time.Time      `json:"digest_last_sent_at,omitempty" db:"digest_last_sent_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences returns the settings a user has before ever touching the
// preferences screen: email on for every category, push off until a device
// subscribes, no quiet hours, no digest.
func DefaultPreferences(userID string) NotificationPreference {
	return NotificationPreference{
		UserID:                   userID,
		PushEnabled:              false,
		EmailEnabled:             true,
		PushOnMessage:            true,
		PushOnCalendarEvent:      true,
		PushOnCalendarReminder:   true,
		PushOnTaskAssigned:       true,
		PushOnApplicationUpdate:  true,
		PushOnAnnouncement:       true,
		EmailOnMessage:           true,
		EmailOnCalendarEvent:     true,
		EmailOnTaskAssigned:      true,
		EmailOnApplicationUpdate: true,
		EmailOnAnnouncement:      true,
		QuietHoursEnabled:        false,
		WeekendNotifications:     true,
		DigestEnabled:            false,
		DigestFrequency:          DigestFrequencyDaily,
	}
}
