package notification

import (
	"fmt"

	"github.com/streamlinehq/notify-api/internal/models"
)

// Eligibility is the per-channel verdict for one notification type under one
// user's preferences.
type Eligibility struct {
	Push  bool
	Email bool
}

type prefFlag func(models.NotificationPreference) bool

var (
	pushOnMessage           prefFlag = func(p models.NotificationPreference) bool { return p.PushOnMessage }
	pushOnCalendarEvent     prefFlag = func(p models.NotificationPreference) bool { return p.PushOnCalendarEvent }
	pushOnCalendarReminder  prefFlag = func(p models.NotificationPreference) bool { return p.PushOnCalendarReminder }
	pushOnTaskAssigned      prefFlag = func(p models.NotificationPreference) bool { return p.PushOnTaskAssigned }
	pushOnApplicationUpdate prefFlag = func(p models.NotificationPreference) bool { return p.PushOnApplicationUpdate }
	pushOnAnnouncement      prefFlag = func(p models.NotificationPreference) bool { return p.PushOnAnnouncement }

	emailOnMessage           prefFlag = func(p models.NotificationPreference) bool { return p.EmailOnMessage }
	emailOnCalendarEvent     prefFlag = func(p models.NotificationPreference) bool { return p.EmailOnCalendarEvent }
	emailOnTaskAssigned      prefFlag = func(p models.NotificationPreference) bool { return p.EmailOnTaskAssigned }
	emailOnApplicationUpdate prefFlag = func(p models.NotificationPreference) bool { return p.EmailOnApplicationUpdate }
	emailOnAnnouncement      prefFlag = func(p models.NotificationPreference) bool { return p.EmailOnAnnouncement }
)

// channelEntry maps one notification type to the preference flag that gates
// it on each channel. A nil flag means the type is never delivered on that
// channel, e.g. RSVP churn is push-only.
type channelEntry struct {
	push  prefFlag
	email prefFlag
}

// ChannelMatrix is the closed allow-list resolving notification types to
// channels. Types absent from the table are never eligible anywhere, so a new
// type added to the enum without a mapping fails construction instead of
// silently dropping at dispatch time.
type ChannelMatrix struct {
	entries map[models.NotificationType]channelEntry
}

func NewChannelMatrix() (*ChannelMatrix, error) {
	entries := map[models.NotificationType]channelEntry{
		models.NotificationTypeNewMessage: {push: pushOnMessage, email: emailOnMessage},
		models.NotificationTypeNewEmail:   {push: pushOnMessage, email: emailOnMessage},

		models.NotificationTypeEventCreated:    {push: pushOnCalendarEvent, email: emailOnCalendarEvent},
		models.NotificationTypeEventUpdated:    {push: pushOnCalendarEvent, email: emailOnCalendarEvent},
		models.NotificationTypeEventCancelled:  {push: pushOnCalendarEvent, email: emailOnCalendarEvent},
		models.NotificationTypeEventInvitation: {push: pushOnCalendarEvent, email: emailOnCalendarEvent},
		models.NotificationTypeEventRSVP:       {push: pushOnCalendarEvent},
		models.NotificationTypeEventReminder:   {push: pushOnCalendarReminder},

		models.NotificationTypeTaskAssigned: {push: pushOnTaskAssigned, email: emailOnTaskAssigned},
		models.NotificationTypeTaskUpdated:  {push: pushOnTaskAssigned},
		models.NotificationTypeTaskDueSoon:  {push: pushOnTaskAssigned, email: emailOnTaskAssigned},
		models.NotificationTypeTaskOverdue:  {push: pushOnTaskAssigned, email: emailOnTaskAssigned},

		models.NotificationTypeApplicationSubmitted:   {push: pushOnApplicationUpdate, email: emailOnApplicationUpdate},
		models.NotificationTypeApplicationReviewed:    {push: pushOnApplicationUpdate, email: emailOnApplicationUpdate},
		models.NotificationTypeApplicationAccepted:    {push: pushOnApplicationUpdate, email: emailOnApplicationUpdate},
		models.NotificationTypeApplicationRejected:    {push: pushOnApplicationUpdate, email: emailOnApplicationUpdate},
		models.NotificationTypeApplicationShortlisted: {push: pushOnApplicationUpdate, email: emailOnApplicationUpdate},
		models.NotificationTypeApplicationInterview:   {push: pushOnApplicationUpdate, email: emailOnApplicationUpdate},

		models.NotificationTypeAnnouncement:  {push: pushOnAnnouncement, email: emailOnAnnouncement},
		models.NotificationTypeMaintenance:   {push: pushOnAnnouncement, email: emailOnAnnouncement},
		models.NotificationTypeSecurityAlert: {push: pushOnAnnouncement, email: emailOnAnnouncement},
	}

	for _, typ := range models.AllNotificationTypes {
		entry, ok := entries[typ]
		if !ok || (entry.push == nil && entry.email == nil) {
			return nil, fmt.Errorf("notification type %s has no channel mapping", typ)
		}
	}

	return &ChannelMatrix{entries: entries}, nil
}

// Resolve applies the master channel toggles and the per-category flags.
// Unknown types resolve to nothing on every channel.
func (m *ChannelMatrix) Resolve(typ models.NotificationType, prefs models.NotificationPreference) Eligibility {
	entry, ok := m.entries[typ]
	if !ok {
		return Eligibility{}
	}

	var eligibility Eligibility
	if prefs.PushEnabled && entry.push != nil && entry.push(prefs) {
		eligibility.Push = true
	}
	if prefs.EmailEnabled && entry.email != nil && entry.email(prefs) {
		eligibility.Email = true
	}
	return eligibility
}
