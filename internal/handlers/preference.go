package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/streamlinehq/notify-api/internal/authz"
	"github.com/streamlinehq/notify-api/internal/models"
	"github.com/streamlinehq/notify-api/internal/notification"
	"github.com/streamlinehq/notify-api/internal/repository"
)

type PreferenceHandler struct {
	prefs  repository.PreferenceRepository
	subs   repository.SubscriptionRepository
	logger zerolog.Logger
}

func NewPreferenceHandler(prefs repository.PreferenceRepository, subs repository.SubscriptionRepository, logger zerolog.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		prefs:  prefs,
		subs:   subs,
		logger: logger.With().Str("handler", "preference").Logger(),
	}
}

// Get returns the user's preferences, lazily creating the default row, plus
// a summary of their registered devices.
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	prefs, err := h.prefs.GetOrCreate(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load preferences")
		http.Error(w, "Failed to load preferences", http.StatusInternalServerError)
		return
	}

	subscriptions, err := h.subs.ListActiveByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list subscriptions")
		http.Error(w, "Failed to load preferences", http.StatusInternalServerError)
		return
	}

	devices := make([]map[string]interface{}, 0, len(subscriptions))
	for _, sub := range subscriptions {
		devices = append(devices, map[string]interface{}{
			"id":          sub.ID,
			"device_type": sub.DeviceType,
			"browser":     sub.Browser,
			"os":          sub.OS,
			"last_used":   sub.LastUsed,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"preferences":           prefs,
		"push_subscriptions":    devices,
		"has_push_subscription": len(devices) > 0,
	})
}

type updatePreferencesRequest struct {
	PushEnabled  *bool `json:"push_enabled"`
	EmailEnabled *bool `json:"email_enabled"`

	PushOnMessage           *bool `json:"push_on_message"`
	PushOnCalendarEvent     *bool `json:"push_on_calendar_event"`
	PushOnCalendarReminder  *bool `json:"push_on_calendar_reminder"`
	PushOnTaskAssigned      *bool `json:"push_on_task_assigned"`
	PushOnApplicationUpdate *bool `json:"push_on_application_update"`
	PushOnAnnouncement      *bool `json:"push_on_announcement"`

	EmailOnMessage           *bool `json:"email_on_message"`
	EmailOnCalendarEvent     *bool `json:"email_on_calendar_event"`
	EmailOnTaskAssigned      *bool `json:"email_on_task_assigned"`
	EmailOnApplicationUpdate *bool `json:"email_on_application_update"`
	EmailOnAnnouncement      *bool `json:"email_on_announcement"`

	QuietHoursEnabled    *bool   `json:"quiet_hours_enabled"`
	QuietHoursStart      *string `json:"quiet_hours_start"`
	QuietHoursEnd        *string `json:"quiet_hours_end"`
	WeekendNotifications *bool   `json:"weekend_notifications"`

	DigestEnabled   *bool   `json:"digest_enabled"`
	DigestFrequency *string `json:"digest_frequency"`
}

// Update applies a partial settings change over the current row. Fields the
// caller omits keep their stored value.
func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var payload updatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	if payload.QuietHoursStart != nil && *payload.QuietHoursStart != "" && !notification.IsValidClock(*payload.QuietHoursStart) {
		http.Error(w, "Invalid quiet hours start format (use HH:MM)", http.StatusBadRequest)
		return
	}
	if payload.QuietHoursEnd != nil && *payload.QuietHoursEnd != "" && !notification.IsValidClock(*payload.QuietHoursEnd) {
		http.Error(w, "Invalid quiet hours end format (use HH:MM)", http.StatusBadRequest)
		return
	}
	if payload.DigestFrequency != nil && !models.IsValidDigestFrequency(models.DigestFrequency(*payload.DigestFrequency)) {
		http.Error(w, "Invalid digest frequency", http.StatusBadRequest)
		return
	}

	prefs, err := h.prefs.GetOrCreate(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load preferences")
		http.Error(w, "Failed to update preferences", http.StatusInternalServerError)
		return
	}

	applyPreferenceUpdate(&prefs, payload)

	updated, err := h.prefs.Update(r.Context(), prefs)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to update preferences")
		http.Error(w, "Failed to update preferences", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Reset deletes the row so the next read recreates it with defaults.
func (h *PreferenceHandler) Reset(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	if err := h.prefs.Reset(r.Context(), userID); err != nil {
		h.logger.Error().Err(err).Msg("failed to reset preferences")
		http.Error(w, "Failed to reset preferences", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Preferences reset to default"})
}

func applyPreferenceUpdate(prefs *models.NotificationPreference, payload updatePreferencesRequest) {
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	setBool(&prefs.PushEnabled, payload.PushEnabled)
	setBool(&prefs.EmailEnabled, payload.EmailEnabled)
	setBool(&prefs.PushOnMessage, payload.PushOnMessage)
	setBool(&prefs.PushOnCalendarEvent, payload.PushOnCalendarEvent)
	setBool(&prefs.PushOnCalendarReminder, payload.PushOnCalendarReminder)
	setBool(&prefs.PushOnTaskAssigned, payload.PushOnTaskAssigned)
	setBool(&prefs.PushOnApplicationUpdate, payload.PushOnApplicationUpdate)
	setBool(&prefs.PushOnAnnouncement, payload.PushOnAnnouncement)
	setBool(&prefs.EmailOnMessage, payload.EmailOnMessage)
	setBool(&prefs.EmailOnCalendarEvent, payload.EmailOnCalendarEvent)
	setBool(&prefs.EmailOnTaskAssigned, payload.EmailOnTaskAssigned)
	setBool(&prefs.EmailOnApplicationUpdate, payload.EmailOnApplicationUpdate)
	setBool(&prefs.EmailOnAnnouncement, payload.EmailOnAnnouncement)
	setBool(&prefs.QuietHoursEnabled, payload.QuietHoursEnabled)
	setBool(&prefs.WeekendNotifications, payload.WeekendNotifications)
	setBool(&prefs.DigestEnabled, payload.DigestEnabled)

	if payload.QuietHoursStart != nil {
		if *payload.QuietHoursStart == "" {
			prefs.QuietHoursStart = nil
		} else {
			prefs.QuietHoursStart = payload.QuietHoursStart
		}
	}
	if payload.QuietHoursEnd != nil {
		if *payload.QuietHoursEnd == "" {
			prefs.QuietHoursEnd = nil
		} else {
			prefs.QuietHoursEnd = payload.QuietHoursEnd
		}
	}
	if payload.DigestFrequency != nil {
		prefs.DigestFrequency = models.DigestFrequency(*payload.DigestFrequency)
	}
}
