package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/streamlinehq/notify-api/internal/authz"
	"github.com/streamlinehq/notify-api/internal/repository"
)

type SubscriptionHandler struct {
	subs           repository.SubscriptionRepository
	prefs          repository.PreferenceRepository
	vapidPublicKey string
	logger         zerolog.Logger
}

func NewSubscriptionHandler(subs repository.SubscriptionRepository, prefs repository.PreferenceRepository, vapidPublicKey string, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subs:           subs,
		prefs:          prefs,
		vapidPublicKey: vapidPublicKey,
		logger:         logger.With().Str("handler", "subscription").Logger(),
	}
}

type subscribeRequest struct {
	Subscription struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	} `json:"subscription"`
	DeviceInfo *struct {
		DeviceType *string `json:"device_type"`
		Browser    *string `json:"browser"`
		OS         *string `json:"os"`
	} `json:"device_info"`
}

// Subscribe registers (or refreshes) a device endpoint for the caller and
// flips the master push toggle on so the new device starts receiving.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var payload subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Subscription.Endpoint) == "" ||
		payload.Subscription.Keys.P256dh == "" || payload.Subscription.Keys.Auth == "" {
		http.Error(w, "Invalid subscription data", http.StatusBadRequest)
		return
	}

	params := repository.UpsertSubscriptionParams{
		UserID:   userID,
		Endpoint: strings.TrimSpace(payload.Subscription.Endpoint),
		P256dh:   payload.Subscription.Keys.P256dh,
		Auth:     payload.Subscription.Keys.Auth,
	}
	if payload.DeviceInfo != nil {
		params.DeviceType = payload.DeviceInfo.DeviceType
		params.Browser = payload.DeviceInfo.Browser
		params.OS = payload.DeviceInfo.OS
	}

	sub, err := h.subs.Upsert(r.Context(), params)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to save push subscription")
		http.Error(w, "Failed to save push subscription", http.StatusInternalServerError)
		return
	}

	// Ensure the preference row exists, then make sure push is on.
	if _, err := h.prefs.GetOrCreate(r.Context(), userID); err != nil {
		h.logger.Error().Err(err).Msg("failed to load preferences")
		http.Error(w, "Failed to save push subscription", http.StatusInternalServerError)
		return
	}
	if err := h.prefs.EnablePush(r.Context(), userID); err != nil {
		h.logger.Error().Err(err).Msg("failed to enable push preference")
		http.Error(w, "Failed to save push subscription", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Push subscription saved successfully",
		"subscription_id": sub.ID,
	})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe deactivates one of the caller's endpoints. The row is kept for
// audit and will be reactivated if the browser re-subscribes.
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var payload unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Endpoint) == "" {
		http.Error(w, "Endpoint is required", http.StatusBadRequest)
		return
	}

	err := h.subs.DeactivateByEndpoint(r.Context(), userID, strings.TrimSpace(payload.Endpoint))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Subscription not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("failed to remove push subscription")
		http.Error(w, "Failed to remove push subscription", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Push subscription removed"})
}

// VAPIDPublicKey hands the browser the key it needs to subscribe. Empty when
// push is not configured; clients treat that as push-unavailable.
func (h *SubscriptionHandler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"public_key": h.vapidPublicKey})
}
