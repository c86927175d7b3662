package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/streamlinehq/notify-api/internal/authz"
	"github.com/streamlinehq/notify-api/internal/handlers"
	"github.com/streamlinehq/notify-api/internal/models"
)

// NewRouter sets up the API routes
func NewRouter(
	authenticate func(http.Handler) http.Handler,
	notifications *handlers.NotificationHandler,
	preferences *handlers.PreferenceHandler,
	subscriptions *handlers.SubscriptionHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public: browsers need the VAPID key before they can authenticate a
	// subscribe call.
	router.HandleFunc("/api/notifications/vapid-public-key", subscriptions.VAPIDPublicKey).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(mux.MiddlewareFunc(authenticate))

	api.HandleFunc("/notifications", notifications.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications", notifications.ClearAll).Methods(http.MethodDelete)
	api.HandleFunc("/notifications/unread-count", notifications.UnreadCount).Methods(http.MethodGet)
	api.HandleFunc("/notifications/mark-all-read", notifications.MarkAllRead).Methods(http.MethodPost)

	api.HandleFunc("/notifications/preferences", preferences.Get).Methods(http.MethodGet)
	api.HandleFunc("/notifications/preferences", preferences.Update).Methods(http.MethodPut)
	api.HandleFunc("/notifications/preferences", preferences.Reset).Methods(http.MethodDelete)

	api.HandleFunc("/notifications/subscribe", subscriptions.Subscribe).Methods(http.MethodPost)
	api.HandleFunc("/notifications/unsubscribe", subscriptions.Unsubscribe).Methods(http.MethodPost)

	// Variable routes last so fixed paths like /preferences win the match.
	api.HandleFunc("/notifications/{notificationID}/read", notifications.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{notificationID}", notifications.Delete).Methods(http.MethodDelete)

	api.Handle("/admin/notifications/bulk",
		authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(notifications.SendBulk)),
	).Methods(http.MethodPost)

	return router
}
