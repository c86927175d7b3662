package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"github.com/streamlinehq/notify-api/internal/config"
	"github.com/streamlinehq/notify-api/internal/handlers"
	"github.com/streamlinehq/notify-api/internal/middleware"
	"github.com/streamlinehq/notify-api/internal/migration"
	"github.com/streamlinehq/notify-api/internal/notification"
	"github.com/streamlinehq/notify-api/internal/repository"
	"github.com/streamlinehq/notify-api/internal/routes"
	"github.com/streamlinehq/notify-api/internal/worker"

	"github.com/streamlinehq/notify-api/internal/authz"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config        *config.Config
	db            *sql.DB
	logger        zerolog.Logger
	notifications notification.Service
	prefRepo      repository.PreferenceRepository
	subRepo       repository.SubscriptionRepository
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Repositories
	notifRepo := repository.NewNotificationRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	userRepo := repository.NewUserRepository(db)
	queueRepo := repository.NewEmailQueueRepository(db)

	// The channel matrix is validated against the full type enumeration so
	// an unmapped type fails startup instead of dropping silently later.
	matrix, err := notification.NewChannelMatrix()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid channel matrix")
	}

	// Push transport: optional. Without VAPID keys the dispatcher no-ops.
	var transport notification.PushTransport
	if cfg.Push.Enabled() {
		transport = notification.NewWebPushTransport(cfg.Push)
	} else {
		logger.Warn().Msg("VAPID keys not configured, push notifications are disabled")
	}

	dispatcher := notification.NewPushDispatcher(transport, subRepo, notifRepo, logger)
	enqueuer := notification.NewEmailEnqueuer(userRepo, queueRepo, logger)
	digest := notification.NewDigestAggregator(prefRepo, notifRepo, userRepo, enqueuer, logger)
	notificationService := notification.NewService(notifRepo, prefRepo, matrix, dispatcher, enqueuer, digest, logger)

	app := &application{
		config:        cfg,
		db:            db,
		logger:        logger,
		notifications: notificationService,
		prefRepo:      prefRepo,
		subRepo:       subRepo,
	}

	// Start the digest sweep worker.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	digestWorker := worker.NewDigestWorker(prefRepo, notificationService, cfg.Digest.PollInterval, cfg.Digest.BatchSize, logger)
	go func() {
		if err := digestWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("digest worker exited")
		}
	}()

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.CORSOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, stopWorker, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	notificationHandler := handlers.NewNotificationHandler(app.notifications, logger)
	preferenceHandler := handlers.NewPreferenceHandler(app.prefRepo, app.subRepo, logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(app.subRepo, app.prefRepo, app.config.Push.VAPIDPublicKey, logger)

	authenticate := authz.Authenticate([]byte(app.config.JWTSecret))

	return routes.NewRouter(authenticate, notificationHandler, preferenceHandler, subscriptionHandler)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, stopWorker context.CancelFunc, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the digest worker.
	stopWorker()
	logger.Info().Msg("Digest worker stopped.")
}
