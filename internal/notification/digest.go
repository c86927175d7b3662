package notification

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/streamlinehq/notify-api/internal/models"
	"github.com/streamlinehq/notify-api/internal/repository"
)

// DigestAggregator batches a user's unread, not-yet-emailed notifications
// into one periodic digest email. sent_via_email is the shared dedup guard:
// anything already emailed individually, or folded into a prior digest, is
// never selected again.
type DigestAggregator struct {
	prefs    repository.PreferenceRepository
	notifs   repository.NotificationRepository
	users    repository.UserRepository
	enqueuer *EmailEnqueuer
	logger   zerolog.Logger
	now      func() time.Time
}

func NewDigestAggregator(prefs repository.PreferenceRepository, notifs repository.NotificationRepository, users repository.UserRepository, enqueuer *EmailEnqueuer, logger zerolog.Logger) *DigestAggregator {
	return &DigestAggregator{
		prefs:    prefs,
		notifs:   notifs,
		users:    users,
		enqueuer: enqueuer,
		logger:   logger.With().Str("component", "digest_aggregator").Logger(),
		now:      time.Now,
	}
}

// ProcessDigest runs one digest pass for one user. No-op when the user has
// digests disabled or nothing qualifies.
func (a *DigestAggregator) ProcessDigest(ctx context.Context, userID string) error {
	prefs, err := a.prefs.GetOrCreate(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "load preferences")
	}
	if !prefs.DigestEnabled {
		return nil
	}

	notifications, err := a.notifs.ListUnemailedUnread(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "select digest notifications")
	}
	if len(notifications) == 0 {
		return nil
	}

	groups := make(map[models.NotificationType][]models.Notification)
	for _, notif := range notifications {
		groups[notif.Type] = append(groups[notif.Type], notif)
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			a.logger.Warn().Str("user_id", userID).Msg("user not found, skipping digest")
			return nil
		}
		return errors.Wrap(err, "load user")
	}

	if err := a.enqueuer.EnqueueDigest(ctx, user, prefs.DigestFrequency, groups); err != nil {
		return errors.Wrap(err, "enqueue digest email")
	}

	ids := make([]string, 0, len(notifications))
	for _, notif := range notifications {
		ids = append(ids, notif.ID)
	}
	if err := a.notifs.MarkEmailQueued(ctx, ids); err != nil {
		return errors.Wrap(err, "mark notifications emailed")
	}

	if err := a.prefs.StampDigestSent(ctx, userID, a.now()); err != nil {
		return errors.Wrap(err, "stamp digest time")
	}

	a.logger.Info().
		Str("user_id", userID).
		Int("notifications", len(notifications)).
		Int("groups", len(groups)).
		Msg("digest processed")
	return nil
}
