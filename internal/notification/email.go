package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/streamlinehq/notify-api/internal/models"
	"github.com/streamlinehq/notify-api/internal/repository"
)

// EmailEnqueuer writes templated jobs to the outbound email queue. The queue
// is consumed by a separate mailer process; nothing here talks SMTP.
type EmailEnqueuer struct {
	users  repository.UserRepository
	queue  repository.EmailQueueRepository
	logger zerolog.Logger
}

func NewEmailEnqueuer(users repository.UserRepository, queue repository.EmailQueueRepository, logger zerolog.Logger) *EmailEnqueuer {
	return &EmailEnqueuer{
		users:  users,
		queue:  queue,
		logger: logger.With().Str("component", "email_enqueuer").Logger(),
	}
}

// EnqueueNotification queues the real-time single-notification email. A user
// that no longer exists is a silent no-op.
func (e *EmailEnqueuer) EnqueueNotification(ctx context.Context, notif models.Notification) error {
	user, err := e.users.GetByID(ctx, notif.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			e.logger.Warn().Str("user_id", notif.UserID).Msg("user not found, skipping email")
			return nil
		}
		return err
	}

	data := map[string]interface{}{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"title":      notif.Title,
		"message":    notif.Message,
		"type":       notif.Type,
	}
	if notif.ActionURL != nil {
		data["action_url"] = *notif.ActionURL
	}

	item, err := e.queue.Enqueue(ctx, repository.EnqueueEmailParams{
		To:       user.Email,
		Subject:  notif.Title,
		Template: models.EmailTemplateNotification,
		Data:     data,
	})
	if err != nil {
		return err
	}

	e.logger.Info().
		Str("notification_id", notif.ID).
		Str("queue_item_id", item.ID).
		Str("recipient", user.Email).
		Msg("notification email queued")
	return nil
}

// EnqueueDigest queues one periodic digest email covering the grouped
// notifications.
func (e *EmailEnqueuer) EnqueueDigest(ctx context.Context, user models.User, frequency models.DigestFrequency, groups map[models.NotificationType][]models.Notification) error {
	subject := fmt.Sprintf("Your %s notification digest", strings.ToLower(string(frequency)))

	item, err := e.queue.Enqueue(ctx, repository.EnqueueEmailParams{
		To:       user.Email,
		Subject:  subject,
		Template: models.EmailTemplateDigest,
		Data: map[string]interface{}{
			"first_name":    user.FirstName,
			"last_name":     user.LastName,
			"frequency":     frequency,
			"notifications": groups,
		},
	})
	if err != nil {
		return err
	}

	e.logger.Info().
		Str("queue_item_id", item.ID).
		Str("recipient", user.Email).
		Int("groups", len(groups)).
		Msg("digest email queued")
	return nil
}
