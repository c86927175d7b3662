package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/streamlinehq/notify-api/internal/models"
	"github.com/streamlinehq/notify-api/internal/repository"
)

// Payload is a delivery request. Content is entirely caller-supplied; the
// engine decides only whether, how, and where it goes.
type Payload struct {
	UserID    string
	Type      models.NotificationType
	Title     string
	Message   string
	ActionURL *string
	Data      map[string]interface{}
}

// SendResult reports what one Send actually did.
type SendResult struct {
	Notification models.Notification
	Suppressed   bool
	EmailQueued  bool
	PushResults  []DeviceResult
}

// BulkResult is the partial-failure report for a fan-out send.
type BulkResult struct {
	Sent     int
	Failures map[string]error
}

type Service interface {
	Send(ctx context.Context, payload Payload) (SendResult, error)
	SendBulk(ctx context.Context, userIDs []string, typ models.NotificationType, title, message string, actionURL *string) BulkResult
	ListForUser(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	CountForUser(ctx context.Context, userID string, unreadOnly bool) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, notificationID string) error
	ClearAll(ctx context.Context, userID string) (int64, error)
	ProcessDigest(ctx context.Context, userID string) error
}

type service struct {
	notifs     repository.NotificationRepository
	prefs      repository.PreferenceRepository
	matrix     *ChannelMatrix
	dispatcher *PushDispatcher
	enqueuer   *EmailEnqueuer
	digest     *DigestAggregator
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(
	notifs repository.NotificationRepository,
	prefs repository.PreferenceRepository,
	matrix *ChannelMatrix,
	dispatcher *PushDispatcher,
	enqueuer *EmailEnqueuer,
	digest *DigestAggregator,
	logger zerolog.Logger,
) Service {
	return &service{
		notifs:     notifs,
		prefs:      prefs,
		matrix:     matrix,
		dispatcher: dispatcher,
		enqueuer:   enqueuer,
		digest:     digest,
		logger:     logger.With().Str("component", "notification_service").Logger(),
		now:        time.Now,
	}
}

// Send persists the notification and delivers it over every eligible channel.
// Quiet hours suppress the out-of-band channels only: the in-app record is
// still written so the event stays visible and a later digest can pick it up.
func (s *service) Send(ctx context.Context, payload Payload) (SendResult, error) {
	if strings.TrimSpace(payload.UserID) == "" {
		return SendResult{}, errors.New("user id is required")
	}
	if payload.Type == "" {
		return SendResult{}, errors.New("notification type is required")
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = string(payload.Type)
	}

	prefs, err := s.prefs.GetOrCreate(ctx, payload.UserID)
	if err != nil {
		return SendResult{}, errors.Wrap(err, "load preferences")
	}

	suppressed := IsSuppressed(s.now(), prefs)

	notif, err := s.notifs.Create(ctx, repository.CreateNotificationParams{
		UserID:    payload.UserID,
		Type:      payload.Type,
		Title:     title,
		Message:   strings.TrimSpace(payload.Message),
		ActionURL: payload.ActionURL,
		Data:      payload.Data,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", payload.UserID).Str("type", string(payload.Type)).Msg("failed to persist notification")
		return SendResult{}, errors.Wrap(err, "persist notification")
	}

	result := SendResult{Notification: notif}

	if suppressed {
		s.logger.Debug().
			Str("notification_id", notif.ID).
			Str("user_id", payload.UserID).
			Msg("delivery suppressed by quiet hours")
		result.Suppressed = true
		return result, nil
	}

	eligibility := s.matrix.Resolve(payload.Type, prefs)

	if eligibility.Push {
		pushResults, err := s.dispatcher.Dispatch(ctx, notif, payload.Data)
		if err != nil {
			return result, errors.Wrap(err, "push dispatch")
		}
		result.PushResults = pushResults
		for _, device := range pushResults {
			if device.Err == nil {
				result.Notification.SentViaPush = true
				result.Notification.Delivered = true
				break
			}
		}
	}

	if eligibility.Email {
		if err := s.enqueuer.EnqueueNotification(ctx, notif); err != nil {
			return result, errors.Wrap(err, "enqueue email")
		}
		// Stamped at enqueue time, not at actual send time; the flag also
		// keeps the digest from emailing the same notification again.
		if err := s.notifs.MarkEmailQueued(ctx, []string{notif.ID}); err != nil {
			return result, errors.Wrap(err, "mark email queued")
		}
		result.EmailQueued = true
		result.Notification.SentViaEmail = true
	}

	return result, nil
}

// SendBulk fans Send out across users, attempting all of them and collecting
// per-user failures rather than aborting the batch.
func (s *service) SendBulk(ctx context.Context, userIDs []string, typ models.NotificationType, title, message string, actionURL *string) BulkResult {
	result := BulkResult{Failures: make(map[string]error)}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, userID := range userIDs {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := s.Send(ctx, Payload{
				UserID:    userID,
				Type:      typ,
				Title:     title,
				Message:   message,
				ActionURL: actionURL,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures[userID] = err
				return
			}
			result.Sent++
		}(userID)
	}
	wg.Wait()

	if len(result.Failures) > 0 {
		s.logger.Warn().
			Int("sent", result.Sent).
			Int("failed", len(result.Failures)).
			Str("type", string(typ)).
			Msg("bulk send completed with failures")
	}
	return result
}

func (s *service) ListForUser(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	return s.notifs.ListByUser(ctx, userID, limit, offset, unreadOnly)
}

func (s *service) CountForUser(ctx context.Context, userID string, unreadOnly bool) (int64, error) {
	return s.notifs.CountByUser(ctx, userID, unreadOnly)
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.notifs.CountByUser(ctx, userID, true)
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	return s.notifs.MarkRead(ctx, userID, notificationID)
}

func (s *service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.notifs.MarkAllRead(ctx, userID)
}

func (s *service) Delete(ctx context.Context, userID, notificationID string) error {
	return s.notifs.Delete(ctx, userID, notificationID)
}

func (s *service) ClearAll(ctx context.Context, userID string) (int64, error) {
	return s.notifs.DeleteAllForUser(ctx, userID)
}

func (s *service) ProcessDigest(ctx context.Context, userID string) error {
	return s.digest.ProcessDigest(ctx, userID)
}
