package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/streamlinehq/notify-api/internal/config"
	"github.com/streamlinehq/notify-api/internal/models"
	"github.com/streamlinehq/notify-api/internal/repository"
)

const (
	pushIconPath     = "/icons/icon-192x192.png"
	pushBadgePath    = "/icons/badge-72x72.png"
	defaultActionURL = "/dashboard"
)

// ErrSubscriptionGone marks an endpoint the transport reports as permanently
// dead. The owning subscription is deactivated and never retried.
var ErrSubscriptionGone = errors.New("push subscription gone")

// PushTransport delivers one encrypted payload to one device endpoint.
type PushTransport interface {
	Send(ctx context.Context, sub models.PushSubscription, payload []byte) error
}

// WebPushTransport sends via the Web Push protocol with VAPID auth.
type WebPushTransport struct {
	subscriber      string
	vapidPublicKey  string
	vapidPrivateKey string
	ttl             int
	timeout         time.Duration
}

func NewWebPushTransport(cfg config.PushConfig) *WebPushTransport {
	return &WebPushTransport{
		subscriber:      "mailto:" + cfg.ContactEmail,
		vapidPublicKey:  cfg.VAPIDPublicKey,
		vapidPrivateKey: cfg.VAPIDPrivateKey,
		ttl:             cfg.TTLSeconds,
		timeout:         cfg.SendTimeout,
	}
}

func (t *WebPushTransport) Send(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}, &webpush.Options{
		Subscriber:      t.subscriber,
		VAPIDPublicKey:  t.vapidPublicKey,
		VAPIDPrivateKey: t.vapidPrivateKey,
		TTL:             t.ttl,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= http.StatusBadRequest:
		return errors.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// pushPayload is the wire format handed to the service worker.
type pushPayload struct {
	Title string                  `json:"title"`
	Body  string                  `json:"body"`
	Icon  string                  `json:"icon"`
	Badge string                  `json:"badge"`
	Tag   models.NotificationType `json:"tag"`
	Data  map[string]interface{}  `json:"data"`
}

// DeviceResult is the outcome of one per-device send attempt.
type DeviceResult struct {
	SubscriptionID string
	Err            error
}

// PushDispatcher fans a notification out to every active device a user has
// registered. Devices fail independently: a dead endpoint is retired, a
// transient error is logged, and neither touches the other devices.
type PushDispatcher struct {
	transport PushTransport
	subs      repository.SubscriptionRepository
	notifs    repository.NotificationRepository
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPushDispatcher builds a dispatcher. A nil transport (missing VAPID keys)
// yields a dispatcher whose Dispatch is a logged no-op.
func NewPushDispatcher(transport PushTransport, subs repository.SubscriptionRepository, notifs repository.NotificationRepository, logger zerolog.Logger) *PushDispatcher {
	return &PushDispatcher{
		transport: transport,
		subs:      subs,
		notifs:    notifs,
		logger:    logger.With().Str("component", "push_dispatcher").Logger(),
		now:       time.Now,
	}
}

// Dispatch sends the payload to all of the user's active subscriptions and
// returns per-device results. The returned error covers only the subscription
// read and the delivery-state update; individual device failures never
// escalate past the result list.
func (d *PushDispatcher) Dispatch(ctx context.Context, notif models.Notification, extra map[string]interface{}) ([]DeviceResult, error) {
	if d.transport == nil {
		d.logger.Debug().Str("notification_id", notif.ID).Msg("push transport disabled, skipping dispatch")
		return nil, nil
	}

	subs, err := d.subs.ListActiveByUser(ctx, notif.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "list active subscriptions")
	}
	if len(subs) == 0 {
		return nil, nil
	}

	payload, err := d.buildPayload(notif, extra)
	if err != nil {
		return nil, errors.Wrap(err, "build push payload")
	}

	results := make([]DeviceResult, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub models.PushSubscription) {
			defer wg.Done()
			results[i] = DeviceResult{
				SubscriptionID: sub.ID,
				Err:            d.sendToDevice(ctx, sub, payload),
			}
		}(i, sub)
	}
	wg.Wait()

	delivered := 0
	for _, result := range results {
		if result.Err == nil {
			delivered++
		}
	}
	if delivered > 0 {
		if err := d.notifs.MarkPushDelivered(ctx, notif.ID, d.now()); err != nil {
			return results, errors.Wrap(err, "mark push delivered")
		}
	}

	d.logger.Info().
		Str("notification_id", notif.ID).
		Str("user_id", notif.UserID).
		Int("devices", len(subs)).
		Int("delivered", delivered).
		Msg("push dispatch complete")

	return results, nil
}

func (d *PushDispatcher) sendToDevice(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	err := d.transport.Send(ctx, sub, payload)
	if err == nil {
		if touchErr := d.subs.TouchLastUsed(ctx, sub.ID, d.now()); touchErr != nil {
			d.logger.Warn().Err(touchErr).Str("subscription_id", sub.ID).Msg("failed to update last_used")
		}
		return nil
	}

	if errors.Is(err, ErrSubscriptionGone) {
		d.logger.Info().Str("subscription_id", sub.ID).Msg("endpoint gone, deactivating subscription")
		if markErr := d.subs.MarkInactive(ctx, sub.ID); markErr != nil {
			d.logger.Error().Err(markErr).Str("subscription_id", sub.ID).Msg("failed to deactivate subscription")
		}
		return err
	}

	// Transient: leave the subscription alone, a later send may succeed.
	d.logger.Warn().Err(err).Str("subscription_id", sub.ID).Msg("push send failed")
	return err
}

func (d *PushDispatcher) buildPayload(notif models.Notification, extra map[string]interface{}) ([]byte, error) {
	url := defaultActionURL
	if notif.ActionURL != nil && *notif.ActionURL != "" {
		url = *notif.ActionURL
	}

	data := map[string]interface{}{
		"notificationId": notif.ID,
		"url":            url,
	}
	for key, value := range extra {
		data[key] = value
	}

	return json.Marshal(pushPayload{
		Title: notif.Title,
		Body:  notif.Message,
		Icon:  pushIconPath,
		Badge: pushBadgePath,
		Tag:   notif.Type,
		Data:  data,
	})
}
