package notification

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streamlinehq/notify-api/internal/models"
	"github.com/streamlinehq/notify-api/internal/repository"
)

// In-memory repository fakes. The repositories are interfaces precisely so
// the engine can be exercised without Postgres.

type fakeNotificationRepo struct {
	mu    sync.Mutex
	rows  map[string]models.Notification
	seq   int
	order map[string]int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		rows:  make(map[string]models.Notification),
		order: make(map[string]int),
	}
}

func (f *fakeNotificationRepo) Create(_ context.Context, params repository.CreateNotificationParams) (models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	notif := models.Notification{
		ID:        uuid.NewString(),
		UserID:    params.UserID,
		Type:      params.Type,
		Title:     params.Title,
		Message:   params.Message,
		ActionURL: params.ActionURL,
		CreatedAt: time.Now(),
	}
	f.seq++
	f.rows[notif.ID] = notif
	f.order[notif.ID] = f.seq
	return notif, nil
}

func (f *fakeNotificationRepo) listByUser(userID string, unreadOnly bool) []models.Notification {
	var notifs []models.Notification
	for _, notif := range f.rows {
		if notif.UserID != userID {
			continue
		}
		if unreadOnly && notif.Read {
			continue
		}
		notifs = append(notifs, notif)
	}
	sort.Slice(notifs, func(i, j int) bool {
		return f.order[notifs[i].ID] > f.order[notifs[j].ID]
	})
	return notifs
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID string, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	notifs := f.listByUser(userID, unreadOnly)
	if offset >= len(notifs) {
		return nil, nil
	}
	notifs = notifs[offset:]
	if limit > 0 && limit < len(notifs) {
		notifs = notifs[:limit]
	}
	return notifs, nil
}

func (f *fakeNotificationRepo) CountByUser(_ context.Context, userID string, unreadOnly bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.listByUser(userID, unreadOnly))), nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, userID, notificationID string) (models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	notif, ok := f.rows[notificationID]
	if !ok || notif.UserID != userID {
		return models.Notification{}, sql.ErrNoRows
	}
	if !notif.Read {
		now := time.Now()
		notif.Read = true
		notif.ReadAt = &now
		f.rows[notificationID] = notif
	}
	return notif, nil
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var updated int64
	now := time.Now()
	for id, notif := range f.rows {
		if notif.UserID == userID && !notif.Read {
			notif.Read = true
			notif.ReadAt = &now
			f.rows[id] = notif
			updated++
		}
	}
	return updated, nil
}

func (f *fakeNotificationRepo) Delete(_ context.Context, userID, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	notif, ok := f.rows[notificationID]
	if !ok || notif.UserID != userID {
		return sql.ErrNoRows
	}
	delete(f.rows, notificationID)
	return nil
}

func (f *fakeNotificationRepo) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var deleted int64
	for id, notif := range f.rows {
		if notif.UserID == userID {
			delete(f.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeNotificationRepo) MarkPushDelivered(_ context.Context, notificationID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	notif, ok := f.rows[notificationID]
	if !ok {
		return sql.ErrNoRows
	}
	notif.SentViaPush = true
	notif.Delivered = true
	notif.DeliveredAt = &at
	f.rows[notificationID] = notif
	return nil
}

func (f *fakeNotificationRepo) MarkEmailQueued(_ context.Context, notificationIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range notificationIDs {
		if notif, ok := f.rows[id]; ok {
			notif.SentViaEmail = true
			f.rows[id] = notif
		}
	}
	return nil
}

func (f *fakeNotificationRepo) ListUnemailedUnread(_ context.Context, userID string) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var notifs []models.Notification
	for _, notif := range f.listByUser(userID, true) {
		if !notif.SentViaEmail {
			notifs = append(notifs, notif)
		}
	}
	return notifs, nil
}

func (f *fakeNotificationRepo) get(id string) (models.Notification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	notif, ok := f.rows[id]
	return notif, ok
}

type fakePreferenceRepo struct {
	mu      sync.Mutex
	rows    map[string]models.NotificationPreference
	failFor map[string]error
}

func newFakePreferenceRepo() *fakePreferenceRepo {
	return &fakePreferenceRepo{
		rows:    make(map[string]models.NotificationPreference),
		failFor: make(map[string]error),
	}
}

func (f *fakePreferenceRepo) GetOrCreate(_ context.Context, userID string) (models.NotificationPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failFor[userID]; ok {
		return models.NotificationPreference{}, err
	}
	if prefs, ok := f.rows[userID]; ok {
		return prefs, nil
	}
	prefs := models.DefaultPreferences(userID)
	prefs.ID = uuid.NewString()
	prefs.CreatedAt = time.Now()
	prefs.UpdatedAt = prefs.CreatedAt
	f.rows[userID] = prefs
	return prefs, nil
}

func (f *fakePreferenceRepo) Update(_ context.Context, prefs models.NotificationPreference) (models.NotificationPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.rows[prefs.UserID]
	if !ok {
		return models.NotificationPreference{}, sql.ErrNoRows
	}
	prefs.ID = stored.ID
	prefs.DigestLastSentAt = stored.DigestLastSentAt
	prefs.UpdatedAt = time.Now()
	f.rows[prefs.UserID] = prefs
	return prefs, nil
}

func (f *fakePreferenceRepo) Reset(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, userID)
	return nil
}

func (f *fakePreferenceRepo) EnablePush(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if prefs, ok := f.rows[userID]; ok {
		prefs.PushEnabled = true
		f.rows[userID] = prefs
	}
	return nil
}

func (f *fakePreferenceRepo) ListDigestDue(_ context.Context, now time.Time, limit int) ([]models.NotificationPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due []models.NotificationPreference
	for _, prefs := range f.rows {
		if !prefs.DigestEnabled {
			continue
		}
		if prefs.DigestLastSentAt == nil || now.Sub(*prefs.DigestLastSentAt) >= prefs.DigestFrequency.Interval() {
			due = append(due, prefs)
		}
		if limit > 0 && len(due) >= limit {
			break
		}
	}
	return due, nil
}

func (f *fakePreferenceRepo) StampDigestSent(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if prefs, ok := f.rows[userID]; ok {
		prefs.DigestLastSentAt = &at
		f.rows[userID] = prefs
	}
	return nil
}

func (f *fakePreferenceRepo) put(prefs models.NotificationPreference) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prefs.ID == "" {
		prefs.ID = uuid.NewString()
	}
	f.rows[prefs.UserID] = prefs
}

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	rows map[string]models.PushSubscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{rows: make(map[string]models.PushSubscription)}
}

func (f *fakeSubscriptionRepo) Upsert(_ context.Context, params repository.UpsertSubscriptionParams) (models.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, sub := range f.rows {
		if sub.Endpoint == params.Endpoint {
			sub.P256dh = params.P256dh
			sub.Auth = params.Auth
			sub.IsActive = true
			f.rows[id] = sub
			return sub, nil
		}
	}
	sub := models.PushSubscription{
		ID:        uuid.NewString(),
		UserID:    params.UserID,
		Endpoint:  params.Endpoint,
		P256dh:    params.P256dh,
		Auth:      params.Auth,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	f.rows[sub.ID] = sub
	return sub, nil
}

func (f *fakeSubscriptionRepo) ListActiveByUser(_ context.Context, userID string) ([]models.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var subs []models.PushSubscription
	for _, sub := range f.rows {
		if sub.UserID == userID && sub.IsActive {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Endpoint < subs[j].Endpoint })
	return subs, nil
}

func (f *fakeSubscriptionRepo) MarkInactive(_ context.Context, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sub, ok := f.rows[subscriptionID]; ok {
		sub.IsActive = false
		f.rows[subscriptionID] = sub
	}
	return nil
}

func (f *fakeSubscriptionRepo) TouchLastUsed(_ context.Context, subscriptionID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sub, ok := f.rows[subscriptionID]; ok {
		sub.LastUsed = &at
		f.rows[subscriptionID] = sub
	}
	return nil
}

func (f *fakeSubscriptionRepo) DeactivateByEndpoint(_ context.Context, userID, endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, sub := range f.rows {
		if sub.UserID == userID && sub.Endpoint == endpoint {
			sub.IsActive = false
			f.rows[id] = sub
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeSubscriptionRepo) add(userID, endpoint string) models.PushSubscription {
	sub, _ := f.Upsert(context.Background(), repository.UpsertSubscriptionParams{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   "p256dh-key",
		Auth:     "auth-secret",
	})
	return sub
}

func (f *fakeSubscriptionRepo) get(id string) (models.PushSubscription, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.rows[id]
	return sub, ok
}

type fakeEmailQueueRepo struct {
	mu    sync.Mutex
	items []models.EmailQueueItem
}

func newFakeEmailQueueRepo() *fakeEmailQueueRepo {
	return &fakeEmailQueueRepo{}
}

func (f *fakeEmailQueueRepo) Enqueue(_ context.Context, params repository.EnqueueEmailParams) (models.EmailQueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item := models.EmailQueueItem{
		ID:        uuid.NewString(),
		To:        params.To,
		Subject:   params.Subject,
		Template:  params.Template,
		CreatedAt: time.Now(),
	}
	f.items = append(f.items, item)
	return item, nil
}

func (f *fakeEmailQueueRepo) all() []models.EmailQueueItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.EmailQueueItem(nil), f.items...)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]models.User)}
}

func (f *fakeUserRepo) GetByID(_ context.Context, userID string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[userID]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) put(user models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
}

// fakeTransport records every send and fails endpoints listed in errs.
type fakeTransport struct {
	mu       sync.Mutex
	errs     map[string]error
	sends    []string
	payloads [][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{errs: make(map[string]error)}
}

func (f *fakeTransport) Send(_ context.Context, sub models.PushSubscription, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.errs[sub.Endpoint]; ok {
		return err
	}
	f.sends = append(f.sends, sub.Endpoint)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeTransport) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}
