package notification

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/streamlinehq/notify-api/internal/models"
	"github.com/streamlinehq/notify-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type digestFixture struct {
	aggregator *DigestAggregator
	prefs      *fakePreferenceRepo
	notifs     *fakeNotificationRepo
	users      *fakeUserRepo
	queue      *fakeEmailQueueRepo
	now        time.Time
}

func newDigestFixture(t *testing.T) *digestFixture {
	t.Helper()
	prefs := newFakePreferenceRepo()
	notifs := newFakeNotificationRepo()
	users := newFakeUserRepo()
	queue := newFakeEmailQueueRepo()

	enqueuer := NewEmailEnqueuer(users, queue, zerolog.Nop())
	aggregator := NewDigestAggregator(prefs, notifs, users, enqueuer, zerolog.Nop())
	now := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC)
	aggregator.now = func() time.Time { return now }

	users.put(models.User{
		ID:        "user-1",
		Email:     "sam@example.com",
		FirstName: "Sam",
		LastName:  "Reyes",
		IsActive:  true,
		Roles:     []models.UserRole{models.RoleMember},
	})

	return &digestFixture{
		aggregator: aggregator,
		prefs:      prefs,
		notifs:     notifs,
		users:      users,
		queue:      queue,
		now:        now,
	}
}

func (f *digestFixture) enableDigest(userID string, frequency models.DigestFrequency) {
	prefs := models.DefaultPreferences(userID)
	prefs.DigestEnabled = true
	prefs.DigestFrequency = frequency
	f.prefs.put(prefs)
}

func (f *digestFixture) seedNotification(t *testing.T, userID string, typ models.NotificationType) models.Notification {
	t.Helper()
	notif, err := f.notifs.Create(context.Background(), repository.CreateNotificationParams{
		UserID: userID,
		Type:   typ,
		Title:  string(typ),
	})
	require.NoError(t, err)
	return notif
}

func TestProcessDigestBatchesUnemailedUnread(t *testing.T) {
	f := newDigestFixture(t)
	f.enableDigest("user-1", models.DigestFrequencyDaily)

	first := f.seedNotification(t, "user-1", models.NotificationTypeTaskAssigned)
	second := f.seedNotification(t, "user-1", models.NotificationTypeTaskAssigned)
	third := f.seedNotification(t, "user-1", models.NotificationTypeNewMessage)

	// Already emailed individually; must never be re-emailed by a digest.
	emailed := f.seedNotification(t, "user-1", models.NotificationTypeAnnouncement)
	require.NoError(t, f.notifs.MarkEmailQueued(context.Background(), []string{emailed.ID}))

	// Read notifications are not digest material either.
	read := f.seedNotification(t, "user-1", models.NotificationTypeNewMessage)
	_, err := f.notifs.MarkRead(context.Background(), "user-1", read.ID)
	require.NoError(t, err)

	require.NoError(t, f.aggregator.ProcessDigest(context.Background(), "user-1"))

	items := f.queue.all()
	require.Len(t, items, 1, "one digest email per pass regardless of notification count")
	assert.Equal(t, "sam@example.com", items[0].To)
	assert.Equal(t, models.EmailTemplateDigest, items[0].Template)
	assert.Equal(t, "Your daily notification digest", items[0].Subject)

	for _, id := range []string{first.ID, second.ID, third.ID} {
		stored, ok := f.notifs.get(id)
		require.True(t, ok)
		assert.True(t, stored.SentViaEmail, "digested notification must be flagged")
	}
	readStored, _ := f.notifs.get(read.ID)
	assert.False(t, readStored.SentViaEmail)

	prefs, err := f.prefs.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, prefs.DigestLastSentAt)
	assert.Equal(t, f.now, *prefs.DigestLastSentAt)
}

func TestProcessDigestSecondPassIsEmpty(t *testing.T) {
	f := newDigestFixture(t)
	f.enableDigest("user-1", models.DigestFrequencyWeekly)
	f.seedNotification(t, "user-1", models.NotificationTypeTaskAssigned)

	require.NoError(t, f.aggregator.ProcessDigest(context.Background(), "user-1"))
	require.NoError(t, f.aggregator.ProcessDigest(context.Background(), "user-1"))

	assert.Len(t, f.queue.all(), 1, "the flag keeps a rerun from emailing the same batch twice")
}

func TestProcessDigestWeeklySubject(t *testing.T) {
	f := newDigestFixture(t)
	f.enableDigest("user-1", models.DigestFrequencyWeekly)
	f.seedNotification(t, "user-1", models.NotificationTypeTaskAssigned)

	require.NoError(t, f.aggregator.ProcessDigest(context.Background(), "user-1"))

	items := f.queue.all()
	require.Len(t, items, 1)
	assert.Equal(t, "Your weekly notification digest", items[0].Subject)
}

func TestProcessDigestDisabled(t *testing.T) {
	f := newDigestFixture(t)
	f.prefs.put(models.DefaultPreferences("user-1"))
	notif := f.seedNotification(t, "user-1", models.NotificationTypeTaskAssigned)

	require.NoError(t, f.aggregator.ProcessDigest(context.Background(), "user-1"))

	assert.Empty(t, f.queue.all())
	stored, _ := f.notifs.get(notif.ID)
	assert.False(t, stored.SentViaEmail)
}

func TestProcessDigestNothingPending(t *testing.T) {
	f := newDigestFixture(t)
	f.enableDigest("user-1", models.DigestFrequencyDaily)

	require.NoError(t, f.aggregator.ProcessDigest(context.Background(), "user-1"))
	assert.Empty(t, f.queue.all())

	prefs, err := f.prefs.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, prefs.DigestLastSentAt, "an empty pass must not advance the digest clock")
}

func TestProcessDigestMissingUser(t *testing.T) {
	f := newDigestFixture(t)
	f.enableDigest("ghost", models.DigestFrequencyDaily)
	f.seedNotification(t, "ghost", models.NotificationTypeTaskAssigned)

	require.NoError(t, f.aggregator.ProcessDigest(context.Background(), "ghost"), "a vanished user is a skip, not a failure")
	assert.Empty(t, f.queue.all())
}
