package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/streamlinehq/notify-api/internal/models"
)

type PreferenceRepository interface {
	GetOrCreate(ctx context.Context, userID string) (models.NotificationPreference, error)
	Update(ctx context.Context, prefs models.NotificationPreference) (models.NotificationPreference, error)
	Reset(ctx context.Context, userID string) error
	EnablePush(ctx context.Context, userID string) error
	ListDigestDue(ctx context.Context, now time.Time, limit int) ([]models.NotificationPreference, error)
	StampDigestSent(ctx context.Context, userID string, at time.Time) error
}

type preferenceRepository struct {
	db *sql.DB
}

func NewPreferenceRepository(db *sql.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

const preferenceColumns = `id, user_id, push_enabled, email_enabled,
		push_on_message, push_on_calendar_event, push_on_calendar_reminder,
		push_on_task_assigned, push_on_application_update, push_on_announcement,
		email_on_message, email_on_calendar_event, email_on_task_assigned,
		email_on_application_update, email_on_announcement,
		quiet_hours_enabled, quiet_hours_start, quiet_hours_end, weekend_notifications,
		digest_enabled, digest_frequency, digest_last_sent_at, created_at, updated_at`

// GetOrCreate returns the user's preference row, inserting the defaults if
// none exists. The single upsert statement keeps concurrent first sends from
// racing a read-then-write into duplicate rows.
func (r *preferenceRepository) GetOrCreate(ctx context.Context, userID string) (models.NotificationPreference, error) {
	query := `
		INSERT INTO notification_preferences (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + preferenceColumns

	row := r.db.QueryRowContext(ctx, query, userID)
	return scanPreference(row)
}

// Update writes the user-owned settings columns only. Engine-owned columns
// (digest_last_sent_at) are untouched so a settings save cannot clobber a
// concurrent digest run.
func (r *preferenceRepository) Update(ctx context.Context, prefs models.NotificationPreference) (models.NotificationPreference, error) {
	query := `
		UPDATE notification_preferences
		SET push_enabled = $2, email_enabled = $3,
			push_on_message = $4, push_on_calendar_event = $5, push_on_calendar_reminder = $6,
			push_on_task_assigned = $7, push_on_application_update = $8, push_on_announcement = $9,
			email_on_message = $10, email_on_calendar_event = $11, email_on_task_assigned = $12,
			email_on_application_update = $13, email_on_announcement = $14,
			quiet_hours_enabled = $15, quiet_hours_start = $16, quiet_hours_end = $17,
			weekend_notifications = $18, digest_enabled = $19, digest_frequency = $20,
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + preferenceColumns

	row := r.db.QueryRowContext(ctx, query,
		prefs.UserID,
		prefs.PushEnabled,
		prefs.EmailEnabled,
		prefs.PushOnMessage,
		prefs.PushOnCalendarEvent,
		prefs.PushOnCalendarReminder,
		prefs.PushOnTaskAssigned,
		prefs.PushOnApplicationUpdate,
		prefs.PushOnAnnouncement,
		prefs.EmailOnMessage,
		prefs.EmailOnCalendarEvent,
		prefs.EmailOnTaskAssigned,
		prefs.EmailOnApplicationUpdate,
		prefs.EmailOnAnnouncement,
		prefs.QuietHoursEnabled,
		nullableString(prefs.QuietHoursStart),
		nullableString(prefs.QuietHoursEnd),
		prefs.WeekendNotifications,
		prefs.DigestEnabled,
		prefs.DigestFrequency,
	)
	return scanPreference(row)
}

// Reset deletes the row; the next GetOrCreate recreates it with defaults.
func (r *preferenceRepository) Reset(ctx context.Context, userID string) error {
	const query = `DELETE FROM notification_preferences WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// EnablePush flips only the master push toggle, used when a user registers
// their first device.
func (r *preferenceRepository) EnablePush(ctx context.Context, userID string) error {
	const query = `
		UPDATE notification_preferences
		SET push_enabled = TRUE, updated_at = NOW()
		WHERE user_id = $1 AND push_enabled = FALSE`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// ListDigestDue returns preference rows whose digest window has elapsed.
func (r *preferenceRepository) ListDigestDue(ctx context.Context, now time.Time, limit int) ([]models.NotificationPreference, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + preferenceColumns + `
		FROM notification_preferences
		WHERE digest_enabled = TRUE
		  AND (digest_last_sent_at IS NULL
		       OR (digest_frequency = 'DAILY' AND digest_last_sent_at <= $1 - INTERVAL '24 hours')
		       OR (digest_frequency = 'WEEKLY' AND digest_last_sent_at <= $1 - INTERVAL '7 days'))
		ORDER BY digest_last_sent_at NULLS FIRST
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []models.NotificationPreference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prefs, nil
}

func (r *preferenceRepository) StampDigestSent(ctx context.Context, userID string, at time.Time) error {
	const query = `
		UPDATE notification_preferences
		SET digest_last_sent_at = $2
		WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID, at)
	return err
}

func nullableString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func scanPreference(scanner interface {
	Scan(dest ...interface{}) error
}) (models.NotificationPreference, error) {
	var (
		prefs      models.NotificationPreference
		start      sql.NullString
		end        sql.NullString
		lastDigest sql.NullTime
	)

	if err := scanner.Scan(
		&prefs.ID,
		&prefs.UserID,
		&prefs.PushEnabled,
		&prefs.EmailEnabled,
		&prefs.PushOnMessage,
		&prefs.PushOnCalendarEvent,
		&prefs.PushOnCalendarReminder,
		&prefs.PushOnTaskAssigned,
		&prefs.PushOnApplicationUpdate,
		&prefs.PushOnAnnouncement,
		&prefs.EmailOnMessage,
		&prefs.EmailOnCalendarEvent,
		&prefs.EmailOnTaskAssigned,
		&prefs.EmailOnApplicationUpdate,
		&prefs.EmailOnAnnouncement,
		&prefs.QuietHoursEnabled,
		&start,
		&end,
		&prefs.WeekendNotifications,
		&prefs.DigestEnabled,
		&prefs.DigestFrequency,
		&lastDigest,
		&prefs.CreatedAt,
		&prefs.UpdatedAt,
	); err != nil {
		return models.NotificationPreference{}, err
	}

	if start.Valid {
		val := start.String
		prefs.QuietHoursStart = &val
	}
	if end.Valid {
		val := end.String
		prefs.QuietHoursEnd = &val
	}
	if lastDigest.Valid {
		t := lastDigest.Time
		prefs.DigestLastSentAt = &t
	}

	return prefs, nil
}
