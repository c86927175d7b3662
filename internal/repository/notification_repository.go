package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/streamlinehq/notify-api/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error)
	ListByUser(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	CountByUser(ctx context.Context, userID string, unreadOnly bool) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, notificationID string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	MarkPushDelivered(ctx context.Context, notificationID string, at time.Time) error
	MarkEmailQueued(ctx context.Context, notificationIDs []string) error
	ListUnemailedUnread(ctx context.Context, userID string) ([]models.Notification, error)
}

type CreateNotificationParams struct {
	UserID    string
	Type      models.NotificationType
	Title     string
	Message   string
	ActionURL *string
	Data      map[string]interface{}
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, user_id, type, title, message, action_url, data, read, read_at,
		sent_via_push, sent_via_email, delivered, delivered_at, created_at`

func (r *notificationRepository) Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error) {
	query := `
		INSERT INTO notifications (user_id, type, title, message, action_url, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + notificationColumns

	var actionURL interface{}
	if params.ActionURL != nil && strings.TrimSpace(*params.ActionURL) != "" {
		actionURL = strings.TrimSpace(*params.ActionURL)
	}

	var data interface{}
	if len(params.Data) > 0 {
		bytes, err := json.Marshal(params.Data)
		if err != nil {
			return models.Notification{}, fmt.Errorf("marshal data: %w", err)
		}
		data = bytes
	}

	row := r.db.QueryRowContext(ctx, query, params.UserID, params.Type, params.Title, params.Message, actionURL, data)
	return scanNotification(row)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func (r *notificationRepository) CountByUser(ctx context.Context, userID string, unreadOnly bool) (int64, error) {
	const query = `
		SELECT COUNT(*)
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR read = FALSE)`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, userID, unreadOnly).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead flips the read fields for a single notification. The user id is
// part of the predicate so one user can never touch another's record; a
// mismatch surfaces as sql.ErrNoRows.
func (r *notificationRepository) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	query := `
		UPDATE notifications
		SET read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationColumns

	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(notificationID), userID)
	return scanNotification(row)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	const query = `
		UPDATE notifications
		SET read = TRUE, read_at = NOW()
		WHERE user_id = $1 AND read = FALSE`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *notificationRepository) Delete(ctx context.Context, userID, notificationID string) error {
	const query = `
		DELETE FROM notifications
		WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, strings.TrimSpace(notificationID), userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM notifications WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MarkPushDelivered sets the delivery fields after at least one device
// accepted the push. Only the dispatcher calls this.
func (r *notificationRepository) MarkPushDelivered(ctx context.Context, notificationID string, at time.Time) error {
	const query = `
		UPDATE notifications
		SET sent_via_push = TRUE, delivered = TRUE, delivered_at = $2
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, notificationID, at)
	return err
}

// MarkEmailQueued stamps sent_via_email. The same flag guards both the
// real-time email path and the digest path against double delivery.
func (r *notificationRepository) MarkEmailQueued(ctx context.Context, notificationIDs []string) error {
	if len(notificationIDs) == 0 {
		return nil
	}

	const query = `
		UPDATE notifications
		SET sent_via_email = TRUE
		WHERE id = ANY($1)`

	_, err := r.db.ExecContext(ctx, query, pq.Array(notificationIDs))
	return err
}

func (r *notificationRepository) ListUnemailedUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND read = FALSE AND sent_via_email = FALSE
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func collectNotifications(rows *sql.Rows) ([]models.Notification, error) {
	var notifications []models.Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Notification, error) {
	var (
		notif       models.Notification
		actionURL   sql.NullString
		dataRaw     []byte
		readAt      sql.NullTime
		deliveredAt sql.NullTime
	)

	if err := scanner.Scan(
		&notif.ID,
		&notif.UserID,
		&notif.Type,
		&notif.Title,
		&notif.Message,
		&actionURL,
		&dataRaw,
		&notif.Read,
		&readAt,
		&notif.SentViaPush,
		&notif.SentViaEmail,
		&notif.Delivered,
		&deliveredAt,
		&notif.CreatedAt,
	); err != nil {
		return models.Notification{}, err
	}

	if actionURL.Valid {
		val := actionURL.String
		notif.ActionURL = &val
	}
	if len(dataRaw) > 0 {
		notif.Data = dataRaw
	}
	if readAt.Valid {
		t := readAt.Time
		notif.ReadAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		notif.DeliveredAt = &t
	}

	return notif, nil
}
