package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/streamlinehq/notify-api/internal/models"
)

type SubscriptionRepository interface {
	Upsert(ctx context.Context, params UpsertSubscriptionParams) (models.PushSubscription, error)
	ListActiveByUser(ctx context.Context, userID string) ([]models.PushSubscription, error)
	MarkInactive(ctx context.Context, subscriptionID string) error
	TouchLastUsed(ctx context.Context, subscriptionID string, at time.Time) error
	DeactivateByEndpoint(ctx context.Context, userID, endpoint string) error
}

type UpsertSubscriptionParams struct {
	UserID     string
	Endpoint   string
	P256dh     string
	Auth       string
	DeviceType *string
	Browser    *string
	OS         *string
}

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, endpoint, p256dh, auth, device_type, browser, os, is_active, last_used, created_at`

// Upsert registers a device endpoint, or refreshes its key material and
// reactivates it when the browser re-subscribes an endpoint we already know.
func (r *subscriptionRepository) Upsert(ctx context.Context, params UpsertSubscriptionParams) (models.PushSubscription, error) {
	query := `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, device_type, browser, os, last_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (endpoint) DO UPDATE
		SET p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth,
			device_type = EXCLUDED.device_type,
			browser = EXCLUDED.browser,
			os = EXCLUDED.os,
			is_active = TRUE,
			last_used = NOW()
		RETURNING ` + subscriptionColumns

	row := r.db.QueryRowContext(ctx, query,
		params.UserID,
		params.Endpoint,
		params.P256dh,
		params.Auth,
		nullableString(params.DeviceType),
		nullableString(params.Browser),
		nullableString(params.OS),
	)
	return scanSubscription(row)
}

func (r *subscriptionRepository) ListActiveByUser(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM push_subscriptions
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// MarkInactive retires an endpoint the transport reported as gone. The row is
// kept for audit; nothing ever reactivates it except a fresh subscribe.
func (r *subscriptionRepository) MarkInactive(ctx context.Context, subscriptionID string) error {
	const query = `
		UPDATE push_subscriptions
		SET is_active = FALSE
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, subscriptionID)
	return err
}

func (r *subscriptionRepository) TouchLastUsed(ctx context.Context, subscriptionID string, at time.Time) error {
	const query = `
		UPDATE push_subscriptions
		SET last_used = $2
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, subscriptionID, at)
	return err
}

func (r *subscriptionRepository) DeactivateByEndpoint(ctx context.Context, userID, endpoint string) error {
	const query = `
		UPDATE push_subscriptions
		SET is_active = FALSE
		WHERE user_id = $1 AND endpoint = $2`

	result, err := r.db.ExecContext(ctx, query, userID, endpoint)
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

func scanSubscription(scanner interface {
	Scan(dest ...interface{}) error
}) (models.PushSubscription, error) {
	var (
		sub        models.PushSubscription
		deviceType sql.NullString
		browser    sql.NullString
		osName     sql.NullString
		lastUsed   sql.NullTime
	)

	if err := scanner.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Endpoint,
		&sub.P256dh,
		&sub.Auth,
		&deviceType,
		&browser,
		&osName,
		&sub.IsActive,
		&lastUsed,
		&sub.CreatedAt,
	); err != nil {
		return models.PushSubscription{}, err
	}

	if deviceType.Valid {
		val := deviceType.String
		sub.DeviceType = &val
	}
	if browser.Valid {
		val := browser.String
		sub.Browser = &val
	}
	if osName.Valid {
		val := osName.String
		sub.OS = &val
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		sub.LastUsed = &t
	}

	return sub, nil
}
