package models

import "time"

// PushSubscription is one registered browser/device push endpoint. Endpoints
// the transport reports as permanently gone are flipped inactive and kept for
// audit, never deleted.
type PushSubscription struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	Endpoint   string     `json:"endpoint" db:"endpoint"`
	P256dh     string     `json:"p256dh" db:"p256dh"`
	Auth       string     `json:"auth" db:"auth"`
	DeviceType *string    `json:"device_type,omitempty" db:"device_type"`
	Browser    *string    `json:"browser,omitempty" db:"browser"`
	OS         *string    `json:"os,omitempty" db:"os"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	LastUsed   *time.Time `json:"last_used,omitempty" db:"last_used"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
