package models

import (
	"encoding/json"
	"time"
)

const (
	EmailTemplateNotification = "notification"
	EmailTemplateDigest       = "digest"
)

// EmailQueueItem is an outbound mail job. The engine only inserts; an
// external mailer process consumes and deletes rows.
type EmailQueueItem struct {
	ID        string          `json:"id" db:"id"`
	To        string          `json:"to" db:"recipient"`
	Subject   string          `json:"subject" db:"subject"`
	Template  string          `json:"template" db:"template"`
	Data      json.RawMessage `json:"data,omitempty" db:"data"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
