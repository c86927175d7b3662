package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/streamlinehq/notify-api/internal/models"
)

// EmailQueueRepository is the insert-only sink for outbound mail jobs. An
// external mailer process consumes and deletes rows.
type EmailQueueRepository interface {
	Enqueue(ctx context.Context, params EnqueueEmailParams) (models.EmailQueueItem, error)
}

type EnqueueEmailParams struct {
	To       string
	Subject  string
	Template string
	Data     map[string]interface{}
}

type emailQueueRepository struct {
	db *sql.DB
}

func NewEmailQueueRepository(db *sql.DB) EmailQueueRepository {
	return &emailQueueRepository{db: db}
}

func (r *emailQueueRepository) Enqueue(ctx context.Context, params EnqueueEmailParams) (models.EmailQueueItem, error) {
	const query = `
		INSERT INTO email_queue (recipient, subject, template, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, recipient, subject, template, data, created_at`

	var data interface{}
	if len(params.Data) > 0 {
		bytes, err := json.Marshal(params.Data)
		if err != nil {
			return models.EmailQueueItem{}, fmt.Errorf("marshal email data: %w", err)
		}
		data = bytes
	}

	var (
		item    models.EmailQueueItem
		dataRaw []byte
	)
	err := r.db.QueryRowContext(ctx, query, params.To, params.Subject, params.Template, data).Scan(
		&item.ID,
		&item.To,
		&item.Subject,
		&item.Template,
		&dataRaw,
		&item.CreatedAt,
	)
	if err != nil {
		return models.EmailQueueItem{}, err
	}
	if len(dataRaw) > 0 {
		item.Data = json.RawMessage(dataRaw)
	}

	return item, nil
}
