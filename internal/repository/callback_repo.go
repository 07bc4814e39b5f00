package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_authnet/internal/models"
)

// CallbackRepository provides access to the callback_logs table.
type CallbackRepository struct {
	db *sqlx.DB
}

// NewCallbackRepository creates a new CallbackRepository.
func NewCallbackRepository(db *sqlx.DB) *CallbackRepository {
	return &CallbackRepository{db: db}
}

// CreateCallbackLog inserts a new callback attempt.
func (r *CallbackRepository) CreateCallbackLog(ctx context.Context, log *models.CallbackLog) error {
	const q = `
        INSERT INTO callback_logs (
            request_id, client_id, event, payload, http_status, response_body, is_delivered, created_at
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,NOW()
        ) RETURNING id, created_at`
	stmt, err := r.db.PreparexContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.QueryRowxContext(ctx,
		log.RequestID,
		log.ClientID,
		log.Event,
		[]byte(log.Payload),
		log.HTTPStatus,
		log.ResponseBody,
		log.IsDelivered,
	).Scan(&log.ID, &log.CreatedAt)
}

// GetByRequestID returns all callback attempts of a payment request.
func (r *CallbackRepository) GetByRequestID(ctx context.Context, requestID int) ([]models.CallbackLog, error) {
	const q = `
        SELECT id, request_id, client_id, event, payload, http_status, response_body, is_delivered, created_at
        FROM callback_logs WHERE request_id = $1 ORDER BY created_at ASC`
	logs := []models.CallbackLog{}
	if err := r.db.SelectContext(ctx, &logs, q, requestID); err != nil {
		return nil, err
	}
	return logs, nil
}
