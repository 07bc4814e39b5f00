package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_authnet/internal/models"
)

// PaymentRequestRepository is the document store for payment requests and
// their log entries.
type PaymentRequestRepository struct {
	db *sqlx.DB
}

// NewPaymentRequestRepository creates a new PaymentRequestRepository.
func NewPaymentRequestRepository(db *sqlx.DB) *PaymentRequestRepository {
	return &PaymentRequestRepository{db: db}
}

const paymentRequestColumns = `id, name, client_id, is_sandbox, status, transaction_id, amount, currency,
        order_id, title, description, payer_name, payer_email, reference_doctype, reference_docname,
        request_data, created_at, updated_at`

// GenerateName returns a name like PAY-YYYYMMDD-NNNNNN using the database's UTC date.
func (r *PaymentRequestRepository) GenerateName(ctx context.Context) (string, error) {
	const q = `
        SELECT TO_CHAR(NOW() AT TIME ZONE 'UTC', 'YYYYMMDD'),
               COALESCE(MAX(CAST(SUBSTRING(name FROM 14) AS INT)), 0) + 1
        FROM payment_requests
        WHERE name LIKE 'PAY-' || TO_CHAR(NOW() AT TIME ZONE 'UTC', 'YYYYMMDD') || '-%'`

	var ymd string
	var next int
	if err := r.db.QueryRowxContext(ctx, q).Scan(&ymd, &next); err != nil {
		return "", err
	}
	return fmt.Sprintf("PAY-%s-%06d", ymd, next), nil
}

// Create inserts a new request. Name must already be set.
func (r *PaymentRequestRepository) Create(ctx context.Context, req *models.PaymentRequest) error {
	const q = `
        INSERT INTO payment_requests (
            name, client_id, is_sandbox, status, transaction_id, amount, currency,
            order_id, title, description, payer_name, payer_email,
            reference_doctype, reference_docname, request_data, created_at, updated_at
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,
            $8,$9,$10,$11,$12,
            $13,$14,$15,NOW(),NOW()
        ) RETURNING id, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, q,
		req.Name, req.ClientID, req.IsSandbox, req.Status, req.TransactionID, req.Amount, req.Currency,
		req.OrderID, req.Title, req.Description, req.PayerName, req.PayerEmail,
		req.ReferenceDoctype, req.ReferenceDocname, req.RequestData,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

// Save persists status, transaction id, request data and any log entries not
// yet stored, in one transaction.
func (r *PaymentRequestRepository) Save(ctx context.Context, req *models.PaymentRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const updateQ = `
        UPDATE payment_requests SET
            status = $2,
            transaction_id = $3,
            request_data = $4,
            updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at`
	if err := tx.QueryRowxContext(ctx, updateQ,
		req.ID, req.Status, req.TransactionID, req.RequestData,
	).Scan(&req.UpdatedAt); err != nil {
		return err
	}

	const logQ = `
        INSERT INTO payment_request_logs (request_id, level, message, logged_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id`
	for i := range req.Log {
		entry := &req.Log[i]
		if entry.ID != 0 {
			continue
		}
		entry.RequestID = req.ID
		if err := tx.QueryRowxContext(ctx, logQ,
			req.ID, entry.Level, entry.Message, entry.Timestamp,
		).Scan(&entry.ID); err != nil {
			return fmt.Errorf("insert log entry: %w", err)
		}
	}

	return tx.Commit()
}

// GetByName returns the request with its log entries, or sql.ErrNoRows.
func (r *PaymentRequestRepository) GetByName(ctx context.Context, name string) (*models.PaymentRequest, error) {
	stmt, err := r.db.PreparexContext(ctx, `SELECT `+paymentRequestColumns+` FROM payment_requests WHERE name = $1 LIMIT 1`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var req models.PaymentRequest
	if err := stmt.GetContext(ctx, &req, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}

	if req.Log, err = r.GetLogs(ctx, req.ID); err != nil {
		return nil, err
	}
	return &req, nil
}

// GetLogs returns the log entries of a request in insertion order.
func (r *PaymentRequestRepository) GetLogs(ctx context.Context, requestID int) ([]models.LogEntry, error) {
	const q = `SELECT id, request_id, level, message, logged_at FROM payment_request_logs WHERE request_id = $1 ORDER BY id ASC`
	logs := []models.LogEntry{}
	if err := r.db.SelectContext(ctx, &logs, q, requestID); err != nil {
		return nil, err
	}
	return logs, nil
}

// PaymentRequestFilter holds filters for listing payment requests.
type PaymentRequestFilter struct {
	ClientID         *int
	Status           *string
	ReferenceDoctype *string
	ReferenceDocname *string
	PayerEmail       *string
	StartDate        *string
	EndDate          *string
	IsSandbox        *bool
	Page             int
	Limit            int
}

// PaymentRequestPage contains paginated payment requests.
type PaymentRequestPage struct {
	Requests   []models.PaymentRequest
	TotalItems int
	TotalPages int
	Page       int
	Limit      int
}

// List returns requests matching filter, newest first. Log entries are not loaded.
func (r *PaymentRequestRepository) List(ctx context.Context, filter *PaymentRequestFilter) (*PaymentRequestPage, error) {
	baseQ := ` FROM payment_requests WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.ClientID != nil {
		baseQ += fmt.Sprintf(" AND client_id = $%d", argIdx)
		args = append(args, *filter.ClientID)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseQ += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.ReferenceDoctype != nil && *filter.ReferenceDoctype != "" {
		baseQ += fmt.Sprintf(" AND reference_doctype = $%d", argIdx)
		args = append(args, *filter.ReferenceDoctype)
		argIdx++
	}
	if filter.ReferenceDocname != nil && *filter.ReferenceDocname != "" {
		baseQ += fmt.Sprintf(" AND reference_docname ILIKE $%d", argIdx)
		args = append(args, "%"+*filter.ReferenceDocname+"%")
		argIdx++
	}
	if filter.PayerEmail != nil && *filter.PayerEmail != "" {
		baseQ += fmt.Sprintf(" AND payer_email ILIKE $%d", argIdx)
		args = append(args, "%"+*filter.PayerEmail+"%")
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseQ += fmt.Sprintf(" AND created_at >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseQ += fmt.Sprintf(" AND created_at < ($%d::date + interval '1 day')", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.IsSandbox != nil {
		baseQ += fmt.Sprintf(" AND is_sandbox = $%d", argIdx)
		args = append(args, *filter.IsSandbox)
		argIdx++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+baseQ, args...); err != nil {
		return nil, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQ := fmt.Sprintf(`SELECT %s%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		paymentRequestColumns, baseQ, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	requests := []models.PaymentRequest{}
	if err := r.db.SelectContext(ctx, &requests, selectQ, args...); err != nil {
		return nil, err
	}

	return &PaymentRequestPage{
		Requests:   requests,
		TotalItems: total,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}
