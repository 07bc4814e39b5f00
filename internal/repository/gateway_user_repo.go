package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_authnet/internal/models"
)

// GatewayUserRepository stores Authorize.Net customer profiles per client,
// environment and contact together with their stored payments.
type GatewayUserRepository struct {
	db *sqlx.DB
}

// NewGatewayUserRepository creates a new GatewayUserRepository.
func NewGatewayUserRepository(db *sqlx.DB) *GatewayUserRepository {
	return &GatewayUserRepository{db: db}
}

// GetByContact returns the gateway user for key, or sql.ErrNoRows.
func (r *GatewayUserRepository) GetByContact(ctx context.Context, key models.GatewayUserKey) (*models.GatewayUser, error) {
	const q = `
        SELECT id, client_id, is_sandbox, contact_id, customer_id, created_at, updated_at
        FROM gateway_users
        WHERE client_id = $1 AND is_sandbox = $2 AND contact_id = $3
        LIMIT 1`

	var user models.GatewayUser
	if err := r.db.GetContext(ctx, &user, q, key.ClientID, key.IsSandbox, key.ContactID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}

	const paymentsQ = `
        SELECT id, gateway_user_id, payment_id, label, address, expiration, created_at
        FROM stored_payments
        WHERE gateway_user_id = $1
        ORDER BY id ASC`
	user.StoredPayments = []models.StoredPayment{}
	if err := r.db.SelectContext(ctx, &user.StoredPayments, paymentsQ, user.ID); err != nil {
		return nil, err
	}
	return &user, nil
}

// Save inserts the user when new and stores any stored payments without an id.
func (r *GatewayUserRepository) Save(ctx context.Context, user *models.GatewayUser) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if user.ID == 0 {
		const insertQ = `
            INSERT INTO gateway_users (client_id, is_sandbox, contact_id, customer_id, created_at, updated_at)
            VALUES ($1, $2, $3, $4, NOW(), NOW())
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRowxContext(ctx, insertQ, user.ClientID, user.IsSandbox, user.ContactID, user.CustomerID).
			Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return err
		}
	} else {
		const updateQ = `UPDATE gateway_users SET customer_id = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`
		if err := tx.QueryRowxContext(ctx, updateQ, user.ID, user.CustomerID).Scan(&user.UpdatedAt); err != nil {
			return err
		}
	}

	const paymentQ = `
        INSERT INTO stored_payments (gateway_user_id, payment_id, label, address, expiration, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        ON CONFLICT (gateway_user_id, payment_id) DO UPDATE SET
            label = EXCLUDED.label,
            address = EXCLUDED.address,
            expiration = EXCLUDED.expiration
        RETURNING id, created_at`
	for i := range user.StoredPayments {
		p := &user.StoredPayments[i]
		if p.ID != 0 {
			continue
		}
		p.GatewayUserID = user.ID
		if err := tx.QueryRowxContext(ctx, paymentQ,
			user.ID, p.PaymentID, p.Label, p.Address, p.Expiration,
		).Scan(&p.ID, &p.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}
