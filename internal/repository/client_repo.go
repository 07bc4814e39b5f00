package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_authnet/internal/models"
)

// ClientRepository provides data access methods for clients table.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository creates a new ClientRepository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// getBy fetches a single client by a specific column using a prepared
// statement. ip_whitelist is scanned via pq.Array.
func (r *ClientRepository) getBy(ctx context.Context, where string, arg any) (*models.Client, error) {
	const base = `SELECT id, client_id, name, api_key, sandbox_key, callback_url, callback_secret,
        ip_whitelist, is_active, created_at, updated_at
        FROM clients WHERE `

	stmt, err := r.db.PreparexContext(ctx, base+where+" LIMIT 1")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var c models.Client
	if err := stmt.QueryRowxContext(ctx, arg).Scan(
		&c.ID,
		&c.ClientID,
		&c.Name,
		&c.APIKey,
		&c.SandboxKey,
		&c.CallbackURL,
		&c.CallbackSecret,
		pq.Array(&c.IPWhitelist),
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &c, nil
}

// GetByAPIKey finds a client by production API key.
func (r *ClientRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Client, error) {
	return r.getBy(ctx, "api_key = $1", apiKey)
}

// GetBySandboxKey finds a client by sandbox key.
func (r *ClientRepository) GetBySandboxKey(ctx context.Context, sandboxKey string) (*models.Client, error) {
	return r.getBy(ctx, "sandbox_key = $1", sandboxKey)
}

// GetByID finds a client by numeric id.
func (r *ClientRepository) GetByID(ctx context.Context, id int) (*models.Client, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByClientID finds a client by its public client_id.
func (r *ClientRepository) GetByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	return r.getBy(ctx, "client_id = $1", clientID)
}

// List returns all clients ordered by id.
func (r *ClientRepository) List(ctx context.Context) ([]*models.Client, error) {
	const q = `SELECT id, client_id, name, api_key, sandbox_key, callback_url, callback_secret,
        ip_whitelist, is_active, created_at, updated_at
        FROM clients ORDER BY id ASC`

	rows, err := r.db.QueryxContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []*models.Client{}
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(
			&c.ID,
			&c.ClientID,
			&c.Name,
			&c.APIKey,
			&c.SandboxKey,
			&c.CallbackURL,
			&c.CallbackSecret,
			pq.Array(&c.IPWhitelist),
			&c.IsActive,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

// Create inserts a new client and fills its id and timestamps.
func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	const q = `
        INSERT INTO clients (client_id, name, api_key, sandbox_key, callback_url, callback_secret,
            ip_whitelist, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, q,
		c.ClientID,
		c.Name,
		c.APIKey,
		c.SandboxKey,
		c.CallbackURL,
		c.CallbackSecret,
		pq.Array(c.IPWhitelist),
		c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update writes every mutable column of c.
func (r *ClientRepository) Update(ctx context.Context, c *models.Client) error {
	const q = `
        UPDATE clients SET name = $1, api_key = $2, sandbox_key = $3, callback_url = $4,
            callback_secret = $5, ip_whitelist = $6, is_active = $7, updated_at = NOW()
        WHERE id = $8
        RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, q,
		c.Name,
		c.APIKey,
		c.SandboxKey,
		c.CallbackURL,
		c.CallbackSecret,
		pq.Array(c.IPWhitelist),
		c.IsActive,
		c.ID,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	return err
}
