package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// Key types accepted by RegenerateKeys.
const (
	KeyTypeLive    = "live"
	KeyTypeSandbox = "sandbox"
	KeyTypeWebhook = "webhook"
)

// ClientStore is the client persistence used by ClientService.
type ClientStore interface {
	GetByID(ctx context.Context, id int) (*models.Client, error)
	GetByClientID(ctx context.Context, clientID string) (*models.Client, error)
	List(ctx context.Context) ([]*models.Client, error)
	Create(ctx context.Context, c *models.Client) error
	Update(ctx context.Context, c *models.Client) error
}

// ClientService manages the merchant systems allowed to issue payment requests.
type ClientService struct {
	clientRepo ClientStore
}

// NewClientService constructs a ClientService.
func NewClientService(clientRepo ClientStore) *ClientService {
	return &ClientService{clientRepo: clientRepo}
}

// CreateClientRequest represents the request to create a new client.
type CreateClientRequest struct {
	ClientID    string   `json:"clientId" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	CallbackURL string   `json:"callbackUrl"`
	IPWhitelist []string `json:"ipWhitelist"`
	IsActive    *bool    `json:"isActive"`
}

// UpdateClientRequest represents the request to update a client.
type UpdateClientRequest struct {
	Name        string   `json:"name"`
	CallbackURL *string  `json:"callbackUrl"`
	IPWhitelist []string `json:"ipWhitelist"`
	IsActive    *bool    `json:"isActive"`
}

// ClientCredentials is returned once, right after keys are generated.
type ClientCredentials struct {
	*models.Client
	APIKey         string `json:"apiKey"`
	SandboxKey     string `json:"sandboxKey"`
	CallbackSecret string `json:"callbackSecret"`
}

func credentialsOf(c *models.Client) *ClientCredentials {
	return &ClientCredentials{
		Client:         c,
		APIKey:         c.APIKey,
		SandboxKey:     c.SandboxKey,
		CallbackSecret: c.CallbackSecret,
	}
}

func validateCallbackURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: callbackUrl", utils.ErrInvalidCallbackURL)
	}
	return nil
}

// CreateClient creates a new client with auto-generated keys.
func (s *ClientService) CreateClient(ctx context.Context, req *CreateClientRequest) (*ClientCredentials, error) {
	existing, err := s.clientRepo.GetByClientID(ctx, req.ClientID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrClientExists
	}
	if err := validateCallbackURL(req.CallbackURL); err != nil {
		return nil, err
	}

	liveKey, err := utils.GenerateLiveKey()
	if err != nil {
		return nil, err
	}
	sandboxKey, err := utils.GenerateSandboxKey()
	if err != nil {
		return nil, err
	}
	webhookSecret, err := utils.GenerateWebhookSecret()
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	client := &models.Client{
		ClientID:       req.ClientID,
		Name:           req.Name,
		APIKey:         liveKey,
		SandboxKey:     sandboxKey,
		CallbackURL:    req.CallbackURL,
		CallbackSecret: webhookSecret,
		IPWhitelist:    req.IPWhitelist,
		IsActive:       active,
	}
	if client.IPWhitelist == nil {
		client.IPWhitelist = []string{}
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}
	return credentialsOf(client), nil
}

func (s *ClientService) load(ctx context.Context, id int) (*models.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrClientNotFound
	}
	return client, err
}

// GetClient retrieves a client by ID.
func (s *ClientService) GetClient(ctx context.Context, id int) (*models.Client, error) {
	return s.load(ctx, id)
}

// ListClients retrieves all clients.
func (s *ClientService) ListClients(ctx context.Context) ([]*models.Client, error) {
	return s.clientRepo.List(ctx)
}

// UpdateClient applies the non-empty fields of req.
func (s *ClientService) UpdateClient(ctx context.Context, id int, req *UpdateClientRequest) (*models.Client, error) {
	client, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		client.Name = req.Name
	}
	if req.CallbackURL != nil {
		if err := validateCallbackURL(*req.CallbackURL); err != nil {
			return nil, err
		}
		client.CallbackURL = *req.CallbackURL
	}
	if req.IPWhitelist != nil {
		client.IPWhitelist = req.IPWhitelist
	}
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// RegenerateKeys replaces one key of a client and returns the new credentials.
func (s *ClientService) RegenerateKeys(ctx context.Context, id int, keyType string) (*ClientCredentials, error) {
	client, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch keyType {
	case KeyTypeLive:
		client.APIKey, err = utils.GenerateLiveKey()
	case KeyTypeSandbox:
		client.SandboxKey, err = utils.GenerateSandboxKey()
	case KeyTypeWebhook:
		client.CallbackSecret, err = utils.GenerateWebhookSecret()
	default:
		return nil, utils.ErrInvalidKeyType
	}
	if err != nil {
		return nil, err
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}
	return credentialsOf(client), nil
}
