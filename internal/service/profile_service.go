package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/internal/utils"
	"github.com/GTDGit/gtd_authnet/pkg/authorizenet"
)

// GatewayUserStore persists gateway users and their stored payments.
type GatewayUserStore interface {
	GetByContact(ctx context.Context, key models.GatewayUserKey) (*models.GatewayUser, error)
	Save(ctx context.Context, user *models.GatewayUser) error
}

// ProfileService stores cards as gateway payment profiles after a charge.
type ProfileService struct {
	users GatewayUserStore
}

// NewProfileService creates a new ProfileService.
func NewProfileService(users GatewayUserStore) *ProfileService {
	return &ProfileService{users: users}
}

// GetGatewayUser returns the gateway user for key, or nil when none exists.
func (s *ProfileService) GetGatewayUser(ctx context.Context, key models.GatewayUserKey) (*models.GatewayUser, error) {
	if key.ContactID == "" {
		return nil, utils.ErrContactRequired
	}
	user, err := s.users.GetByContact(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load gateway user: %w", err)
	}
	return user, nil
}

// StorePaymentProfile saves card under the key's gateway customer, creating
// the customer from transactionID on first use. A duplicate payment profile
// is not an error. The gateway user is only persisted once the payment
// profile exists.
func (s *ProfileService) StorePaymentProfile(
	ctx context.Context,
	gw Gateway,
	ledger *Ledger,
	key models.GatewayUserKey,
	card models.CardInfo,
	billing models.GatewayAddress,
	transactionID string,
) (*models.StoredProfileRef, error) {
	user, err := s.GetGatewayUser(ctx, key)
	if err != nil {
		return nil, err
	}

	if user == nil {
		customerID, err := gw.CreateCustomerProfile(ctx, transactionID)
		if err != nil {
			return nil, fmt.Errorf("create customer profile: %w", err)
		}
		ledger.Logf(models.LogLevelInfo, "Created customer profile %s for %s", customerID, key.ContactID)
		user = &models.GatewayUser{
			ClientID:       key.ClientID,
			IsSandbox:      key.IsSandbox,
			ContactID:      key.ContactID,
			CustomerID:     customerID,
			StoredPayments: []models.StoredPayment{},
		}
	}

	paymentID, err := gw.CreatePaymentProfile(ctx, user.CustomerID, card, billing)
	if err != nil {
		var respErr *GatewayResponseError
		if !errors.As(err, &respErr) || !respErr.IsDuplicateProfile() {
			return nil, fmt.Errorf("create payment profile: %w", err)
		}
		paymentID = respErr.PaymentID
		ledger.Logf(models.LogLevelInfo, "Payment profile %s already stored", paymentID)
	}

	if paymentID != "" && !user.HasPayment(paymentID) {
		expiration, err := authorizenet.ExpirationDate(card.ExpMonth, card.ExpYear)
		if err != nil {
			return nil, err
		}
		user.StoredPayments = append(user.StoredPayments, models.StoredPayment{
			PaymentID:  paymentID,
			Label:      StoredPaymentLabel(card.CardNumber, billing),
			Address:    FullAddress(billing),
			Expiration: expiration,
		})
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save gateway user: %w", err)
	}

	return &models.StoredProfileRef{CustomerID: user.CustomerID, PaymentID: paymentID}, nil
}

// StoredPaymentOption is a stored card offered at checkout. It carries no
// card data.
type StoredPaymentOption struct {
	CustomerID string `json:"customerId"`
	PaymentID  string `json:"paymentId"`
	Label      string `json:"label"`
	Address    string `json:"address"`
	Expiration string `json:"expiration"`
}

// ListStoredPayments returns the stored payments for key. A contact
// without a gateway user has none.
func (s *ProfileService) ListStoredPayments(ctx context.Context, key models.GatewayUserKey) ([]StoredPaymentOption, error) {
	user, err := s.GetGatewayUser(ctx, key)
	if err != nil {
		return nil, err
	}
	options := []StoredPaymentOption{}
	if user == nil {
		return options, nil
	}
	for _, p := range user.StoredPayments {
		options = append(options, StoredPaymentOption{
			CustomerID: user.CustomerID,
			PaymentID:  p.PaymentID,
			Label:      p.Label,
			Address:    p.Address,
			Expiration: p.Expiration,
		})
	}
	return options, nil
}
