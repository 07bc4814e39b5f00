package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/pkg/authorizenet"
)

// PaymentSource is either raw card data or a stored profile reference.
type PaymentSource interface {
	paymentSource()
}

// CardSource charges raw card data.
type CardSource struct {
	Card models.CardInfo
}

// ProfileSource charges a stored customer/payment profile pair.
type ProfileSource struct {
	Profile models.StoredProfileRef
}

func (CardSource) paymentSource()    {}
func (ProfileSource) paymentSource() {}

// ResolvePaymentSource picks the source of a submission. Card data always
// wins over a profile reference. It returns nil when neither is present.
func ResolvePaymentSource(card *models.CardInfo, profile *models.StoredProfileRef) PaymentSource {
	if !card.IsZero() {
		return CardSource{Card: *card}
	}
	if !profile.IsZero() {
		return ProfileSource{Profile: *profile}
	}
	return nil
}

// ChargeRequest is everything the gateway needs for one charge.
type ChargeRequest struct {
	RefID       string
	Amount      float64
	Source      PaymentSource
	Billing     models.GatewayAddress
	LineItems   []models.LineItem
	Email       string
	Description string
	OrderID     string
	CustomerIP  string
	AuthOnly    bool
}

// GatewayMessage is one structured message or error line from the gateway.
type GatewayMessage struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// GatewayOutcome is a successful charge.
type GatewayOutcome struct {
	Status        models.RequestStatus
	TransactionID string
	ResponseCode  string
	AuthCode      string
	Messages      []GatewayMessage
	Raw           json.RawMessage
}

// Gateway is the narrow view of the payment processor the orchestrator uses.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*GatewayOutcome, error)
	CreateCustomerProfile(ctx context.Context, transactionID string) (string, error)
	CreatePaymentProfile(ctx context.Context, customerID string, card models.CardInfo, billing models.GatewayAddress) (string, error)
	IsSandbox() bool
}

// GatewayInvalidError is a request rejected before processing.
type GatewayInvalidError struct {
	Field  string
	Reason string
}

func (e *GatewayInvalidError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GatewayResponseError is a request the gateway processed and rejected.
// TransactionID is set when a transaction verdict was produced.
type GatewayResponseError struct {
	Code          string
	Errors        []GatewayMessage
	TransactionID string
	ResponseCode  string
	Raw           json.RawMessage

	// HasTransaction is true for a processed-but-declined charge.
	HasTransaction bool

	// PaymentID is the existing payment profile on a duplicate.
	PaymentID string
}

func (e *GatewayResponseError) Error() string {
	if len(e.Errors) == 0 {
		return "gateway rejected the request"
	}
	texts := make([]string, 0, len(e.Errors))
	for _, m := range e.Errors {
		texts = append(texts, m.Text)
	}
	return strings.Join(texts, "; ")
}

// IsDuplicateProfile reports the duplicate payment profile condition.
func (e *GatewayResponseError) IsDuplicateProfile() bool {
	return authorizenet.IsDuplicateProfile(e.Code)
}

// ProfileStorageError reports a failed store after a successful charge.
type ProfileStorageError struct {
	TransactionID string
	Err           error
}

func (e *ProfileStorageError) Error() string {
	return fmt.Sprintf("charge %s succeeded but storing the payment profile failed: %v", e.TransactionID, e.Err)
}

func (e *ProfileStorageError) Unwrap() error { return e.Err }

// AuthorizeNetGateway adapts an authorizenet.Client to Gateway.
type AuthorizeNetGateway struct {
	client *authorizenet.Client
}

// NewAuthorizeNetGateway creates a new AuthorizeNetGateway.
func NewAuthorizeNetGateway(client *authorizenet.Client) *AuthorizeNetGateway {
	return &AuthorizeNetGateway{client: client}
}

// IsSandbox reports whether the client targets the sandbox.
func (g *AuthorizeNetGateway) IsSandbox() bool {
	return g.client.IsSandbox()
}

// Charge submits an auth-capture or auth-only transaction.
func (g *AuthorizeNetGateway) Charge(ctx context.Context, req ChargeRequest) (*GatewayOutcome, error) {
	tr, err := buildTransactionRequest(req)
	if err != nil {
		return nil, translateGatewayError(err)
	}

	resp, err := g.client.CreateTransaction(ctx, req.RefID, tr)
	if err != nil {
		return nil, translateGatewayError(err)
	}

	t := resp.TransactionResponse
	out := &GatewayOutcome{
		Status:        models.RequestStatusCaptured,
		TransactionID: t.TransID,
		ResponseCode:  t.ResponseCode,
		AuthCode:      t.AuthCode,
		Raw:           resp.Raw,
	}
	if req.AuthOnly || authorizenet.IsHeldForReview(t.ResponseCode) {
		out.Status = models.RequestStatusAuthorized
	}
	for _, m := range t.Messages {
		out.Messages = append(out.Messages, GatewayMessage{Code: m.Code, Text: m.Description})
	}
	return out, nil
}

// CreateCustomerProfile derives a customer profile from a settled transaction.
func (g *AuthorizeNetGateway) CreateCustomerProfile(ctx context.Context, transactionID string) (string, error) {
	resp, err := g.client.CreateCustomerProfileFromTransaction(ctx, transactionID)
	if err != nil {
		return "", translateGatewayError(err)
	}
	return resp.CustomerProfileID, nil
}

// CreatePaymentProfile stores card under customerID. A duplicate returns
// *GatewayResponseError with PaymentID set.
func (g *AuthorizeNetGateway) CreatePaymentProfile(ctx context.Context, customerID string, card models.CardInfo, billing models.GatewayAddress) (string, error) {
	cc, err := creditCard(card)
	if err != nil {
		return "", translateGatewayError(err)
	}
	resp, err := g.client.CreateCustomerPaymentProfile(ctx, customerID, *cc, toAddress(billing))
	if err != nil {
		return "", translateGatewayError(err)
	}
	return resp.CustomerPaymentProfileID, nil
}

func buildTransactionRequest(req ChargeRequest) (authorizenet.TransactionRequest, error) {
	tr := authorizenet.TransactionRequest{
		TransactionType: authorizenet.TransactionAuthCapture,
		Amount:          formatAmount(req.Amount),
		BillTo:          toAddress(req.Billing),
		CustomerIP:      req.CustomerIP,
	}
	if req.AuthOnly {
		tr.TransactionType = authorizenet.TransactionAuthOnly
	}

	switch src := req.Source.(type) {
	case CardSource:
		cc, err := creditCard(src.Card)
		if err != nil {
			return tr, err
		}
		tr.Payment = &authorizenet.Payment{CreditCard: cc}
	case ProfileSource:
		tr.Profile = &authorizenet.ProfileReference{
			CustomerProfileID: src.Profile.CustomerID,
			PaymentProfile:    &authorizenet.PaymentProfileReference{PaymentProfileID: src.Profile.PaymentID},
		}
		// Billing is already on the stored profile.
		tr.BillTo = nil
	default:
		return tr, &authorizenet.InvalidError{Field: "payment", Reason: "missing payment source"}
	}

	if req.OrderID != "" || req.Description != "" {
		tr.Order = &authorizenet.Order{
			InvoiceNumber: capField(req.OrderID, 20),
			Description:   capField(req.Description, 255),
		}
	}
	if req.Email != "" {
		tr.Customer = &authorizenet.Customer{Email: req.Email}
	}
	if len(req.LineItems) > 0 {
		items := make([]authorizenet.LineItem, 0, len(req.LineItems))
		for _, li := range req.LineItems {
			items = append(items, authorizenet.LineItem{
				ItemID:      capField(li.ItemID, 31),
				Name:        capField(li.Name, 31),
				Description: capField(li.Description, 255),
				Quantity:    strconv.FormatFloat(li.Quantity, 'f', -1, 64),
				UnitPrice:   formatAmount(li.UnitPrice),
			})
		}
		tr.LineItems = &authorizenet.LineItems{LineItem: items}
	}
	return tr, nil
}

func creditCard(card models.CardInfo) (*authorizenet.CreditCard, error) {
	exp, err := authorizenet.ExpirationDate(card.ExpMonth, card.ExpYear)
	if err != nil {
		return nil, err
	}
	return &authorizenet.CreditCard{
		CardNumber:     digitsOnly(card.CardNumber),
		ExpirationDate: exp,
		CardCode:       strings.TrimSpace(card.CardCode),
	}, nil
}

func toAddress(a models.GatewayAddress) *authorizenet.Address {
	if a.IsEmpty() {
		return nil
	}
	return &authorizenet.Address{
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Company:     a.Company,
		Address:     a.Address,
		City:        a.City,
		State:       a.State,
		Zip:         a.Zip,
		Country:     a.Country,
		PhoneNumber: a.PhoneNumber,
	}
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// translateGatewayError maps client errors onto the gateway error taxonomy.
// Other errors (transport, decoding) pass through unchanged.
func translateGatewayError(err error) error {
	var invalid *authorizenet.InvalidError
	if errors.As(err, &invalid) {
		return &GatewayInvalidError{Field: invalid.Field, Reason: invalid.Reason}
	}

	var respErr *authorizenet.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}

	out := &GatewayResponseError{
		Code:      respErr.Code(),
		Raw:       respErr.Raw,
		PaymentID: respErr.CustomerPaymentProfileID,
	}
	if tr := respErr.TransactionResponse; tr != nil {
		out.HasTransaction = true
		out.TransactionID = tr.TransID
		out.ResponseCode = tr.ResponseCode
		for _, e := range tr.Errors {
			out.Errors = append(out.Errors, GatewayMessage{Code: e.ErrorCode, Text: e.ErrorText})
		}
	}
	if len(out.Errors) == 0 {
		for _, m := range respErr.Messages.Message {
			out.Errors = append(out.Errors, GatewayMessage{Code: m.Code, Text: m.Text})
		}
	}
	return out
}
