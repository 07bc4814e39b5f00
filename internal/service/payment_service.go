package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_authnet/internal/config"
	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// CheckoutPath is the browser checkout page for a pre-staged request.
const CheckoutPath = "/integrations/authorizenet_checkout"

// SubmissionLocker serialises submissions of one request name.
type SubmissionLocker interface {
	Acquire(ctx context.Context, requestName string) (release func(), ok bool, err error)
}

// PaymentEventNotifier receives ledger lifecycle events for live dashboards.
type PaymentEventNotifier interface {
	NotifyRequestIssued(req *models.PaymentRequest)
	NotifyRequestFinalized(req *models.PaymentRequest)
}

// RequestContext carries the caller of one operation. Client is nil on the
// public checkout page.
type RequestContext struct {
	Client     *models.Client
	IsSandbox  bool
	Contact    *models.Contact
	CustomerIP string
}

// PaymentSubmission is one payment attempt. Either RequestName points at a
// pre-staged request or Request carries the fields of a new one.
type PaymentSubmission struct {
	RequestName   string                       `json:"requestName"`
	Request       *models.PaymentRequestFields `json:"request"`
	Card          *models.CardInfo             `json:"cardInfo"`
	Billing       *models.BillingInfo          `json:"billingInfo"`
	StoredProfile *models.StoredProfileRef     `json:"storedProfile"`
	LineItems     []models.LineItem            `json:"lineItems"`
	Notes         RedirectOverrides            `json:"notes"`
}

// PaymentService drives a payment request from Issued to a terminal state.
type PaymentService struct {
	requests PaymentRequestStore
	profiles *ProfileService
	live     Gateway
	sandbox  Gateway
	notifier AuthorizationNotifier
	locker   SubmissionLocker
	resolver *RedirectResolver
	authNet  config.AuthNetConfig
	checkout config.CheckoutConfig
	events   PaymentEventNotifier
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService. sandbox may be nil, in
// which case live serves every request. locker and notifier are optional.
func NewPaymentService(
	requests PaymentRequestStore,
	profiles *ProfileService,
	live Gateway,
	sandbox Gateway,
	notifier AuthorizationNotifier,
	locker SubmissionLocker,
	authNet config.AuthNetConfig,
	checkout config.CheckoutConfig,
) *PaymentService {
	return &PaymentService{
		requests: requests,
		profiles: profiles,
		live:     live,
		sandbox:  sandbox,
		notifier: notifier,
		locker:   locker,
		resolver: NewRedirectResolver(RedirectConfig{
			SuccessPath:     checkout.SuccessPath,
			FailurePath:     checkout.FailurePath,
			RedirectTo:      checkout.RedirectTo,
			RedirectMessage: checkout.RedirectMessage,
		}),
		authNet:  authNet,
		checkout: checkout,
		now:      time.Now,
	}
}

// SetEventNotifier installs a receiver for issued and finalized requests.
func (s *PaymentService) SetEventNotifier(events PaymentEventNotifier) {
	s.events = events
}

func (s *PaymentService) gatewayFor(sandbox bool) Gateway {
	if sandbox && s.sandbox != nil {
		return s.sandbox
	}
	return s.live
}

// ValidateTransactionCurrency fails unless currency is supported.
func (s *PaymentService) ValidateTransactionCurrency(currency string) error {
	for _, c := range s.authNet.SupportedCurrencies {
		if strings.EqualFold(c, strings.TrimSpace(currency)) {
			return nil
		}
	}
	return fmt.Errorf("%w: Authorize.Net does not support transactions in currency '%s'", utils.ErrUnsupportedCurrency, currency)
}

func (s *PaymentService) validateFields(fields *models.PaymentRequestFields) error {
	if fields == nil {
		return fmt.Errorf("%w: request", utils.ErrMissingField)
	}
	if f := fields.MissingField(); f != "" {
		return fmt.Errorf("%w: %s", utils.ErrMissingField, f)
	}
	if !isCents(fields.Amount) {
		return fmt.Errorf("%w: amount %v has more than 2 decimal places", utils.ErrInvalidAmount, fields.Amount)
	}
	return s.ValidateTransactionCurrency(fields.Currency)
}

// isCents reports whether v is exact to the cent, so the ledger and the
// gateway see the same amount.
func isCents(v float64) bool {
	d := decimal.NewFromFloat(v)
	return d.Equal(d.Round(2))
}

func validateLineItems(items []models.LineItem) error {
	for _, li := range items {
		if li.UnitPrice < 0 || !isCents(li.UnitPrice) {
			return fmt.Errorf("%w: line item %s unit price %v", utils.ErrInvalidAmount, li.ItemID, li.UnitPrice)
		}
	}
	return nil
}

// CreatePaymentRequest pre-stages a request before card entry.
func (s *PaymentService) CreatePaymentRequest(ctx context.Context, rc RequestContext, fields *models.PaymentRequestFields) (*models.PaymentRequest, error) {
	if rc.Client == nil {
		return nil, utils.ErrInvalidClient
	}
	if err := s.validateFields(fields); err != nil {
		return nil, err
	}
	fields.Currency = strings.ToUpper(strings.TrimSpace(fields.Currency))

	ledger, err := OpenLedger(ctx, s.requests, *fields, rc.Client.ID, rc.IsSandbox || s.authNet.UseSandbox)
	if err != nil {
		return nil, err
	}
	req := ledger.Request()
	log.Info().
		Str("request", req.Name).
		Int("client_id", req.ClientID).
		Float64("amount", req.Amount).
		Msg("[PAYMENT] request issued")
	if s.events != nil {
		s.events.NotifyRequestIssued(req)
	}
	return req, nil
}

// PaymentURL returns the checkout page of a pre-staged request.
func (s *PaymentService) PaymentURL(requestName string) string {
	return s.checkout.BaseURL + CheckoutPath + "?req=" + url.QueryEscape(requestName)
}

// GetPaymentURL pre-stages a request and returns it with its checkout URL.
func (s *PaymentService) GetPaymentURL(ctx context.Context, rc RequestContext, fields *models.PaymentRequestFields) (*models.PaymentRequest, string, error) {
	req, err := s.CreatePaymentRequest(ctx, rc, fields)
	if err != nil {
		return nil, "", err
	}
	return req, s.PaymentURL(req.Name), nil
}

// GetPaymentRequest loads a request with its log. A request owned by
// another client is reported as not found.
func (s *PaymentService) GetPaymentRequest(ctx context.Context, rc RequestContext, name string) (*models.PaymentRequest, error) {
	req, err := s.requests.GetByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrPaymentRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if rc.Client != nil && req.ClientID != rc.Client.ID {
		return nil, utils.ErrPaymentRequestNotFound
	}
	return req, nil
}

// SubmitPayment runs one payment attempt to completion.
//
// Precondition failures (unknown request, finalized request, concurrent
// submission, invalid inline fields) return an error and touch nothing.
// Every other path ends with a saved request and a result. When the charge
// succeeded but storing the card failed, both the result and a
// *ProfileStorageError are returned.
func (s *PaymentService) SubmitPayment(ctx context.Context, rc RequestContext, sub PaymentSubmission) (*PaymentResult, error) {
	if err := validateLineItems(sub.LineItems); err != nil {
		return nil, err
	}
	ledger, release, err := s.resolveLedger(ctx, rc, sub)
	if err != nil {
		return nil, err
	}
	if release != nil {
		defer release()
	}

	ledger.SetMaxLogLevel(s.authNet.LogLevel)
	req := ledger.Request()
	gw := s.gatewayFor(req.IsSandbox)
	userKey := gatewayUserKey(req, contactFor(rc, req))
	billing := NormalizeAddress(sub.Billing)

	snapshot, err := submissionSnapshot(sub, rc.CustomerIP)
	if err != nil {
		return nil, err
	}
	ledger.SetRequestData(snapshot)

	source := ResolvePaymentSource(sub.Card, sub.StoredProfile)
	failure := s.checkSource(ctx, ledger, source, userKey)

	processed := false
	if failure == "" {
		charge := ChargeRequest{
			RefID:       req.Name,
			Amount:      req.Amount,
			Source:      source,
			Billing:     billing,
			LineItems:   sub.LineItems,
			Email:       req.PayerEmail,
			Description: req.Description,
			OrderID:     req.OrderID,
			CustomerIP:  rc.CustomerIP,
			AuthOnly:    s.authNet.IsAuthOnly(),
		}
		if payload, err := json.Marshal(chargeLogView(charge)); err == nil {
			ledger.Logf(models.LogLevelDebug, "Request payload: %s", payload)
		}

		outcome, err := gw.Charge(ctx, charge)
		processed, failure = s.applyOutcome(ledger, outcome, err)
	}

	var profile *models.StoredProfileRef
	var profileErr error
	if card, ok := source.(CardSource); ok && req.Status.IsSuccessful() && card.Card.StorePayment {
		profile, profileErr = s.profiles.StorePaymentProfile(ctx, gw, ledger, userKey, card.Card, billing, derefString(req.TransactionID))
		if profileErr != nil {
			ledger.Logf(models.LogLevelError, "Storing payment profile failed: %v", profileErr)
			profileErr = &ProfileStorageError{TransactionID: derefString(req.TransactionID), Err: profileErr}
		}
	}
	if src, ok := source.(ProfileSource); ok && req.Status.IsSuccessful() {
		profile = &src.Profile
	}

	if err := ledger.Save(ctx); err != nil {
		return nil, err
	}

	label := req.Status.Label()
	redirectTo := s.resolver.Resolve(label, s.notify(ctx, ledger, label), sub.Notes)
	ledger.Logf(models.LogLevelInfo, "Redirect To: %s", redirectTo)
	if err := ledger.Save(ctx); err != nil {
		return nil, err
	}

	result := &PaymentResult{
		RedirectTo:     redirectTo,
		Status:         label,
		RequestName:    req.Name,
		TransactionID:  derefString(req.TransactionID),
		Processed:      processed,
		GatewayProfile: profile,
	}
	if label == models.StatusLabelFailed {
		result.Error = failure
		if result.Error == "" {
			result.Error = MessageDeclined
		}
	}
	if profileErr != nil {
		result.ProfileError = profileErr.Error()
	}

	if s.events != nil {
		s.events.NotifyRequestFinalized(req)
	}

	log.Info().
		Str("request", req.Name).
		Str("status", string(req.Status)).
		Bool("processed", processed).
		Bool("sandbox", req.IsSandbox).
		Msg("[PAYMENT] submission finished")

	return result, profileErr
}

// resolveLedger loads and locks a pre-staged request, or opens a new one
// from inline fields.
func (s *PaymentService) resolveLedger(ctx context.Context, rc RequestContext, sub PaymentSubmission) (*Ledger, func(), error) {
	if sub.RequestName == "" {
		if rc.Client == nil {
			return nil, nil, utils.ErrInvalidClient
		}
		if err := s.validateFields(sub.Request); err != nil {
			return nil, nil, err
		}
		fields := *sub.Request
		fields.Currency = strings.ToUpper(strings.TrimSpace(fields.Currency))
		ledger, err := OpenLedger(ctx, s.requests, fields, rc.Client.ID, rc.IsSandbox || s.authNet.UseSandbox)
		if err != nil {
			return nil, nil, err
		}
		if s.events != nil {
			s.events.NotifyRequestIssued(ledger.Request())
		}
		return ledger, nil, nil
	}

	release := func() {}
	if s.locker != nil {
		r, ok, err := s.locker.Acquire(ctx, sub.RequestName)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, utils.ErrSubmissionInProgress
		}
		release = r
	}

	req, err := s.GetPaymentRequest(ctx, rc, sub.RequestName)
	if err != nil {
		release()
		return nil, nil, err
	}
	if req.Status.IsTerminal() {
		release()
		return nil, nil, utils.ErrRequestFinalized
	}
	return LoadLedger(s.requests, req), release, nil
}

// checkSource validates the payment source without contacting the gateway.
// A non-empty return is the failure message and the request is in Error.
func (s *PaymentService) checkSource(ctx context.Context, ledger *Ledger, source PaymentSource, key models.GatewayUserKey) string {
	var failure string
	switch src := source.(type) {
	case nil:
		failure = "Missing field: cardInfo or storedProfile"
	case CardSource:
		if f := src.Card.MissingField(); f != "" {
			failure = "Missing field: " + f
		}
	case ProfileSource:
		owned, err := s.ownsProfile(ctx, key, src.Profile)
		switch {
		case err != nil:
			ledger.Logf(models.LogLevelError, "Stored payment lookup failed: %v", err)
			failure = "Stored payment could not be verified"
		case !owned:
			failure = "Stored payment not found"
		}
	}
	if failure != "" {
		ledger.Log(failure, models.LogLevelError)
		ledger.SetStatus(models.RequestStatusError)
	}
	return failure
}

func (s *PaymentService) ownsProfile(ctx context.Context, key models.GatewayUserKey, ref models.StoredProfileRef) (bool, error) {
	user, err := s.profiles.GetGatewayUser(ctx, key)
	if err != nil || user == nil {
		return false, err
	}
	return user.CustomerID == ref.CustomerID && user.HasPayment(ref.PaymentID), nil
}

// applyOutcome classifies a charge result. processed reports whether the
// gateway produced a transaction verdict, which a declined charge also has.
func (s *PaymentService) applyOutcome(ledger *Ledger, outcome *GatewayOutcome, err error) (processed bool, failure string) {
	if err == nil {
		ledger.Logf(models.LogLevelDebug, "Response payload: %s", outcome.Raw)
		ledger.SetTransactionID(outcome.TransactionID)
		ledger.SetStatus(outcome.Status)
		ledger.Logf(models.LogLevelInfo, "Transaction %s %s", outcome.TransactionID, strings.ToLower(string(outcome.Status)))
		return true, ""
	}

	ledger.SetStatus(models.RequestStatusError)

	var invalid *GatewayInvalidError
	var respErr *GatewayResponseError
	switch {
	case errors.As(err, &invalid):
		ledger.Logf(models.LogLevelError, "Gateway rejected the request before processing: %v", invalid)
		return false, invalid.Error()
	case errors.As(err, &respErr):
		if len(respErr.Raw) > 0 {
			ledger.Logf(models.LogLevelDebug, "Response payload: %s", respErr.Raw)
		}
		if respErr.HasTransaction {
			for _, m := range respErr.Errors {
				ledger.Logf(models.LogLevelError, "Error Code: %s, Error Text: %s", m.Code, m.Text)
			}
			ledger.SetTransactionID(respErr.TransactionID)
			return true, respErr.Error()
		}
		ledger.Logf(models.LogLevelError, "Gateway error %s: %v", respErr.Code, respErr)
		return false, respErr.Error()
	default:
		ledger.Logf(models.LogLevelError, "Unexpected gateway failure: %+v", err)
		log.Error().Err(err).Str("request", ledger.Request().Name).Msg("[PAYMENT] unexpected gateway failure")
		return false, MessageDeclined
	}
}

// notify runs the authorization callback. Its errors are logged on the
// ledger and never returned.
func (s *PaymentService) notify(ctx context.Context, ledger *Ledger, label models.StatusLabel) string {
	if s.notifier == nil {
		return ""
	}
	redirect, err := s.notifier.NotifyAuthorized(ctx, ledger.Request(), label)
	if err != nil {
		ledger.Logf(models.LogLevelError, "Authorization callback failed: %v", err)
		log.Warn().Err(err).Str("request", ledger.Request().Name).Msg("[PAYMENT] authorization callback failed")
		return ""
	}
	if redirect != "" {
		ledger.Logf(models.LogLevelInfo, "Custom Redirect To: %s", redirect)
	}
	return redirect
}

// contactFor returns the caller's contact, falling back to the payer. A
// contact is only taken from an authenticated client; the public checkout
// always acts for the payer of the request.
func contactFor(rc RequestContext, req *models.PaymentRequest) *models.Contact {
	if rc.Client != nil && rc.Contact.Key() != "" {
		return rc.Contact
	}
	return &models.Contact{Email: req.PayerEmail, Name: req.PayerName}
}

// gatewayUserKey scopes contact to the client and environment of req.
func gatewayUserKey(req *models.PaymentRequest, contact *models.Contact) models.GatewayUserKey {
	return models.GatewayUserKey{
		ClientID:  req.ClientID,
		IsSandbox: req.IsSandbox,
		ContactID: contact.Key(),
	}
}

type submissionView struct {
	RequestName   string                   `json:"requestName,omitempty"`
	Card          *models.CardInfo         `json:"cardInfo,omitempty"`
	Billing       *models.BillingInfo      `json:"billingInfo,omitempty"`
	StoredProfile *models.StoredProfileRef `json:"storedProfile,omitempty"`
	LineItems     []models.LineItem        `json:"lineItems,omitempty"`
	Notes         *RedirectOverrides       `json:"notes,omitempty"`
	CustomerIP    string                   `json:"customerIp,omitempty"`
}

// submissionSnapshot is the redacted copy of a submission stored on the request.
func submissionSnapshot(sub PaymentSubmission, customerIP string) ([]byte, error) {
	v := submissionView{
		RequestName:   sub.RequestName,
		Billing:       sub.Billing,
		StoredProfile: sub.StoredProfile,
		LineItems:     sub.LineItems,
		CustomerIP:    customerIP,
	}
	if !sub.Card.IsZero() {
		redacted := RedactCard(*sub.Card)
		v.Card = &redacted
	}
	if sub.Notes != (RedirectOverrides{}) {
		v.Notes = &sub.Notes
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal submission snapshot: %w", err)
	}
	return b, nil
}

type chargeView struct {
	Amount          float64                  `json:"amount"`
	Card            *models.CardInfo         `json:"card,omitempty"`
	Profile         *models.StoredProfileRef `json:"profile,omitempty"`
	BillTo          *models.GatewayAddress   `json:"billTo,omitempty"`
	LineItems       []models.LineItem        `json:"lineItems,omitempty"`
	Email           string                   `json:"email,omitempty"`
	Description     string                   `json:"description,omitempty"`
	OrderID         string                   `json:"orderId,omitempty"`
	CustomerIP      string                   `json:"customerIp,omitempty"`
	TransactionType string                   `json:"transactionType"`
}

// chargeLogView is the loggable form of a charge with card data redacted.
func chargeLogView(c ChargeRequest) chargeView {
	v := chargeView{
		Amount:          c.Amount,
		LineItems:       c.LineItems,
		Email:           c.Email,
		Description:     c.Description,
		OrderID:         c.OrderID,
		CustomerIP:      c.CustomerIP,
		TransactionType: config.TransactionTypeAuthCapture,
	}
	if c.AuthOnly {
		v.TransactionType = config.TransactionTypeAuthOnly
	}
	if !c.Billing.IsEmpty() {
		b := c.Billing
		v.BillTo = &b
	}
	switch src := c.Source.(type) {
	case CardSource:
		redacted := RedactCard(src.Card)
		v.Card = &redacted
	case ProfileSource:
		p := src.Profile
		v.Profile = &p
	}
	return v
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
