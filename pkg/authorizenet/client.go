package authorizenet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// ProductionURL is the live Authorize.Net JSON endpoint.
	ProductionURL = "https://api.authorize.net/xml/v1/request.api"
	// SandboxURL is the test environment endpoint.
	SandboxURL = "https://apitest.authorize.net/xml/v1/request.api"
)

// The JSON API prefixes its responses with a UTF-8 byte order mark.
var utf8BOM = []byte("\xef\xbb\xbf")

// Config holds credentials and environment selection for a Client.
type Config struct {
	APILoginID     string
	TransactionKey string
	Sandbox        bool
	// Endpoint overrides the environment URL when set.
	Endpoint string
	Timeout  time.Duration
}

// Client is a minimal HTTP client for the Authorize.Net JSON API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	auth       MerchantAuthentication
	sandbox    bool
}

// NewClient constructs a Client. A zero Timeout defaults to 30 seconds since
// the gateway itself imposes no bound.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = ProductionURL
		if cfg.Sandbox {
			endpoint = SandboxURL
		}
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		auth: MerchantAuthentication{
			Name:           cfg.APILoginID,
			TransactionKey: cfg.TransactionKey,
		},
		sandbox: cfg.Sandbox,
	}
}

// IsSandbox reports whether the client targets the test environment.
func (c *Client) IsSandbox() bool {
	return c.sandbox
}

// CreateTransaction submits a charge. It returns *InvalidError when the request
// fails local schema checks and *ResponseError when the gateway rejects or
// declines it. A held-for-review transaction is returned without error.
func (c *Client) CreateTransaction(ctx context.Context, refID string, req TransactionRequest) (*CreateTransactionResponse, error) {
	if err := validateTransaction(&req); err != nil {
		return nil, err
	}

	body := createTransactionEnvelope{Request: createTransactionRequest{
		MerchantAuthentication: c.auth,
		RefID:                  refID,
		TransactionRequest:     req,
	}}

	var resp CreateTransactionResponse
	if err := c.doRequest(ctx, "createTransactionRequest", body, &resp); err != nil {
		return nil, err
	}

	tr := resp.TransactionResponse
	if resp.Messages.ResultCode != ResultOK || tr == nil || !(IsApproved(tr.ResponseCode) || IsHeldForReview(tr.ResponseCode)) {
		return nil, &ResponseError{
			Messages:            resp.Messages,
			TransactionResponse: tr,
			Raw:                 resp.Raw,
		}
	}
	return &resp, nil
}

// CreateCustomerProfileFromTransaction derives a customer profile from a
// previously approved transaction and returns the customer profile id.
func (c *Client) CreateCustomerProfileFromTransaction(ctx context.Context, transID string) (*CreateCustomerProfileResponse, error) {
	if transID == "" {
		return nil, &InvalidError{Field: "transId", Reason: "required"}
	}
	body := createProfileFromTransactionEnvelope{Request: createProfileFromTransactionRequest{
		MerchantAuthentication: c.auth,
		TransID:                transID,
	}}

	var resp CreateCustomerProfileResponse
	if err := c.doRequest(ctx, "createCustomerProfileFromTransactionRequest", body, &resp); err != nil {
		return nil, err
	}
	if resp.Messages.ResultCode != ResultOK || resp.CustomerProfileID == "" {
		return nil, &ResponseError{Messages: resp.Messages, Raw: resp.Raw}
	}
	return &resp, nil
}

// CreateCustomerPaymentProfile stores a card under an existing customer profile.
// A duplicate card yields *ResponseError with IsDuplicateProfile() true and
// CustomerPaymentProfileID set to the already stored profile.
func (c *Client) CreateCustomerPaymentProfile(ctx context.Context, customerProfileID string, card CreditCard, billTo *Address) (*CreateCustomerPaymentProfileResponse, error) {
	if customerProfileID == "" {
		return nil, &InvalidError{Field: "customerProfileId", Reason: "required"}
	}
	if err := validateCard(&card, false); err != nil {
		return nil, err
	}

	body := createPaymentProfileEnvelope{Request: createPaymentProfileRequest{
		MerchantAuthentication: c.auth,
		CustomerProfileID:      customerProfileID,
		PaymentProfile: PaymentProfile{
			BillTo:  billTo,
			Payment: Payment{CreditCard: &card},
		},
	}}

	var resp CreateCustomerPaymentProfileResponse
	if err := c.doRequest(ctx, "createCustomerPaymentProfileRequest", body, &resp); err != nil {
		return nil, err
	}
	if resp.Messages.ResultCode != ResultOK {
		return nil, &ResponseError{
			Messages:                 resp.Messages,
			CustomerPaymentProfileID: resp.CustomerPaymentProfileID,
			Raw:                      resp.Raw,
		}
	}
	return &resp, nil
}

// doRequest POSTs a JSON envelope and decodes the response into result.
// Bodies carry card data and credentials, so only metadata is logged.
func (c *Client) doRequest(ctx context.Context, operation string, body any, result envelope) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	respBody = bytes.TrimPrefix(respBody, utf8BOM)

	log.Debug().
		Str("operation", operation).
		Bool("sandbox", c.sandbox).
		Int("status_code", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("[AUTHORIZENET] response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, operation)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	result.setRaw(json.RawMessage(respBody))
	return nil
}
