package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// EventPaymentAuthorized is the callback event sent after every submission.
const EventPaymentAuthorized = "payment.authorized"

// maxCallbackBody caps how much of a callback response is read and stored.
const maxCallbackBody = 64 << 10

// AuthorizationNotifier runs the reference document's on-payment-authorized
// hook. A non-empty return value overrides the redirect target.
type AuthorizationNotifier interface {
	NotifyAuthorized(ctx context.Context, req *models.PaymentRequest, status models.StatusLabel) (string, error)
}

// ClientLookup loads merchant clients by primary key.
type ClientLookup interface {
	GetByID(ctx context.Context, id int) (*models.Client, error)
}

// CallbackLogStore records callback delivery attempts.
type CallbackLogStore interface {
	CreateCallbackLog(ctx context.Context, log *models.CallbackLog) error
}

// CallbackService delivers signed on-payment-authorized webhooks to the
// client that owns a payment request.
type CallbackService struct {
	clients    ClientLookup
	logs       CallbackLogStore
	httpClient *http.Client
}

// NewCallbackService constructs a CallbackService with the given HTTP timeout.
func NewCallbackService(clients ClientLookup, logs CallbackLogStore, timeout time.Duration) *CallbackService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CallbackService{
		clients:    clients,
		logs:       logs,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type callbackData struct {
	RequestName      string             `json:"requestName"`
	Status           models.StatusLabel `json:"status"`
	TransactionID    string             `json:"transactionId,omitempty"`
	Amount           float64            `json:"amount"`
	Currency         string             `json:"currency"`
	OrderID          string             `json:"orderId"`
	ReferenceDoctype string             `json:"referenceDoctype"`
	ReferenceDocname string             `json:"referenceDocname"`
	IsSandbox        bool               `json:"isSandbox"`
}

type callbackPayload struct {
	Event     string       `json:"event"`
	Data      callbackData `json:"data"`
	Timestamp string       `json:"timestamp"`
}

type callbackReply struct {
	RedirectTo string `json:"redirectTo"`
}

// NotifyAuthorized posts the final status to the client's callback URL and
// returns the redirect override from a 2xx reply, if any. Every attempt is
// recorded in callback_logs. A client without a callback URL is a no-op.
func (s *CallbackService) NotifyAuthorized(ctx context.Context, req *models.PaymentRequest, status models.StatusLabel) (string, error) {
	if req == nil {
		return "", nil
	}
	client, err := s.clients.GetByID(ctx, req.ClientID)
	if err != nil {
		return "", fmt.Errorf("load client %d: %w", req.ClientID, err)
	}
	if client == nil || client.CallbackURL == "" {
		return "", nil
	}

	payload, err := buildCallbackPayload(req, status)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, client.CallbackURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create callback request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Callback-Signature", utils.SignCallback(payload, client.CallbackSecret, time.Now()))
	httpReq.Header.Set("X-Authnet-Event", EventPaymentAuthorized)

	resp, doErr := s.httpClient.Do(httpReq)

	var statusCode *int
	var respBody *string
	var body []byte
	if resp != nil {
		defer resp.Body.Close()
		sc := resp.StatusCode
		statusCode = &sc
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxCallbackBody))
		if len(body) > 0 {
			bs := string(body)
			respBody = &bs
		}
	}

	delivered := doErr == nil && resp != nil && resp.StatusCode >= 200 && resp.StatusCode < 300
	entry := &models.CallbackLog{
		RequestID:    req.ID,
		ClientID:     client.ID,
		Event:        EventPaymentAuthorized,
		Payload:      json.RawMessage(payload),
		HTTPStatus:   statusCode,
		ResponseBody: respBody,
		IsDelivered:  delivered,
	}
	if err := s.logs.CreateCallbackLog(ctx, entry); err != nil {
		log.Error().Err(err).Str("request", req.Name).Msg("failed to create callback log")
	}

	if doErr != nil {
		return "", fmt.Errorf("deliver callback: %w", doErr)
	}
	if !delivered {
		return "", fmt.Errorf("callback returned status %d", resp.StatusCode)
	}

	var reply callbackReply
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		// A plain acknowledgement without JSON is still a delivery.
		return "", nil
	}
	return reply.RedirectTo, nil
}

func buildCallbackPayload(req *models.PaymentRequest, status models.StatusLabel) ([]byte, error) {
	p := callbackPayload{
		Event: EventPaymentAuthorized,
		Data: callbackData{
			RequestName:      req.Name,
			Status:           status,
			Amount:           req.Amount,
			Currency:         req.Currency,
			OrderID:          req.OrderID,
			ReferenceDoctype: req.ReferenceDoctype,
			ReferenceDocname: req.ReferenceDocname,
			IsSandbox:        req.IsSandbox,
		},
		Timestamp: utils.NowISO(),
	}
	if req.TransactionID != nil {
		p.Data.TransactionID = *req.TransactionID
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal callback payload: %w", err)
	}
	return b, nil
}
