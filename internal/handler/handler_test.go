package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_authnet/internal/config"
	"github.com/GTDGit/gtd_authnet/internal/handler"
	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/internal/service"
	"github.com/GTDGit/gtd_authnet/pkg/authorizenet"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	approvedBody = `{"transactionResponse":{"responseCode":"1","authCode":"ABC123","transId":"60001"},"messages":{"resultCode":"Ok","message":[{"code":"I00001","text":"Successful."}]}}`
	declinedBody = `{"transactionResponse":{"responseCode":"2","transId":"60003","errors":[{"errorCode":"2","errorText":"This transaction has been declined."}]},"messages":{"resultCode":"Error","message":[{"code":"E00027","text":"The transaction was unsuccessful."}]}}`
)

type memoryRequests struct {
	mu       sync.Mutex
	seq      int
	requests map[string]*models.PaymentRequest
}

func (m *memoryRequests) GenerateName(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("PAY-20261016-%06d", m.seq), nil
}

func (m *memoryRequests) Create(ctx context.Context, req *models.PaymentRequest) error {
	return m.Save(ctx, req)
}

func (m *memoryRequests) Save(ctx context.Context, req *models.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID == 0 {
		req.ID = len(m.requests) + 1
	}
	cp := *req
	cp.Log = append([]models.LogEntry(nil), req.Log...)
	m.requests[req.Name] = &cp
	return nil
}

func (m *memoryRequests) GetByName(ctx context.Context, name string) (*models.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *req
	cp.Log = append([]models.LogEntry(nil), req.Log...)
	return &cp, nil
}

type memoryUsers struct {
	users map[models.GatewayUserKey]*models.GatewayUser
}

func (m *memoryUsers) GetByContact(ctx context.Context, key models.GatewayUserKey) (*models.GatewayUser, error) {
	u, ok := m.users[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *memoryUsers) Save(ctx context.Context, user *models.GatewayUser) error {
	m.users[models.GatewayUserKey{ClientID: user.ClientID, IsSandbox: user.IsSandbox, ContactID: user.ContactID}] = user
	return nil
}

type failingNotifier struct{}

func (failingNotifier) NotifyAuthorized(ctx context.Context, req *models.PaymentRequest, status models.StatusLabel) (string, error) {
	return "", errors.New("callback unreachable")
}

type testServer struct {
	router   *gin.Engine
	requests *memoryRequests
	users    *memoryUsers
	gateway  *string
	bodies   *[]string
}

var merchant = &models.Client{ID: 7, ClientID: "erp", IsActive: true}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	body := approvedBody
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		seen = append(seen, string(raw))
		_, _ = w.Write([]byte("\xef\xbb\xbf" + body))
	}))
	t.Cleanup(srv.Close)

	gw := service.NewAuthorizeNetGateway(authorizenet.NewClient(authorizenet.Config{
		APILoginID:     "login",
		TransactionKey: "key",
		Endpoint:       srv.URL,
	}))
	requests := &memoryRequests{requests: map[string]*models.PaymentRequest{}}
	users := &memoryUsers{users: map[models.GatewayUserKey]*models.GatewayUser{}}
	paymentSvc := service.NewPaymentService(
		requests,
		service.NewProfileService(users),
		gw,
		nil,
		failingNotifier{},
		nil,
		config.AuthNetConfig{
			LogLevel:            models.LogLevelDebug,
			TransactionType:     config.TransactionTypeAuthCapture,
			SupportedCurrencies: []string{"USD"},
		},
		config.CheckoutConfig{
			BaseURL:     "https://pay.example.com",
			SuccessPath: "/integrations/payment-success",
			FailurePath: "/integrations/payment-failed",
		},
	)

	payments := handler.NewPaymentHandler(paymentSvc)
	checkout := handler.NewCheckoutHandler(paymentSvc)

	r := gin.New()
	api := r.Group("/v1", func(c *gin.Context) {
		c.Set("client", merchant)
		c.Set("client_id", merchant.ID)
		c.Next()
	})
	api.POST("/payment-requests", payments.CreatePaymentRequest)
	api.GET("/payment-requests/:name", payments.GetPaymentRequest)
	api.POST("/payments", payments.SubmitPayment)
	api.GET("/stored-payments", payments.ListStoredPayments)
	r.GET("/v1/service-details", payments.GetServiceDetails)
	r.GET("/integrations/authorizenet_checkout", checkout.GetCheckout)
	r.POST("/integrations/authorizenet_checkout/payment", checkout.SubmitCheckout)
	r.GET("/integrations/payment-failed", checkout.PaymentFailed)

	return &testServer{router: r, requests: requests, users: users, gateway: &body, bodies: &seen}
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func requestFields() gin.H {
	return gin.H{
		"amount":           12.5,
		"currency":         "usd",
		"orderId":          "SO-0042",
		"title":            "Sales Order SO-0042",
		"description":      "Three widgets",
		"payerName":        "Jane Doe",
		"payerEmail":       "jane@example.com",
		"referenceDoctype": "Sales Order",
		"referenceDocname": "SO-0042",
	}
}

func card() gin.H {
	return gin.H{
		"nameOnCard": "Jane Doe",
		"cardNumber": "4111111111111111",
		"expMonth":   "01",
		"expYear":    "2030",
		"cardCode":   "123",
	}
}

func TestSubmitPayment_InlineApproved(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/v1/payments", gin.H{
		"request":  requestFields(),
		"cardInfo": card(),
		"billingInfo": gin.H{
			"firstName": "Jane", "lastName": "Doe", "address1": "1 Main St",
			"city": "Springfield", "state": "IL", "postalCode": "62701", "country": "US",
		},
	})

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Payment completed", env.Message)

	var result service.PaymentResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, models.StatusLabelCompleted, result.Status)
	assert.Equal(t, "60001", result.TransactionID)
	assert.Equal(t, "/integrations/payment-success?redirect_message=Success", result.RedirectTo)

	stored, err := s.requests.GetByName(context.Background(), result.RequestName)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCaptured, stored.Status)
	assert.Equal(t, "USD", stored.Currency)
	assert.NotContains(t, string(stored.RequestData), "4111111111111111")
	for _, e := range stored.Log {
		assert.NotContains(t, e.Message, "4111111111111111")
		assert.NotContains(t, e.Message, `"123"`)
	}
	require.Len(t, *s.bodies, 1)
	assert.Contains(t, (*s.bodies)[0], "4111111111111111")
}

func TestSubmitPayment_Declined(t *testing.T) {
	s := newTestServer(t)
	*s.gateway = declinedBody

	code, env := s.do(t, http.MethodPost, "/v1/payments", gin.H{
		"request":  requestFields(),
		"cardInfo": card(),
	})

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Payment failed", env.Message)
	var result service.PaymentResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, models.StatusLabelFailed, result.Status)
	assert.True(t, result.Processed)
	assert.Equal(t, "/integrations/payment-failed?redirect_message=Declined", result.RedirectTo)
}

func TestSubmitPayment_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		status  int
		errCode string
	}{
		{"bad json", "not an object", 400, "INVALID_REQUEST"},
		{"missing fields", gin.H{"request": gin.H{"amount": 5}, "cardInfo": card()}, 400, "MISSING_FIELD"},
		{"unknown request", gin.H{"requestName": "PAY-404", "cardInfo": card()}, 404, "PAYMENT_REQUEST_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			code, env := s.do(t, http.MethodPost, "/v1/payments", tt.body)
			assert.Equal(t, tt.status, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.errCode, env.Error.Code)
		})
	}

	t.Run("unsupported currency", func(t *testing.T) {
		s := newTestServer(t)
		fields := requestFields()
		fields["currency"] = "EUR"
		code, env := s.do(t, http.MethodPost, "/v1/payment-requests", fields)
		assert.Equal(t, 400, code)
		assert.Equal(t, "UNSUPPORTED_CURRENCY", env.Error.Code)
		assert.Contains(t, env.Error.Message, "'EUR'")
	})

	t.Run("sub-cent amount", func(t *testing.T) {
		s := newTestServer(t)
		fields := requestFields()
		fields["amount"] = 5.005
		code, env := s.do(t, http.MethodPost, "/v1/payment-requests", fields)
		assert.Equal(t, 400, code)
		assert.Equal(t, "INVALID_AMOUNT", env.Error.Code)
	})
}

func TestCheckoutFlow(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/v1/payment-requests", requestFields())
	require.Equal(t, http.StatusCreated, code)
	var issued struct {
		Request    models.PaymentRequest `json:"request"`
		PaymentURL string                `json:"paymentUrl"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &issued))
	name := issued.Request.Name
	assert.Equal(t, "https://pay.example.com/integrations/authorizenet_checkout?req="+name, issued.PaymentURL)

	code, env = s.do(t, http.MethodGet, "/integrations/authorizenet_checkout?req="+name, nil)
	require.Equal(t, http.StatusOK, code)
	var checkout service.CheckoutContext
	require.NoError(t, json.Unmarshal(env.Data, &checkout))
	assert.Equal(t, 12.5, checkout.Amount)
	assert.Equal(t, "SO-0042", checkout.OrderID)
	assert.Empty(t, checkout.StoredPayments)

	code, env = s.do(t, http.MethodPost, "/integrations/authorizenet_checkout/payment", gin.H{
		"requestName": name,
		"cardInfo":    card(),
	})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodPost, "/integrations/authorizenet_checkout/payment", gin.H{
		"requestName": name,
		"cardInfo":    card(),
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "REQUEST_FINALIZED", env.Error.Code)

	code, env = s.do(t, http.MethodGet, "/integrations/authorizenet_checkout?req="+name, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "REQUEST_FINALIZED", env.Error.Code)
}

func TestCheckout_IgnoresContactHeaders(t *testing.T) {
	s := newTestServer(t)
	_ = s.users.Save(context.Background(), &models.GatewayUser{
		ClientID:   merchant.ID,
		ContactID:  "victim@example.com",
		CustomerID: "cust-victim",
		StoredPayments: []models.StoredPayment{
			{PaymentID: "pay-victim", Label: "VI-4242", Expiration: "2030-01"},
		},
	})

	code, env := s.do(t, http.MethodPost, "/v1/payment-requests", requestFields())
	require.Equal(t, http.StatusCreated, code)
	var issued struct {
		Request models.PaymentRequest `json:"request"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &issued))
	name := issued.Request.Name

	code, env = s.do(t, http.MethodGet, "/integrations/authorizenet_checkout?req="+name, nil,
		"X-Contact-Email", "victim@example.com")
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "pay-victim")

	code, env = s.do(t, http.MethodPost, "/integrations/authorizenet_checkout/payment", gin.H{
		"requestName":   name,
		"storedProfile": gin.H{"customerId": "cust-victim", "paymentId": "pay-victim"},
	}, "X-Contact-Email", "victim@example.com")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"Failed"`)
	assert.Contains(t, string(env.Data), "Stored payment not found")
	assert.Empty(t, *s.bodies, "no charge reaches the gateway")
}

func TestCheckout_RequiresRequestName(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/integrations/authorizenet_checkout/payment", gin.H{
		"request":  requestFields(),
		"cardInfo": card(),
	})
	assert.Equal(t, 400, code)
	assert.Equal(t, "MISSING_FIELD", env.Error.Code)
	assert.Empty(t, *s.bodies)
}

func TestGetPaymentRequest(t *testing.T) {
	s := newTestServer(t)
	_ = s.requests.Save(context.Background(), &models.PaymentRequest{Name: "PAY-OTHER", ClientID: 99, Status: models.RequestStatusIssued})
	_ = s.requests.Save(context.Background(), &models.PaymentRequest{Name: "PAY-MINE", ClientID: 7, Status: models.RequestStatusAuthorized})

	code, env := s.do(t, http.MethodGet, "/v1/payment-requests/PAY-OTHER", nil)
	assert.Equal(t, 404, code)
	assert.Equal(t, "PAYMENT_REQUEST_NOT_FOUND", env.Error.Code)

	code, env = s.do(t, http.MethodGet, "/v1/payment-requests/PAY-MINE", nil)
	require.Equal(t, 200, code)
	assert.Contains(t, string(env.Data), `"statusLabel":"Authorized"`)
}

func TestListStoredPayments(t *testing.T) {
	s := newTestServer(t)
	_ = s.users.Save(context.Background(), &models.GatewayUser{
		ClientID:   merchant.ID,
		ContactID:  "jane@example.com",
		CustomerID: "cust-1",
		StoredPayments: []models.StoredPayment{
			{PaymentID: "pay-1", Label: "VI-1111", Address: "1 Main St, Springfield", Expiration: "2030-01"},
		},
	})

	code, env := s.do(t, http.MethodGet, "/v1/stored-payments", nil)
	assert.Equal(t, 400, code)
	assert.Equal(t, "CONTACT_REQUIRED", env.Error.Code)

	code, env = s.do(t, http.MethodGet, "/v1/stored-payments", nil, "X-Contact-Email", "jane@example.com")
	require.Equal(t, 200, code)
	assert.Contains(t, string(env.Data), `"paymentId":"pay-1"`)
	assert.Contains(t, string(env.Data), `"total":1`)
}

func TestResultPageAndServiceDetails(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/integrations/payment-failed", nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "Declined", env.Message)

	code, env = s.do(t, http.MethodGet, "/integrations/payment-failed?redirect_message=Card+expired", nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "Card expired", env.Message)

	code, env = s.do(t, http.MethodGet, "/v1/service-details", nil)
	require.Equal(t, 200, code)
	assert.True(t, strings.Contains(string(env.Data), "API Login ID"))
}

func TestHealth(t *testing.T) {
	up := handler.PingFunc(func(ctx context.Context) error { return nil })
	down := handler.PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name     string
		redis    handler.Pinger
		code     int
		status   string
		redisVal string
	}{
		{"healthy", up, http.StatusOK, "healthy", "connected"},
		{"redis down", down, http.StatusServiceUnavailable, "degraded", "disconnected"},
		{"redis disabled", nil, http.StatusOK, "healthy", "disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/v1/health", handler.NewHealthHandler(up, tt.redis, true).GetHealth)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

			require.Equal(t, tt.code, w.Code)
			var resp struct {
				Data struct {
					Status   string `json:"status"`
					Database string `json:"database"`
					Redis    string `json:"redis"`
					Sandbox  bool   `json:"sandbox"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Data.Status)
			assert.Equal(t, "connected", resp.Data.Database)
			assert.Equal(t, tt.redisVal, resp.Data.Redis)
			assert.True(t, resp.Data.Sandbox)
		})
	}
}
