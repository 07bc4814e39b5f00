package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/GTDGit/gtd_authnet/internal/config"
	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/internal/service"
)

type fakeRequestStore struct {
	mu       sync.Mutex
	seq      int
	requests map[string]*models.PaymentRequest
	saves    int
	saveErr  error
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{requests: map[string]*models.PaymentRequest{}}
}

func (f *fakeRequestStore) GenerateName(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("PAY-20261016-%06d", f.seq), nil
}

func (f *fakeRequestStore) Create(ctx context.Context, req *models.PaymentRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = len(f.requests) + 1
	f.requests[req.Name] = cloneRequest(req)
	return nil
}

func (f *fakeRequestStore) Save(ctx context.Context, req *models.PaymentRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	for i := range req.Log {
		if req.Log[i].ID == 0 {
			req.Log[i].ID = i + 1
			req.Log[i].RequestID = req.ID
		}
	}
	f.requests[req.Name] = cloneRequest(req)
	return nil
}

func (f *fakeRequestStore) GetByName(ctx context.Context, name string) (*models.PaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneRequest(req), nil
}

// put stores a request as if it had been pre-staged earlier.
func (f *fakeRequestStore) put(req *models.PaymentRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.ID == 0 {
		req.ID = len(f.requests) + 1
	}
	f.requests[req.Name] = cloneRequest(req)
}

func (f *fakeRequestStore) get(name string) *models.PaymentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneRequest(f.requests[name])
}

func cloneRequest(req *models.PaymentRequest) *models.PaymentRequest {
	if req == nil {
		return nil
	}
	out := *req
	out.Log = append([]models.LogEntry(nil), req.Log...)
	out.RequestData = append(models.NullableRawMessage(nil), req.RequestData...)
	return &out
}

// janeKey is where the payer of testFields is stored for testClient on live.
var janeKey = models.GatewayUserKey{ClientID: 7, ContactID: "jane@example.com"}

type fakeUserStore struct {
	users map[models.GatewayUserKey]*models.GatewayUser
	saves int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[models.GatewayUserKey]*models.GatewayUser{}}
}

func (f *fakeUserStore) seed(u *models.GatewayUser) {
	f.users[userKey(u)] = u
}

func userKey(u *models.GatewayUser) models.GatewayUserKey {
	return models.GatewayUserKey{ClientID: u.ClientID, IsSandbox: u.IsSandbox, ContactID: u.ContactID}
}

func (f *fakeUserStore) GetByContact(ctx context.Context, key models.GatewayUserKey) (*models.GatewayUser, error) {
	u, ok := f.users[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	cp.StoredPayments = append([]models.StoredPayment(nil), u.StoredPayments...)
	return &cp, nil
}

func (f *fakeUserStore) Save(ctx context.Context, user *models.GatewayUser) error {
	f.saves++
	if user.ID == 0 {
		user.ID = len(f.users) + 1
	}
	for i := range user.StoredPayments {
		if user.StoredPayments[i].ID == 0 {
			user.StoredPayments[i].ID = i + 1
			user.StoredPayments[i].GatewayUserID = user.ID
		}
	}
	cp := *user
	cp.StoredPayments = append([]models.StoredPayment(nil), user.StoredPayments...)
	f.users[userKey(user)] = &cp
	return nil
}

type fakeGateway struct {
	sandbox bool

	outcome   *service.GatewayOutcome
	chargeErr error
	charges   []service.ChargeRequest

	customerID      string
	customerErr     error
	customerCalls   int
	paymentID       string
	paymentErr      error
	paymentCalls    int
	lastPaymentCard models.CardInfo
}

func approvingGateway() *fakeGateway {
	return &fakeGateway{
		outcome: &service.GatewayOutcome{
			Status:        models.RequestStatusCaptured,
			TransactionID: "60001",
			ResponseCode:  "1",
			Raw:           []byte(`{"transactionResponse":{"responseCode":"1","transId":"60001","accountNumber":"XXXX1111"}}`),
		},
		customerID: "cust-1",
		paymentID:  "pay-1",
	}
}

func (g *fakeGateway) Charge(ctx context.Context, req service.ChargeRequest) (*service.GatewayOutcome, error) {
	g.charges = append(g.charges, req)
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	out := *g.outcome
	if req.AuthOnly {
		out.Status = models.RequestStatusAuthorized
	}
	return &out, nil
}

func (g *fakeGateway) CreateCustomerProfile(ctx context.Context, transactionID string) (string, error) {
	g.customerCalls++
	return g.customerID, g.customerErr
}

func (g *fakeGateway) CreatePaymentProfile(ctx context.Context, customerID string, card models.CardInfo, billing models.GatewayAddress) (string, error) {
	g.paymentCalls++
	g.lastPaymentCard = card
	if g.paymentErr != nil {
		return "", g.paymentErr
	}
	return g.paymentID, nil
}

func (g *fakeGateway) IsSandbox() bool { return g.sandbox }

type fakeNotifier struct {
	redirect string
	err      error
	calls    int
	labels   []models.StatusLabel
}

func (n *fakeNotifier) NotifyAuthorized(ctx context.Context, req *models.PaymentRequest, status models.StatusLabel) (string, error) {
	n.calls++
	n.labels = append(n.labels, status)
	return n.redirect, n.err
}

type fakeLocker struct {
	held map[string]bool
	err  error
}

func (l *fakeLocker) Acquire(ctx context.Context, name string) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true
	return func() { delete(l.held, name) }, true, nil
}

type testEnv struct {
	svc      *service.PaymentService
	requests *fakeRequestStore
	users    *fakeUserStore
	live     *fakeGateway
	sandbox  *fakeGateway
	notifier *fakeNotifier
	locker   *fakeLocker
}

func testAuthNetConfig() config.AuthNetConfig {
	return config.AuthNetConfig{
		APILoginID:          "login",
		TransactionKey:      "key",
		LogLevel:            models.LogLevelDebug,
		TransactionType:     config.TransactionTypeAuthCapture,
		SupportedCurrencies: []string{"USD"},
	}
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		BaseURL:     "https://pay.example.com",
		SuccessPath: "/integrations/payment-success",
		FailurePath: "/integrations/payment-failed",
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.AuthNetConfig)) *testEnv {
	t.Helper()
	authNet := testAuthNetConfig()
	for _, m := range mutate {
		m(&authNet)
	}
	env := &testEnv{
		requests: newFakeRequestStore(),
		users:    newFakeUserStore(),
		live:     approvingGateway(),
		sandbox:  approvingGateway(),
		notifier: &fakeNotifier{},
		locker:   &fakeLocker{held: map[string]bool{}},
	}
	env.sandbox.sandbox = true
	env.svc = service.NewPaymentService(
		env.requests,
		service.NewProfileService(env.users),
		env.live,
		env.sandbox,
		env.notifier,
		env.locker,
		authNet,
		testCheckoutConfig(),
	)
	return env
}

var testClient = &models.Client{ID: 7, ClientID: "merchant-7", Name: "Merchant"}

func testFields() *models.PaymentRequestFields {
	return &models.PaymentRequestFields{
		Amount:           5,
		Currency:         "USD",
		OrderID:          "SO-0001",
		Title:            "Sales Order SO-0001",
		Description:      "Two widgets",
		PayerName:        "Jane Doe",
		PayerEmail:       "jane@example.com",
		ReferenceDoctype: "Sales Order",
		ReferenceDocname: "SO-0001",
	}
}

func testCard() *models.CardInfo {
	return &models.CardInfo{
		NameOnCard: "Jane Doe",
		CardNumber: "4111111111111111",
		ExpMonth:   "01",
		ExpYear:    "2030",
		CardCode:   "123",
	}
}

func testBilling() *models.BillingInfo {
	return &models.BillingInfo{
		FirstName:  "Jane",
		LastName:   "Doe",
		Address1:   "1 Main St",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "US",
	}
}

type recordedEvents struct {
	issued    []string
	finalized []models.RequestStatus
}

func (e *recordedEvents) NotifyRequestIssued(req *models.PaymentRequest) {
	e.issued = append(e.issued, req.Name)
}

func (e *recordedEvents) NotifyRequestFinalized(req *models.PaymentRequest) {
	e.finalized = append(e.finalized, req.Status)
}
