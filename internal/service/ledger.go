package service

import (
	"context"
	"fmt"
	"time"

	"github.com/GTDGit/gtd_authnet/internal/models"
)

// PaymentRequestStore is the document store behind the ledger.
type PaymentRequestStore interface {
	GenerateName(ctx context.Context) (string, error)
	Create(ctx context.Context, req *models.PaymentRequest) error
	Save(ctx context.Context, req *models.PaymentRequest) error
	GetByName(ctx context.Context, name string) (*models.PaymentRequest, error)
}

// Ledger wraps one PaymentRequest for the duration of an orchestration.
// The max log level lives on the instance only and is never persisted.
type Ledger struct {
	store    PaymentRequestStore
	req      *models.PaymentRequest
	maxLevel models.LogLevel
	now      func() time.Time
}

// OpenLedger creates and stores a new request in status Issued.
func OpenLedger(ctx context.Context, store PaymentRequestStore, fields models.PaymentRequestFields, clientID int, sandbox bool) (*Ledger, error) {
	name, err := store.GenerateName(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate request name: %w", err)
	}

	req := &models.PaymentRequest{
		Name:             name,
		ClientID:         clientID,
		IsSandbox:        sandbox,
		Status:           models.RequestStatusIssued,
		Amount:           fields.Amount,
		Currency:         fields.Currency,
		OrderID:          fields.OrderID,
		Title:            fields.Title,
		Description:      fields.Description,
		PayerName:        fields.PayerName,
		PayerEmail:       fields.PayerEmail,
		ReferenceDoctype: fields.ReferenceDoctype,
		ReferenceDocname: fields.ReferenceDocname,
	}
	if err := store.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create payment request: %w", err)
	}
	return LoadLedger(store, req), nil
}

// LoadLedger wraps an already stored request. Logging is off until
// SetMaxLogLevel is called.
func LoadLedger(store PaymentRequestStore, req *models.PaymentRequest) *Ledger {
	return &Ledger{
		store:    store,
		req:      req,
		maxLevel: models.LogLevelNone,
		now:      time.Now,
	}
}

// Request returns the wrapped request.
func (l *Ledger) Request() *models.PaymentRequest { return l.req }

// SetMaxLogLevel sets the threshold for subsequent Log calls.
func (l *Ledger) SetMaxLogLevel(level models.LogLevel) { l.maxLevel = level }

// MaxLogLevel returns the current threshold.
func (l *Ledger) MaxLogLevel() models.LogLevel { return l.maxLevel }

// Log appends an entry when level does not exceed the threshold. Entries
// above it are dropped.
func (l *Ledger) Log(message string, level models.LogLevel) {
	if level > l.maxLevel {
		return
	}
	l.req.Log = append(l.req.Log, models.LogEntry{
		Level:     level,
		Message:   message,
		Timestamp: l.now().UTC(),
	})
}

// Logf is Log with formatting.
func (l *Ledger) Logf(level models.LogLevel, format string, args ...any) {
	if level > l.maxLevel {
		return
	}
	l.Log(fmt.Sprintf(format, args...), level)
}

// SetStatus moves the request out of Issued. Terminal states are final.
func (l *Ledger) SetStatus(status models.RequestStatus) {
	if l.req.Status.IsTerminal() {
		return
	}
	l.req.Status = status
}

// SetTransactionID records the gateway transaction id. The gateway reports
// "0" when no transaction was created.
func (l *Ledger) SetTransactionID(id string) {
	if id == "" || id == "0" {
		return
	}
	l.req.TransactionID = &id
}

// SetRequestData replaces the stored submission snapshot. Callers pass an
// already redacted value.
func (l *Ledger) SetRequestData(data []byte) {
	l.req.RequestData = models.NullableRawMessage(data)
}

// Save persists status, transaction id, request data and new log entries.
func (l *Ledger) Save(ctx context.Context) error {
	if err := l.store.Save(ctx, l.req); err != nil {
		return fmt.Errorf("save payment request %s: %w", l.req.Name, err)
	}
	return nil
}
