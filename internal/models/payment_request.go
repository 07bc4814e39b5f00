package models

import "time"

// RequestStatus is the lifecycle state of a payment request.
type RequestStatus string

const (
	RequestStatusIssued     RequestStatus = "Issued"
	RequestStatusCaptured   RequestStatus = "Captured"
	RequestStatusAuthorized RequestStatus = "Authorized"
	RequestStatusError      RequestStatus = "Error"
)

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusCaptured, RequestStatusAuthorized, RequestStatusError:
		return true
	}
	return false
}

// IsSuccessful reports whether funds were captured or reserved.
func (s RequestStatus) IsSuccessful() bool {
	return s == RequestStatusCaptured || s == RequestStatusAuthorized
}

// StatusLabel is the status reported to the reference document and the caller.
type StatusLabel string

const (
	StatusLabelCompleted  StatusLabel = "Completed"
	StatusLabelAuthorized StatusLabel = "Authorized"
	StatusLabelFailed     StatusLabel = "Failed"
)

// Label maps the internal status to its external label.
func (s RequestStatus) Label() StatusLabel {
	switch s {
	case RequestStatusCaptured:
		return StatusLabelCompleted
	case RequestStatusAuthorized:
		return StatusLabelAuthorized
	default:
		return StatusLabelFailed
	}
}

// PaymentRequest is the ledger entry of a single payment attempt.
// Rows are never deleted; a retry opens a new request.
type PaymentRequest struct {
	ID               int                `db:"id" json:"id"`
	Name             string             `db:"name" json:"name"`
	ClientID         int                `db:"client_id" json:"clientId"`
	IsSandbox        bool               `db:"is_sandbox" json:"isSandbox"`
	Status           RequestStatus      `db:"status" json:"status"`
	TransactionID    *string            `db:"transaction_id" json:"transactionId,omitempty"`
	Amount           float64            `db:"amount" json:"amount"`
	Currency         string             `db:"currency" json:"currency"`
	OrderID          string             `db:"order_id" json:"orderId"`
	Title            string             `db:"title" json:"title"`
	Description      string             `db:"description" json:"description"`
	PayerName        string             `db:"payer_name" json:"payerName"`
	PayerEmail       string             `db:"payer_email" json:"payerEmail"`
	ReferenceDoctype string             `db:"reference_doctype" json:"referenceDoctype"`
	ReferenceDocname string             `db:"reference_docname" json:"referenceDocname"`
	RequestData      NullableRawMessage `db:"request_data" json:"requestData,omitempty"`
	CreatedAt        time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updatedAt"`

	Log []LogEntry `db:"-" json:"log,omitempty"`
}

// PaymentRequestFields are the caller-supplied fields of a new request.
type PaymentRequestFields struct {
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	OrderID          string  `json:"orderId"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	PayerName        string  `json:"payerName"`
	PayerEmail       string  `json:"payerEmail"`
	ReferenceDoctype string  `json:"referenceDoctype"`
	ReferenceDocname string  `json:"referenceDocname"`
}

// MissingField returns the json name of the first empty required field.
func (f *PaymentRequestFields) MissingField() string {
	switch {
	case f.Amount <= 0:
		return "amount"
	case f.Currency == "":
		return "currency"
	case f.OrderID == "":
		return "orderId"
	case f.Title == "":
		return "title"
	case f.Description == "":
		return "description"
	case f.PayerName == "":
		return "payerName"
	case f.PayerEmail == "":
		return "payerEmail"
	case f.ReferenceDoctype == "":
		return "referenceDoctype"
	case f.ReferenceDocname == "":
		return "referenceDocname"
	}
	return ""
}
