package authorizenet

import "encoding/json"

// Message is one entry of the top-level messages block.
type Message struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// Messages is the result block present on every response.
type Messages struct {
	ResultCode string    `json:"resultCode"`
	Message    []Message `json:"message"`
}

// TransactionMessage is an informational message inside a transaction response.
type TransactionMessage struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// TransactionError is a structured error line inside a transaction response.
type TransactionError struct {
	ErrorCode string `json:"errorCode"`
	ErrorText string `json:"errorText"`
}

// TransactionResponse is the processor's verdict on a charge.
type TransactionResponse struct {
	ResponseCode  string               `json:"responseCode"`
	AuthCode      string               `json:"authCode,omitempty"`
	AVSResultCode string               `json:"avsResultCode,omitempty"`
	CVVResultCode string               `json:"cvvResultCode,omitempty"`
	TransID       string               `json:"transId"`
	RefTransID    string               `json:"refTransID,omitempty"`
	AccountNumber string               `json:"accountNumber,omitempty"`
	AccountType   string               `json:"accountType,omitempty"`
	Messages      []TransactionMessage `json:"messages,omitempty"`
	Errors        []TransactionError   `json:"errors,omitempty"`
}

// CreateTransactionResponse is the createTransactionResponse payload.
type CreateTransactionResponse struct {
	TransactionResponse *TransactionResponse `json:"transactionResponse,omitempty"`
	RefID               string               `json:"refId,omitempty"`
	Messages            Messages             `json:"messages"`

	// Raw is the undecoded body as returned by the gateway.
	Raw json.RawMessage `json:"-"`
}

// CreateCustomerProfileResponse is returned when a customer profile is derived
// from a settled transaction.
type CreateCustomerProfileResponse struct {
	CustomerProfileID             string   `json:"customerProfileId"`
	CustomerPaymentProfileIDList  []string `json:"customerPaymentProfileIdList,omitempty"`
	CustomerShippingAddressIDList []string `json:"customerShippingAddressIdList,omitempty"`
	Messages                      Messages `json:"messages"`

	Raw json.RawMessage `json:"-"`
}

// CreateCustomerPaymentProfileResponse is returned after storing a card.
// On a duplicate the gateway still reports the existing payment profile id.
type CreateCustomerPaymentProfileResponse struct {
	CustomerProfileID        string   `json:"customerProfileId"`
	CustomerPaymentProfileID string   `json:"customerPaymentProfileId"`
	Messages                 Messages `json:"messages"`

	Raw json.RawMessage `json:"-"`
}

// envelope is satisfied by every response type so doRequest can attach the raw body.
type envelope interface {
	setRaw(json.RawMessage)
}

func (r *CreateTransactionResponse) setRaw(b json.RawMessage)            { r.Raw = b }
func (r *CreateCustomerProfileResponse) setRaw(b json.RawMessage)        { r.Raw = b }
func (r *CreateCustomerPaymentProfileResponse) setRaw(b json.RawMessage) { r.Raw = b }
