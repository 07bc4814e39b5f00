package authorizenet

// Transaction types accepted by createTransactionRequest.
const (
	TransactionAuthCapture = "authCaptureTransaction"
	TransactionAuthOnly    = "authOnlyTransaction"
)

// MerchantAuthentication carries the API credentials on every request.
type MerchantAuthentication struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

// CreditCard is the raw card block. Expiration is YYYY-MM.
type CreditCard struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CardCode       string `json:"cardCode,omitempty"`
}

// Payment wraps the payment instrument.
type Payment struct {
	CreditCard *CreditCard `json:"creditCard,omitempty"`
}

// PaymentProfileReference points at a stored payment profile.
type PaymentProfileReference struct {
	PaymentProfileID string `json:"paymentProfileId"`
}

// ProfileReference charges a stored customer/payment profile pair.
type ProfileReference struct {
	CustomerProfileID string                   `json:"customerProfileId"`
	PaymentProfile    *PaymentProfileReference `json:"paymentProfile,omitempty"`
}

// Order describes the merchant order.
type Order struct {
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	Description   string `json:"description,omitempty"`
}

// LineItem is a single line of the order. Quantity and UnitPrice are decimal strings.
type LineItem struct {
	ItemID      string `json:"itemId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
}

// LineItems wraps the line item list the way the API expects it.
type LineItems struct {
	LineItem []LineItem `json:"lineItem"`
}

// Customer holds the contact data sent with a transaction.
type Customer struct {
	Email string `json:"email,omitempty"`
}

// Address is a billing address. Absent fields are omitted from the payload.
type Address struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Company     string `json:"company,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Zip         string `json:"zip,omitempty"`
	Country     string `json:"country,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// TransactionRequest is the body of a charge. The API validates element order
// against its XML schema, so field order here must not change.
type TransactionRequest struct {
	TransactionType string            `json:"transactionType"`
	Amount          string            `json:"amount"`
	Payment         *Payment          `json:"payment,omitempty"`
	Profile         *ProfileReference `json:"profile,omitempty"`
	Order           *Order            `json:"order,omitempty"`
	LineItems       *LineItems        `json:"lineItems,omitempty"`
	Customer        *Customer         `json:"customer,omitempty"`
	BillTo          *Address          `json:"billTo,omitempty"`
	CustomerIP      string            `json:"customerIP,omitempty"`
}

type createTransactionRequest struct {
	MerchantAuthentication MerchantAuthentication `json:"merchantAuthentication"`
	RefID                  string                 `json:"refId,omitempty"`
	TransactionRequest     TransactionRequest     `json:"transactionRequest"`
}

type createTransactionEnvelope struct {
	Request createTransactionRequest `json:"createTransactionRequest"`
}

type createProfileFromTransactionRequest struct {
	MerchantAuthentication MerchantAuthentication `json:"merchantAuthentication"`
	TransID                string                 `json:"transId"`
}

type createProfileFromTransactionEnvelope struct {
	Request createProfileFromTransactionRequest `json:"createCustomerProfileFromTransactionRequest"`
}

// PaymentProfile is the stored card plus its billing address.
type PaymentProfile struct {
	BillTo  *Address `json:"billTo,omitempty"`
	Payment Payment  `json:"payment"`
}

type createPaymentProfileRequest struct {
	MerchantAuthentication MerchantAuthentication `json:"merchantAuthentication"`
	CustomerProfileID      string                 `json:"customerProfileId"`
	PaymentProfile         PaymentProfile         `json:"paymentProfile"`
	ValidationMode         string                 `json:"validationMode,omitempty"`
}

type createPaymentProfileEnvelope struct {
	Request createPaymentProfileRequest `json:"createCustomerPaymentProfileRequest"`
}
