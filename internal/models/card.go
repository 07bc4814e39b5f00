package models

// CardInfo is raw card input. It only lives for the duration of a submission.
type CardInfo struct {
	NameOnCard   string `json:"nameOnCard"`
	CardNumber   string `json:"cardNumber"`
	ExpMonth     string `json:"expMonth"`
	ExpYear      string `json:"expYear"`
	CardCode     string `json:"cardCode"`
	StorePayment bool   `json:"storePayment"`
}

// IsZero reports whether no card data was submitted.
func (c *CardInfo) IsZero() bool {
	return c == nil || (c.CardNumber == "" && c.ExpMonth == "" && c.ExpYear == "" && c.CardCode == "")
}

// MissingField returns the json name of the first missing required card field.
func (c *CardInfo) MissingField() string {
	switch {
	case c.CardNumber == "":
		return "cardNumber"
	case c.ExpMonth == "":
		return "expMonth"
	case c.ExpYear == "":
		return "expYear"
	case c.CardCode == "":
		return "cardCode"
	}
	return ""
}

// BillingInfo is the submitted billing block.
type BillingInfo struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Company    string `json:"company"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// GatewayAddress is a billing address trimmed to gateway limits. Absent
// fields stay empty and are omitted on the wire.
type GatewayAddress struct {
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

// IsEmpty reports whether no field survived normalization.
func (a GatewayAddress) IsEmpty() bool {
	return a == GatewayAddress{}
}

// StoredProfileRef points at a gateway-side customer/payment profile pair.
type StoredProfileRef struct {
	CustomerID string `json:"customerId"`
	PaymentID  string `json:"paymentId"`
}

// IsZero reports whether the reference is unset.
func (r *StoredProfileRef) IsZero() bool {
	return r == nil || (r.CustomerID == "" && r.PaymentID == "")
}

// LineItem is an optional order line sent with the charge.
type LineItem struct {
	ItemID      string  `json:"itemId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}
