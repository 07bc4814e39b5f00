package models

import "time"

// Contact identifies the payer on whose behalf payment profiles are stored.
type Contact struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Key returns the identifier gateway users are stored under.
func (c *Contact) Key() string {
	if c == nil {
		return ""
	}
	if c.ID != "" {
		return c.ID
	}
	return c.Email
}

// GatewayUserKey scopes a contact's customer profile to one client and one
// gateway environment. Sandbox customer ids do not exist on the live gateway.
type GatewayUserKey struct {
	ClientID  int
	IsSandbox bool
	ContactID string
}

// GatewayUser links a contact to its Authorize.Net customer profile.
type GatewayUser struct {
	ID         int       `db:"id" json:"id"`
	ClientID   int       `db:"client_id" json:"clientId"`
	IsSandbox  bool      `db:"is_sandbox" json:"isSandbox"`
	ContactID  string    `db:"contact_id" json:"contactId"`
	CustomerID string    `db:"customer_id" json:"customerId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`

	StoredPayments []StoredPayment `db:"-" json:"storedPayments"`
}

// StoredPayment is a tokenised card under a gateway user. It holds no card data.
type StoredPayment struct {
	ID            int       `db:"id" json:"id"`
	GatewayUserID int       `db:"gateway_user_id" json:"-"`
	PaymentID     string    `db:"payment_id" json:"paymentId"`
	Label         string    `db:"label" json:"label"`
	Address       string    `db:"address" json:"address"`
	Expiration    string    `db:"expiration" json:"expiration"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// HasPayment reports whether paymentID is already recorded.
func (u *GatewayUser) HasPayment(paymentID string) bool {
	for _, p := range u.StoredPayments {
		if p.PaymentID == paymentID {
			return true
		}
	}
	return false
}
