package service

import (
	"context"
	"fmt"

	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// CheckoutContext is what the checkout page renders. It holds no card data.
type CheckoutContext struct {
	RequestName      string                `json:"requestName"`
	Amount           float64               `json:"amount"`
	Currency         string                `json:"currency"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	ReferenceDoctype string                `json:"referenceDoctype"`
	ReferenceDocname string                `json:"referenceDocname"`
	PayerName        string                `json:"payerName"`
	PayerEmail       string                `json:"payerEmail"`
	OrderID          string                `json:"orderId"`
	Year             int                   `json:"year"`
	IsSandbox        bool                  `json:"isSandbox"`
	StoredPayments   []StoredPaymentOption `json:"storedPayments"`
	SubmitURL        string                `json:"submitUrl"`
}

// expectedCheckoutField returns the first empty field the checkout page needs.
func expectedCheckoutField(req *models.PaymentRequest) string {
	switch {
	case req.Amount <= 0:
		return "amount"
	case req.Title == "":
		return "title"
	case req.Description == "":
		return "description"
	case req.ReferenceDoctype == "":
		return "referenceDoctype"
	case req.ReferenceDocname == "":
		return "referenceDocname"
	case req.PayerName == "":
		return "payerName"
	case req.PayerEmail == "":
		return "payerEmail"
	case req.OrderID == "":
		return "orderId"
	}
	return ""
}

// GetCheckoutContext loads a pre-staged request for the checkout page along
// with the payer's stored payments. The page is public, so no other contact
// can be named.
func (s *PaymentService) GetCheckoutContext(ctx context.Context, requestName string) (*CheckoutContext, error) {
	req, err := s.GetPaymentRequest(ctx, RequestContext{}, requestName)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, utils.ErrRequestFinalized
	}
	if f := expectedCheckoutField(req); f != "" {
		return nil, fmt.Errorf("%w: Some information is missing (%s)", utils.ErrIncompleteCheckout, f)
	}

	stored, err := s.profiles.ListStoredPayments(ctx, gatewayUserKey(req, contactFor(RequestContext{}, req)))
	if err != nil {
		return nil, err
	}

	return &CheckoutContext{
		RequestName:      req.Name,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Title:            req.Title,
		Description:      req.Description,
		ReferenceDoctype: req.ReferenceDoctype,
		ReferenceDocname: req.ReferenceDocname,
		PayerName:        req.PayerName,
		PayerEmail:       req.PayerEmail,
		OrderID:          req.OrderID,
		Year:             s.now().Year(),
		IsSandbox:        req.IsSandbox,
		StoredPayments:   stored,
		SubmitURL:        CheckoutPath + "/payment",
	}, nil
}

// ListStoredPayments returns the stored payments the authenticated client
// holds for rc.Contact in its current environment.
func (s *PaymentService) ListStoredPayments(ctx context.Context, rc RequestContext) ([]StoredPaymentOption, error) {
	if rc.Client == nil {
		return nil, utils.ErrInvalidClient
	}
	return s.profiles.ListStoredPayments(ctx, models.GatewayUserKey{
		ClientID:  rc.Client.ID,
		IsSandbox: rc.IsSandbox || s.authNet.UseSandbox,
		ContactID: rc.Contact.Key(),
	})
}

const serviceDetails = `<div>
	<p>To obtain the API Login ID and Transaction Key:</p>
	<ol>
		<li>Log into the Merchant Interface at https://account.authorize.net</li>
		<li>Click <b>Account</b> from the main toolbar.</li>
		<li>Click <b>Settings</b> in the main left-side menu.</li>
		<li>Click <b>API Credentials &amp; Keys</b>.</li>
		<li>Enter your <b>Secret Answer</b>.</li>
		<li>Select <b>New Transaction Key</b>.</li>
		<li>Set AUTHNET_API_LOGIN_ID and AUTHNET_TRANSACTION_KEY (or AUTHNET_TRANSACTION_KEY_SECRET) with the values shown.</li>
	</ol>
	<p>Set AUTHNET_USE_SANDBOX=true to send charges to the sandbox environment.</p>
</div>`

// GetServiceDetails returns setup instructions for the gateway credentials.
func (s *PaymentService) GetServiceDetails() string {
	return serviceDetails
}
