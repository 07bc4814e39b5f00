package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_authnet/internal/service"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// CheckoutHandler serves the public browser checkout. Only pre-staged
// requests can be paid here.
type CheckoutHandler struct {
	paymentService *service.PaymentService
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(paymentService *service.PaymentService) *CheckoutHandler {
	return &CheckoutHandler{paymentService: paymentService}
}

// GetCheckout handles GET /integrations/authorizenet_checkout?req=
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	name := c.Query("req")
	if name == "" {
		utils.Error(c, 400, "MISSING_FIELD", "Missing field: req")
		return
	}
	c.Set("payment_request", name)

	checkout, err := h.paymentService.GetCheckoutContext(c.Request.Context(), name)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	utils.Success(c, 200, "Checkout ready", checkout)
}

// SubmitCheckout handles POST /integrations/authorizenet_checkout/payment
func (h *CheckoutHandler) SubmitCheckout(c *gin.Context) {
	var sub service.PaymentSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if sub.RequestName == "" {
		utils.Error(c, 400, "MISSING_FIELD", "Missing field: requestName")
		return
	}
	sub.Request = nil

	// Public route: contact headers are ignored and the payer is used.
	submitPayment(c, h.paymentService, service.RequestContext{CustomerIP: c.ClientIP()}, sub)
}

// PaymentSuccess handles GET /integrations/payment-success
func (h *CheckoutHandler) PaymentSuccess(c *gin.Context) {
	h.resultPage(c, service.MessageSuccess)
}

// PaymentFailed handles GET /integrations/payment-failed
func (h *CheckoutHandler) PaymentFailed(c *gin.Context) {
	h.resultPage(c, service.MessageDeclined)
}

func (h *CheckoutHandler) resultPage(c *gin.Context, fallback string) {
	message := c.Query("redirect_message")
	if message == "" {
		message = fallback
	}
	utils.Success(c, 200, message, gin.H{
		"message":    message,
		"redirectTo": c.Query("redirect_to"),
	})
}
