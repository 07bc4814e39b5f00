package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_authnet/internal/middleware"
	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/internal/service"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// PaymentHandler handles the client payment API.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func requestContext(c *gin.Context) service.RequestContext {
	return service.RequestContext{
		Client:     middleware.GetClient(c),
		IsSandbox:  middleware.IsSandbox(c),
		Contact:    middleware.GetContact(c),
		CustomerIP: c.ClientIP(),
	}
}

// CreatePaymentRequest handles POST /v1/payment-requests
func (h *PaymentHandler) CreatePaymentRequest(c *gin.Context) {
	var fields models.PaymentRequestFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	req, paymentURL, err := h.paymentService.GetPaymentURL(c.Request.Context(), requestContext(c), &fields)
	if err != nil {
		handlePaymentError(c, err)
		return
	}
	c.Set("payment_request", req.Name)

	utils.Success(c, 201, "Payment request issued", gin.H{
		"request":    req,
		"paymentUrl": paymentURL,
	})
}

// GetPaymentRequest handles GET /v1/payment-requests/:name
func (h *PaymentHandler) GetPaymentRequest(c *gin.Context) {
	name := c.Param("name")
	c.Set("payment_request", name)

	req, err := h.paymentService.GetPaymentRequest(c.Request.Context(), requestContext(c), name)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	utils.Success(c, 200, "Payment request retrieved", gin.H{
		"request":     req,
		"statusLabel": req.Status.Label(),
	})
}

// SubmitPayment handles POST /v1/payments
func (h *PaymentHandler) SubmitPayment(c *gin.Context) {
	var sub service.PaymentSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	submitPayment(c, h.paymentService, requestContext(c), sub)
}

// ListStoredPayments handles GET /v1/stored-payments
func (h *PaymentHandler) ListStoredPayments(c *gin.Context) {
	rc := requestContext(c)
	if rc.Contact == nil {
		utils.Error(c, 400, "CONTACT_REQUIRED", "X-Contact-Id or X-Contact-Email header is required")
		return
	}

	stored, err := h.paymentService.ListStoredPayments(c.Request.Context(), rc)
	if err != nil {
		handlePaymentError(c, err)
		return
	}

	utils.Success(c, 200, "Stored payments retrieved", gin.H{
		"storedPayments": stored,
		"total":          len(stored),
	})
}

// GetServiceDetails handles GET /v1/service-details
func (h *PaymentHandler) GetServiceDetails(c *gin.Context) {
	utils.Success(c, 200, "Service details", gin.H{
		"html": h.paymentService.GetServiceDetails(),
	})
}

// submitPayment runs one submission and writes its result. A charge that
// went through but whose card could not be stored is reported as a 500
// carrying the result.
func submitPayment(c *gin.Context, svc *service.PaymentService, rc service.RequestContext, sub service.PaymentSubmission) {
	if sub.RequestName != "" {
		c.Set("payment_request", sub.RequestName)
	}

	result, err := svc.SubmitPayment(c.Request.Context(), rc, sub)
	var profileErr *service.ProfileStorageError
	if errors.As(err, &profileErr) && result != nil {
		c.Set("payment_request", result.RequestName)
		utils.ErrorWithData(c, 500, "PROFILE_STORAGE_FAILED", profileErr.Error(), result)
		return
	}
	if err != nil {
		handlePaymentError(c, err)
		return
	}
	c.Set("payment_request", result.RequestName)

	utils.Success(c, 200, "Payment "+strings.ToLower(string(result.Status)), result)
}

// errorDetail strips the sentinel prefix from a wrapped error message.
func errorDetail(err, sentinel error, fallback string) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" || msg == sentinel.Error() {
		return fallback
	}
	return msg
}

func handlePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrInvalidClient):
		utils.Error(c, 401, "INVALID_CLIENT", "Unauthorized")
	case errors.Is(err, utils.ErrMissingField):
		utils.Error(c, 400, "MISSING_FIELD", "Missing field: "+errorDetail(err, utils.ErrMissingField, "request"))
	case errors.Is(err, utils.ErrInvalidAmount):
		utils.Error(c, 400, "INVALID_AMOUNT", "Amounts must have at most 2 decimal places")
	case errors.Is(err, utils.ErrUnsupportedCurrency):
		utils.Error(c, 400, "UNSUPPORTED_CURRENCY", errorDetail(err, utils.ErrUnsupportedCurrency, "Unsupported currency"))
	case errors.Is(err, utils.ErrContactRequired):
		utils.Error(c, 400, "CONTACT_REQUIRED", "A contact is required")
	case errors.Is(err, utils.ErrPaymentRequestNotFound):
		utils.Error(c, 404, "PAYMENT_REQUEST_NOT_FOUND", "Payment request not found")
	case errors.Is(err, utils.ErrRequestFinalized):
		utils.Error(c, 409, "REQUEST_FINALIZED", "Payment request has already been processed")
	case errors.Is(err, utils.ErrSubmissionInProgress):
		utils.Error(c, 409, "SUBMISSION_IN_PROGRESS", "Payment request is being processed")
	case errors.Is(err, utils.ErrIncompleteCheckout):
		utils.Error(c, 422, "INCOMPLETE_CHECKOUT", errorDetail(err, utils.ErrIncompleteCheckout, "Some information is missing"))
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("[PAYMENT] request failed")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}
