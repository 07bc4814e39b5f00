package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_authnet/internal/service"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// AdminPaymentHandler serves the read-only ledger console.
type AdminPaymentHandler struct {
	adminPaymentSvc *service.AdminPaymentService
}

// NewAdminPaymentHandler constructs an AdminPaymentHandler.
func NewAdminPaymentHandler(adminPaymentSvc *service.AdminPaymentService) *AdminPaymentHandler {
	return &AdminPaymentHandler{adminPaymentSvc: adminPaymentSvc}
}

// ListPaymentRequests handles GET /v1/admin/payment-requests
func (h *AdminPaymentHandler) ListPaymentRequests(c *gin.Context) {
	var req service.ListPaymentRequestsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid query parameters")
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 200 {
		req.Limit = 50
	}

	result, err := h.adminPaymentSvc.ListPaymentRequests(c.Request.Context(), &req)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve payment requests")
		return
	}

	utils.SuccessWithPagination(c, 200, "Payment requests retrieved", result.Requests,
		result.Pagination.Page, result.Pagination.Limit, result.Pagination.TotalItems)
}

// GetPaymentRequest handles GET /v1/admin/payment-requests/:name
func (h *AdminPaymentHandler) GetPaymentRequest(c *gin.Context) {
	detail, err := h.adminPaymentSvc.GetPaymentRequest(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, utils.ErrPaymentRequestNotFound) {
			utils.Error(c, 404, "PAYMENT_REQUEST_NOT_FOUND", "Payment request not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve payment request")
		return
	}

	utils.Success(c, 200, "Payment request retrieved", detail)
}

// GetPaymentRequestLogs handles GET /v1/admin/payment-requests/:name/logs
func (h *AdminPaymentHandler) GetPaymentRequestLogs(c *gin.Context) {
	name := c.Param("name")
	logs, err := h.adminPaymentSvc.GetLogs(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, utils.ErrPaymentRequestNotFound) {
			utils.Error(c, 404, "PAYMENT_REQUEST_NOT_FOUND", "Payment request not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve logs")
		return
	}

	utils.Success(c, 200, "Logs retrieved", gin.H{
		"requestName": name,
		"logs":        logs,
	})
}
