package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/internal/repository"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// AdminPaymentService provides the read-only ledger console.
type AdminPaymentService struct {
	requestRepo  *repository.PaymentRequestRepository
	callbackRepo *repository.CallbackRepository
}

// NewAdminPaymentService creates a new AdminPaymentService.
func NewAdminPaymentService(requestRepo *repository.PaymentRequestRepository, callbackRepo *repository.CallbackRepository) *AdminPaymentService {
	return &AdminPaymentService{
		requestRepo:  requestRepo,
		callbackRepo: callbackRepo,
	}
}

// ListPaymentRequestsRequest holds request parameters for listing payment requests.
type ListPaymentRequestsRequest struct {
	ClientID         *int    `form:"clientId"`
	Status           *string `form:"status"`
	ReferenceDoctype *string `form:"referenceDoctype"`
	ReferenceDocname *string `form:"referenceDocname"`
	PayerEmail       *string `form:"payerEmail"`
	StartDate        *string `form:"startDate"`
	EndDate          *string `form:"endDate"`
	IsSandbox        *bool   `form:"isSandbox"`
	Page             int     `form:"page"`
	Limit            int     `form:"limit"`
}

// ListPaymentRequestsResponse holds response for listing payment requests.
type ListPaymentRequestsResponse struct {
	Requests   []PaymentRequestAdminView `json:"requests"`
	Pagination PaginationMeta            `json:"pagination"`
}

// PaginationMeta contains pagination information.
type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// PaymentRequestAdminView represents a payment request for admin view.
type PaymentRequestAdminView struct {
	ID               int                  `json:"id"`
	Name             string               `json:"name"`
	ClientID         int                  `json:"clientId"`
	Status           models.RequestStatus `json:"status"`
	StatusLabel      models.StatusLabel   `json:"statusLabel"`
	TransactionID    *string              `json:"transactionId,omitempty"`
	Amount           float64              `json:"amount"`
	Currency         string               `json:"currency"`
	OrderID          string               `json:"orderId"`
	PayerName        string               `json:"payerName"`
	PayerEmail       string               `json:"payerEmail"`
	ReferenceDoctype string               `json:"referenceDoctype"`
	ReferenceDocname string               `json:"referenceDocname"`
	IsSandbox        bool                 `json:"isSandbox"`
	CreatedAt        string               `json:"createdAt"`
	UpdatedAt        string               `json:"updatedAt"`
}

// PaymentRequestDetail is one request with its log and callback attempts.
type PaymentRequestDetail struct {
	PaymentRequestAdminView
	RequestData models.NullableRawMessage `json:"requestData,omitempty"`
	Log         []models.LogEntry         `json:"log"`
	Callbacks   []models.CallbackLog      `json:"callbacks"`
}

// ListPaymentRequests returns paginated list of payment requests for admin.
func (s *AdminPaymentService) ListPaymentRequests(ctx context.Context, req *ListPaymentRequestsRequest) (*ListPaymentRequestsResponse, error) {
	filter := &repository.PaymentRequestFilter{
		ClientID:         req.ClientID,
		Status:           req.Status,
		ReferenceDoctype: req.ReferenceDoctype,
		ReferenceDocname: req.ReferenceDocname,
		PayerEmail:       req.PayerEmail,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		IsSandbox:        req.IsSandbox,
		Page:             req.Page,
		Limit:            req.Limit,
	}

	result, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get payment requests for admin")
		return nil, err
	}

	views := make([]PaymentRequestAdminView, len(result.Requests))
	for i := range result.Requests {
		views[i] = toAdminView(&result.Requests[i])
	}

	return &ListPaymentRequestsResponse{
		Requests: views,
		Pagination: PaginationMeta{
			Page:       result.Page,
			Limit:      result.Limit,
			TotalItems: result.TotalItems,
			TotalPages: result.TotalPages,
		},
	}, nil
}

// GetPaymentRequest returns a request with its log and callback attempts.
func (s *AdminPaymentService) GetPaymentRequest(ctx context.Context, name string) (*PaymentRequestDetail, error) {
	req, err := s.requestRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrPaymentRequestNotFound
		}
		log.Error().Err(err).Str("name", name).Msg("Failed to get payment request")
		return nil, err
	}

	callbacks, err := s.callbackRepo.GetByRequestID(ctx, req.ID)
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("Failed to get callback logs")
		callbacks = []models.CallbackLog{}
	}

	logs := req.Log
	if logs == nil {
		logs = []models.LogEntry{}
	}
	return &PaymentRequestDetail{
		PaymentRequestAdminView: toAdminView(req),
		RequestData:             req.RequestData,
		Log:                     logs,
		Callbacks:               callbacks,
	}, nil
}

// GetLogs returns only the log entries of a request.
func (s *AdminPaymentService) GetLogs(ctx context.Context, name string) ([]models.LogEntry, error) {
	req, err := s.requestRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrPaymentRequestNotFound
		}
		return nil, err
	}
	if req.Log == nil {
		return []models.LogEntry{}, nil
	}
	return req.Log, nil
}

func toAdminView(req *models.PaymentRequest) PaymentRequestAdminView {
	return PaymentRequestAdminView{
		ID:               req.ID,
		Name:             req.Name,
		ClientID:         req.ClientID,
		Status:           req.Status,
		StatusLabel:      req.Status.Label(),
		TransactionID:    req.TransactionID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		OrderID:          req.OrderID,
		PayerName:        req.PayerName,
		PayerEmail:       req.PayerEmail,
		ReferenceDoctype: req.ReferenceDoctype,
		ReferenceDocname: req.ReferenceDocname,
		IsSandbox:        req.IsSandbox,
		CreatedAt:        req.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:        req.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
