package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_authnet/internal/service"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// ClientHandler handles client management HTTP endpoints.
type ClientHandler struct {
	clientService *service.ClientService
}

// NewClientHandler constructs a ClientHandler.
func NewClientHandler(clientService *service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// CreateClient handles POST /v1/admin/clients
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req service.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	creds, err := h.clientService.CreateClient(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err, "Failed to create client")
		return
	}

	utils.Success(c, 201, "Client created successfully", creds)
}

// GetClient handles GET /v1/admin/clients/:id
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid client ID")
		return
	}

	client, err := h.clientService.GetClient(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "Failed to retrieve client")
		return
	}

	utils.Success(c, 200, "Client retrieved", client)
}

// ListClients handles GET /v1/admin/clients
func (h *ClientHandler) ListClients(c *gin.Context) {
	clients, err := h.clientService.ListClients(c.Request.Context())
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve clients")
		return
	}

	utils.Success(c, 200, "Clients retrieved", gin.H{
		"clients": clients,
		"total":   len(clients),
	})
}

// UpdateClient handles PUT /v1/admin/clients/:id
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid client ID")
		return
	}

	var req service.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), id, &req)
	if err != nil {
		h.handleError(c, err, "Failed to update client")
		return
	}

	utils.Success(c, 200, "Client updated successfully", client)
}

// RegenerateKeys handles POST /v1/admin/clients/:id/regenerate
func (h *ClientHandler) RegenerateKeys(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid client ID")
		return
	}

	var req struct {
		KeyType string `json:"keyType" binding:"required"` // live, sandbox or webhook
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "keyType is required")
		return
	}

	creds, err := h.clientService.RegenerateKeys(c.Request.Context(), id, req.KeyType)
	if err != nil {
		h.handleError(c, err, "Failed to regenerate keys")
		return
	}

	utils.Success(c, 200, "Keys regenerated successfully", creds)
}

func (h *ClientHandler) handleError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, utils.ErrClientNotFound):
		utils.Error(c, 404, "CLIENT_NOT_FOUND", "Client not found")
	case errors.Is(err, utils.ErrClientExists):
		utils.Error(c, 400, "CLIENT_EXISTS", "client_id already exists")
	case errors.Is(err, utils.ErrInvalidKeyType):
		utils.Error(c, 400, "INVALID_KEY_TYPE", "keyType must be 'live', 'sandbox', or 'webhook'")
	case errors.Is(err, utils.ErrInvalidCallbackURL):
		utils.Error(c, 400, "INVALID_CALLBACK_URL", "callbackUrl must be an absolute http(s) URL")
	default:
		utils.Error(c, 500, "INTERNAL_ERROR", fallback)
	}
}
