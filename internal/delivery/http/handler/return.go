package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Pesokrava/storefront/internal/delivery/http/request"
	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/usecase/returns"
)

// ReturnHandler handles HTTP requests for returns
type ReturnHandler struct {
	service *returns.Service
	logger  *logger.Logger
}

// NewReturnHandler creates a new return handler
func NewReturnHandler(service *returns.Service, log *logger.Logger) *ReturnHandler {
	return &ReturnHandler{
		service: service,
		logger:  log,
	}
}

// CreateReturnRequest represents the request body for returning a purchase
type CreateReturnRequest struct {
	PurchaseID string `json:"purchase_id" example:"0b8e3c1a-7a2f-4c55-8f3e-2d1f4e9c6a70"`
}

// Create handles POST /api/v1/returns
// @Summary Request a return
// @Description Creates a pending return if the purchase is still inside the return window
// @Tags Returns
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param return body CreateReturnRequest true "Purchase to return"
// @Success 201 {object} response.Envelope "Return requested"
// @Failure 400 {object} response.Envelope "Invalid purchase ID"
// @Failure 401 {object} response.Envelope "Unauthenticated"
// @Failure 404 {object} response.Envelope "Purchase not found"
// @Failure 409 {object} response.Envelope "A return for this purchase is already pending"
// @Failure 422 {object} response.Envelope "Return is no longer possible"
// @Router /returns [post]
func (h *ReturnHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	var req CreateReturnRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	purchaseID, err := request.ParseID("purchase_id", req.PurchaseID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	ret, err := h.service.Request(r.Context(), identity, returns.RequestInput{PurchaseID: purchaseID})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Created(w, "Return requested", ret)
}

// List handles GET /api/v1/returns
// @Summary List pending returns
// @Description Superusers see every pending return, other callers only returns of their purchases
// @Tags Returns
// @Produce json
// @Security TokenAuth
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "Paginated list of returns"
// @Failure 401 {object} response.Envelope "Unauthenticated"
// @Router /returns [get]
func (h *ReturnHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	limit, offset := request.GetPaginationParams(r)

	list, total, err := h.service.List(r.Context(), identity, limit, offset)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Paginated(w, list, total, limit, offset)
}

// Confirm handles POST /api/v1/returns/:id/confirm
// @Summary Confirm a return
// @Description Puts the purchased units back into storage, refunds the owner and deletes the purchase
// @Tags Returns
// @Produce json
// @Security TokenAuth
// @Param id path string true "Return ID (UUID)"
// @Success 204 "Return confirmed"
// @Failure 400 {object} response.Envelope "Invalid return ID"
// @Failure 403 {object} response.Envelope "Admin privileges required"
// @Failure 404 {object} response.Envelope "Return not found"
// @Router /returns/{id}/confirm [post]
func (h *ReturnHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.service.Confirm)
}

// Reject handles POST /api/v1/returns/:id/reject
// @Summary Reject a return
// @Description Discards a pending return; the purchase stands
// @Tags Returns
// @Produce json
// @Security TokenAuth
// @Param id path string true "Return ID (UUID)"
// @Success 204 "Return rejected"
// @Failure 400 {object} response.Envelope "Invalid return ID"
// @Failure 403 {object} response.Envelope "Admin privileges required"
// @Failure 404 {object} response.Envelope "Return not found"
// @Router /returns/{id}/reject [post]
func (h *ReturnHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.service.Reject)
}

func (h *ReturnHandler) resolve(w http.ResponseWriter, r *http.Request, action func(context.Context, domain.Identity, uuid.UUID) error) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid return ID")
		return
	}

	if err := action(r.Context(), identity, id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}
