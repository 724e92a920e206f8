package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Pesokrava/storefront/internal/delivery/http/request"
	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/usecase/purchase"
)

// PurchaseHandler handles HTTP requests for purchases
type PurchaseHandler struct {
	service *purchase.Service
	logger  *logger.Logger
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(service *purchase.Service, log *logger.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		service: service,
		logger:  log,
	}
}

// CreatePurchaseRequest represents the request body for buying a product.
// Quantity may be sent as a number or as a numeric string.
type CreatePurchaseRequest struct {
	ProductID string          `json:"product_id" example:"6f1c2a3e-0d55-4a8e-9a43-0a7b7e0f5c11"`
	Quantity  json.RawMessage `json:"quantity" swaggertype:"integer" example:"1"`
}

// Create handles POST /api/v1/purchases
// @Summary Buy a product
// @Description Debits stock and the caller's wallet and records the purchase
// @Tags Purchases
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param purchase body CreatePurchaseRequest true "Product and quantity"
// @Success 201 {object} response.Envelope "Purchase completed successfully"
// @Failure 400 {object} response.Envelope "Invalid quantity or product ID"
// @Failure 401 {object} response.Envelope "Unauthenticated"
// @Failure 402 {object} response.Envelope "You don't have enough money"
// @Failure 404 {object} response.Envelope "Product not found"
// @Failure 409 {object} response.Envelope "Not enough products in storage"
// @Router /purchases [post]
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	var req CreatePurchaseRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	productID, err := request.ParseID("product_id", req.ProductID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	quantity, err := request.ParseQuantity(req.Quantity)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	created, err := h.service.Create(r.Context(), identity, purchase.CreateRequest{
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Created(w, "Purchase completed successfully", created)
}

// List handles GET /api/v1/purchases
// @Summary List purchases
// @Description Superusers see every purchase, other callers only their own
// @Tags Purchases
// @Produce json
// @Security TokenAuth
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "Paginated list of purchases"
// @Failure 401 {object} response.Envelope "Unauthenticated"
// @Router /purchases [get]
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	limit, offset := request.GetPaginationParams(r)

	purchases, total, err := h.service.List(r.Context(), identity, limit, offset)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Paginated(w, purchases, total, limit, offset)
}
