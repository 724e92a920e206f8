package handler

import (
	"net/http"

	"github.com/Pesokrava/storefront/internal/delivery/http/request"
	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/usecase/catalog"
)

// ProductHandler handles HTTP requests for the catalog
type ProductHandler struct {
	service *catalog.Service
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *catalog.Service, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  log,
	}
}

// GetByID handles GET /api/v1/products/:id
// @Summary Get a product by ID
// @Description Get a product with its price and the number of units in storage
// @Tags Products
// @Produce json
// @Security TokenAuth
// @Param id path string true "Product ID (UUID)"
// @Success 200 {object} response.Envelope "Product details"
// @Failure 400 {object} response.Envelope "Invalid product ID"
// @Failure 401 {object} response.Envelope "Unauthenticated"
// @Failure 404 {object} response.Envelope "Product not found"
// @Router /products/{id} [get]
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, product)
}

// List handles GET /api/v1/products
// @Summary List products
// @Description Get a paginated list of products
// @Tags Products
// @Produce json
// @Security TokenAuth
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} response.Envelope "Paginated list of products"
// @Failure 401 {object} response.Envelope "Unauthenticated"
// @Router /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := request.GetPaginationParams(r)

	products, total, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Paginated(w, products, total, limit, offset)
}
