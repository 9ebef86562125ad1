// Package rest provides HTTP handlers for inventory-related operations.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	inverrors "github.com/microservices-lab/inventory-service/internal/errors"
	"github.com/microservices-lab/inventory-service/internal/platform/web"
	"github.com/microservices-lab/inventory-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  service.InventoryService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of the inventory API with the provided service.
func NewHandler(service service.InventoryService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the inventory service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/inventarios", func(r chi.Router) {
		r.Post("/", h.Create)

		r.Route("/{productoId}", func(r chi.Router) {
			r.Get("/", h.FindByProductID)
			r.Put("/", h.UpdateQuantity)
			r.Patch("/decrementar", h.Decrement)
			r.Patch("/incrementar", h.Increment)
			r.Get("/disponibilidad", h.CheckAvailability)
		})
	})
}

// CreateInventoryRequest is the body of POST /api/inventarios. Pointer fields
// distinguish a missing field from an explicit zero.
type CreateInventoryRequest struct {
	ProductoID      *int64 `json:"productoId" validate:"required,gt=0"`
	CantidadInicial *int32 `json:"cantidadInicial" validate:"required,gte=0"`
}

// UpdateQuantityRequest is the body of PUT /api/inventarios/{productoId}.
type UpdateQuantityRequest struct {
	Cantidad *int32 `json:"cantidad" validate:"required,gte=0"`
}

// FindByProductID retrieves the inventory of a product with its product metadata.
func (h *Handler) FindByProductID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseProductID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find inventory", "producto_id", productID)
	found, err := h.service.FindByProductID(r.Context(), productID)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Create creates an inventory record for a product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req CreateInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Validation error", "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, req) {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to create inventory",
		"producto_id", *req.ProductoID, "cantidad_inicial", *req.CantidadInicial)
	created, err := h.service.Create(r.Context(), *req.ProductoID, *req.CantidadInicial)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Inventory created successfully", "producto_id", created.ProductID)
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// UpdateQuantity sets the absolute quantity for a product.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseProductID(w, r, mLogger)
	if !ok {
		return
	}
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Validation error", "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, req) {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to update inventory",
		"producto_id", productID, "cantidad", *req.Cantidad)
	updated, err := h.service.SetQuantity(r.Context(), productID, *req.Cantidad)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Inventory updated successfully", "producto_id", productID, "cantidad", updated.Quantity)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// Decrement reduces the quantity of a product, simulating a sale.
func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseProductID(w, r, mLogger)
	if !ok {
		return
	}
	amount, ok := web.ParseQuantityParam(r, w, mLogger, "cantidad", 1)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to decrement stock", "producto_id", productID, "cantidad", amount)
	updated, err := h.service.Decrement(r.Context(), productID, amount)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// Increment raises the quantity of a product, e.g. when restocking.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseProductID(w, r, mLogger)
	if !ok {
		return
	}
	amount, ok := web.ParseQuantityParam(r, w, mLogger, "cantidad", 1)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to increment stock", "producto_id", productID, "cantidad", amount)
	updated, err := h.service.Increment(r.Context(), productID, amount)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// CheckAvailability reports whether a required quantity is in stock.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseProductID(w, r, mLogger)
	if !ok {
		return
	}
	required, ok := web.ParseQuantityParam(r, w, mLogger, "cantidadRequerida", 0)
	if !ok {
		return
	}

	availability, err := h.service.CheckAvailability(r.Context(), productID, required)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, availability)
}

// validateStruct validates a request DTO and renders field errors.
// Returns true when the DTO is valid.
func (h *Handler) validateStruct(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
	err := h.validate.Struct(dto)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorResponse := make(map[string]string)
		for _, fieldErr := range validationErrors {
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
		web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
		return false
	}
	mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
	web.RespondError(w, mLogger, http.StatusBadRequest, "Validation error", "Invalid request body")
	return false
}

// respondServiceError maps a service error to a status code and renders a
// JSON:API error document. Unexpected errors never leak their internal text.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error) {
	switch {
	case errors.Is(err, inverrors.ErrInventoryNotFound):
		mLogger.WarnContext(r.Context(), "Inventory not found", "error", err)
		web.RespondError(w, mLogger, http.StatusNotFound, "Inventory not found", err.Error())
	case errors.Is(err, inverrors.ErrProductNotFound):
		mLogger.WarnContext(r.Context(), "Product not found", "error", err)
		web.RespondError(w, mLogger, http.StatusNotFound, "Product not found", err.Error())
	case errors.Is(err, inverrors.ErrProductServiceUnavailable),
		errors.Is(err, inverrors.ErrProductResponseMalformed):
		mLogger.ErrorContext(r.Context(), "Product service failure", "error", err)
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Product service unavailable", err.Error())
	case errors.Is(err, inverrors.ErrInvalidArgument):
		mLogger.WarnContext(r.Context(), "Invalid argument", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Validation error", err.Error())
	case errors.Is(err, inverrors.ErrInsufficientStock):
		mLogger.WarnContext(r.Context(), "Insufficient stock", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Insufficient stock", err.Error())
	case errors.Is(err, inverrors.ErrDuplicateInventory):
		mLogger.WarnContext(r.Context(), "Duplicate inventory", "error", err)
		web.RespondError(w, mLogger, http.StatusConflict, "Inventory already exists", err.Error())
	case errors.Is(err, inverrors.ErrQuantityConflict):
		mLogger.WarnContext(r.Context(), "Concurrent quantity update", "error", err)
		web.RespondError(w, mLogger, http.StatusConflict, "Concurrent update", err.Error())
	default:
		mLogger.ErrorContext(r.Context(), "Unexpected error", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Internal server error",
			"An unexpected error occurred while processing the request")
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
