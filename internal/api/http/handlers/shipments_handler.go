package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/shipment-tracker/internal/api/dto"
	"github.com/spec-kit/shipment-tracker/internal/auth"
	"github.com/spec-kit/shipment-tracker/internal/domain"
	"github.com/spec-kit/shipment-tracker/internal/service"
	apperrors "github.com/spec-kit/shipment-tracker/pkg/util"
)

// ShipmentsHandler manages shipment lifecycle endpoints.
type ShipmentsHandler struct {
	shipments *service.ShipmentService
}

// NewShipmentsHandler constructs handler.
func NewShipmentsHandler(shipmentService *service.ShipmentService) *ShipmentsHandler {
	return &ShipmentsHandler{shipments: shipmentService}
}

// Create POST /shipments.
func (h *ShipmentsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.CreateShipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ConsumerID == "" || strings.TrimSpace(req.GoodsDescription) == "" ||
		strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return apperrors.NewValidationError("consumer_id, goods_description, origin, destination required", nil)
	}

	shipment, err := h.shipments.Create(c.Context(), principal, service.CreateShipmentInput{
		ConsumerID:       req.ConsumerID,
		GoodsDescription: req.GoodsDescription,
		Origin:           req.Origin,
		Destination:      req.Destination,
		ExpectedDelivery: req.ExpectedDelivery,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewShipmentResponse(shipment)})
}

// List GET /shipments.
func (h *ShipmentsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	filter := service.ShipmentListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status, ok := domain.ParseShipmentStatus(strings.TrimSpace(part))
			if !ok {
				return apperrors.NewValidationError("unknown status", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	shipments, err := h.shipments.List(c.Context(), principal, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ShipmentResponse, 0, len(shipments))
	for i := range shipments {
		items = append(items, dto.NewShipmentResponse(&shipments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /shipments/:id.
func (h *ShipmentsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	shipment, history, err := h.shipments.GetForActor(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"shipment": dto.NewShipmentResponse(shipment),
		"history":  dto.NewHistoryResponses(history),
	}})
}

// Assign POST /shipments/:id/assign.
func (h *ShipmentsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.AssignDriverRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.DriverID == "" {
		return apperrors.NewValidationError("driver_id required", nil)
	}
	shipment, err := h.shipments.AssignDriver(c.Context(), principal, c.Params("id"), req.DriverID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewShipmentResponse(shipment)})
}

// Advance POST /shipments/:id/advance.
func (h *ShipmentsHandler) Advance(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.AdvanceStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, valid := domain.ParseShipmentStatus(req.Status)
	if !valid {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}
	var location *domain.GeoPoint
	if req.Latitude != nil && req.Longitude != nil {
		location = &domain.GeoPoint{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}
	shipment, err := h.shipments.AdvanceStatus(c.Context(), principal, c.Params("id"), status, location, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewShipmentResponse(shipment)})
}

// Cancel POST /shipments/:id/cancel.
func (h *ShipmentsHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	// The note is optional; a bare cancel without a body is legal.
	var req dto.CancelShipmentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	shipment, err := h.shipments.Cancel(c.Context(), principal, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewShipmentResponse(shipment)})
}

// History GET /shipments/:id/history.
func (h *ShipmentsHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	limit := parseInt(c.Query("limit"), 100)
	history, err := h.shipments.History(c.Context(), principal, c.Params("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(history)})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
