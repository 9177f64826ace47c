package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/shipment-tracker/internal/api/dto"
	"github.com/spec-kit/shipment-tracker/internal/auth"
	"github.com/spec-kit/shipment-tracker/internal/service"
	apperrors "github.com/spec-kit/shipment-tracker/pkg/util"
)

// GpsHandler manages position reporting and tracking reads.
type GpsHandler struct {
	positions *service.PositionService
	live      *service.LiveService
}

// NewGpsHandler constructs handler.
func NewGpsHandler(positionService *service.PositionService, liveService *service.LiveService) *GpsHandler {
	return &GpsHandler{positions: positionService, live: liveService}
}

// RecordFix POST /gps/fixes.
func (h *GpsHandler) RecordFix(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.RecordFixRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ShipmentID == "" || req.Latitude == nil || req.Longitude == nil {
		return apperrors.NewValidationError("shipment_id, latitude, longitude required", nil)
	}

	fix, err := h.positions.RecordFix(c.Context(), principal, service.RecordFixInput{
		ShipmentID: req.ShipmentID,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		Heading:    req.Heading,
		Speed:      req.Speed,
		Accuracy:   req.Accuracy,
		RecordedAt: req.RecordedAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewFixResponse(fix)})
}

// Current GET /gps/shipments/:id/current.
func (h *GpsHandler) Current(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	fix, err := h.positions.CurrentLocation(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFixResponse(fix)})
}

// Fixes GET /gps/shipments/:id/fixes.
func (h *GpsHandler) Fixes(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	limit := parseInt(c.Query("limit"), 50)
	fixes, err := h.positions.History(c.Context(), principal, c.Params("id"), limit)
	if err != nil {
		return err
	}
	items := make([]dto.FixResponse, 0, len(fixes))
	for i := range fixes {
		items = append(items, dto.NewFixResponse(&fixes[i]))
	}
	return c.JSON(fiber.Map{"data": items, "total_points": len(items)})
}

// Live GET /gps/live.
func (h *GpsHandler) Live(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var supplierFilter *string
	if supplierID := c.Query("supplier_id"); supplierID != "" {
		supplierFilter = &supplierID
	}
	entries, err := h.live.Snapshot(c.Context(), principal, supplierFilter)
	if err != nil {
		return err
	}
	items := make([]dto.LiveEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewLiveEntryResponse(entry))
	}
	return c.JSON(fiber.Map{"data": items, "total_active": len(items)})
}
