package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/shipment-tracker/internal/api/dto"
	"github.com/spec-kit/shipment-tracker/internal/service"
	apperrors "github.com/spec-kit/shipment-tracker/pkg/util"
)

// TrackingHandler serves the public, unauthenticated tracking lookup.
type TrackingHandler struct {
	shipments *service.ShipmentService
}

// NewTrackingHandler constructs handler.
func NewTrackingHandler(shipmentService *service.ShipmentService) *TrackingHandler {
	return &TrackingHandler{shipments: shipmentService}
}

// Track GET /track/:code. Unknown and inaccessible codes are
// indistinguishable: both produce the same NOT_FOUND response.
func (h *TrackingHandler) Track(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return apperrors.NewValidationError("tracking code required", nil)
	}
	result, err := h.shipments.TrackByCode(c.Context(), code)
	if err != nil {
		return err
	}

	shipment := result.Shipment
	return c.JSON(fiber.Map{"data": dto.PublicTrackingResponse{
		TrackingCode:     shipment.TrackingCode,
		Status:           shipment.Status,
		GoodsDescription: shipment.GoodsDescription,
		Origin:           shipment.Origin,
		Destination:      shipment.Destination,
		ExpectedDelivery: shipment.ExpectedDelivery,
		SupplierName:     result.SupplierName,
		DriverName:       result.DriverName,
		CreatedAt:        shipment.CreatedAt,
		UpdatedAt:        shipment.UpdatedAt,
		History:          dto.NewHistoryResponses(result.History),
	}})
}
