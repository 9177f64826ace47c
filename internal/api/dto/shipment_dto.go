package dto

import (
	"time"

	"github.com/spec-kit/shipment-tracker/internal/domain"
)

// CreateShipmentRequest payload for shipment creation.
type CreateShipmentRequest struct {
	ConsumerID       string     `json:"consumer_id"`
	GoodsDescription string     `json:"goods_description"`
	Origin           string     `json:"origin"`
	Destination      string     `json:"destination"`
	ExpectedDelivery *time.Time `json:"expected_delivery,omitempty"`
}

// AssignDriverRequest payload for driver assignment.
type AssignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

// AdvanceStatusRequest payload for driver-driven transitions.
type AdvanceStatusRequest struct {
	Status    string   `json:"status"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Note      *string  `json:"note,omitempty"`
}

// CancelShipmentRequest payload for cancellation.
type CancelShipmentRequest struct {
	Note *string `json:"note,omitempty"`
}

// ShipmentResponse is the shipment projection for authenticated parties.
type ShipmentResponse struct {
	ID               string                `json:"id"`
	TrackingCode     string                `json:"tracking_code"`
	SupplierID       string                `json:"supplier_id"`
	ConsumerID       string                `json:"consumer_id"`
	DriverID         *string               `json:"driver_id,omitempty"`
	Status           domain.ShipmentStatus `json:"status"`
	GoodsDescription string                `json:"goods_description"`
	Origin           string                `json:"origin"`
	Destination      string                `json:"destination"`
	ExpectedDelivery *time.Time            `json:"expected_delivery,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// HistoryEntryResponse is one status audit record.
type HistoryEntryResponse struct {
	Status    domain.ShipmentStatus `json:"status"`
	Latitude  *float64              `json:"latitude,omitempty"`
	Longitude *float64              `json:"longitude,omitempty"`
	Note      *string               `json:"note,omitempty"`
	ActorType domain.ActorType      `json:"actor_type"`
	Timestamp time.Time             `json:"timestamp"`
}

// NewShipmentResponse projects a domain shipment.
func NewShipmentResponse(shipment *domain.Shipment) ShipmentResponse {
	return ShipmentResponse{
		ID:               shipment.ID,
		TrackingCode:     shipment.TrackingCode,
		SupplierID:       shipment.SupplierID,
		ConsumerID:       shipment.ConsumerID,
		DriverID:         shipment.DriverID,
		Status:           shipment.Status,
		GoodsDescription: shipment.GoodsDescription,
		Origin:           shipment.Origin,
		Destination:      shipment.Destination,
		ExpectedDelivery: shipment.ExpectedDelivery,
		CreatedAt:        shipment.CreatedAt,
		UpdatedAt:        shipment.UpdatedAt,
	}
}

// NewHistoryResponses projects status history entries.
func NewHistoryResponses(history []domain.StatusHistoryEntry) []HistoryEntryResponse {
	result := make([]HistoryEntryResponse, 0, len(history))
	for _, entry := range history {
		resp := HistoryEntryResponse{
			Status:    entry.NewStatus,
			Note:      entry.Note,
			ActorType: entry.ActorType,
			Timestamp: entry.CreatedAt,
		}
		if entry.Location != nil {
			lat := entry.Location.Latitude
			lon := entry.Location.Longitude
			resp.Latitude = &lat
			resp.Longitude = &lon
		}
		result = append(result, resp)
	}
	return result
}
