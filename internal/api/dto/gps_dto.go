package dto

import (
	"time"

	"github.com/spec-kit/shipment-tracker/internal/domain"
)

// RecordFixRequest payload for a position report.
type RecordFixRequest struct {
	ShipmentID string     `json:"shipment_id"`
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	Heading    *float64   `json:"heading,omitempty"`
	Speed      *float64   `json:"speed,omitempty"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// FixResponse is one position report.
type FixResponse struct {
	ID         string    `json:"id"`
	ShipmentID string    `json:"shipment_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Heading    *float64  `json:"heading,omitempty"`
	Speed      *float64  `json:"speed,omitempty"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// LiveEntryResponse is one row of the live snapshot.
type LiveEntryResponse struct {
	ShipmentID       string                `json:"shipment_id"`
	TrackingCode     string                `json:"tracking_code"`
	Status           domain.ShipmentStatus `json:"status"`
	GoodsDescription string                `json:"goods_description"`
	Origin           string                `json:"origin"`
	Destination      string                `json:"destination"`
	SupplierName     string                `json:"supplier_name"`
	DriverName       *string               `json:"driver_name,omitempty"`
	Fix              *FixResponse          `json:"fix"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// NewFixResponse projects a domain fix.
func NewFixResponse(fix *domain.GpsFix) FixResponse {
	return FixResponse{
		ID:         fix.ID,
		ShipmentID: fix.ShipmentID,
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		Heading:    fix.Heading,
		Speed:      fix.Speed,
		Accuracy:   fix.Accuracy,
		RecordedAt: fix.RecordedAt,
	}
}

// NewLiveEntryResponse projects one live view row.
func NewLiveEntryResponse(entry domain.LiveEntry) LiveEntryResponse {
	resp := LiveEntryResponse{
		ShipmentID:       entry.Shipment.ID,
		TrackingCode:     entry.Shipment.TrackingCode,
		Status:           entry.Shipment.Status,
		GoodsDescription: entry.Shipment.GoodsDescription,
		Origin:           entry.Shipment.Origin,
		Destination:      entry.Shipment.Destination,
		SupplierName:     entry.SupplierName,
		DriverName:       entry.DriverName,
		UpdatedAt:        entry.Shipment.UpdatedAt,
	}
	if entry.Fix != nil {
		fix := NewFixResponse(entry.Fix)
		resp.Fix = &fix
	}
	return resp
}
