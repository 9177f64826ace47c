package dto

import (
	"time"

	"github.com/spec-kit/shipment-tracker/internal/domain"
)

// PublicTrackingResponse is the unauthenticated lookup projection. Supplier
// and driver appear as display names only; no identifiers or contact fields
// of either party are exposed.
type PublicTrackingResponse struct {
	TrackingCode     string                 `json:"tracking_code"`
	Status           domain.ShipmentStatus  `json:"status"`
	GoodsDescription string                 `json:"goods_description"`
	Origin           string                 `json:"origin"`
	Destination      string                 `json:"destination"`
	ExpectedDelivery *time.Time             `json:"expected_delivery,omitempty"`
	SupplierName     string                 `json:"supplier_name"`
	DriverName       *string                `json:"driver_name,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	History          []HistoryEntryResponse `json:"history"`
}
