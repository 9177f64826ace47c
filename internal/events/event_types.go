package events

import (
	"time"

	"github.com/spec-kit/shipment-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventShipmentCreated       EventType = "shipment_created"
	EventDriverAssigned        EventType = "driver_assigned"
	EventShipmentStatusChanged EventType = "shipment_status_changed"
	EventGpsFixRecorded        EventType = "gps_fix_recorded"
)

// Actor encapsulates actor metadata for an event. System events (such as the
// auto-advance on first fix) carry no user id.
type Actor struct {
	Type   domain.ActorType `json:"type"`
	UserID *string          `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	ShipmentID string      `json:"shipment_id"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// ShipmentCreatedPayload payload.
type ShipmentCreatedPayload struct {
	TrackingCode     string  `json:"tracking_code"`
	SupplierID       string  `json:"supplier_id"`
	ConsumerID       string  `json:"consumer_id"`
	GoodsDescription string  `json:"goods_description"`
	Origin           string  `json:"origin"`
	Destination      string  `json:"destination"`
}

// DriverAssignedPayload payload.
type DriverAssignedPayload struct {
	DriverID string `json:"driver_id"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.ShipmentStatus `json:"old_status"`
	NewStatus domain.ShipmentStatus `json:"new_status"`
	Note      *string               `json:"note,omitempty"`
	// AutoAdvanced marks the transition emitted by fix ingestion, so the two
	// writes of that one logical operation stay auditable together.
	AutoAdvanced bool `json:"auto_advanced,omitempty"`
}

// GpsFixRecordedPayload payload.
type GpsFixRecordedPayload struct {
	FixID      string    `json:"fix_id"`
	DriverID   string    `json:"driver_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
}
