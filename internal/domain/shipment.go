package domain

import "time"

// ShipmentStatus enumerates lifecycle states for shipments.
type ShipmentStatus string

const (
	StatusCreated        ShipmentStatus = "created"
	StatusAssigned       ShipmentStatus = "assigned"
	StatusPickedUp       ShipmentStatus = "picked_up"
	StatusInTransit      ShipmentStatus = "in_transit"
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusCancelled      ShipmentStatus = "cancelled"
)

// ParseShipmentStatus validates a raw status string.
func ParseShipmentStatus(raw string) (ShipmentStatus, bool) {
	switch ShipmentStatus(raw) {
	case StatusCreated, StatusAssigned, StatusPickedUp, StatusInTransit,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return ShipmentStatus(raw), true
	default:
		return "", false
	}
}

// allowedTransitions is the full status graph. The assigned -> in_transit
// edge exists because the first GPS fix advances an un-picked-up shipment
// directly; every other forward edge is a single step. Cancellation is
// reachable from any non-terminal state.
var allowedTransitions = map[ShipmentStatus][]ShipmentStatus{
	StatusCreated:        {StatusAssigned, StatusCancelled},
	StatusAssigned:       {StatusPickedUp, StatusInTransit, StatusCancelled},
	StatusPickedUp:       {StatusInTransit, StatusCancelled},
	StatusInTransit:      {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// CanTransition reports whether current -> next is an edge of the graph.
func CanTransition(current, next ShipmentStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the legal successor states for a status.
func NextStatuses(current ShipmentStatus) []ShipmentStatus {
	next := allowedTransitions[current]
	out := make([]ShipmentStatus, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether no further transition is legal.
func IsTerminal(status ShipmentStatus) bool {
	return status == StatusDelivered || status == StatusCancelled
}

// ActiveStatuses are the states in which a shipment is moving and therefore
// appears in the live view.
var ActiveStatuses = []ShipmentStatus{
	StatusAssigned, StatusPickedUp, StatusInTransit, StatusOutForDelivery,
}

// IsActive reports whether a shipment in this status belongs in the live view.
func IsActive(status ShipmentStatus) bool {
	for _, s := range ActiveStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Shipment is the aggregate root. StatusHistoryEntry and GpsFix rows are
// lifetime-bound to it but appended independently.
type Shipment struct {
	ID               string
	TrackingCode     string
	SupplierID       string
	ConsumerID       string
	DriverID         *string
	Status           ShipmentStatus
	GoodsDescription string
	Origin           string
	Destination      string
	ExpectedDelivery *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
