package domain

import "time"

// ActorType records who drove a status change.
type ActorType string

const (
	ActorTypeUser   ActorType = "USER"
	ActorTypeSystem ActorType = "SYSTEM"
)

// StatusHistoryEntry is an immutable audit record written atomically with
// every status change. Entries are never updated or deleted and replay in
// created-at ascending order.
type StatusHistoryEntry struct {
	ID         string
	ShipmentID string
	NewStatus  ShipmentStatus
	Location   *GeoPoint
	Note       *string
	ActorType  ActorType
	ActorID    *string
	CreatedAt  time.Time
}
