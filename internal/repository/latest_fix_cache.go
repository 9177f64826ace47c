package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/shipment-tracker/internal/domain"
)

const latestFixKeyPrefix = "latest_fix:"

// LatestFixCache is a write-through Redis cache in front of the latest-fix
// side table. It is advisory: a miss or an unreachable Redis falls back to
// Postgres, and entries are only replaced by a newer recorded-at.
type LatestFixCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestFixCache builds the cache.
func NewLatestFixCache(client *redis.Client, ttl time.Duration) *LatestFixCache {
	return &LatestFixCache{client: client, ttl: ttl}
}

type cachedFix struct {
	ID         string    `json:"id"`
	ShipmentID string    `json:"shipment_id"`
	DriverID   string    `json:"driver_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Heading    *float64  `json:"heading,omitempty"`
	Speed      *float64  `json:"speed,omitempty"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Get returns the cached latest fix, or nil on a miss or unmarshalable entry.
func (c *LatestFixCache) Get(ctx context.Context, shipmentID string) *domain.GpsFix {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, latestFixKeyPrefix+shipmentID).Bytes()
	if err != nil {
		return nil
	}
	var cached cachedFix
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil
	}
	return &domain.GpsFix{
		ID:         cached.ID,
		ShipmentID: cached.ShipmentID,
		DriverID:   cached.DriverID,
		Latitude:   cached.Latitude,
		Longitude:  cached.Longitude,
		Heading:    cached.Heading,
		Speed:      cached.Speed,
		Accuracy:   cached.Accuracy,
		RecordedAt: cached.RecordedAt,
	}
}

// shouldReplace decides whether candidate may overwrite the cached entry:
// only when nothing is cached or the candidate is at least as recent.
func shouldReplace(existing, candidate *domain.GpsFix) bool {
	return existing == nil || !existing.RecordedAt.After(candidate.RecordedAt)
}

// Put stores the fix unless a newer one is already cached. The check-then-set
// is not atomic, so two concurrent Puts can briefly leave the older fix
// cached; the cache is advisory and the TTL plus the read-through against the
// side table bound that window.
func (c *LatestFixCache) Put(ctx context.Context, fix *domain.GpsFix) {
	if c == nil || c.client == nil || fix == nil {
		return
	}
	if !shouldReplace(c.Get(ctx, fix.ShipmentID), fix) {
		return
	}
	payload, err := json.Marshal(cachedFix{
		ID:         fix.ID,
		ShipmentID: fix.ShipmentID,
		DriverID:   fix.DriverID,
		Latitude:   fix.Latitude,
		Longitude:  fix.Longitude,
		Heading:    fix.Heading,
		Speed:      fix.Speed,
		Accuracy:   fix.Accuracy,
		RecordedAt: fix.RecordedAt,
	})
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, latestFixKeyPrefix+fix.ShipmentID, payload, c.ttl).Err()
}
