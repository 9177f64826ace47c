package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/shipment-tracker/internal/auth"
	"github.com/spec-kit/shipment-tracker/internal/domain"
	"github.com/spec-kit/shipment-tracker/internal/events"
	"github.com/spec-kit/shipment-tracker/internal/repository"
	apperrors "github.com/spec-kit/shipment-tracker/pkg/util"
)

// PositionService is the position store: append-only fix ingestion plus the
// latest-fix and ordered-history reads. Ingestion carries one documented
// coupling to the state machine: a fix against a shipment still in assigned
// or picked_up advances it to in_transit, inside the same transaction as the
// fix insert and the latest-fix materialization.
type PositionService struct {
	fixes      repository.GpsFixRepository
	cache      *repository.LatestFixCache
	dispatcher events.Dispatcher
	timeout    time.Duration
	maxHistory int
}

// PositionDependencies bundles collaborators for the service.
type PositionDependencies struct {
	FixRepo    repository.GpsFixRepository
	Cache      *repository.LatestFixCache
	Dispatcher events.Dispatcher
	Timeout    time.Duration
	MaxHistory int
}

// RecordFixInput describes a position report from a driver device.
type RecordFixInput struct {
	ShipmentID string
	Latitude   float64
	Longitude  float64
	Heading    *float64
	Speed      *float64
	Accuracy   *float64
	RecordedAt *time.Time
}

// NewPositionService constructs the service.
func NewPositionService(deps PositionDependencies) *PositionService {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxHistory := deps.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 50
	}
	return &PositionService{
		fixes:      deps.FixRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		timeout:    timeout,
		maxHistory: maxHistory,
	}
}

// RecordFix ingests one fix from the shipment's assigned driver.
func (s *PositionService) RecordFix(ctx context.Context, actor *domain.User, input RecordFixInput) (*domain.GpsFix, error) {
	if err := auth.RequireRole(actor, domain.RoleDriver); err != nil {
		return nil, err
	}
	point := domain.GeoPoint{Latitude: input.Latitude, Longitude: input.Longitude}
	if !point.Valid() {
		return nil, apperrors.NewInvalidCoordinates(input.Latitude, input.Longitude)
	}

	recordedAt := time.Now().UTC()
	if input.RecordedAt != nil && !input.RecordedAt.IsZero() {
		recordedAt = input.RecordedAt.UTC()
	}
	fix := &domain.GpsFix{
		ShipmentID: input.ShipmentID,
		DriverID:   actor.ID,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		Heading:    input.Heading,
		Speed:      input.Speed,
		Accuracy:   input.Accuracy,
		RecordedAt: recordedAt,
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	autoAdvanced, err := s.fixes.Record(opCtx, fix)
	if err != nil {
		if errors.Is(err, repository.ErrNotAssigned) {
			return nil, apperrors.NewNotAssigned(input.ShipmentID)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("shipment", map[string]any{"shipment_id": input.ShipmentID})
		}
		return nil, apperrors.MapError(err)
	}

	// Cache write happens after commit; it is advisory and never part of the
	// transaction's atomicity.
	s.cache.Put(ctx, fix)

	s.publish(ctx, events.Event{
		Type:       events.EventGpsFixRecorded,
		ShipmentID: fix.ShipmentID,
		Actor:      userActor(actor.ID),
		Payload: events.GpsFixRecordedPayload{
			FixID:      fix.ID,
			DriverID:   fix.DriverID,
			Latitude:   fix.Latitude,
			Longitude:  fix.Longitude,
			RecordedAt: fix.RecordedAt,
		},
	})
	if autoAdvanced {
		s.publish(ctx, events.Event{
			Type:       events.EventShipmentStatusChanged,
			ShipmentID: fix.ShipmentID,
			Actor:      systemActor(),
			Payload: events.StatusChangedPayload{
				NewStatus:    domain.StatusInTransit,
				AutoAdvanced: true,
			},
		})
	}
	return fix, nil
}

// CurrentLocation returns the fix with the maximum recorded-at for the
// shipment: Redis read-through first, then the materialized side table.
func (s *PositionService) CurrentLocation(ctx context.Context, actor *domain.User, shipmentID string) (*domain.GpsFix, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}

	if fix := s.cache.Get(ctx, shipmentID); fix != nil {
		return fix, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fix, err := s.fixes.Latest(opCtx, shipmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("gps data", map[string]any{"shipment_id": shipmentID})
		}
		return nil, apperrors.MapError(err)
	}
	s.cache.Put(ctx, fix)
	return fix, nil
}

// History returns up to limit most recent fixes, ordered oldest to newest
// for route replay.
func (s *PositionService) History(ctx context.Context, actor *domain.User, shipmentID string, limit int) ([]domain.GpsFix, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	if limit <= 0 || limit > s.maxHistory {
		limit = s.maxHistory
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fixes, err := s.fixes.ListByShipment(opCtx, shipmentID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return fixes, nil
}

func (s *PositionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
