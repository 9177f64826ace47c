package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/shipment-tracker/internal/auth"
	"github.com/spec-kit/shipment-tracker/internal/domain"
	"github.com/spec-kit/shipment-tracker/internal/events"
	"github.com/spec-kit/shipment-tracker/internal/repository"
	apperrors "github.com/spec-kit/shipment-tracker/pkg/util"
)

// ShipmentService owns the shipment lifecycle: creation, driver assignment,
// status transitions and the public tracking lookup. Every transition is one
// atomic unit (status update + history entry); concurrent transitions on the
// same shipment serialize through the repository's conditional update.
type ShipmentService struct {
	shipments  repository.ShipmentRepository
	users      repository.UserRepository
	history    repository.HistoryRepository
	dispatcher events.Dispatcher
	timeout    time.Duration
}

// ShipmentDependencies bundles repositories for the service.
type ShipmentDependencies struct {
	ShipmentRepo repository.ShipmentRepository
	UserRepo     repository.UserRepository
	HistoryRepo  repository.HistoryRepository
	Dispatcher   events.Dispatcher
	Timeout      time.Duration
}

// CreateShipmentInput describes shipment creation payload.
type CreateShipmentInput struct {
	ConsumerID       string
	GoodsDescription string
	Origin           string
	Destination      string
	ExpectedDelivery *time.Time
}

// ShipmentListFilter describes listing filters; scope comes from the actor's role.
type ShipmentListFilter struct {
	Statuses []domain.ShipmentStatus
	Limit    int
	Offset   int
}

// PublicTracking is the unauthenticated lookup result: display fields only.
type PublicTracking struct {
	Shipment     *domain.Shipment
	SupplierName string
	DriverName   *string
	History      []domain.StatusHistoryEntry
}

// NewShipmentService constructs the service.
func NewShipmentService(deps ShipmentDependencies) *ShipmentService {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ShipmentService{
		shipments:  deps.ShipmentRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		timeout:    timeout,
	}
}

// Create registers a new shipment for a supplier.
func (s *ShipmentService) Create(ctx context.Context, actor *domain.User, input CreateShipmentInput) (*domain.Shipment, error) {
	if err := auth.RequireRole(actor, domain.RoleSupplier); err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	consumer, err := s.users.GetByID(ctx, input.ConsumerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConsumerNotFound(input.ConsumerID)
		}
		return nil, apperrors.MapError(err)
	}
	if consumer.Role != domain.RoleConsumer || !consumer.Active {
		return nil, apperrors.NewConsumerNotFound(input.ConsumerID)
	}

	shipment := &domain.Shipment{
		TrackingCode:     newTrackingCode(),
		SupplierID:       actor.ID,
		ConsumerID:       consumer.ID,
		Status:           domain.StatusCreated,
		GoodsDescription: strings.TrimSpace(input.GoodsDescription),
		Origin:           strings.TrimSpace(input.Origin),
		Destination:      strings.TrimSpace(input.Destination),
		ExpectedDelivery: input.ExpectedDelivery,
	}
	if err := s.shipments.Create(ctx, shipment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventShipmentCreated,
		ShipmentID: shipment.ID,
		Actor:      userActor(actor.ID),
		Payload: events.ShipmentCreatedPayload{
			TrackingCode:     shipment.TrackingCode,
			SupplierID:       shipment.SupplierID,
			ConsumerID:       shipment.ConsumerID,
			GoodsDescription: shipment.GoodsDescription,
			Origin:           shipment.Origin,
			Destination:      shipment.Destination,
		},
	})
	return shipment, nil
}

// AssignDriver moves a created shipment to assigned and binds the driver.
// Admin only; legal only from created.
func (s *ShipmentService) AssignDriver(ctx context.Context, actor *domain.User, shipmentID, driverID string) (*domain.Shipment, error) {
	if err := auth.RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	driver, err := s.users.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewDriverUnavailable(driverID)
		}
		return nil, apperrors.MapError(err)
	}
	if driver.Role != domain.RoleDriver || !driver.Active {
		return nil, apperrors.NewDriverUnavailable(driverID)
	}

	transition := repository.Transition{
		ShipmentID: shipmentID,
		Expected:   domain.StatusCreated,
		Next:       domain.StatusAssigned,
		DriverID:   &driver.ID,
		ActorType:  domain.ActorTypeUser,
		ActorID:    &actor.ID,
	}
	if err := s.shipments.ApplyTransition(ctx, transition); err != nil {
		var conflict *repository.StatusConflictError
		if errors.As(err, &conflict) {
			return nil, apperrors.NewInvalidTransition(string(conflict.Current), string(domain.StatusAssigned),
				statusNames(domain.NextStatuses(conflict.Current)))
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("shipment", map[string]any{"shipment_id": shipmentID})
		}
		return nil, apperrors.MapError(err)
	}

	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:       events.EventDriverAssigned,
		ShipmentID: shipment.ID,
		Actor:      userActor(actor.ID),
		Payload:    events.DriverAssignedPayload{DriverID: driver.ID},
	})
	return shipment, nil
}

// AdvanceStatus moves the shipment one step forward, driven by its assigned
// driver. The transition graph is validated in full; skipping states is
// rejected. The write is conditional on the status the driver observed, so a
// racing transition surfaces as Conflict (or TerminalState when the race
// ended the shipment).
func (s *ShipmentService) AdvanceStatus(ctx context.Context, actor *domain.User, shipmentID string, next domain.ShipmentStatus, location *domain.GeoPoint, note *string) (*domain.Shipment, error) {
	if err := auth.RequireRole(actor, domain.RoleDriver); err != nil {
		return nil, err
	}
	if location != nil && !location.Valid() {
		return nil, apperrors.NewInvalidCoordinates(location.Latitude, location.Longitude)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("shipment", map[string]any{"shipment_id": shipmentID})
		}
		return nil, apperrors.MapError(err)
	}
	if shipment.DriverID == nil || *shipment.DriverID != actor.ID {
		return nil, apperrors.NewNotAssigned(shipmentID)
	}
	if domain.IsTerminal(shipment.Status) {
		return nil, apperrors.NewTerminalState(string(shipment.Status))
	}
	if next == domain.StatusCancelled || !domain.CanTransition(shipment.Status, next) {
		return nil, apperrors.NewInvalidTransition(string(shipment.Status), string(next),
			statusNames(forwardStatuses(shipment.Status)))
	}

	transition := repository.Transition{
		ShipmentID: shipmentID,
		Expected:   shipment.Status,
		Next:       next,
		ActorType:  domain.ActorTypeUser,
		ActorID:    &actor.ID,
		Location:   location,
		Note:       note,
	}
	if err := s.shipments.ApplyTransition(ctx, transition); err != nil {
		return nil, mapTransitionConflict(err, shipmentID)
	}

	oldStatus := shipment.Status
	shipment.Status = next
	s.publishEvent(ctx, events.Event{
		Type:       events.EventShipmentStatusChanged,
		ShipmentID: shipment.ID,
		Actor:      userActor(actor.ID),
		Payload: events.StatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: next,
			Note:      note,
		},
	})
	return shipment, nil
}

// Cancel moves a shipment to cancelled from any non-terminal state. Allowed
// for the owning supplier or an admin.
func (s *ShipmentService) Cancel(ctx context.Context, actor *domain.User, shipmentID string, note *string) (*domain.Shipment, error) {
	if err := auth.RequireRole(actor, domain.RoleSupplier, domain.RoleAdmin); err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("shipment", map[string]any{"shipment_id": shipmentID})
		}
		return nil, apperrors.MapError(err)
	}
	if actor.Role == domain.RoleSupplier && shipment.SupplierID != actor.ID {
		// Existence must not leak to non-owners.
		return nil, apperrors.NewNotFound("shipment", map[string]any{"shipment_id": shipmentID})
	}
	if domain.IsTerminal(shipment.Status) {
		return nil, apperrors.NewTerminalState(string(shipment.Status))
	}

	transition := repository.Transition{
		ShipmentID: shipmentID,
		Expected:   shipment.Status,
		Next:       domain.StatusCancelled,
		ActorType:  domain.ActorTypeUser,
		ActorID:    &actor.ID,
		Note:       note,
	}
	if err := s.shipments.ApplyTransition(ctx, transition); err != nil {
		return nil, mapTransitionConflict(err, shipmentID)
	}

	oldStatus := shipment.Status
	shipment.Status = domain.StatusCancelled
	s.publishEvent(ctx, events.Event{
		Type:       events.EventShipmentStatusChanged,
		ShipmentID: shipment.ID,
		Actor:      userActor(actor.ID),
		Payload: events.StatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: domain.StatusCancelled,
			Note:      note,
		},
	})
	return shipment, nil
}

// List returns shipments visible to the actor, scoped by role.
func (s *ShipmentService) List(ctx context.Context, actor *domain.User, filter ShipmentListFilter) ([]domain.Shipment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	repoFilter := repository.ShipmentFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	switch actor.Role {
	case domain.RoleSupplier:
		repoFilter.SupplierID = &actor.ID
	case domain.RoleDriver:
		repoFilter.DriverID = &actor.ID
	case domain.RoleConsumer:
		repoFilter.ConsumerID = &actor.ID
	case domain.RoleAdmin:
		// unscoped
	}
	shipments, err := s.shipments.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return shipments, nil
}

// GetForActor fetches a shipment with its status history, enforcing
// visibility. Callers outside the shipment's parties get NotFound, never
// Forbidden, so existence does not leak.
func (s *ShipmentService) GetForActor(ctx context.Context, actor *domain.User, shipmentID string) (*domain.Shipment, []domain.StatusHistoryEntry, error) {
	if actor == nil {
		return nil, nil, apperrors.NewUnauthenticated("authentication required")
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("shipment", map[string]any{"shipment_id": shipmentID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !actorCanSee(actor, shipment) {
		return nil, nil, apperrors.NewNotFound("shipment", map[string]any{"shipment_id": shipmentID})
	}

	history, err := s.history.ListByShipment(ctx, shipment.ID, 0)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return shipment, history, nil
}

// History returns the status audit trail for a visible shipment.
func (s *ShipmentService) History(ctx context.Context, actor *domain.User, shipmentID string, limit int) ([]domain.StatusHistoryEntry, error) {
	shipment, _, err := s.GetForActor(ctx, actor, shipmentID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	history, err := s.history.ListByShipment(ctx, shipment.ID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return history, nil
}

// TrackByCode is the only unauthenticated entry point. Unknown codes return
// NotFound with the same shape an unauthorized private lookup would produce.
func (s *ShipmentService) TrackByCode(ctx context.Context, code string) (*PublicTracking, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	shipment, err := s.shipments.GetByTrackingCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("shipment", map[string]any{"tracking_code": code})
		}
		return nil, apperrors.MapError(err)
	}

	history, err := s.history.ListByShipment(ctx, shipment.ID, 0)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &PublicTracking{Shipment: shipment, History: history}
	if supplier, err := s.users.GetByID(ctx, shipment.SupplierID); err == nil {
		result.SupplierName = supplier.Name
	}
	if shipment.DriverID != nil {
		if driver, err := s.users.GetByID(ctx, *shipment.DriverID); err == nil {
			result.DriverName = &driver.Name
		}
	}
	return result, nil
}

func (s *ShipmentService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *ShipmentService) publishEvent(ctx context.Context, event events.Event) {
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

func actorCanSee(actor *domain.User, shipment *domain.Shipment) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleSupplier:
		return shipment.SupplierID == actor.ID
	case domain.RoleConsumer:
		return shipment.ConsumerID == actor.ID
	case domain.RoleDriver:
		return shipment.DriverID != nil && *shipment.DriverID == actor.ID
	default:
		return false
	}
}

// mapTransitionConflict translates a lost conditional update into the error
// consistent with the committed post-state.
func mapTransitionConflict(err error, shipmentID string) error {
	var conflict *repository.StatusConflictError
	if errors.As(err, &conflict) {
		if domain.IsTerminal(conflict.Current) {
			return apperrors.NewTerminalState(string(conflict.Current))
		}
		return apperrors.NewConflict("shipment status changed concurrently", map[string]any{
			"shipment_id":    shipmentID,
			"current_status": string(conflict.Current),
		})
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("shipment", map[string]any{"shipment_id": shipmentID})
	}
	return apperrors.MapError(err)
}

func forwardStatuses(current domain.ShipmentStatus) []domain.ShipmentStatus {
	var forward []domain.ShipmentStatus
	for _, next := range domain.NextStatuses(current) {
		if next != domain.StatusCancelled {
			forward = append(forward, next)
		}
	}
	return forward
}

func statusNames(statuses []domain.ShipmentStatus) []string {
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	return names
}

func userActor(userID string) events.Actor {
	return events.Actor{Type: domain.ActorTypeUser, UserID: &userID}
}

func systemActor() events.Actor {
	return events.Actor{Type: domain.ActorTypeSystem}
}

func newTrackingCode() string {
	return "SHP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
