package service_test

import (
	"context"
	"sync"

	"github.com/spec-kit/shipment-tracker/internal/domain"
	"github.com/spec-kit/shipment-tracker/internal/events"
	"github.com/spec-kit/shipment-tracker/internal/repository"
)

// Test doubles with function fields. Set only the methods a test needs; an
// unset method that gets called panics, which is the failure we want.

type mockShipmentRepo struct {
	create            func(ctx context.Context, shipment *domain.Shipment) error
	getByID           func(ctx context.Context, id string) (*domain.Shipment, error)
	getByTrackingCode func(ctx context.Context, code string) (*domain.Shipment, error)
	list              func(ctx context.Context, filter repository.ShipmentFilter) ([]domain.Shipment, error)
	applyTransition   func(ctx context.Context, t repository.Transition) error
}

func (m *mockShipmentRepo) Create(ctx context.Context, shipment *domain.Shipment) error {
	return m.create(ctx, shipment)
}
func (m *mockShipmentRepo) GetByID(ctx context.Context, id string) (*domain.Shipment, error) {
	return m.getByID(ctx, id)
}
func (m *mockShipmentRepo) GetByTrackingCode(ctx context.Context, code string) (*domain.Shipment, error) {
	return m.getByTrackingCode(ctx, code)
}
func (m *mockShipmentRepo) List(ctx context.Context, filter repository.ShipmentFilter) ([]domain.Shipment, error) {
	return m.list(ctx, filter)
}
func (m *mockShipmentRepo) ApplyTransition(ctx context.Context, t repository.Transition) error {
	return m.applyTransition(ctx, t)
}

var _ repository.ShipmentRepository = (*mockShipmentRepo)(nil)

type mockUserRepo struct {
	create      func(ctx context.Context, user *domain.User) error
	update      func(ctx context.Context, user *domain.User) error
	deactivate  func(ctx context.Context, id string) error
	getByID     func(ctx context.Context, id string) (*domain.User, error)
	getByEmail  func(ctx context.Context, email string) (*domain.User, error)
	countByRole func(ctx context.Context) (map[domain.Role]int64, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.create(ctx, user)
}
func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	return m.update(ctx, user)
}
func (m *mockUserRepo) Deactivate(ctx context.Context, id string) error {
	return m.deactivate(ctx, id)
}
func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return m.getByID(ctx, id)
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.getByEmail(ctx, email)
}
func (m *mockUserRepo) CountByRole(ctx context.Context) (map[domain.Role]int64, error) {
	return m.countByRole(ctx)
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

type mockHistoryRepo struct {
	listByShipment func(ctx context.Context, shipmentID string, limit int) ([]domain.StatusHistoryEntry, error)
}

func (m *mockHistoryRepo) ListByShipment(ctx context.Context, shipmentID string, limit int) ([]domain.StatusHistoryEntry, error) {
	return m.listByShipment(ctx, shipmentID, limit)
}

var _ repository.HistoryRepository = (*mockHistoryRepo)(nil)

type mockFixRepo struct {
	record         func(ctx context.Context, fix *domain.GpsFix) (bool, error)
	latest         func(ctx context.Context, shipmentID string) (*domain.GpsFix, error)
	listByShipment func(ctx context.Context, shipmentID string, limit int) ([]domain.GpsFix, error)
}

func (m *mockFixRepo) Record(ctx context.Context, fix *domain.GpsFix) (bool, error) {
	return m.record(ctx, fix)
}
func (m *mockFixRepo) Latest(ctx context.Context, shipmentID string) (*domain.GpsFix, error) {
	return m.latest(ctx, shipmentID)
}
func (m *mockFixRepo) ListByShipment(ctx context.Context, shipmentID string, limit int) ([]domain.GpsFix, error) {
	return m.listByShipment(ctx, shipmentID, limit)
}

var _ repository.GpsFixRepository = (*mockFixRepo)(nil)

type mockLiveViewRepo struct {
	snapshot func(ctx context.Context, scope repository.LiveScope) ([]domain.LiveEntry, error)
}

func (m *mockLiveViewRepo) Snapshot(ctx context.Context, scope repository.LiveScope) ([]domain.LiveEntry, error) {
	return m.snapshot(ctx, scope)
}

var _ repository.LiveViewRepository = (*mockLiveViewRepo)(nil)

// captureDispatcher records every published event for assertion.
type captureDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) events() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.published...)
}

func (d *captureDispatcher) ofType(eventType events.EventType) []events.Event {
	var matched []events.Event
	for _, event := range d.events() {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

var _ events.Dispatcher = (*captureDispatcher)(nil)

// ---- fixtures --------------------------------------------------------------

func supplierFixture() *domain.User {
	return &domain.User{ID: "sup-1", Name: "Acme Logistics", Role: domain.RoleSupplier, Active: true}
}

func driverFixture() *domain.User {
	return &domain.User{ID: "drv-1", Name: "Dana Driver", Role: domain.RoleDriver, Active: true}
}

func consumerFixture() *domain.User {
	return &domain.User{ID: "con-1", Name: "Carl Consumer", Role: domain.RoleConsumer, Active: true}
}

func adminFixture() *domain.User {
	return &domain.User{ID: "adm-1", Name: "Ada Admin", Role: domain.RoleAdmin, Active: true}
}

func shipmentFixture(status domain.ShipmentStatus, driverID *string) *domain.Shipment {
	return &domain.Shipment{
		ID:               "shp-1",
		TrackingCode:     "SHP-ABCDEF123456",
		SupplierID:       "sup-1",
		ConsumerID:       "con-1",
		DriverID:         driverID,
		Status:           status,
		GoodsDescription: "pallet of widgets",
		Origin:           "Rotterdam",
		Destination:      "Berlin",
	}
}
