package service_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/shipment-tracker/internal/domain"
	"github.com/spec-kit/shipment-tracker/internal/events"
	"github.com/spec-kit/shipment-tracker/internal/repository"
	"github.com/spec-kit/shipment-tracker/internal/service"
	apperrors "github.com/spec-kit/shipment-tracker/pkg/util"
)

func newShipmentService(shipments *mockShipmentRepo, users *mockUserRepo, history *mockHistoryRepo, dispatcher events.Dispatcher) *service.ShipmentService {
	return service.NewShipmentService(service.ShipmentDependencies{
		ShipmentRepo: shipments,
		UserRepo:     users,
		HistoryRepo:  history,
		Dispatcher:   dispatcher,
	})
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	return domainErr.Code
}

// ---- Create ----------------------------------------------------------------

func TestCreateShipment_Supplier(t *testing.T) {
	shipments := &mockShipmentRepo{
		create: func(_ context.Context, shipment *domain.Shipment) error {
			shipment.ID = "shp-1"
			return nil
		},
	}
	users := &mockUserRepo{
		getByID: func(_ context.Context, id string) (*domain.User, error) {
			require.Equal(t, "con-1", id)
			return consumerFixture(), nil
		},
	}
	dispatcher := &captureDispatcher{}
	svc := newShipmentService(shipments, users, nil, dispatcher)

	shipment, err := svc.Create(context.Background(), supplierFixture(), service.CreateShipmentInput{
		ConsumerID:       "con-1",
		GoodsDescription: "  pallet of widgets ",
		Origin:           "Rotterdam",
		Destination:      "Berlin",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCreated, shipment.Status)
	assert.Equal(t, "sup-1", shipment.SupplierID)
	assert.Equal(t, "pallet of widgets", shipment.GoodsDescription)
	assert.Regexp(t, regexp.MustCompile(`^SHP-[0-9A-F]{12}$`), shipment.TrackingCode)
	assert.Len(t, dispatcher.ofType(events.EventShipmentCreated), 1)
}

func TestCreateShipment_NonSupplierForbidden(t *testing.T) {
	svc := newShipmentService(nil, nil, nil, nil)

	for _, actor := range []*domain.User{driverFixture(), consumerFixture(), adminFixture()} {
		_, err := svc.Create(context.Background(), actor, service.CreateShipmentInput{ConsumerID: "con-1"})
		assert.Equal(t, "FORBIDDEN", domainCode(t, err), string(actor.Role))
	}
}

func TestCreateShipment_ConsumerValidation(t *testing.T) {
	cases := []struct {
		name     string
		consumer *domain.User
		err      error
	}{
		{"unknown id", nil, pgx.ErrNoRows},
		{"wrong role", driverFixture(), nil},
		{"inactive", &domain.User{ID: "con-1", Role: domain.RoleConsumer, Active: false}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users := &mockUserRepo{
				getByID: func(_ context.Context, _ string) (*domain.User, error) {
					return tc.consumer, tc.err
				},
			}
			svc := newShipmentService(nil, users, nil, nil)

			_, err := svc.Create(context.Background(), supplierFixture(), service.CreateShipmentInput{ConsumerID: "con-1"})
			assert.Equal(t, "CONSUMER_NOT_FOUND", domainCode(t, err))
		})
	}
}

// ---- AssignDriver ----------------------------------------------------------

func TestAssignDriver_Admin(t *testing.T) {
	driver := driverFixture()
	var applied repository.Transition
	shipments := &mockShipmentRepo{
		applyTransition: func(_ context.Context, tr repository.Transition) error {
			applied = tr
			return nil
		},
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusAssigned, &driver.ID), nil
		},
	}
	users := &mockUserRepo{
		getByID: func(_ context.Context, _ string) (*domain.User, error) { return driver, nil },
	}
	dispatcher := &captureDispatcher{}
	svc := newShipmentService(shipments, users, nil, dispatcher)

	shipment, err := svc.AssignDriver(context.Background(), adminFixture(), "shp-1", driver.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCreated, applied.Expected)
	assert.Equal(t, domain.StatusAssigned, applied.Next)
	require.NotNil(t, applied.DriverID)
	assert.Equal(t, driver.ID, *applied.DriverID)
	assert.Equal(t, domain.StatusAssigned, shipment.Status)
	assert.Len(t, dispatcher.ofType(events.EventDriverAssigned), 1)
}

func TestAssignDriver_NonAdminForbidden(t *testing.T) {
	svc := newShipmentService(nil, nil, nil, nil)
	_, err := svc.AssignDriver(context.Background(), supplierFixture(), "shp-1", "drv-1")
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))
}

func TestAssignDriver_DriverUnavailable(t *testing.T) {
	cases := []struct {
		name   string
		driver *domain.User
		err    error
	}{
		{"unknown id", nil, pgx.ErrNoRows},
		{"not a driver", consumerFixture(), nil},
		{"inactive", &domain.User{ID: "drv-1", Role: domain.RoleDriver, Active: false}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users := &mockUserRepo{
				getByID: func(_ context.Context, _ string) (*domain.User, error) {
					return tc.driver, tc.err
				},
			}
			svc := newShipmentService(nil, users, nil, nil)

			_, err := svc.AssignDriver(context.Background(), adminFixture(), "shp-1", "drv-1")
			assert.Equal(t, "DRIVER_UNAVAILABLE", domainCode(t, err))
		})
	}
}

func TestAssignDriver_AlreadyAssigned(t *testing.T) {
	shipments := &mockShipmentRepo{
		applyTransition: func(_ context.Context, _ repository.Transition) error {
			return &repository.StatusConflictError{Current: domain.StatusAssigned}
		},
	}
	users := &mockUserRepo{
		getByID: func(_ context.Context, _ string) (*domain.User, error) { return driverFixture(), nil },
	}
	svc := newShipmentService(shipments, users, nil, nil)

	_, err := svc.AssignDriver(context.Background(), adminFixture(), "shp-1", "drv-1")
	assert.Equal(t, "INVALID_TRANSITION", domainCode(t, err))
}

// ---- AdvanceStatus ---------------------------------------------------------

func TestAdvanceStatus_AssignedDriver(t *testing.T) {
	driver := driverFixture()
	var applied repository.Transition
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusInTransit, &driver.ID), nil
		},
		applyTransition: func(_ context.Context, tr repository.Transition) error {
			applied = tr
			return nil
		},
	}
	dispatcher := &captureDispatcher{}
	svc := newShipmentService(shipments, nil, nil, dispatcher)

	shipment, err := svc.AdvanceStatus(context.Background(), driver, "shp-1", domain.StatusOutForDelivery, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusInTransit, applied.Expected)
	assert.Equal(t, domain.StatusOutForDelivery, shipment.Status)

	changed := dispatcher.ofType(events.EventShipmentStatusChanged)
	require.Len(t, changed, 1)
	payload, ok := changed[0].Payload.(events.StatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.StatusInTransit, payload.OldStatus)
	assert.Equal(t, domain.StatusOutForDelivery, payload.NewStatus)
	assert.False(t, payload.AutoAdvanced)
}

func TestAdvanceStatus_OtherDriverNotAssigned(t *testing.T) {
	assignedID := "drv-9"
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusInTransit, &assignedID), nil
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	_, err := svc.AdvanceStatus(context.Background(), driverFixture(), "shp-1", domain.StatusOutForDelivery, nil, nil)
	assert.Equal(t, "NOT_ASSIGNED", domainCode(t, err))
}

func TestAdvanceStatus_RejectsSkip(t *testing.T) {
	driver := driverFixture()
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusPickedUp, &driver.ID), nil
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	_, err := svc.AdvanceStatus(context.Background(), driver, "shp-1", domain.StatusDelivered, nil, nil)
	assert.Equal(t, "INVALID_TRANSITION", domainCode(t, err))
}

func TestAdvanceStatus_RejectsCancelViaAdvance(t *testing.T) {
	driver := driverFixture()
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusInTransit, &driver.ID), nil
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	_, err := svc.AdvanceStatus(context.Background(), driver, "shp-1", domain.StatusCancelled, nil, nil)
	assert.Equal(t, "INVALID_TRANSITION", domainCode(t, err))
}

func TestAdvanceStatus_TerminalState(t *testing.T) {
	driver := driverFixture()
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusDelivered, &driver.ID), nil
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	_, err := svc.AdvanceStatus(context.Background(), driver, "shp-1", domain.StatusOutForDelivery, nil, nil)
	assert.Equal(t, "TERMINAL_STATE", domainCode(t, err))
}

func TestAdvanceStatus_InvalidCoordinates(t *testing.T) {
	svc := newShipmentService(nil, nil, nil, nil)

	bad := &domain.GeoPoint{Latitude: 95, Longitude: 10}
	_, err := svc.AdvanceStatus(context.Background(), driverFixture(), "shp-1", domain.StatusOutForDelivery, bad, nil)
	assert.Equal(t, "INVALID_COORDINATES", domainCode(t, err))
}

func TestAdvanceStatus_LostRaceMapsToConflict(t *testing.T) {
	driver := driverFixture()
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusInTransit, &driver.ID), nil
		},
		applyTransition: func(_ context.Context, _ repository.Transition) error {
			return &repository.StatusConflictError{Current: domain.StatusOutForDelivery}
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	_, err := svc.AdvanceStatus(context.Background(), driver, "shp-1", domain.StatusOutForDelivery, nil, nil)
	assert.Equal(t, "CONFLICT", domainCode(t, err))
}

func TestAdvanceStatus_LostRaceAgainstCancellation(t *testing.T) {
	driver := driverFixture()
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusInTransit, &driver.ID), nil
		},
		applyTransition: func(_ context.Context, _ repository.Transition) error {
			return &repository.StatusConflictError{Current: domain.StatusCancelled}
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	_, err := svc.AdvanceStatus(context.Background(), driver, "shp-1", domain.StatusOutForDelivery, nil, nil)
	assert.Equal(t, "TERMINAL_STATE", domainCode(t, err))
}

// ---- Cancel ----------------------------------------------------------------

func TestCancel_OwningSupplier(t *testing.T) {
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusCreated, nil), nil
		},
		applyTransition: func(_ context.Context, tr repository.Transition) error {
			assert.Equal(t, domain.StatusCancelled, tr.Next)
			return nil
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	shipment, err := svc.Cancel(context.Background(), supplierFixture(), "shp-1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, shipment.Status)
}

func TestCancel_NonOwnerSupplierGetsNotFound(t *testing.T) {
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusCreated, nil), nil
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	other := &domain.User{ID: "sup-2", Role: domain.RoleSupplier, Active: true}
	_, err := svc.Cancel(context.Background(), other, "shp-1", nil)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestCancel_DeliveredIsTerminal(t *testing.T) {
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusDelivered, nil), nil
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	_, err := svc.Cancel(context.Background(), adminFixture(), "shp-1", nil)
	assert.Equal(t, "TERMINAL_STATE", domainCode(t, err))
}

// ---- visibility ------------------------------------------------------------

func TestList_ScopesByRole(t *testing.T) {
	var seen repository.ShipmentFilter
	shipments := &mockShipmentRepo{
		list: func(_ context.Context, filter repository.ShipmentFilter) ([]domain.Shipment, error) {
			seen = filter
			return nil, nil
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	_, err := svc.List(context.Background(), supplierFixture(), service.ShipmentListFilter{})
	require.NoError(t, err)
	require.NotNil(t, seen.SupplierID)
	assert.Equal(t, "sup-1", *seen.SupplierID)

	_, err = svc.List(context.Background(), driverFixture(), service.ShipmentListFilter{})
	require.NoError(t, err)
	require.NotNil(t, seen.DriverID)
	assert.Equal(t, "drv-1", *seen.DriverID)

	_, err = svc.List(context.Background(), adminFixture(), service.ShipmentListFilter{})
	require.NoError(t, err)
	assert.Nil(t, seen.SupplierID)
	assert.Nil(t, seen.DriverID)
	assert.Nil(t, seen.ConsumerID)
}

func TestGetForActor_OutsiderGetsNotFound(t *testing.T) {
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusInTransit, nil), nil
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	outsider := &domain.User{ID: "con-9", Role: domain.RoleConsumer, Active: true}
	_, _, err := svc.GetForActor(context.Background(), outsider, "shp-1")
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestGetForActor_ConsumerSeesOwnShipment(t *testing.T) {
	shipments := &mockShipmentRepo{
		getByID: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return shipmentFixture(domain.StatusInTransit, nil), nil
		},
	}
	history := &mockHistoryRepo{
		listByShipment: func(_ context.Context, _ string, _ int) ([]domain.StatusHistoryEntry, error) {
			return []domain.StatusHistoryEntry{{NewStatus: domain.StatusCreated}}, nil
		},
	}
	svc := newShipmentService(shipments, nil, history, nil)

	shipment, entries, err := svc.GetForActor(context.Background(), consumerFixture(), "shp-1")
	require.NoError(t, err)
	assert.Equal(t, "shp-1", shipment.ID)
	assert.Len(t, entries, 1)
}

// ---- public tracking -------------------------------------------------------

func TestTrackByCode_UnknownCode(t *testing.T) {
	shipments := &mockShipmentRepo{
		getByTrackingCode: func(_ context.Context, _ string) (*domain.Shipment, error) {
			return nil, pgx.ErrNoRows
		},
	}
	svc := newShipmentService(shipments, nil, nil, nil)

	_, err := svc.TrackByCode(context.Background(), "SHP-DOESNOTEXIST")
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestTrackByCode_ResolvesNames(t *testing.T) {
	driver := driverFixture()
	shipments := &mockShipmentRepo{
		getByTrackingCode: func(_ context.Context, code string) (*domain.Shipment, error) {
			assert.Equal(t, "SHP-ABCDEF123456", code)
			return shipmentFixture(domain.StatusInTransit, &driver.ID), nil
		},
	}
	users := &mockUserRepo{
		getByID: func(_ context.Context, id string) (*domain.User, error) {
			switch id {
			case "sup-1":
				return supplierFixture(), nil
			case driver.ID:
				return driver, nil
			}
			return nil, pgx.ErrNoRows
		},
	}
	history := &mockHistoryRepo{
		listByShipment: func(_ context.Context, _ string, _ int) ([]domain.StatusHistoryEntry, error) {
			return nil, nil
		},
	}
	svc := newShipmentService(shipments, users, history, nil)

	result, err := svc.TrackByCode(context.Background(), " SHP-ABCDEF123456 ")
	require.NoError(t, err)
	assert.Equal(t, "Acme Logistics", result.SupplierName)
	require.NotNil(t, result.DriverName)
	assert.Equal(t, "Dana Driver", *result.DriverName)
}
