package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/shipment-tracker/internal/domain"
)

// StatusConflictError is returned when a conditional transition finds the
// shipment in a different status than the caller observed. The second of two
// racing writers sees this and is re-evaluated against the committed state.
type StatusConflictError struct {
	Current domain.ShipmentStatus
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("shipment status changed concurrently, now %s", e.Current)
}

// Transition describes one atomic status change: the conditional shipment
// update plus its history entry commit together or not at all.
type Transition struct {
	ShipmentID string
	Expected   domain.ShipmentStatus
	Next       domain.ShipmentStatus
	DriverID   *string
	ActorType  domain.ActorType
	ActorID    *string
	Location   *domain.GeoPoint
	Note       *string
}

// ShipmentFilter captures listing parameters.
type ShipmentFilter struct {
	SupplierID *string
	DriverID   *string
	ConsumerID *string
	Statuses   []domain.ShipmentStatus
	Limit      int
	Offset     int
}

// ShipmentRepository encapsulates shipment persistence.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *domain.Shipment) error
	GetByID(ctx context.Context, id string) (*domain.Shipment, error)
	GetByTrackingCode(ctx context.Context, code string) (*domain.Shipment, error)
	List(ctx context.Context, filter ShipmentFilter) ([]domain.Shipment, error)
	ApplyTransition(ctx context.Context, t Transition) error
}

type shipmentRepository struct {
	pool *pgxpool.Pool
}

// NewShipmentRepository instantiates repository.
func NewShipmentRepository(pool *pgxpool.Pool) ShipmentRepository {
	return &shipmentRepository{pool: pool}
}

const shipmentColumns = `id, tracking_code, supplier_id, consumer_id, driver_id, status,
               goods_description, origin, destination, expected_delivery, created_at, updated_at`

// Create inserts the shipment and its initial history entry in one transaction.
func (r *shipmentRepository) Create(ctx context.Context, shipment *domain.Shipment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO shipments (tracking_code, supplier_id, consumer_id, status, goods_description, origin, destination, expected_delivery)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		shipment.TrackingCode,
		shipment.SupplierID,
		shipment.ConsumerID,
		shipment.Status,
		shipment.GoodsDescription,
		shipment.Origin,
		shipment.Destination,
		shipment.ExpectedDelivery,
	).Scan(&shipment.ID, &shipment.CreatedAt, &shipment.UpdatedAt); err != nil {
		return err
	}

	entry := &domain.StatusHistoryEntry{
		ShipmentID: shipment.ID,
		NewStatus:  shipment.Status,
		ActorType:  domain.ActorTypeUser,
		ActorID:    &shipment.SupplierID,
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *shipmentRepository) GetByID(ctx context.Context, id string) (*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *shipmentRepository) GetByTrackingCode(ctx context.Context, code string) (*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE tracking_code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *shipmentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Shipment, error) {
	var shipment domain.Shipment
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&shipment.ID,
		&shipment.TrackingCode,
		&shipment.SupplierID,
		&shipment.ConsumerID,
		&shipment.DriverID,
		&shipment.Status,
		&shipment.GoodsDescription,
		&shipment.Origin,
		&shipment.Destination,
		&shipment.ExpectedDelivery,
		&shipment.CreatedAt,
		&shipment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *shipmentRepository) List(ctx context.Context, filter ShipmentFilter) ([]domain.Shipment, error) {
	base := `SELECT ` + shipmentColumns + ` FROM shipments`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SupplierID != nil {
		args = append(args, *filter.SupplierID)
		clauses = append(clauses, fmt.Sprintf("supplier_id=$%d", len(args)))
	}
	if filter.DriverID != nil {
		args = append(args, *filter.DriverID)
		clauses = append(clauses, fmt.Sprintf("driver_id=$%d", len(args)))
	}
	if filter.ConsumerID != nil {
		args = append(args, *filter.ConsumerID)
		clauses = append(clauses, fmt.Sprintf("consumer_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC, id ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanShipments(rows)
}

// ApplyTransition performs the conditional status update keyed on the
// expected prior status. Zero rows affected on an existing shipment means a
// concurrent writer got there first; the caller receives StatusConflictError
// with the committed status and nothing is written.
func (r *shipmentRepository) ApplyTransition(ctx context.Context, t Transition) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const update = `
        UPDATE shipments SET status=$1, driver_id=COALESCE($2, driver_id), updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := tx.Exec(ctx, update, t.Next, t.DriverID, t.ShipmentID, t.Expected)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var current domain.ShipmentStatus
		if err := tx.QueryRow(ctx, `SELECT status FROM shipments WHERE id=$1`, t.ShipmentID).Scan(&current); err != nil {
			return err
		}
		return &StatusConflictError{Current: current}
	}

	entry := &domain.StatusHistoryEntry{
		ShipmentID: t.ShipmentID,
		NewStatus:  t.Next,
		Location:   t.Location,
		Note:       t.Note,
		ActorType:  t.ActorType,
		ActorID:    t.ActorID,
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanShipments(rows pgx.Rows) ([]domain.Shipment, error) {
	var result []domain.Shipment
	for rows.Next() {
		var shipment domain.Shipment
		if err := rows.Scan(
			&shipment.ID,
			&shipment.TrackingCode,
			&shipment.SupplierID,
			&shipment.ConsumerID,
			&shipment.DriverID,
			&shipment.Status,
			&shipment.GoodsDescription,
			&shipment.Origin,
			&shipment.Destination,
			&shipment.ExpectedDelivery,
			&shipment.CreatedAt,
			&shipment.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, shipment)
	}
	return result, rows.Err()
}
