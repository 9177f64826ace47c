package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/shipment-tracker/internal/domain"
)

// LiveScope bounds the aggregation view: admin sees everything, a supplier
// only their own shipments.
type LiveScope struct {
	SupplierID *string
	Limit      int
}

// LiveViewRepository serves the live aggregation view by joining shipments
// against the maintained latest-fix side table. Per-shipment cost is one
// index lookup, independent of fix history size.
type LiveViewRepository interface {
	Snapshot(ctx context.Context, scope LiveScope) ([]domain.LiveEntry, error)
}

type liveViewRepository struct {
	pool *pgxpool.Pool
}

// NewLiveViewRepository instantiates repository.
func NewLiveViewRepository(pool *pgxpool.Pool) LiveViewRepository {
	return &liveViewRepository{pool: pool}
}

func (r *liveViewRepository) Snapshot(ctx context.Context, scope LiveScope) ([]domain.LiveEntry, error) {
	limit := scope.Limit
	if limit <= 0 {
		limit = 500
	}

	statuses := make([]string, len(domain.ActiveStatuses))
	for i, s := range domain.ActiveStatuses {
		statuses[i] = string(s)
	}

	query := `
        SELECT s.id, s.tracking_code, s.supplier_id, s.consumer_id, s.driver_id, s.status,
               s.goods_description, s.origin, s.destination, s.expected_delivery, s.created_at, s.updated_at,
               sup.name, drv.name,
               f.fix_id, f.latitude, f.longitude, f.heading, f.speed, f.accuracy, f.recorded_at
        FROM shipments s
        JOIN users sup ON sup.id = s.supplier_id
        LEFT JOIN users drv ON drv.id = s.driver_id
        LEFT JOIN shipment_latest_fix f ON f.shipment_id = s.id
        WHERE s.status = ANY($1)`
	args := []any{statuses}
	if scope.SupplierID != nil {
		args = append(args, *scope.SupplierID)
		query += ` AND s.supplier_id = $2`
	}
	query += ` ORDER BY COALESCE(f.recorded_at, s.updated_at) DESC, s.id ASC`
	args = append(args, limit)
	if scope.SupplierID != nil {
		query += ` LIMIT $3`
	} else {
		query += ` LIMIT $2`
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.LiveEntry
	for rows.Next() {
		var entry domain.LiveEntry
		var fixID *string
		var lat, lon, heading, speed, accuracy *float64
		var recordedAt *time.Time
		if err := rows.Scan(
			&entry.Shipment.ID,
			&entry.Shipment.TrackingCode,
			&entry.Shipment.SupplierID,
			&entry.Shipment.ConsumerID,
			&entry.Shipment.DriverID,
			&entry.Shipment.Status,
			&entry.Shipment.GoodsDescription,
			&entry.Shipment.Origin,
			&entry.Shipment.Destination,
			&entry.Shipment.ExpectedDelivery,
			&entry.Shipment.CreatedAt,
			&entry.Shipment.UpdatedAt,
			&entry.SupplierName,
			&entry.DriverName,
			&fixID,
			&lat,
			&lon,
			&heading,
			&speed,
			&accuracy,
			&recordedAt,
		); err != nil {
			return nil, err
		}
		if fixID != nil && lat != nil && lon != nil && recordedAt != nil {
			var driverID string
			if entry.Shipment.DriverID != nil {
				driverID = *entry.Shipment.DriverID
			}
			entry.Fix = &domain.GpsFix{
				ID:         *fixID,
				ShipmentID: entry.Shipment.ID,
				DriverID:   driverID,
				Latitude:   *lat,
				Longitude:  *lon,
				Heading:    heading,
				Speed:      speed,
				Accuracy:   accuracy,
				RecordedAt: *recordedAt,
			}
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
