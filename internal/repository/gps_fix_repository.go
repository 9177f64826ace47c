package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/shipment-tracker/internal/domain"
)

// ErrNotAssigned is returned when the reporting driver is not the shipment's
// assigned driver. The check runs inside the fix transaction, under the same
// row lock that serializes it against concurrent reassignment.
var ErrNotAssigned = errors.New("driver not assigned to shipment")

// GpsFixRepository handles append-only fix ingestion and ordered reads.
type GpsFixRepository interface {
	// Record inserts a fix, maintains the latest-fix side table and, when the
	// shipment is still in assigned or picked_up, advances it to in_transit —
	// all in one transaction. It reports whether the auto-advance fired.
	Record(ctx context.Context, fix *domain.GpsFix) (autoAdvanced bool, err error)
	Latest(ctx context.Context, shipmentID string) (*domain.GpsFix, error)
	ListByShipment(ctx context.Context, shipmentID string, limit int) ([]domain.GpsFix, error)
}

type gpsFixRepository struct {
	pool *pgxpool.Pool
}

// NewGpsFixRepository instantiates repository.
func NewGpsFixRepository(pool *pgxpool.Pool) GpsFixRepository {
	return &gpsFixRepository{pool: pool}
}

const fixColumns = `id, shipment_id, driver_id, latitude, longitude, heading, speed, accuracy, recorded_at, inserted_at`

func (r *gpsFixRepository) Record(ctx context.Context, fix *domain.GpsFix) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Row lock serializes fix ingestion per shipment against concurrent
	// transitions; ingestion for different shipments proceeds in parallel.
	var driverID *string
	var status domain.ShipmentStatus
	const lock = `SELECT driver_id, status FROM shipments WHERE id=$1 FOR UPDATE`
	if err := tx.QueryRow(ctx, lock, fix.ShipmentID).Scan(&driverID, &status); err != nil {
		return false, err
	}
	if driverID == nil || *driverID != fix.DriverID {
		return false, ErrNotAssigned
	}

	const insert = `
        INSERT INTO gps_fixes (shipment_id, driver_id, latitude, longitude, heading, speed, accuracy, recorded_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, inserted_at`
	if err := tx.QueryRow(ctx, insert,
		fix.ShipmentID,
		fix.DriverID,
		fix.Latitude,
		fix.Longitude,
		fix.Heading,
		fix.Speed,
		fix.Accuracy,
		fix.RecordedAt,
	).Scan(&fix.ID, &fix.InsertedAt); err != nil {
		return false, err
	}

	// Latest-by-recorded-at wins; a late-arriving older fix never overwrites
	// a newer one. Equal timestamps resolve to the most recent insert.
	const upsert = `
        INSERT INTO shipment_latest_fix (shipment_id, fix_id, driver_id, latitude, longitude, heading, speed, accuracy, recorded_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (shipment_id) DO UPDATE SET
            fix_id=EXCLUDED.fix_id, driver_id=EXCLUDED.driver_id,
            latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude,
            heading=EXCLUDED.heading, speed=EXCLUDED.speed, accuracy=EXCLUDED.accuracy,
            recorded_at=EXCLUDED.recorded_at
        WHERE shipment_latest_fix.recorded_at <= EXCLUDED.recorded_at`
	if _, err := tx.Exec(ctx, upsert,
		fix.ShipmentID,
		fix.ID,
		fix.DriverID,
		fix.Latitude,
		fix.Longitude,
		fix.Heading,
		fix.Speed,
		fix.Accuracy,
		fix.RecordedAt,
	); err != nil {
		return false, err
	}

	advanced := false
	if status == domain.StatusAssigned || status == domain.StatusPickedUp {
		const advance = `UPDATE shipments SET status=$1, updated_at=NOW() WHERE id=$2`
		if _, err := tx.Exec(ctx, advance, domain.StatusInTransit, fix.ShipmentID); err != nil {
			return false, err
		}
		point := fix.Point()
		entry := &domain.StatusHistoryEntry{
			ShipmentID: fix.ShipmentID,
			NewStatus:  domain.StatusInTransit,
			Location:   &point,
			ActorType:  domain.ActorTypeSystem,
		}
		if err := insertHistory(ctx, tx, entry); err != nil {
			return false, err
		}
		advanced = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return advanced, nil
}

// Latest reads the materialized side table: one indexed lookup, never a scan
// of fix history.
func (r *gpsFixRepository) Latest(ctx context.Context, shipmentID string) (*domain.GpsFix, error) {
	const query = `
        SELECT fix_id, shipment_id, driver_id, latitude, longitude, heading, speed, accuracy, recorded_at
        FROM shipment_latest_fix WHERE shipment_id=$1`
	var fix domain.GpsFix
	if err := r.pool.QueryRow(ctx, query, shipmentID).Scan(
		&fix.ID,
		&fix.ShipmentID,
		&fix.DriverID,
		&fix.Latitude,
		&fix.Longitude,
		&fix.Heading,
		&fix.Speed,
		&fix.Accuracy,
		&fix.RecordedAt,
	); err != nil {
		return nil, err
	}
	return &fix, nil
}

// ListByShipment returns the limit most recent fixes in oldest-to-newest
// order, tie-breaking equal timestamps on insertion order.
func (r *gpsFixRepository) ListByShipment(ctx context.Context, shipmentID string, limit int) ([]domain.GpsFix, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT ` + fixColumns + `
        FROM gps_fixes WHERE shipment_id=$1
        ORDER BY recorded_at DESC, seq DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, shipmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newestFirst []domain.GpsFix
	for rows.Next() {
		var fix domain.GpsFix
		if err := rows.Scan(
			&fix.ID,
			&fix.ShipmentID,
			&fix.DriverID,
			&fix.Latitude,
			&fix.Longitude,
			&fix.Heading,
			&fix.Speed,
			&fix.Accuracy,
			&fix.RecordedAt,
			&fix.InsertedAt,
		); err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, fix)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]domain.GpsFix, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		result = append(result, newestFirst[i])
	}
	return result, nil
}
