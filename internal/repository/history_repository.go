package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/shipment-tracker/internal/domain"
)

// HistoryRepository reads the append-only status audit trail. Writes happen
// exclusively inside shipment and fix transactions via insertHistory, so the
// transition and its audit record are one atomic unit.
type HistoryRepository interface {
	ListByShipment(ctx context.Context, shipmentID string, limit int) ([]domain.StatusHistoryEntry, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

// ListByShipment returns entries in created-at ascending order for audit replay.
func (r *historyRepository) ListByShipment(ctx context.Context, shipmentID string, limit int) ([]domain.StatusHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, shipment_id, new_status, latitude, longitude, note, actor_type, actor_id, created_at
        FROM status_history WHERE shipment_id=$1 ORDER BY created_at ASC, seq ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, shipmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		var lat, lon *float64
		if err := rows.Scan(
			&entry.ID,
			&entry.ShipmentID,
			&entry.NewStatus,
			&lat,
			&lon,
			&entry.Note,
			&entry.ActorType,
			&entry.ActorID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if lat != nil && lon != nil {
			entry.Location = &domain.GeoPoint{Latitude: *lat, Longitude: *lon}
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// insertHistory appends an audit entry within the caller's transaction.
func insertHistory(ctx context.Context, tx pgx.Tx, entry *domain.StatusHistoryEntry) error {
	const query = `
        INSERT INTO status_history (shipment_id, new_status, latitude, longitude, note, actor_type, actor_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	var lat, lon *float64
	if entry.Location != nil {
		lat = &entry.Location.Latitude
		lon = &entry.Location.Longitude
	}
	return tx.QueryRow(ctx, query,
		entry.ShipmentID,
		entry.NewStatus,
		lat,
		lon,
		entry.Note,
		entry.ActorType,
		entry.ActorID,
	).Scan(&entry.ID, &entry.CreatedAt)
}
