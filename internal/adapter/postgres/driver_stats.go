package postgres

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DriverStatsRepo struct {
	db *pgxpool.Pool
}

func NewDriverStatsRepo(db *pgxpool.Pool) *DriverStatsRepo {
	return &DriverStatsRepo{db: db}
}

// MarkProcessed records that a trip was folded into the stats.
// Returns false if it had been processed already.
func (r *DriverStatsRepo) MarkProcessed(ctx context.Context, tripID uuid.UUID) (bool, error) {
	const op = "DriverStatsRepo.MarkProcessed"
	tag, err := TxorDB(ctx, r.db).Exec(ctx,
		`INSERT INTO driver_stats_trips (trip_id) VALUES ($1) ON CONFLICT (trip_id) DO NOTHING;`, tripID)
	if err != nil {
		return false, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return tag.RowsAffected() == 1, nil
}

// Apply adds a finished trip to the driver aggregates.
func (r *DriverStatsRepo) Apply(ctx context.Context, msg models.TripFinishedMessage) error {
	const op = "DriverStatsRepo.Apply"
	query := `
		INSERT INTO driver_stats (driver_id, company_id, trips, total_seconds, alerts, responses, last_trip_id, updated_at)
		VALUES ($1, $2, 1, $3, $4, $5, $6, $7)
		ON CONFLICT (driver_id) DO UPDATE SET
			trips         = driver_stats.trips + 1,
			total_seconds = driver_stats.total_seconds + EXCLUDED.total_seconds,
			alerts        = driver_stats.alerts + EXCLUDED.alerts,
			responses     = driver_stats.responses + EXCLUDED.responses,
			last_trip_id  = EXCLUDED.last_trip_id,
			updated_at    = EXCLUDED.updated_at;`

	_, err := TxorDB(ctx, r.db).Exec(ctx, query,
		msg.DriverID,
		msg.CompanyID,
		msg.ElapsedSeconds,
		msg.AlertCount,
		msg.ResponseCount,
		msg.TripID,
		msg.FinishedAt,
	)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// List returns the aggregates of every driver of a company ordered by name.
func (r *DriverStatsRepo) List(ctx context.Context, companyID uuid.UUID) ([]models.DriverStats, error) {
	const op = "DriverStatsRepo.List"
	query := `
		SELECT s.driver_id, s.company_id, COALESCE(u.name, ''), s.trips, s.total_seconds,
		       s.alerts, s.responses, COALESCE(s.last_trip_id, '00000000-0000-0000-0000-000000000000'::uuid), s.updated_at
		FROM driver_stats s
		LEFT JOIN users u ON u.id = s.driver_id
		WHERE s.company_id = $1
		ORDER BY u.name ASC;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, companyID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	stats := []models.DriverStats{}
	for rows.Next() {
		var s models.DriverStats
		if err := rows.Scan(&s.DriverID, &s.CompanyID, &s.DriverName, &s.Trips, &s.TotalSeconds,
			&s.Alerts, &s.Responses, &s.LastTripID, &s.UpdatedAt); err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%s: scan: %w", op, err))
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: rows: %w", op, err))
	}
	return stats, nil
}
