package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepo serves the read side: report tables and the supervisor dashboard.
type ReportRepo struct {
	db *pgxpool.Pool
}

func NewReportRepo(db *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{db: db}
}

// TripRows returns report rows joined with the driver name.
// Duration, score band and formatting are left to the service.
func (r *ReportRepo) TripRows(ctx context.Context, f models.TripFilters) ([]models.ReportRow, int, error) {
	const op = "ReportRepo.TripRows"

	c := tripConditions(f)
	query := fmt.Sprintf(`
		SELECT COUNT(*) OVER(),
		       t.id, t.driver_id, COALESCE(u.name, ''), t.destination, t.start_date,
		       t.elapsed_seconds, t.alert_count, t.response_count, t.effectiveness, t.status
		FROM trips t
		LEFT JOIN users u ON u.id = t.driver_id
		%s
		ORDER BY t.%s %s, t.id ASC
		LIMIT $%d OFFSET $%d;`,
		c.where(), f.SortColumn(), f.SortDirection(), c.next(), c.next()+1)

	args := append(c.args, f.Limit(), f.Offset())
	rows, err := TxorDB(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	var (
		total  int
		result = make([]models.ReportRow, 0, f.Limit())
	)
	for rows.Next() {
		var row models.ReportRow
		if err := rows.Scan(&total,
			&row.TripID, &row.DriverID, &row.DriverName, &row.Destination, &row.Date,
			&row.DurationSeconds, &row.Alerts, &row.Responses, &row.Score, &row.Status,
		); err != nil {
			return nil, 0, wrap.Error(ctx, fmt.Errorf("%s: scan: %w", op, err))
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap.Error(ctx, fmt.Errorf("%s: rows: %w", op, err))
	}

	return result, total, nil
}

// Metrics aggregates the dashboard counters of a company for trips started since `since`.
// ActiveTrips and TotalDestinations are filled by the service.
func (r *ReportRepo) Metrics(ctx context.Context, companyID uuid.UUID, since time.Time) (models.DashMetrics, error) {
	const op = "ReportRepo.Metrics"
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE company_id = $1 AND role = $3),
			COUNT(t.id),
			COALESCE(ROUND(AVG(t.effectiveness) FILTER (WHERE t.status = $4)), 0)::int,
			COALESCE(SUM(t.alert_count), 0)::int,
			COALESCE(SUM(t.response_count), 0)::int
		FROM trips t
		WHERE t.company_id = $1 AND t.start_date >= $2;`

	var (
		m         models.DashMetrics
		responses int
	)
	err := TxorDB(ctx, r.db).QueryRow(ctx, query, companyID, since, types.DriverRole, types.TripFinished).Scan(
		&m.TotalDrivers,
		&m.WeeklyTrips,
		&m.AverageScore,
		&m.AlertsThisWeek,
		&responses,
	)
	if err != nil {
		return models.DashMetrics{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	if m.AlertsThisWeek > 0 {
		m.ResponseRate = float64(responses) / float64(m.AlertsThisWeek) * 100
	} else {
		m.ResponseRate = 100
	}
	return m, nil
}

func (r *ReportRepo) RecentTrips(ctx context.Context, companyID uuid.UUID, limit int) ([]models.RecentTrip, error) {
	const op = "ReportRepo.RecentTrips"
	query := `
		SELECT t.id, COALESCE(u.name, ''), t.destination, t.start_date, t.effectiveness, t.status
		FROM trips t
		LEFT JOIN users u ON u.id = t.driver_id
		WHERE t.company_id = $1
		ORDER BY t.start_date DESC
		LIMIT $2;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, companyID, limit)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	trips := []models.RecentTrip{}
	for rows.Next() {
		var t models.RecentTrip
		if err := rows.Scan(&t.TripID, &t.DriverName, &t.Destination, &t.StartDate, &t.Score, &t.Status); err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%s: scan: %w", op, err))
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: rows: %w", op, err))
	}
	return trips, nil
}
