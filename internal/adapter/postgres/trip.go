package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	pg "github.com/Temutjin2k/ispeed/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TripRepo struct {
	db *pgxpool.Pool
}

func NewTripRepo(db *pgxpool.Pool) *TripRepo {
	return &TripRepo{db: db}
}

const tripColumns = `t.id, t.company_id, t.driver_id, t.origin, t.destination, t.status, t.start_date, t.end_date,
	t.elapsed_seconds, t.alert_count, t.response_count, t.effectiveness, t.created_at, t.updated_at`

// Create inserts a trip. A zero trip.ID lets the database generate one.
func (r *TripRepo) Create(ctx context.Context, trip *models.Trip) error {
	const op = "TripRepo.Create"
	query := `
		INSERT INTO trips (id, company_id, driver_id, origin, destination, status, start_date, end_date,
		                   elapsed_seconds, alert_count, response_count, effectiveness)
		VALUES (COALESCE($1, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at;`

	var id *uuid.UUID
	if trip.ID != uuid.Nil {
		id = &trip.ID
	}

	err := TxorDB(ctx, r.db).QueryRow(ctx, query,
		id,
		trip.CompanyID,
		trip.DriverID,
		trip.Origin,
		trip.Destination,
		trip.Status,
		trip.StartDate,
		trip.EndDate,
		trip.ElapsedSeconds,
		trip.AlertCount,
		trip.ResponseCount,
		trip.Effectiveness,
	).Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		if pg.IsForeignKeyViolation(err) {
			return types.ErrUserNotFound
		}
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

func (r *TripRepo) Get(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	const op = "TripRepo.Get"
	query := `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = $1;`

	trip, err := scanTrip(TxorDB(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrTripNotFound
		}
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return trip, nil
}

// List returns a page of trips matching f and the total number of matches.
func (r *TripRepo) List(ctx context.Context, f models.TripFilters) ([]models.Trip, int, error) {
	const op = "TripRepo.List"

	c := tripConditions(f)
	query := fmt.Sprintf(`
		SELECT COUNT(*) OVER(), %s
		FROM trips t
		%s
		ORDER BY t.%s %s, t.id ASC
		LIMIT $%d OFFSET $%d;`,
		tripColumns, c.where(), f.SortColumn(), f.SortDirection(), c.next(), c.next()+1)

	args := append(c.args, f.Limit(), f.Offset())
	rows, err := TxorDB(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	var (
		total int
		trips = make([]models.Trip, 0, f.Limit())
	)
	for rows.Next() {
		var t models.Trip
		if err := rows.Scan(&total,
			&t.ID, &t.CompanyID, &t.DriverID, &t.Origin, &t.Destination, &t.Status, &t.StartDate, &t.EndDate,
			&t.ElapsedSeconds, &t.AlertCount, &t.ResponseCount, &t.Effectiveness, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, 0, wrap.Error(ctx, fmt.Errorf("%s: scan: %w", op, err))
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap.Error(ctx, fmt.Errorf("%s: rows: %w", op, err))
	}

	return trips, total, nil
}

// Update writes every mutable column of trip.
func (r *TripRepo) Update(ctx context.Context, trip *models.Trip) error {
	const op = "TripRepo.Update"
	query := `
		UPDATE trips
		SET origin = $2, destination = $3, status = $4, end_date = $5,
		    elapsed_seconds = $6, alert_count = $7, response_count = $8, effectiveness = $9,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at;`

	err := TxorDB(ctx, r.db).QueryRow(ctx, query,
		trip.ID,
		trip.Origin,
		trip.Destination,
		trip.Status,
		trip.EndDate,
		trip.ElapsedSeconds,
		trip.AlertCount,
		trip.ResponseCount,
		trip.Effectiveness,
	).Scan(&trip.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.ErrTripNotFound
		}
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

func (r *TripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "TripRepo.Delete"
	tag, err := TxorDB(ctx, r.db).Exec(ctx, `DELETE FROM trips WHERE id = $1;`, id)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if tag.RowsAffected() == 0 {
		return types.ErrTripNotFound
	}
	return nil
}

// FinishOrphaned closes trips left IN_PROGRESS by a previous process that died
// before stopping its sessions. Returns the closed trips.
func (r *TripRepo) FinishOrphaned(ctx context.Context, endDate time.Time) ([]models.Trip, error) {
	const op = "TripRepo.FinishOrphaned"
	query := `
		UPDATE trips AS t
		SET status = 'FINISHED', end_date = $1, updated_at = now()
		WHERE t.status = 'IN_PROGRESS'
		RETURNING ` + tripColumns + `;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, endDate)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%s: scan: %w", op, err))
		}
		trips = append(trips, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: rows: %w", op, err))
	}
	return trips, nil
}

func tripConditions(f models.TripFilters) *conditions {
	c := &conditions{}
	if f.CompanyID != uuid.Nil {
		c.add("t.company_id = $%d", f.CompanyID)
	}
	if f.DriverID != uuid.Nil {
		c.add("t.driver_id = $%d", f.DriverID)
	}
	if f.Destination != "" {
		c.add("t.destination = $%d", f.Destination)
	}
	if f.Status != "" {
		c.add("t.status = $%d", f.Status)
	}
	if f.DateFrom != nil {
		c.add("t.start_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		c.add("t.start_date <= $%d", *f.DateTo)
	}
	return c
}

func scanTrip(row pgx.Row) (*models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID, &t.CompanyID, &t.DriverID, &t.Origin, &t.Destination, &t.Status, &t.StartDate, &t.EndDate,
		&t.ElapsedSeconds, &t.AlertCount, &t.ResponseCount, &t.Effectiveness, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
