package postgres

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	pg "github.com/Temutjin2k/ispeed/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CityRepo struct {
	db *pgxpool.Pool
}

func NewCityRepo(db *pgxpool.Pool) *CityRepo {
	return &CityRepo{db: db}
}

func (r *CityRepo) Create(ctx context.Context, city *models.City) error {
	const op = "CityRepo.Create"
	query := `
		INSERT INTO cities (company_id, name, address)
		VALUES ($1, $2, $3)
		RETURNING id, created_at;`

	err := TxorDB(ctx, r.db).QueryRow(ctx, query, city.CompanyID, city.Name, city.Address).Scan(&city.ID, &city.CreatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err, "cities_company_name_key") {
			return types.ErrCityExists
		}
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

func (r *CityRepo) List(ctx context.Context, companyID uuid.UUID) ([]models.City, error) {
	const op = "CityRepo.List"
	query := `
		SELECT id, company_id, name, address, created_at
		FROM cities
		WHERE company_id = $1
		ORDER BY name ASC;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, companyID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	cities := []models.City{}
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Address, &c.CreatedAt); err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%s: scan: %w", op, err))
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: rows: %w", op, err))
	}
	return cities, nil
}

func (r *CityRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	const op = "CityRepo.Delete"
	tag, err := TxorDB(ctx, r.db).Exec(ctx, `DELETE FROM cities WHERE id = $1 AND company_id = $2;`, id, companyID)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if tag.RowsAffected() == 0 {
		return types.ErrCityNotFound
	}
	return nil
}
