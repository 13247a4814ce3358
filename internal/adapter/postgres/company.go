package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	pg "github.com/Temutjin2k/ispeed/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CompanyRepo struct {
	db *pgxpool.Pool
}

func NewCompanyRepo(db *pgxpool.Pool) *CompanyRepo {
	return &CompanyRepo{db: db}
}

func (r *CompanyRepo) Create(ctx context.Context, c *models.Company) error {
	const op = "CompanyRepo.Create"
	query := `
		INSERT INTO companies (name, ruc, address, phone, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at;`

	err := TxorDB(ctx, r.db).QueryRow(ctx, query, c.Name, c.RUC, c.Address, c.Phone, c.Email).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err, "companies_ruc_key") {
			return types.ErrRUCTaken
		}
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

func (r *CompanyRepo) Get(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	const op = "CompanyRepo.Get"
	query := `
		SELECT id, name, ruc, address, phone, email, created_at, updated_at
		FROM companies
		WHERE id = $1;`

	var c models.Company
	err := TxorDB(ctx, r.db).QueryRow(ctx, query, id).
		Scan(&c.ID, &c.Name, &c.RUC, &c.Address, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrCompanyNotFound
		}
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return &c, nil
}

func (r *CompanyRepo) Update(ctx context.Context, c *models.Company) error {
	const op = "CompanyRepo.Update"
	query := `
		UPDATE companies
		SET name = $2, ruc = $3, address = $4, phone = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at;`

	err := TxorDB(ctx, r.db).QueryRow(ctx, query, c.ID, c.Name, c.RUC, c.Address, c.Phone).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.ErrCompanyNotFound
		}
		if pg.IsUniqueViolation(err, "companies_ruc_key") {
			return types.ErrRUCTaken
		}
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}
