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

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{
		db: db,
	}
}

const userColumns = `id, company_id, name, email, phone, role, status, password_hash, created_at, updated_at`

// Create inserts a user. u.ID, CreatedAt and UpdatedAt are filled from the database.
func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	const op = "UserRepo.Create"
	if u == nil {
		return fmt.Errorf("%s: nil user", op)
	}

	query := `
		INSERT INTO users (company_id, name, email, phone, role, status, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at;`

	err := TxorDB(ctx, r.db).QueryRow(ctx, query,
		u.CompanyID,
		u.Name,
		u.Email,
		u.Phone,
		u.Role,
		u.Status,
		u.GetPassword(),
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err, "users_email_key") {
			return types.ErrEmailTaken
		}
		if pg.IsForeignKeyViolation(err) {
			return types.ErrCompanyNotFound
		}
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "UserRepo.GetByEmail"
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1;`

	u, err := scanUser(TxorDB(ctx, r.db).QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "UserRepo.GetByID"
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`

	u, err := scanUser(TxorDB(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return u, nil
}

// List returns the users of a company, optionally only one role, with the total count.
func (r *UserRepo) List(ctx context.Context, companyID uuid.UUID, role types.UserRole, f models.Filters) ([]models.User, int, error) {
	const op = "UserRepo.List"

	var c conditions
	c.add("company_id = $%d", companyID)
	if role != "" {
		c.add("role = $%d", role)
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*) OVER(), %s
		FROM users
		%s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d;`,
		userColumns, c.where(), f.SortColumn(), f.SortDirection(), c.next(), c.next()+1)

	args := append(c.args, f.Limit(), f.Offset())
	rows, err := TxorDB(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	var (
		total int
		users = make([]models.User, 0, f.Limit())
	)
	for rows.Next() {
		var (
			u    models.User
			hash string
		)
		if err := rows.Scan(&total,
			&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.Status, &hash, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, 0, wrap.Error(ctx, fmt.Errorf("%s: scan: %w", op, err))
		}
		u.SetPassword(hash)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap.Error(ctx, fmt.Errorf("%s: rows: %w", op, err))
	}

	return users, total, nil
}

// Update writes the mutable fields of u.
func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	const op = "UserRepo.Update"
	query := `
		UPDATE users
		SET name = $2, phone = $3, role = $4, status = $5, password_hash = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at;`

	err := TxorDB(ctx, r.db).QueryRow(ctx, query, u.ID, u.Name, u.Phone, u.Role, u.Status, u.GetPassword()).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.ErrUserNotFound
		}
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	const op = "UserRepo.Delete"
	tag, err := TxorDB(ctx, r.db).Exec(ctx, `DELETE FROM users WHERE id = $1 AND company_id = $2;`, id, companyID)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u    models.User
		hash string
	)
	if err := row.Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.Status, &hash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.SetPassword(hash)
	return &u, nil
}
