package pg

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

type userRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, api_id, email, password_hash, first_name, last_name,
	active, role, login_count, last_login_at, last_active_at,
	password_reset_count, created_at, updated_at`

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	var role string
	err := row.Scan(&u.ID, &u.APIID, &u.Email, &u.PasswordHash, &u.FirstName,
		&u.LastName, &u.Active, &role, &u.LoginCount, &u.LastLoginAt,
		&u.LastActiveAt, &u.PasswordResetCount, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = core.Role(role)
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	const q = `SELECT ` + userColumns + ` FROM user_account WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *userRepo) GetByAPIID(ctx context.Context, apiID string) (*core.User, error) {
	const q = `SELECT ` + userColumns + ` FROM user_account WHERE api_id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, apiID))
}

func (r *userRepo) List(ctx context.Context) ([]*core.User, error) {
	const q = `SELECT ` + userColumns + ` FROM user_account ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *userRepo) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM user_account
		WHERE LOWER(email) = LOWER($1) AND ($2 = '' OR id::text <> $2)
	)`
	var taken bool
	if err := r.pool.QueryRow(ctx, q, email, excludeID).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

func (r *userRepo) Create(ctx context.Context, u *core.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	const q = `INSERT INTO user_account
		(id, api_id, email, password_hash, first_name, last_name, active, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, u.ID, u.APIID, u.Email, u.PasswordHash,
		u.FirstName, u.LastName, u.Active, string(u.Role)).
		Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepo) Update(ctx context.Context, u *core.User) error {
	const q = `UPDATE user_account SET
		email = $2, password_hash = $3, first_name = $4, last_name = $5,
		active = $6, role = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, u.ID, u.Email, u.PasswordHash, u.FirstName,
		u.LastName, u.Active, string(u.Role)).Scan(&u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// SaveLogin bumps the login counter and timestamps atomically, so two
// concurrent logins can never double-read the same counter value.
func (r *userRepo) SaveLogin(ctx context.Context, id string, at time.Time) (*core.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const q = `UPDATE user_account SET
		login_count = login_count + 1,
		last_login_at = $2,
		last_active_at = $2,
		updated_at = $2
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(tx.QueryRow(ctx, q, id, at))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepo) IncrementPasswordResetCount(ctx context.Context, id string) (int, error) {
	const q = `UPDATE user_account SET
		password_reset_count = password_reset_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING password_reset_count`
	var count int
	err := r.pool.QueryRow(ctx, q, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, core.ErrNotFound
	}
	return count, err
}
