package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

type excursionRepo struct{ pool *pgxpool.Pool }

const excursionColumns = `id, api_id, creator_id, name, trail_name, planned_at,
	themes, zones, created_at, updated_at`

func scanExcursion(row pgx.Row) (*core.Excursion, error) {
	var e core.Excursion
	err := row.Scan(&e.ID, &e.APIID, &e.CreatorID, &e.Name, &e.TrailName,
		&e.PlannedAt, &e.Themes, &e.Zones, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *excursionRepo) GetByAPIID(ctx context.Context, apiID string) (*core.Excursion, error) {
	const q = `SELECT ` + excursionColumns + ` FROM excursion WHERE api_id = $1`
	return scanExcursion(r.pool.QueryRow(ctx, q, apiID))
}

func (r *excursionRepo) collect(ctx context.Context, q string, args ...any) ([]*core.Excursion, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Excursion
	for rows.Next() {
		e, err := scanExcursion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *excursionRepo) ListByCreator(ctx context.Context, creatorID string) ([]*core.Excursion, error) {
	const q = `SELECT ` + excursionColumns + ` FROM excursion
		WHERE creator_id = $1 ORDER BY created_at DESC`
	return r.collect(ctx, q, creatorID)
}

func (r *excursionRepo) List(ctx context.Context) ([]*core.Excursion, error) {
	const q = `SELECT ` + excursionColumns + ` FROM excursion ORDER BY created_at DESC`
	return r.collect(ctx, q)
}

func (r *excursionRepo) Create(ctx context.Context, e *core.Excursion) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	const q = `INSERT INTO excursion
		(id, api_id, creator_id, name, trail_name, planned_at, themes, zones)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.ID, e.APIID, e.CreatorID, e.Name,
		e.TrailName, e.PlannedAt, e.Themes, e.Zones).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *excursionRepo) Update(ctx context.Context, e *core.Excursion) error {
	const q = `UPDATE excursion SET
		name = $2, trail_name = $3, planned_at = $4, themes = $5, zones = $6,
		updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, e.ID, e.Name, e.TrailName, e.PlannedAt,
		e.Themes, e.Zones).Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

func (r *excursionRepo) AddParticipant(ctx context.Context, p *core.Participant) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	const q = `INSERT INTO participant (id, api_id, excursion_id, name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	return r.pool.QueryRow(ctx, q, p.ID, p.APIID, p.ExcursionID, p.Name).
		Scan(&p.CreatedAt)
}

func (r *excursionRepo) ListParticipants(ctx context.Context, excursionID string) ([]*core.Participant, error) {
	const q = `SELECT id, api_id, excursion_id, name, created_at
		FROM participant WHERE excursion_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, excursionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Participant
	for rows.Next() {
		var p core.Participant
		if err := rows.Scan(&p.ID, &p.APIID, &p.ExcursionID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *excursionRepo) RemoveParticipant(ctx context.Context, excursionID, apiID string) error {
	const q = `DELETE FROM participant WHERE excursion_id = $1 AND api_id = $2`
	tag, err := r.pool.Exec(ctx, q, excursionID, apiID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
