package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

type installationRepo struct{ pool *pgxpool.Pool }

const installationColumns = `id, api_id, shared_secret, properties, events_count,
	active, created_at, updated_at, first_started_at`

func scanInstallation(row pgx.Row) (*core.Installation, error) {
	var i core.Installation
	var props []byte
	err := row.Scan(&i.ID, &i.APIID, &i.SharedSecret, &props, &i.EventsCount,
		&i.Active, &i.CreatedAt, &i.UpdatedAt, &i.FirstStartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(props) > 0 {
		if err := json.Unmarshal(props, &i.Properties); err != nil {
			return nil, err
		}
	}
	return &i, nil
}

func (r *installationRepo) GetByAPIID(ctx context.Context, apiID string) (*core.Installation, error) {
	const q = `SELECT ` + installationColumns + ` FROM installation WHERE api_id = $1`
	return scanInstallation(r.pool.QueryRow(ctx, q, apiID))
}

func (r *installationRepo) Create(ctx context.Context, i *core.Installation) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	props, err := json.Marshal(orEmptyMap(i.Properties))
	if err != nil {
		return err
	}
	const q = `INSERT INTO installation
		(id, api_id, shared_secret, properties, active, first_started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, i.ID, i.APIID, i.SharedSecret, props,
		i.Active, i.FirstStartedAt).Scan(&i.CreatedAt, &i.UpdatedAt)
}

func (r *installationRepo) Update(ctx context.Context, i *core.Installation) error {
	props, err := json.Marshal(orEmptyMap(i.Properties))
	if err != nil {
		return err
	}
	const q = `UPDATE installation SET
		properties = $2, active = $3, first_started_at = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err = r.pool.QueryRow(ctx, q, i.ID, props, i.Active, i.FirstStartedAt).
		Scan(&i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// AddEvent inserts the event and bumps events_count in one transaction.
func (r *installationRepo) AddEvent(ctx context.Context, e *core.InstallationEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	props, err := json.Marshal(orEmptyMap(e.Properties))
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const qEvent = `INSERT INTO installation_event
		(id, api_id, installation_id, type, version, properties, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	if err := tx.QueryRow(ctx, qEvent, e.ID, e.APIID, e.InstallationID, e.Type,
		e.Version, props, e.OccurredAt).Scan(&e.CreatedAt); err != nil {
		return err
	}

	const qBump = `UPDATE installation SET events_count = events_count + 1,
		updated_at = now() WHERE id = $1`
	if _, err := tx.Exec(ctx, qBump, e.InstallationID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
