package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Postgres stores each workflow as a JSONB definition row, looked up by the
// id embedded in the definition itself.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool and ensures the workflows table exists.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS workflows (
			id         TEXT PRIMARY KEY,
			definition JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, def workflow.Definition) (Saved, error) {
	if def.ID == "" {
		return Saved{}, errors.New("definition id is required")
	}
	data, err := json.Marshal(def)
	if err != nil {
		return Saved{}, fmt.Errorf("store: marshal workflow %s: %w", def.ID, err)
	}
	var updatedAt time.Time
	err = p.pool.QueryRow(ctx, `
		INSERT INTO workflows (id, definition, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET definition = EXCLUDED.definition,
		    updated_at = now()
		RETURNING updated_at
	`, def.ID, data).Scan(&updatedAt)
	if err != nil {
		return Saved{}, fmt.Errorf("store: save workflow %s: %w", def.ID, err)
	}
	return Saved{ID: def.ID, UpdatedAt: updatedAt}, nil
}

func (p *Postgres) Load(ctx context.Context, id string) (workflow.Definition, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `
		SELECT definition
		FROM workflows
		WHERE definition->>'id' = $1
	`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return workflow.Definition{}, ErrNotFound
	}
	if err != nil {
		return workflow.Definition{}, fmt.Errorf("store: load workflow %s: %w", id, err)
	}
	var def workflow.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return workflow.Definition{}, fmt.Errorf("store: decode workflow %s: %w", id, err)
	}
	return def, nil
}

func (p *Postgres) List(ctx context.Context) ([]Saved, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, updated_at FROM workflows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list workflows: %w", err)
	}
	defer rows.Close()
	var out []Saved
	for rows.Next() {
		var s Saved
		if err := rows.Scan(&s.ID, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan workflow row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
