package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/magefree/arena-server-go/internal/game/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS games (
	id           TEXT PRIMARY KEY,
	game_type_id TEXT NOT NULL,
	status       TEXT NOT NULL,
	data         JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS games_status_idx ON games (status);
`

// Postgres stores instances as JSONB rows.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to url and creates the schema.
func OpenPostgres(ctx context.Context, url string, maxConns int32) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Save(ctx context.Context, inst *model.GameInstance) error {
	data, err := model.EncodeInstance(inst)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO games (id, game_type_id, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		inst.ID, inst.GameTypeID, string(inst.Status), data, inst.CreatedAt, inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save game %s: %w", inst.ID, err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, id string) (*model.GameInstance, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM games WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	return model.DecodeInstance(data)
}

func (p *Postgres) ListActive(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT id FROM games WHERE status = $1 ORDER BY id`, string(model.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active games: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list active games: %w", err)
	}
	return ids, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Stats exposes the pool statistics for logging.
func (p *Postgres) Stats() *pgxpool.Stat {
	return p.pool.Stat()
}
