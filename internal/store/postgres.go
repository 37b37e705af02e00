package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/clausewise/internal/model"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS contracts (
	id         BIGSERIAL PRIMARY KEY,
	filename   TEXT NOT NULL DEFAULT '',
	text       TEXT NOT NULL,
	metadata   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps contracts in PostgreSQL through a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the schema exists
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Save inserts the contract and assigns its ID
func (s *PostgresStore) Save(ctx context.Context, c *model.Contract) error {
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.CreatedAt = c.CreatedAt.Truncate(time.Microsecond)

	err = s.pool.QueryRow(ctx,
		`INSERT INTO contracts(filename, text, metadata, created_at) VALUES($1, $2, $3::jsonb, $4) RETURNING id`,
		c.Filename, c.Text, string(meta), c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

// Get returns the contract with the given id
func (s *PostgresStore) Get(ctx context.Context, id int64) (*model.Contract, error) {
	var (
		c    model.Contract
		meta []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, text, metadata, created_at FROM contracts WHERE id = $1`, id).
		Scan(&c.ID, &c.Filename, &c.Text, &meta, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get contract: %w", err)
	}
	if err := json.Unmarshal(meta, &c.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &c, nil
}

// List returns contracts newest first, metadata included and text omitted
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]model.Contract, error) {
	limit, offset = normalizeLimit(limit, offset)
	rows, err := s.pool.Query(ctx,
		`SELECT id, filename, metadata, created_at FROM contracts ORDER BY id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	out := []model.Contract{}
	for rows.Next() {
		var (
			c    model.Contract
			meta []byte
		)
		if err := rows.Scan(&c.ID, &c.Filename, &meta, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		if err := json.Unmarshal(meta, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a contract
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
