// Package store persists contracts. Contracts are the only entity with
// database-backed identity; clauses and risk reports are derived per request.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/clausewise/internal/model"
)

// ErrNotFound is returned when no contract has the requested id
var ErrNotFound = errors.New("contract not found")

// Store is the contract persistence interface
type Store interface {
	// Save inserts the contract and assigns its ID
	Save(ctx context.Context, c *model.Contract) error

	// Get returns the contract with the given id or ErrNotFound
	Get(ctx context.Context, id int64) (*model.Contract, error)

	// List returns contracts newest first without their text
	List(ctx context.Context, limit, offset int) ([]model.Contract, error)

	// Delete removes a contract or returns ErrNotFound
	Delete(ctx context.Context, id int64) error

	// Close releases the underlying connections
	Close() error
}

// Open creates the store selected by cfg.Driver and ensures its schema exists
func Open(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3", "":
		s, err := OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres", "postgresql":
		s, err := OpenPostgres(ctx, cfg.DSN, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func normalizeLimit(limit, offset int) (int, int) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
