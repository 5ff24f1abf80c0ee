// Package postgres persists roll history in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/azdice/internal/config"
)

// Pool is a connected pgx pool tagged with application_name "azdice".
type Pool struct {
	db *pgxpool.Pool
}

// NewPool connects to the database described by cfg and verifies the
// connection with a ping.
//
// Postcondition: returns a usable Pool or a non-nil error; on error no
// connections are left open.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.ConnConfig.RuntimeParams["application_name"] = "azdice"

	db, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	p := &Pool{db: db}
	if err := p.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// Ping reports whether the database answers.
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// History returns a roll-history repository backed by p.
func (p *Pool) History() *HistoryRepository { return NewHistoryRepository(p.db) }

// Close releases every connection.
func (p *Pool) Close() { p.db.Close() }
