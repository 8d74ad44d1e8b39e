// Package postgres exports analysed bond rows to Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/bond-envelope/internal/bond"
	"github.com/JakeFAU/bond-envelope/internal/runid"
)

const defaultTable = "bond_envelope"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for envelope rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// EnvelopeStore writes one row per filtered bond of an analysis run.
type EnvelopeStore struct {
	pool  execCloser
	table string
}

// NewEnvelopeStore creates a Postgres-backed EnvelopeStore using the provided config.
func NewEnvelopeStore(ctx context.Context, cfg Config) (*EnvelopeStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &EnvelopeStore{pool: pool, table: table}, nil
}

// NewEnvelopeStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewEnvelopeStoreWithPool(pool execCloser, table string) (*EnvelopeStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &EnvelopeStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *EnvelopeStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Migrate creates the envelope table when it does not exist.
func (s *EnvelopeStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id      UUID NOT NULL,
	run_stamp   TEXT NOT NULL,
	position    INTEGER NOT NULL,
	isin        TEXT NOT NULL,
	country     TEXT NOT NULL,
	expiry      DATE NOT NULL,
	net_yield   DOUBLE PRECISION,
	running_max DOUBLE PRECISION,
	on_envelope BOOLEAN NOT NULL,
	PRIMARY KEY (run_id, position)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// StorePoints inserts every point of one run in a single transaction.
// NaN yields are stored as NULL.
func (s *EnvelopeStore) StorePoints(ctx context.Context, id runid.ID, points []bond.EnvelopePoint) (err error) {
	if s == nil || s.pool == nil {
		return fmt.Errorf("envelope store is not configured")
	}
	if id.UUID == "" {
		return fmt.Errorf("run id is required")
	}
	if len(points) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	run_stamp,
	position,
	isin,
	country,
	expiry,
	net_yield,
	running_max,
	on_envelope
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)`, s.table)

	for i, p := range points {
		args := []any{
			id.UUID,
			id.Stamp,
			i,
			p.Bond.ISIN,
			p.Bond.Country,
			p.Expiry,
			nullableFloat(p.Yield),
			nullableFloat(p.RunningMax),
			p.OnEnvelope,
		}
		if _, err = tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s: %w", p.Bond.ISIN, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit envelope rows: %w", err)
	}
	return nil
}

func nullableFloat(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
