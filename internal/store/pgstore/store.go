// Package pgstore implements core.Store on PostgreSQL through pgx. It is the
// backend for deployments where several devices share one database.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bizbiller/internal/core"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	queries
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{q: pool}, pool: pool}
}

func (s *Store) Begin(ctx context.Context) (core.Tx, error) {
	ptx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, core.WrapPersistence("begin", err)
	}
	return &tx{queries: queries{q: ptx}, ptx: ptx}, nil
}

type tx struct {
	queries
	ptx  pgx.Tx
	done bool
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	return core.WrapPersistence("commit", t.ptx.Commit(ctx))
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	err := t.ptx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return core.WrapPersistence("rollback", err)
}

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return core.WrapPersistence("get "+entity, err)
}

// affected maps a write that matched no row to *core.NotFoundError.
func affected(tag pgconn.CommandTag, err error, op, entity string, id int64) error {
	if err != nil {
		return core.WrapPersistence(op, err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
