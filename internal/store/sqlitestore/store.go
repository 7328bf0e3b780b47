// Package sqlitestore implements core.Store on an embedded SQLite database
// through gorm. It is the default backend for a single device.
package sqlitestore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"bizbiller/internal/core"
	"bizbiller/internal/db"
)

// Store is a core.Store backed by one SQLite connection.
type Store struct {
	queries
}

var _ core.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	gdb, err := db.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	s := New(gdb)
	if err := s.Migrate(context.Background()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened gorm handle. The caller runs Migrate.
func New(gdb *gorm.DB) *Store {
	return &Store{queries{db: gdb}}
}

// Migrate creates or upgrades every table and index.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels...); err != nil {
		return core.WrapPersistence("migrate", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Begin(ctx context.Context) (core.Tx, error) {
	gtx := s.db.WithContext(ctx).Begin()
	if gtx.Error != nil {
		return nil, core.WrapPersistence("begin", gtx.Error)
	}
	return &tx{queries: queries{db: gtx}}, nil
}

// tx is one immediate-mode SQLite transaction.
type tx struct {
	queries
	done bool
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	return core.WrapPersistence("commit", t.db.Commit().Error)
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return core.WrapPersistence("rollback", t.db.Rollback().Error)
}

// affected maps a write that matched no row to *core.NotFoundError.
func affected(res *gorm.DB, op, entity string, id int64) error {
	if res.Error != nil {
		return core.WrapPersistence(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
