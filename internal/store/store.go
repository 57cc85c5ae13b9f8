// Package store implements reconcile.Store on gorm.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"student-billing/internal/domain/billing"
	"student-billing/internal/reconcile"
)

type Store struct {
	db *gorm.DB
}

var _ reconcile.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx reconcile.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// wrap classifies a gorm error. what names the record for not-found errors.
func wrap(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return billing.NotFoundError.New("%s", what)
	default:
		return billing.PersistenceError.Wrap(err)
	}
}
