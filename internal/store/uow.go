// Package store is the Artifact Store (C3): repository operations over
// Story, Title, Content, and Review, backed by GORM, with a unit-of-work
// helper and fixed lock ordering to avoid deadlocks under concurrent
// workers.
package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/contentloom/storyforge/internal/platform/dbctx"
)

// UnitOfWork runs fn inside a single all-or-nothing database transaction,
// matching the teacher's txx.Transaction(...) usage in ClaimNextRunnable: on
// any error returned by fn, every write inside the transaction is rolled
// back and no partial state is observable.
func UnitOfWork(ctx context.Context, db *gorm.DB, fn func(dbc dbctx.Context) error) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
