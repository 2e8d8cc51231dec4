// Package dbctx bundles a request-scoped context.Context with an optional
// GORM transaction handle, the single parameter threaded through every
// repository method so call sites never juggle two separate arguments.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a context.Context with an optional transaction handle. Tx
// is nil when a repository call runs outside a unit of work, in which case
// repositories fall back to the base *gorm.DB they were constructed with.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the transaction handle if set, otherwise base.
func (c Context) DB(base *gorm.DB) *gorm.DB {
	if c.Tx != nil {
		return c.Tx
	}
	return base.WithContext(c.Ctx)
}

// Background builds a Context with no transaction, suitable for read-only
// calls outside a unit of work.
func Background(ctx context.Context) Context {
	return Context{Ctx: ctx}
}
