package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/contentloom/storyforge/internal/platform/apperr"
)

// isUniqueViolation recognizes a unique-constraint violation across the two
// supported drivers so Insert can translate it into apperr.VersionConflict
// instead of a bare store-fatal error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}

// transientPgCodes are the Postgres SQLSTATE codes that indicate a
// momentary contention problem rather than a logic error: serialization
// failure, deadlock detected, and lock-acquisition timeout. A caller that
// retries the same operation shortly after is expected to succeed.
var transientPgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// isTransient recognizes a store error the worker pool's retry loop should
// back off and retry, as opposed to a fatal logic error that must surface.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientPgCodes[pgErr.Code]
	}
	return false
}

// wrapStoreErr classifies a raw driver error returned from a query or exec
// into apperr.StoreTransient (lock wait timeout, deadlock, serialization
// failure, context deadline -- retried by the driver loop with backoff) or
// apperr.StoreFatal (anything else). Every repository method that surfaces
// a bare driver error must route it through here rather than calling
// apperr.StoreFatal directly, so genuinely transient failures stay
// retryable instead of being misclassified as terminal.
func wrapStoreErr(stage string, storyID int64, err error) *apperr.Error {
	if isTransient(err) {
		return apperr.StoreTransient(stage, storyID, err)
	}
	return apperr.StoreFatal(stage, storyID, err)
}
