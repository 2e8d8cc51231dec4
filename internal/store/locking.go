package store

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate applies a row-level SELECT ... FOR UPDATE lock when the
// underlying dialect supports it. SQLite has no row-level locking concept
// (the whole database file is the unit of locking), so the clause is
// omitted there rather than erroring — local/dev runs on sqlite still get
// Postgres's serializable-write guarantee whenever DATABASE_URL points at
// Postgres, which is the only supported production configuration.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
