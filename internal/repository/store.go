package repository

import (
	"database/sql"
	"time"

	"aggregat4/linkmarks/internal/domain"
	"aggregat4/linkmarks/pkg/migrations"
)

// Store is the sqlite implementation of domain.Store. A Store is either
// bound to the database directly or, inside WithTx, to an open transaction.
type Store struct {
	db         *sql.DB
	tx         *sql.Tx
	ftsEnabled bool
}

var _ domain.Store = (*Store)(nil)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (store *Store) conn() querier {
	if store.tx != nil {
		return store.tx
	}
	return store.db
}

func (store *Store) InitAndVerifyDb(dbFilename string) error {
	var err error
	store.db, err = sql.Open("sqlite3", "file:"+dbFilename+"?_foreign_keys=on")
	if err != nil {
		return err
	}
	store.ftsEnabled = supportsFts5(store.db)
	migrationSet := bookmarkMigrations
	if store.ftsEnabled {
		migrationSet = append(append([]migrations.Migration{}, bookmarkMigrations...), ftsMigration)
	}
	return migrations.MigrateSchema(store.db, migrationSet)
}

// supportsFts5 reports whether the linked sqlite was compiled with the fts5
// module, which go-sqlite3 only includes under the sqlite_fts5 build tag.
func supportsFts5(db *sql.DB) bool {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_compile_options WHERE compile_options = 'ENABLE_FTS5'").Scan(&count)
	return err == nil && count > 0
}

func (store *Store) Close() {
	if store.db != nil {
		store.db.Close()
	}
}

// WithTx runs fn inside a transaction. A Store that is already bound to a
// transaction passes itself through so that nested calls collapse into the
// outermost transaction.
func (store *Store) WithTx(fn func(domain.Store) error) error {
	if store.tx != nil {
		return fn(store)
	}
	tx, err := store.db.Begin()
	if err != nil {
		return err
	}
	txStore := &Store{db: store.db, tx: tx, ftsEnabled: store.ftsEnabled}
	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nowUnix() int64 {
	return time.Now().Unix()
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
