package migrations

import (
	"database/sql"
	"fmt"
)

type Migration struct {
	SequenceId int
	Sql        string
}

// MigrateSchema applies all migrations that have not been applied yet, in
// sequence order. Applied sequence ids are tracked in a migrations table that
// is created on first use.
func MigrateSchema(db *sql.DB, migrations []Migration) error {
	exists, err := existsMigrationTable(db)
	if err != nil {
		return err
	}
	if !exists {
		if err := initMigrationTable(db); err != nil {
			return err
		}
	}
	applied, err := getAppliedMigrations(db)
	if err != nil {
		return err
	}
	for _, migration := range migrations {
		if !contains(applied, migration.SequenceId) {
			_, err = db.Exec(migration.Sql)
			if err != nil {
				return fmt.Errorf("error executing migration %d: %w", migration.SequenceId, err)
			}
			_, err = db.Exec("INSERT INTO migrations (sequence_id) VALUES (?)", migration.SequenceId)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func initMigrationTable(db *sql.DB) error {
	_, err := db.Exec("CREATE TABLE IF NOT EXISTS migrations (sequence_id INTEGER NOT NULL PRIMARY KEY)")
	return err
}

func existsMigrationTable(db *sql.DB) (bool, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name='migrations'")
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), nil
}

func getAppliedMigrations(db *sql.DB) ([]int, error) {
	rows, err := db.Query("SELECT sequence_id FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var applied []int
	for rows.Next() {
		var sequenceId int
		if err := rows.Scan(&sequenceId); err != nil {
			return nil, err
		}
		applied = append(applied, sequenceId)
	}
	return applied, rows.Err()
}

func contains(list []int, item int) bool {
	for _, i := range list {
		if i == item {
			return true
		}
	}
	return false
}
