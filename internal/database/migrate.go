package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/migrations"
)

const migrationsTable = "schema_migrations"

// MigrateUp applies all pending migrations.  It reports whether any
// migration ran.
func MigrateUp(cfg config.DBConfig) (bool, error) {
	return run(cfg, func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown rolls back every migration.
func MigrateDown(cfg config.DBConfig) (bool, error) {
	return run(cfg, func(m *migrate.Migrate) error { return m.Down() })
}

// MigrateSteps applies n migrations, or rolls back -n when n is negative.
func MigrateSteps(cfg config.DBConfig, n int) (bool, error) {
	return run(cfg, func(m *migrate.Migrate) error { return m.Steps(n) })
}

// run uses a dedicated connection because closing the migrator closes
// the database handle it was given.
func run(cfg config.DBConfig, fn func(*migrate.Migrate) error) (bool, error) {
	const op = "database.migrate"

	m, err := newMigrator(cfg)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _, _ = m.Close() }()

	if err := fn(m); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func newMigrator(cfg config.DBConfig) (*migrate.Migrate, error) {
	name, err := DriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, cfg.DSN())
	if err != nil {
		return nil, err
	}

	var (
		driver migratedb.Driver
		dir    string
	)
	switch name {
	case "mysql":
		dir = "mysql"
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{MigrationsTable: migrationsTable})
	default:
		dir = "postgres"
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{MigrationsTable: migrationsTable})
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("driver: %w", err)
	}

	src, err := iofs.New(migrations.FS, dir)
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("source: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, dir, driver)
}
