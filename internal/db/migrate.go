package db

import (
	"database/sql"
	"embed"
	"errors"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending up migration bundled into the binary.
func Migrate(dbURL string, log *slog.Logger) error {
	conn, err := sql.Open("pgx", dbURL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	driver, err := pgmigrate.WithInstance(conn, &pgmigrate.Config{})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}

	log.Info("db.migrate_start")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("db.migrate_no_change")
		return nil
	}
	if err != nil {
		return err
	}

	version, dirty, _ := m.Version()
	log.Info("db.migrate_done", "version", version, "dirty", dirty)
	return nil
}
