package migrate

import (
	"context"
	"database/sql"
	"errors"

	embedded "github.com/goserg/accountserver"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pressly/goose/v3"
)

func UpSqlite(db *sql.DB) error {
	sourceDriver, err := iofs.New(embedded.SqliteMigrations, "migrations/sqlite")
	if err != nil {
		return err
	}
	databaseDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs",
		sourceDriver,
		"accounts", databaseDriver)
	if err != nil {
		return err
	}
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func UpPostgres(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(embedded.PostgresMigrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations/postgres")
}
