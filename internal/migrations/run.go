// Package migrations применяет SQL-миграции к хранилищу с учётом его диалекта.
package migrations

import (
	"database/sql"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/nelondlc/license-hub/internal/storage/dual"
)

// Run применяет миграции из path к базе db. Набор миграций у каждого
// диалекта свой: схемы отличаются типами автоинкремента и upsert-синтаксисом.
func Run(db *sql.DB, d dual.Driver, path string) error {
	var (
		driver database.Driver
		name   string
		err    error
	)
	switch d {
	case dual.DriverPostgres:
		driver, err = pgxv5.WithInstance(db, &pgxv5.Config{})
		name = "pgx_v5"
	default:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
		name = "mysql"
	}
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+path, name, driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}
