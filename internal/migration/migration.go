// Package migration creates the schema on startup so a fresh checkout is
// usable without an external migration step. Postgres deployments run the
// embedded SQL migrations; sqlite and mysql fall back to AutoMigrate.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	branchdomain "github.com/shaghafhq/shaghaf/internal/branch/domain"
	clientdomain "github.com/shaghafhq/shaghaf/internal/client/domain"
	employeedomain "github.com/shaghafhq/shaghaf/internal/employee/domain"
	invoicedomain "github.com/shaghafhq/shaghaf/internal/invoice/domain"
	productdomain "github.com/shaghafhq/shaghaf/internal/product/domain"
	roomdomain "github.com/shaghafhq/shaghaf/internal/room/domain"
	sessiondomain "github.com/shaghafhq/shaghaf/internal/session/domain"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate covers the dialects the SQL migrations do not target.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&branchdomain.Branch{},
		&employeedomain.Employee{},
		&clientdomain.Client{},
		&productdomain.Product{},
		&roomdomain.Room{},
		&roomdomain.Booking{},
		&sessiondomain.Session{},
		&sessiondomain.Individual{},
		&sessiondomain.SessionItem{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&invoicedomain.PaymentPosting{},
	)
}
