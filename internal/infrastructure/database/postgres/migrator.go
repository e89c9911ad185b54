package postgres

import (
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// override for operators
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// ---------------------------------------------------------------------------
// Migrator: schema management for the pattern store
// ---------------------------------------------------------------------------

// Migrator applies the serial_patterns schema. Migrations are embedded in the
// binary; a non-empty path (e.g. "file://./migrations") overrides them.
type Migrator struct {
	db     *sql.DB
	path   string
	logger logging.Logger
	open   func() (*migrate.Migrate, error)
}

// NewMigrator builds a Migrator over db.
func NewMigrator(db *sql.DB, path string, log logging.Logger) *Migrator {
	m := &Migrator{db: db, path: path, logger: log}
	m.open = m.newMigrate
	return m
}

func (m *Migrator) newMigrate() (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(m.db, &postgres.Config{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migration driver")
	}
	if m.path != "" {
		path := m.path
		if !strings.Contains(path, "://") {
			path = "file://" + path
		}
		mg, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
		}
		return mg, nil
	}
	src, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read embedded migrations")
	}
	mg, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return mg, nil
}

// Up applies all pending migrations. No pending migrations is not an error.
func (m *Migrator) Up() error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	if err := mg.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to run migrations")
	}
	version, dirty, _ := m.versionOf(mg)
	m.logger.Info("Database migrations completed",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty))
	return nil
}

// Down rolls back steps migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return errors.InvalidParam("steps must be greater than 0").WithDetail(fmt.Sprintf("steps=%d", steps))
	}
	mg, err := m.open()
	if err != nil {
		return err
	}
	if err := mg.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeDatabaseError, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to roll back migrations")
	}
	m.logger.Warn("Rolled back migrations", logging.Int("steps", steps))
	return nil
}

// Version reports the applied version; 0 when nothing has been applied.
func (m *Migrator) Version() (uint, bool, error) {
	mg, err := m.open()
	if err != nil {
		return 0, false, err
	}
	return m.versionOf(mg)
}

// Force marks version as applied without running it. Used to clear a dirty
// state after a manual fix.
func (m *Migrator) Force(version int) error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	if err := mg.Force(version); err != nil {
		return errors.Wrapf(err, errors.ErrCodeDatabaseError, "failed to force version %d", version)
	}
	m.logger.Warn("Forced migration version", logging.Int("version", version))
	return nil
}

func (m *Migrator) versionOf(mg *migrate.Migrate) (uint, bool, error) {
	version, dirty, err := mg.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get migration version")
	}
	return version, dirty, nil
}

//Personal.AI order the ending
