package db

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration directions accepted by Migrator.Run.
const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// Migrations lists the embedded migration versions in apply order.
func Migrations() ([]uint, error) {
	return listVersions(migrationFiles, "migrations")
}

func listVersions(fsys fs.FS, dir string) ([]uint, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("load migration files: %w", err)
	}
	defer src.Close()

	var versions []uint
	v, err := src.First()
	for err == nil {
		versions = append(versions, v)
		v, err = src.Next(v)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("walk migration files: %w", err)
	}
	return versions, nil
}

// schemaMigrator is the part of *migrate.Migrate the Migrator drives.
type schemaMigrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() (error, error)
}

// Migrator applies the embedded migrations with golang-migrate.
type Migrator struct {
	m      schemaMigrator
	logger *slog.Logger
}

// NewMigrator opens databaseURL (postgres://...) with the embedded migration
// source.
func NewMigrator(databaseURL string, logger *slog.Logger) (*Migrator, error) {
	d, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migration files: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return newMigrator(m, logger), nil
}

func newMigrator(m schemaMigrator, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{m: m, logger: logger}
}

// Run migrates in direction (up or down). It reports whether anything
// changed; migrate.ErrNoChange is not an error.
func (m *Migrator) Run(direction string) (bool, error) {
	var err error
	switch direction {
	case MigrateUp:
		err = m.m.Up()
	case MigrateDown:
		err = m.m.Down()
	default:
		return false, fmt.Errorf("unknown migration command: %s", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("no migrations to apply", "direction", direction)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migration %s failed: %w", direction, err)
	}
	m.logger.Info("migrations applied", "direction", direction)
	return true, nil
}

// Version returns the current schema version. Zero with a nil error means no
// migration has been applied.
func (m *Migrator) Version() (uint, bool, error) {
	v, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close releases the source and the database connection.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}
