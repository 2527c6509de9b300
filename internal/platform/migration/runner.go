// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration applies the users and auth schemas with golang-migrate.
//
// The SQL files are embedded in the binary. MIGRATION_PATH swaps them for a
// directory on disk, which is how hotfixes are tested before a release.
package migration

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var embedded embed.FS

// ErrDirty means a previous run failed halfway and needs [Runner.Force].
var ErrDirty = errors.New("migration_dirty_state")

// Runner drives one golang-migrate instance. Close it when done.
type Runner struct {
	migrator *migrate.Migrate
	logger   *slog.Logger
}

// Open prepares a runner for the database at dsn.
//
// An empty overridePath selects the embedded schema.
func Open(dsn, overridePath string, logger *slog.Logger) (*Runner, error) {
	databaseURL := pgx5URL(dsn)

	var (
		migrator *migrate.Migrate
		err      error
	)
	if overridePath != "" {
		migrator, err = migrate.New("file://"+overridePath, databaseURL)
	} else {
		var embeddedSource source.Driver
		if embeddedSource, err = iofs.New(embedded, "sql"); err == nil {
			migrator, err = migrate.NewWithSourceInstance("iofs", embeddedSource, databaseURL)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("migration_open_failed: %w", err)
	}

	migrator.Log = slogBridge{logger: logger}
	return &Runner{migrator: migrator, logger: logger}, nil
}

// Version reports the applied version. Zero means an empty database.
func (runner *Runner) Version() (uint, bool, error) {
	version, dirty, err := runner.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration_version_failed: %w", err)
	}
	return version, dirty, nil
}

// Up applies every pending migration. It refuses to touch a dirty database.
func (runner *Runner) Up() error {
	return runner.apply("up", runner.migrator.Up)
}

// Down rolls back the given number of migrations.
func (runner *Runner) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("migration_down_failed: steps must be positive, got %d", steps)
	}
	return runner.apply("down", func() error { return runner.migrator.Steps(-steps) })
}

// Force marks the given version as applied and clean.
func (runner *Runner) Force(version int) error {
	if err := runner.migrator.Force(version); err != nil {
		return fmt.Errorf("migration_force_failed: %w", err)
	}
	runner.logger.Warn("migration_forced", slog.Int("version", version))
	return nil
}

func (runner *Runner) apply(direction string, step func() error) error {
	from, dirty, err := runner.Version()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("%w: version %d", ErrDirty, from)
	}

	if err := step(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			runner.logger.Info("migration_no_change", slog.Uint64("version", uint64(from)))
			return nil
		}
		return fmt.Errorf("migration_%s_failed: %w", direction, err)
	}

	to, _, _ := runner.Version()
	runner.logger.Info("migration_applied",
		slog.String("direction", direction),
		slog.Uint64("from_version", uint64(from)),
		slog.Uint64("to_version", uint64(to)),
	)
	return nil
}

// Close releases the source and the database handle.
func (runner *Runner) Close() error {
	sourceErr, databaseErr := runner.migrator.Close()
	return errors.Join(sourceErr, databaseErr)
}

// RunUp opens a runner, applies pending migrations and closes it.
func RunUp(dsn, overridePath string, logger *slog.Logger) error {
	runner, err := Open(dsn, overridePath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.Error("migration_close_failed", slog.Any("error", err))
		}
	}()
	return runner.Up()
}

// pgx5URL rewrites postgres:// URLs to the scheme the pgx v5 driver registers.
func pgx5URL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// slogBridge routes golang-migrate output to the debug level.
type slogBridge struct {
	logger *slog.Logger
}

func (bridge slogBridge) Printf(format string, args ...any) {
	bridge.logger.Debug("migration_log", slog.String("line", strings.TrimSpace(fmt.Sprintf(format, args...))))
}

func (bridge slogBridge) Verbose() bool {
	return bridge.logger.Enabled(context.Background(), slog.LevelDebug)
}
