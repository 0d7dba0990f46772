package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/groblegark/bootgate/internal/model"
)

// Run applies every pending migration unit for a started repository in
// ascending version order and returns the versions it applied. Units already
// recorded in the store's schema_migrations table are skipped, so repeated
// invocations are no-ops. The first failing unit aborts the run; units
// applied before it stay applied (per-unit application is atomic and
// durable, there is no cross-unit rollback).
func (c *Client) Run(ctx context.Context, repo model.RepoConfig) ([]uint64, error) {
	m, src, err := c.instance(ctx, repo)
	if err != nil {
		return nil, err
	}
	if m == nil {
		// No migrations directory: nothing pending.
		return nil, nil
	}

	pending, err := c.pending(m, src, repo)
	if err != nil {
		return nil, err
	}

	var applied []uint64
	for _, version := range pending {
		if err := m.Migrate(uint(version)); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				continue
			}
			return nil, fmt.Errorf("apply version %d: %w", version, err)
		}
		applied = append(applied, version)
	}
	return applied, nil
}

// Pending returns the versions that Run would apply, without applying them.
func (c *Client) Pending(ctx context.Context, repo model.RepoConfig) ([]uint64, error) {
	m, src, err := c.instance(ctx, repo)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	return c.pending(m, src, repo)
}

// instance builds a migrate instance over the repository's migrations
// directory and started pool. It returns (nil, nil, nil) when the directory
// does not exist, which counts as zero pending units.
func (c *Client) instance(ctx context.Context, repo model.RepoConfig) (*migrate.Migrate, source.Driver, error) {
	db, ok := c.pool(repo.Name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrPoolNotStarted, repo.Name)
	}

	dir := repo.MigrationsDir(c.dataDir)
	if c.Bundles != nil {
		if err := c.Bundles.Sync(ctx, repo, dir); err != nil {
			return nil, nil, fmt.Errorf("sync migration bundle for %s: %w", repo.Name, err)
		}
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}

	src, err := iofs.New(os.DirFS(dir), ".")
	if err != nil {
		return nil, nil, fmt.Errorf("read migrations at %s: %w", dir, err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
	if err != nil {
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, src, nil
}

// pending reads the store's current version and enumerates source versions
// above it.
func (c *Client) pending(m *migrate.Migrate, src source.Driver, repo model.RepoConfig) ([]uint64, error) {
	current, dirty, err := m.Version()
	hasCurrent := true
	if errors.Is(err, migrate.ErrNilVersion) {
		hasCurrent = false
	} else if err != nil {
		return nil, fmt.Errorf("read schema version for %s: %w", repo.Name, err)
	}
	if dirty {
		return nil, fmt.Errorf("%w: %s at version %d", ErrDirtySchema, repo.Name, current)
	}
	return pendingVersions(src, uint64(current), hasCurrent)
}

// pendingVersions walks the source in ascending order and keeps versions
// strictly greater than current. hasCurrent=false means the store records no
// version yet, so every source version is pending.
func pendingVersions(src source.Driver, current uint64, hasCurrent bool) ([]uint64, error) {
	var out []uint64
	version, err := src.First()
	for ; err == nil; version, err = src.Next(version) {
		if !hasCurrent || uint64(version) > current {
			out = append(out, uint64(version))
		}
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	return nil, fmt.Errorf("enumerate migration versions: %w", err)
}
