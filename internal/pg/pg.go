// Package pg implements the gate's repository collaborators against
// PostgreSQL: bounded connection pools via lib/pq and ordered migration
// application via golang-migrate.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/lib/pq"

	"github.com/groblegark/bootgate/internal/gate"
	"github.com/groblegark/bootgate/internal/model"
)

// poolSize bounds every repository pool. The gate performs schema operations
// only, never application traffic.
const poolSize = 1

var (
	// ErrPoolNotStarted indicates a migration run was requested for a
	// repository whose pool was never started in this invocation.
	ErrPoolNotStarted = errors.New("repository pool not started")

	// ErrDirtySchema indicates the store records a half-applied version.
	// The gate refuses to run until an operator resolves it.
	ErrDirtySchema = errors.New("schema version is dirty")
)

// Source syncs a repository's migration files into its local migrations
// directory before a run (e.g. from an S3 bundle).
type Source interface {
	Sync(ctx context.Context, repo model.RepoConfig, dir string) error
}

// Client owns one bounded pool per started repository. Pools are scoped to
// the gate invocation and never handed to callers.
type Client struct {
	dataDir string

	// Bundles, when set, syncs each repository's migration files before a
	// run. A sync failure fails the run.
	Bundles Source

	mu    sync.Mutex
	pools map[string]*sql.DB

	// open is swapped in tests to intercept pool creation.
	open func(url string) (*sql.DB, error)
}

// Compile-time checks that Client serves both gate collaborator roles.
var (
	_ gate.PoolStarter = (*Client)(nil)
	_ gate.Migrator    = (*Client)(nil)
)

// New returns a Client that derives migration directories under dataDir.
func New(dataDir string) *Client {
	return &Client{
		dataDir: dataDir,
		pools:   make(map[string]*sql.DB),
		open: func(url string) (*sql.DB, error) {
			return sql.Open("postgres", url)
		},
	}
}

// Start opens a pool for the repository and verifies connectivity. A second
// Start for the same repository name reports AlreadyRunning; a failed open
// or ping reports StartFailed and leaves the repository unregistered.
func (c *Client) Start(ctx context.Context, repo model.RepoConfig) (gate.StartOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pools[repo.Name]; ok {
		return gate.AlreadyRunning, nil
	}

	db, err := c.open(repo.URL)
	if err != nil {
		return gate.StartFailed, fmt.Errorf("open %s: %w", repo.Name, err)
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return gate.StartFailed, fmt.Errorf("ping %s: %w", repo.Name, err)
	}

	c.pools[repo.Name] = db
	return gate.StartedFresh, nil
}

// pool returns the started pool for a repository name.
func (c *Client) pool(name string) (*sql.DB, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, ok := c.pools[name]
	return db, ok
}

// Close closes every pool started by this invocation. The gate itself never
// calls this; it exists for short-lived callers like the pending command.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for name, db := range c.pools {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", name, err)
		}
		delete(c.pools, name)
	}
	return firstErr
}
