package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/groblegark/bootgate/internal/gate"
	"github.com/groblegark/bootgate/internal/model"
)

// newMockClient returns a Client whose opens are served by fresh sqlmock
// databases with ping monitoring enabled.
func newMockClient(t *testing.T, dataDir string) (*Client, *[]sqlmock.Sqlmock) {
	t.Helper()
	var mocks []sqlmock.Sqlmock
	c := New(dataDir)
	c.open = func(url string) (*sql.DB, error) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("failed to create sqlmock: %v", err)
		}
		mock.ExpectPing()
		mock.ExpectClose()
		t.Cleanup(func() { db.Close() })
		mocks = append(mocks, mock)
		return db, nil
	}
	return c, &mocks
}

func TestStart_FreshThenAlreadyRunning(t *testing.T) {
	c, mocks := newMockClient(t, t.TempDir())
	repo := model.RepoConfig{Name: "BillingRepo", URL: "postgres://localhost/billing"}

	outcome, err := c.Start(context.Background(), repo)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if outcome != gate.StartedFresh {
		t.Errorf("first Start() = %v, want StartedFresh", outcome)
	}

	outcome, err = c.Start(context.Background(), repo)
	if err != nil {
		t.Fatalf("second Start() error: %v", err)
	}
	if outcome != gate.AlreadyRunning {
		t.Errorf("second Start() = %v, want AlreadyRunning", outcome)
	}
	if len(*mocks) != 1 {
		t.Errorf("opened %d pools, want 1", len(*mocks))
	}
}

func TestStart_PingFailure(t *testing.T) {
	c := New(t.TempDir())
	c.open = func(url string) (*sql.DB, error) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("failed to create sqlmock: %v", err)
		}
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectClose()
		return db, nil
	}
	repo := model.RepoConfig{Name: "BillingRepo", URL: "postgres://localhost/billing"}

	outcome, err := c.Start(context.Background(), repo)
	if outcome != gate.StartFailed {
		t.Errorf("Start() = %v, want StartFailed", outcome)
	}
	if err == nil {
		t.Error("Start() error = nil, want ping failure")
	}

	// A failed start leaves the repository unregistered, so a retry opens a
	// fresh pool.
	c.open = func(url string) (*sql.DB, error) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("failed to create sqlmock: %v", err)
		}
		mock.ExpectPing()
		t.Cleanup(func() { db.Close() })
		return db, nil
	}
	outcome, err = c.Start(context.Background(), repo)
	if err != nil {
		t.Fatalf("retry Start() error: %v", err)
	}
	if outcome != gate.StartedFresh {
		t.Errorf("retry Start() = %v, want StartedFresh", outcome)
	}
}

func TestStart_OpenFailure(t *testing.T) {
	c := New(t.TempDir())
	c.open = func(url string) (*sql.DB, error) {
		return nil, fmt.Errorf("bad dsn %q", url)
	}
	repo := model.RepoConfig{Name: "BillingRepo", URL: "not-a-url"}

	outcome, err := c.Start(context.Background(), repo)
	if outcome != gate.StartFailed {
		t.Errorf("Start() = %v, want StartFailed", outcome)
	}
	if err == nil {
		t.Error("Start() error = nil, want open failure")
	}
}

func TestRun_PoolNotStarted(t *testing.T) {
	c := New(t.TempDir())
	repo := model.RepoConfig{Name: "BillingRepo", URL: "postgres://localhost/billing"}

	_, err := c.Run(context.Background(), repo)
	if !errors.Is(err, ErrPoolNotStarted) {
		t.Errorf("Run() error = %v, want ErrPoolNotStarted", err)
	}
}

func TestRun_MissingMigrationsDir(t *testing.T) {
	c, _ := newMockClient(t, t.TempDir())
	repo := model.RepoConfig{Name: "BillingRepo", URL: "postgres://localhost/billing"}

	if _, err := c.Start(context.Background(), repo); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	applied, err := c.Run(context.Background(), repo)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("applied = %v, want none for a repository without migrations", applied)
	}
}

// failingSource is a bundle source that always fails.
type failingSource struct{}

func (failingSource) Sync(ctx context.Context, repo model.RepoConfig, dir string) error {
	return errors.New("bucket unreachable")
}

func TestRun_BundleSyncFailureIsFatal(t *testing.T) {
	c, _ := newMockClient(t, t.TempDir())
	c.Bundles = failingSource{}
	repo := model.RepoConfig{Name: "BillingRepo", URL: "postgres://localhost/billing"}

	if _, err := c.Start(context.Background(), repo); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if _, err := c.Run(context.Background(), repo); err == nil {
		t.Error("Run() error = nil, want bundle sync failure")
	}
}

func TestClose(t *testing.T) {
	c, _ := newMockClient(t, t.TempDir())
	for _, name := range []string{"RepoA", "RepoB"} {
		repo := model.RepoConfig{Name: name, URL: "postgres://localhost/" + name}
		if _, err := c.Start(context.Background(), repo); err != nil {
			t.Fatalf("Start(%s) error: %v", name, err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	// All pools were released; a new start reopens.
	repo := model.RepoConfig{Name: "RepoA", URL: "postgres://localhost/RepoA"}
	outcome, err := c.Start(context.Background(), repo)
	if err != nil {
		t.Fatalf("Start() after Close() error: %v", err)
	}
	if outcome != gate.StartedFresh {
		t.Errorf("Start() after Close() = %v, want StartedFresh", outcome)
	}
}
