// Package gate implements the boot-time migration gate: a sequential
// pipeline that loads the boot target's configuration, starts auxiliary
// services and repository pools best-effort, applies pending schema
// migrations in order, and either reports the outcome or halts the process
// so a supervisor restarts it with a clean post-migration state.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/groblegark/bootgate/internal/events"
	"github.com/groblegark/bootgate/internal/idgen"
	"github.com/groblegark/bootgate/internal/model"
)

// ConfigSource supplies per-target repository topology. Load must be
// idempotent: loading an already-loaded target is success.
type ConfigSource interface {
	// Load ensures the target's configuration is available. Unknown targets
	// and unreadable sources return an error wrapping ErrNotLoaded.
	Load(target string) error

	// Repos returns the target's repositories in configuration order.
	// Only meaningful after a successful Load; defaults to empty.
	Repos(target string) []model.RepoConfig
}

// PoolStarter starts one bounded connection pool per repository. Handles are
// owned by the starter for the duration of the invocation; callers never see
// them.
type PoolStarter interface {
	Start(ctx context.Context, repo model.RepoConfig) (StartOutcome, error)
}

// Migrator applies all pending migration units for a started repository in
// ascending version order and returns the versions it applied.
type Migrator interface {
	Run(ctx context.Context, repo model.RepoConfig) ([]uint64, error)
}

// Gate is a single-use boot gate. It is intended to run exactly once, early,
// before any concurrent application activity begins.
type Gate struct {
	cfg      ConfigSource
	pools    PoolStarter
	migrator Migrator

	// Services are started, in order, after the target loads and before any
	// repository pool. Optional.
	Services []Service

	// Proc terminates the process on the halt path. Defaults to OSController.
	Proc ProcessController

	// Publisher receives best-effort gate outcome events.
	// Defaults to a noop.
	Publisher events.Publisher

	// Logger receives per-step progress lines. Defaults to slog.Default().
	Logger *slog.Logger
}

// New returns a Gate over the given collaborators with default process
// control, event publishing, and logging.
func New(cfg ConfigSource, pools PoolStarter, migrator Migrator) *Gate {
	return &Gate{
		cfg:       cfg,
		pools:     pools,
		migrator:  migrator,
		Proc:      OSController{},
		Publisher: &events.NoopPublisher{},
		Logger:    slog.Default(),
	}
}

// Run executes the gate for one boot target.
//
// It returns a NoOp result when no migration unit was applied, a Migrated
// result when units were applied and haltOnMigration is false, and does not
// return at all when units were applied and haltOnMigration is true: the
// process controller terminates the process so the supervisor restarts it.
// Loader and migration failures return an error; auxiliary service and pool
// start failures are logged and tolerated.
func (g *Gate) Run(ctx context.Context, target string, haltOnMigration bool) (*model.Result, error) {
	runID, err := idgen.Generate()
	if err != nil {
		runID = "gate-unknown"
	}
	logger := g.logger().With("run_id", runID, "target", target)

	logger.Info("loading boot target")
	if err := g.cfg.Load(target); err != nil {
		return nil, fmt.Errorf("load boot target %q: %w", target, err)
	}
	logger.Info("boot target loaded")

	for _, svc := range g.Services {
		outcome, err := svc.Start(ctx)
		if outcome == StartFailed {
			logger.Warn("service failed to start", "service", svc.Name(), "error", err)
			continue
		}
		logger.Info("service "+outcome.String(), "service", svc.Name())
	}

	repos := g.cfg.Repos(target)
	if len(repos) == 0 {
		logger.Info("no repositories configured")
	}

	started := make([]model.RepoConfig, 0, len(repos))
	for _, repo := range repos {
		outcome, err := g.pools.Start(ctx, repo)
		if outcome == StartFailed {
			logger.Warn("repository pool failed to start; excluding repository",
				"repo", repo.Name, "error", err)
			continue
		}
		logger.Info("repository pool "+outcome.String(), "repo", repo.Name)
		started = append(started, repo)
	}

	var applied []uint64
	for _, repo := range started {
		versions, err := g.migrator.Run(ctx, repo)
		if err != nil {
			return nil, fmt.Errorf("migrate %s: %w", repo.Name, err)
		}
		if len(versions) == 0 {
			logger.Info("repository up to date", "repo", repo.Name)
		} else {
			logger.Info("migrations applied", "repo", repo.Name, "versions", versions)
		}
		applied = append(applied, versions...)
	}

	if len(applied) == 0 {
		g.publish(ctx, logger, events.TopicGateNoOp, events.GateOutcome{
			RunID:  runID,
			Target: target,
			At:     time.Now().UTC(),
		})
		logger.Info("boot gate passed; no migrations were pending")
		return &model.Result{Kind: model.KindNoOp}, nil
	}

	if !haltOnMigration {
		g.publish(ctx, logger, events.TopicGateMigrated, events.GateOutcome{
			RunID:   runID,
			Target:  target,
			Applied: applied,
			At:      time.Now().UTC(),
		})
		logger.Info("boot gate passed; migrations applied", "count", len(applied))
		return &model.Result{Kind: model.KindMigrated, Applied: applied}, nil
	}

	g.publish(ctx, logger, events.TopicGateMigrated, events.GateOutcome{
		RunID:   runID,
		Target:  target,
		Applied: applied,
		Halting: true,
		At:      time.Now().UTC(),
	})
	logger.Info("migrations applied; halting for supervisor restart", "count", len(applied))
	// Close flushes any pending outcome event before the process dies.
	if err := g.Publisher.Close(); err != nil {
		logger.Warn("failed to close event publisher", "error", err)
	}
	g.Proc.Halt()
	return nil, nil
}

// Migrated runs the gate without halting and reports whether any migration
// unit was applied. It panics on loader or migration failure.
func (g *Gate) Migrated(ctx context.Context, target string) bool {
	res, err := g.Run(ctx, target, false)
	if err != nil {
		panic(fmt.Sprintf("bootgate: %v", err))
	}
	return res.Migrated()
}

// publish sends a gate outcome event. Best-effort: failures are logged and
// never affect the invocation's result.
func (g *Gate) publish(ctx context.Context, logger *slog.Logger, topic string, event events.GateOutcome) {
	if g.Publisher == nil {
		return
	}
	if err := g.Publisher.Publish(ctx, topic, event); err != nil {
		logger.Warn("failed to publish gate event", "topic", topic, "error", err)
	}
}

func (g *Gate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}
