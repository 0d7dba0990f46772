package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/groblegark/bootgate/internal/config"
	"github.com/groblegark/bootgate/internal/events"
	"github.com/groblegark/bootgate/internal/fetch"
	"github.com/groblegark/bootgate/internal/gate"
	"github.com/groblegark/bootgate/internal/pg"
)

var (
	runTarget string
	runNoHalt bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply pending migrations for a boot target",
	Long: `Run executes the boot gate for one target: it starts a bounded pool per
configured repository, applies every pending migration unit in order, and
halts the process when anything was applied so the supervisor restarts the
application against the new schema. Pass --no-halt to return instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		source := config.NewTOMLSource(cfg.TargetsFile)
		client := pg.New(cfg.DataDir)

		if cfg.S3Bucket != "" {
			bundles, err := fetch.NewS3Source(cmd.Context(), cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, cfg.S3Endpoint)
			if err != nil {
				return err
			}
			client.Bundles = bundles
			logger.Info("migration bundle source enabled", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		}

		g := gate.New(source, client, client)
		g.Logger = logger
		g.Services = []gate.Service{
			gate.NewTLSService(),
			gate.NewDriverService("postgres"),
		}

		if cfg.NATSURL != "" {
			connector := events.NewConnector(cfg.NATSURL)
			g.Publisher = connector
			g.Services = append(g.Services, gate.ServiceFunc("events", func(ctx context.Context) (gate.StartOutcome, error) {
				fresh, err := connector.Connect(ctx)
				switch {
				case err != nil:
					return gate.StartFailed, err
				case fresh:
					return gate.StartedFresh, nil
				default:
					return gate.AlreadyRunning, nil
				}
			}))
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("events disabled (BOOTGATE_NATS_URL not set)")
		}

		res, err := g.Run(cmd.Context(), runTarget, !runNoHalt)
		if err != nil {
			return err
		}
		if res.Migrated() {
			logger.Info("continuing startup with migrations applied", "versions", res.Applied)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runTarget, "app", "", "boot target name (required)")
	runCmd.Flags().BoolVar(&runNoHalt, "no-halt", false, "return instead of halting when migrations were applied")
	_ = runCmd.MarkFlagRequired("app")
}
