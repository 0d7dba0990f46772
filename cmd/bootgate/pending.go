package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/bootgate/internal/config"
	"github.com/groblegark/bootgate/internal/gate"
	"github.com/groblegark/bootgate/internal/pg"
)

var pendingTarget string

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending migration units without applying them",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		source := config.NewTOMLSource(cfg.TargetsFile)
		if err := source.Load(pendingTarget); err != nil {
			return err
		}

		client := pg.New(cfg.DataDir)
		defer client.Close()

		for _, repo := range source.Repos(pendingTarget) {
			outcome, err := client.Start(cmd.Context(), repo)
			if outcome == gate.StartFailed {
				logger.Warn("repository pool failed to start; skipping", "repo", repo.Name, "error", err)
				continue
			}
			versions, err := client.Pending(cmd.Context(), repo)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Printf("%s: up to date\n", repo.Name)
				continue
			}
			fmt.Printf("%s: %d pending %v\n", repo.Name, len(versions), versions)
		}
		return nil
	},
}

func init() {
	pendingCmd.Flags().StringVar(&pendingTarget, "app", "", "boot target name (required)")
	_ = pendingCmd.MarkFlagRequired("app")
}
