package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/coastalkit/nestor/internal/cli"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pipeline phase for a case pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := newLogger(cmd)
		orch, closer, err := cli.BuildOrchestrator(cfg, logger)
		if err != nil {
			return err
		}
		defer closer()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			return cli.WatchStatus(ctx, orch, cfg.FulldomainDir, cfg.SubdomainDir, cmd.OutOrStdout(), logger)
		}

		state, err := orch.Status(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run:     %s\n", state.RunID)
		fmt.Fprintf(out, "phase:   %s\n", state.Phase)
		if !state.UpdatedAt.IsZero() {
			fmt.Fprintf(out, "updated: %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		if state.Halted != "" {
			fmt.Fprintf(out, "halted:  %s\n", state.Halted)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	addCaseFlags(statusCmd)
	statusCmd.Flags().Bool("watch", false, "Keep printing status as the case directories change")
}
