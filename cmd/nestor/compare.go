package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/coastalkit/nestor"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare existing solver outputs without running anything",
	Long: `Reads the already-computed fulldomain and subdomain outputs and prints
the per-variable discrepancy at corresponding nodes. Both runs must have
finished; use this to re-check a pair after tweaking comparison variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := newLogger(cmd)
		pipe := nestor.New(cfg.FulldomainDir, cfg.SubdomainDir,
			nestor.WithLogger(logger),
			nestor.WithOutputVariables(cfg.TimeseriesVars, cfg.ExtremaVars),
		)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ts, _ := cmd.Flags().GetStringSlice("timeseries")
		nts, _ := cmd.Flags().GetStringSlice("extrema")

		result, err := pipe.Compare(ctx, ts, nts)
		if err != nil {
			return err
		}

		printComparison(cmd, result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	addCaseFlags(compareCmd)
	compareCmd.Flags().StringSlice("timeseries", nil, "Time-varying output files to compare (e.g. fort.63)")
	compareCmd.Flags().StringSlice("extrema", nil, "Extrema output files to compare (e.g. maxele.63)")
}
