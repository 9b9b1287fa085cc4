package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/coastalkit/nestor/internal/cli"
	"github.com/coastalkit/nestor/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nestor",
	Short: "nestor orchestrates nested coastal circulation simulations",
	Long: `nestor runs the two-domain workflow: a coarse fulldomain simulation
drives a refined subdomain simulation through extracted boundary
conditions, and the two solutions are compared node by node.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML job file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// newLogger builds the command logger from the --debug flag.
func newLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(slog.LevelInfo)
}

// loadConfig assembles the job config: the --config file when given, then
// flag overrides on top.
func loadConfig(cmd *cobra.Command) (*cli.JobConfig, error) {
	cfg := &cli.JobConfig{}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := cli.LoadJobConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	override := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	if f := cmd.Flags().Lookup("full"); f != nil {
		override("full", func() { cfg.FulldomainDir, _ = cmd.Flags().GetString("full") })
		override("sub", func() { cfg.SubdomainDir, _ = cmd.Flags().GetString("sub") })
	}
	if f := cmd.Flags().Lookup("exe-dir"); f != nil {
		override("exe-dir", func() { cfg.ExeDir, _ = cmd.Flags().GetString("exe-dir") })
	}
	if f := cmd.Flags().Lookup("nprocs"); f != nil {
		override("nprocs", func() { cfg.NumProcs, _ = cmd.Flags().GetInt("nprocs") })
	}
	if f := cmd.Flags().Lookup("h0"); f != nil {
		override("h0", func() { cfg.H0, _ = cmd.Flags().GetFloat64("h0") })
	}
	if f := cmd.Flags().Lookup("state-dir"); f != nil {
		override("state-dir", func() { cfg.Store.Path, _ = cmd.Flags().GetString("state-dir") })
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// addCaseFlags registers the flags shared by commands operating on a case
// pair.
func addCaseFlags(cmd *cobra.Command) {
	cmd.Flags().String("full", "", "Fulldomain case directory")
	cmd.Flags().String("sub", "", "Subdomain case directory")
	cmd.Flags().String("state-dir", "", "Directory for phase state and locks (file backend)")
}
