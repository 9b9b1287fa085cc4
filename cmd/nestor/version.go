package main

import (
	"fmt"
	"strings"

	"github.com/coastalkit/nestor"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of nestor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nestor version %s\n", strings.TrimSpace(nestor.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
