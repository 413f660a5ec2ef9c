package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/continuity"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of continuity",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "continuity version %s\n", strings.TrimSpace(continuity.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
