package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "continuity",
	Short: "Continuity runs experiment workflows against restartable applications",
	Long: `Continuity assembles experiments (actions, bounded loops, branches and
concurrent threads) and runs them against the applications of a catalogue.

The built-in experiment restarts one catalogued application a number of times,
optionally probing it after every restart.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("log-level", envOr("CONTINUITY_LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	pf.String("log-format", "text", "Log format: text or json")
	pf.String("catalogue", "", "YAML or JSON file merged over the built-in application catalogue")
	pf.String("redis", os.Getenv("CONTINUITY_REDIS_URL"), "Redis URL; when set, the per-application locks are shared between hosts")
	pf.Bool("dry-run", false, "Log the commands instead of executing them")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
