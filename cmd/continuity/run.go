package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/continuity"
	"github.com/aretw0/continuity/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the restart experiment",
	Long: `Builds the restart experiment for one catalogued application and runs it once.
Interrupting the process cancels the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		exp, err := buildDemo(d, demoConfigFrom(cmd))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if d.styled {
			tui.PrintBanner(cmd.OutOrStdout())
		}

		engine := continuity.NewEngine(continuity.WithLogger(d.logger))
		report, err := engine.Execute(ctx, exp)
		tui.PrintSummary(cmd.OutOrStdout(), report, err)
		if errors.Is(err, context.Canceled) {
			d.logger.Info("run interrupted")
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addDemoFlags(runCmd)
}
