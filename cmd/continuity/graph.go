package main

import (
	"fmt"

	"github.com/aretw0/continuity/internal/presentation/graph"
	"github.com/aretw0/continuity/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the experiment graph",
	Long: `Prints the indented description of the restart experiment, or a Mermaid
diagram (graph TD) with --mermaid.`,
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

		if mermaid, _ := cmd.Flags().GetBool("mermaid"); mermaid {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(exp, nil))
			return nil
		}

		out, err := tui.NewRenderer(d.styled)(tui.ExperimentMarkdown(exp.Name(), exp.Count(), exp.Render("")))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	addDemoFlags(graphCmd)
	graphCmd.Flags().Bool("mermaid", false, "Output a Mermaid flowchart")
}
