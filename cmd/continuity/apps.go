package main

import (
	"fmt"

	"github.com/aretw0/continuity/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List the applications of the catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		out, err := tui.NewRenderer(d.styled)(tui.CatalogueMarkdown(d.catalogue))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(appsCmd)
}
