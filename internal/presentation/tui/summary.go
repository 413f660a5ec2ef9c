package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/continuity/internal/runtime"
	"github.com/aretw0/continuity/pkg/catalogue"
	"github.com/aretw0/continuity/pkg/domain"
	"github.com/muesli/termenv"
)

// PrintSummary writes a coloured one-paragraph outcome of a run.
func PrintSummary(w io.Writer, report *runtime.Report, err error) {
	out := termenv.NewOutput(w)

	status := out.String("✔ succeeded").Foreground(out.Color("#22c55e")).Bold()
	if err != nil {
		status = out.String("✘ failed").Foreground(out.Color("#ef4444")).Bold()
	}

	fmt.Fprintf(w, "%s %s\n", status, out.String(report.Experiment).Bold())
	fmt.Fprintf(w, "  run:       %s\n", report.RunID)
	fmt.Fprintf(w, "  actions:   %d\n", report.Actions)
	fmt.Fprintf(w, "  recovered: %d\n", report.Recovered)
	fmt.Fprintf(w, "  duration:  %s\n", report.Duration.Round(1e6))

	if err == nil {
		return
	}
	var runErr *domain.RunError
	if errors.As(err, &runErr) {
		fmt.Fprintf(w, "  element:   %s\n", runErr.Element)
		if runErr.Action != "" {
			fmt.Fprintf(w, "  action:    %s\n", runErr.Action)
		}
		fmt.Fprintf(w, "  cause:     %s\n", out.String(runErr.Cause.Error()).Foreground(out.Color("#ef4444")))
		return
	}
	fmt.Fprintf(w, "  error:     %s\n", out.String(err.Error()).Foreground(out.Color("#ef4444")))
}

// CatalogueMarkdown renders the applications as a markdown table.
func CatalogueMarkdown(c *catalogue.Catalogue) string {
	var b strings.Builder
	b.WriteString("# Applications\n\n")
	b.WriteString("| Key | Restart | Checkout |\n")
	b.WriteString("|-----|---------|----------|\n")
	for _, app := range c.Applications() {
		fmt.Fprintf(&b, "| %s | `%s` | %s |\n", app.Key, cell(app.RestartCommand), checkoutCell(app.CheckoutCommand))
	}
	return b.String()
}

func checkoutCell(cmd string) string {
	if cmd == catalogue.Undefined {
		return "_undefined_"
	}
	return "`" + cell(cmd) + "`"
}

// cell escapes the pipes that would split a table cell.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ExperimentMarkdown wraps the indented dump of an experiment in a markdown document.
func ExperimentMarkdown(name string, count int, render string) string {
	return fmt.Sprintf("# Experiment %s\n\n%d actions per run.\n\n```\n%s```\n", name, count, render)
}
