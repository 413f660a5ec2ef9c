package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ASCII art banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{`   ___            _   _             _ _         `, "#818cf8"},
		{`  / __|___ _ _ | |_(_)_ _ _  _ __ (_) |_ _  _  `, "#a78bfa"},
		{` | (__/ _ \ ' \|  _| | ' \ || / _|| |  _| || | `, "#c084fc"},
		{`  \___\___/_||_|\__|_|_||_\_,_\__||_|\__|\_, | `, "#e879f9"},
		{`                                         |__/  `, "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
