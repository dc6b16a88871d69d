// Package output renders scheduler metrics and fetch results for asyncctl, the way
// fleet's internal/output package renders cluster results: a color scheme plus a
// kubectl-style table formatter.
package output

import (
	"io"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme provides color functions for different output elements. Colors are
// automatically disabled for non-TTY outputs or when noColor is requested.
type ColorScheme struct {
	Metric   func(format string, a ...interface{}) string
	Success  func(format string, a ...interface{}) string
	Error    func(format string, a ...interface{}) string
	Header   func(format string, a ...interface{}) string
	Disabled bool
}

// NewColorScheme builds a ColorScheme for writer w.
func NewColorScheme(w io.Writer, noColor bool) *ColorScheme {
	if !noColor && isTTY(w) {
		return &ColorScheme{
			Metric:  color.New(color.FgCyan).Sprintf,
			Success: color.New(color.FgGreen).Sprintf,
			Error:   color.New(color.FgRed, color.Bold).Sprintf,
			Header:  color.New(color.FgWhite, color.Bold).Sprintf,
		}
	}
	return &ColorScheme{
		Metric:   color.New().Sprintf,
		Success:  color.New().Sprintf,
		Error:    color.New().Sprintf,
		Header:   color.New().Sprintf,
		Disabled: true,
	}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
