// Package term owns the process-wide color decision.
//
// [Configure] runs once during startup (from logging.NewLogger). It fills the
// ANSI variables below, or empties them so that concatenation is a no-op, and
// applies the same decision to pterm so the progress bar matches the logs.
package term

import (
	"os"
	"strings"

	"github.com/pterm/pterm"
	xterm "golang.org/x/term"

	"github.com/backmassage/ogimage/internal/config"
)

// ANSI sequences, empty while colors are off.
var (
	Red     = ""
	Green   = ""
	Yellow  = ""
	Blue    = ""
	Cyan    = ""
	Magenta = ""
	NC      = ""
)

var palette = map[*string]string{
	&Red:     "\033[1;91m",
	&Green:   "\033[1;92m",
	&Yellow:  "\033[1;93m",
	&Blue:    "\033[1;94m",
	&Cyan:    "\033[1;96m",
	&Magenta: "\033[1;95m",
	&NC:      "\033[0m",
}

// Configure applies mode and reports whether colors are on.
func Configure(mode config.ColorMode) bool {
	on := Wanted(mode, IsTerminal(os.Stdout), os.Getenv)
	for v, seq := range palette {
		if on {
			*v = seq
		} else {
			*v = ""
		}
	}
	if on {
		pterm.EnableColor()
	} else {
		pterm.DisableColor()
	}
	return on
}

// Paint wraps s in color when colors are enabled.
func Paint(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + NC
}

// Wanted decides the color mode. Auto means: stdout is a TTY, NO_COLOR
// (https://no-color.org) is unset and TERM is not "dumb".
func Wanted(mode config.ColorMode, tty bool, getenv func(string) string) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	return tty && getenv("NO_COLOR") == "" && !strings.EqualFold(getenv("TERM"), "dumb")
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && xterm.IsTerminal(int(f.Fd()))
}
