// Package color provides terminal color output for the regis CLI.
// It respects the NO_COLOR environment variable (https://no-color.org/).
package color

import (
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/term"
)

var state struct {
	once       sync.Once
	enabled    atomic.Bool
	overridden atomic.Bool
}

// Init decides once whether color is on. Color needs a terminal on stdout and
// is turned off by NO_COLOR, TERM=dumb or the --no-color flag.
func Init(noColorFlag bool) {
	state.once.Do(func() {
		if state.overridden.Load() {
			return
		}
		_, noColor := os.LookupEnv("NO_COLOR")
		disabled := noColor || os.Getenv("TERM") == "dumb" || noColorFlag ||
			!term.IsTerminal(int(os.Stdout.Fd()))
		state.enabled.Store(!disabled)
	})
}

// Enabled returns true if color output is enabled.
func Enabled() bool {
	Init(false)
	return state.enabled.Load()
}

// Disable turns off color output.
func Disable() {
	state.overridden.Store(true)
	state.enabled.Store(false)
}

// Enable turns on color output.
func Enable() {
	state.overridden.Store(true)
	state.enabled.Store(true)
}

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

func wrap(code, s string) string {
	if !Enabled() {
		return s
	}
	return code + s + reset
}

// Success formats a success message in green.
func Success(s string) string { return wrap(green, s) }

// Error formats an error prefix in bold red.
func Error(s string) string { return wrap(bold+red, s) }

// Warning formats a warning in yellow.
func Warning(s string) string { return wrap(yellow, s) }

// Highlight formats identifiers and names in cyan.
func Highlight(s string) string { return wrap(cyan, s) }

// Header formats a table header in bold.
func Header(s string) string { return wrap(bold, s) }

// Dim formats secondary information.
func Dim(s string) string { return wrap(dim, s) }
