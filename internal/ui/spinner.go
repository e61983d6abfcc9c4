package ui

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// Spinner wraps briandowns/spinner and stays silent when out is not a terminal.
type Spinner struct {
	s       *spinner.Spinner
	enabled bool
}

// NewSpinner creates a spinner on stderr.
func NewSpinner(message string) *Spinner {
	return NewSpinnerOn(os.Stderr, message)
}

// NewSpinnerOn creates a spinner that only draws when out is a TTY.
func NewSpinnerOn(out *os.File, message string) *Spinner {
	if out == nil || !IsTerminal(out) {
		return &Spinner{}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + message
	return &Spinner{s: s, enabled: true}
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (sp *Spinner) Start() {
	if sp.enabled {
		sp.s.Start()
	}
}

func (sp *Spinner) Stop() {
	if sp.enabled {
		sp.s.Stop()
	}
}
