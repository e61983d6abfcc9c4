package cmd

import (
	"io"
	"os"

	"github.com/samzong/autopush/internal/ui"
)

var (
	outWriterFunc   = func() io.Writer { return os.Stdout }
	errWriterFunc   = func() io.Writer { return os.Stderr }
	stdinIsTerminal = func() bool { return ui.IsTerminal(os.Stdin) }
)

func init() {
	outWriterFunc = func() io.Writer { return rootCmd.OutOrStdout() }
	errWriterFunc = func() io.Writer { return rootCmd.ErrOrStderr() }
}

func outWriter() io.Writer {
	return outWriterFunc()
}

func errWriter() io.Writer {
	return errWriterFunc()
}

// terminalWidth sizes report rules to stdout when it is a terminal.
func terminalWidth() int {
	if f, ok := outWriter().(*os.File); ok {
		return ui.TerminalWidth(f)
	}
	return ui.DefaultWidth
}
