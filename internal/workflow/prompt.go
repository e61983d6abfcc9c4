package workflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned when confirmation is needed but stdin is not a terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal, use --yes to skip interactive confirmation")

// Prompter shows the proposed message and returns the user's reply.
// An empty reply accepts the proposal.
type Prompter interface {
	Confirm(ctx context.Context, proposed string) (string, error)
}

// InteractivePrompter reads one line from Stdin. Cancelling ctx abandons the
// read so Ctrl-C is honoured while waiting for input.
type InteractivePrompter struct {
	ErrWriter io.Writer
	Stdin     io.Reader
}

type readResult struct {
	line string
	err  error
}

func (p *InteractivePrompter) Confirm(ctx context.Context, proposed string) (string, error) {
	stdin := p.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	errw := p.ErrWriter
	if errw == nil {
		errw = os.Stderr
	}

	if f, ok := stdin.(*os.File); ok {
		if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
			return "", ErrNotInteractive
		}
	}

	fmt.Fprintf(errw, "\n🤖 Proposed message: %s\n", proposed)
	fmt.Fprintln(errw, "Options:")
	fmt.Fprintln(errw, "  [Enter] - accept the proposed message")
	fmt.Fprintln(errw, "  [Text]  - type a new message")
	fmt.Fprint(errw, "Your choice: ")

	lines := make(chan readResult, 1)
	go func() {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		lines <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(errw)
		return "", ctx.Err()
	case res := <-lines:
		if res.err != nil && !(errors.Is(res.err, io.EOF) && res.line != "") {
			return "", fmt.Errorf("failed to read user input: %w", res.err)
		}
		return strings.TrimSpace(res.line), nil
	}
}
