package gitcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBinary is the executable a zero Runner invokes.
const DefaultBinary = "git"

// Executor runs one external command and captures its output.
type Executor interface {
	Run(ctx context.Context, args ...string) (Result, error)
}

// Runner executes git (or another binary such as ssh) with shared logging and output handling.
type Runner struct {
	Binary  string
	Verbose bool
	Dir     string
	Env     []string
	Echo    io.Writer
	Log     *zap.Logger
}

// Result contains captured stdout/stderr and the exit code of a command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

func (r Result) StdoutString(trim bool) string {
	output := string(r.Stdout)
	if trim {
		return strings.TrimSpace(output)
	}
	return output
}

func (r Result) StderrString(trim bool) string {
	output := string(r.Stderr)
	if trim {
		return strings.TrimSpace(output)
	}
	return output
}

// Combined returns stdout followed by stderr. ssh writes its greeting to stderr.
func (r Result) Combined() string {
	return string(r.Stdout) + string(r.Stderr)
}

func (r Runner) withDefaults() Runner {
	if r.Binary == "" {
		r.Binary = DefaultBinary
	}
	if r.Echo == nil {
		r.Echo = os.Stderr
	}
	if r.Log == nil {
		r.Log = zap.NewNop()
	}
	return r
}

func (r Runner) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	if r.Dir != "" {
		cmd.Dir = r.Dir
	}
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	return cmd
}

func (r Runner) echo(args []string) {
	if !r.Verbose {
		return
	}
	fmt.Fprintf(r.Echo, "Running: %s %s\n", r.Binary, strings.Join(args, " "))
}

// Run executes a command and captures stdout/stderr. A non-zero exit is
// returned as an *exec.ExitError with the captured output still in Result.
func (r Runner) Run(ctx context.Context, args ...string) (Result, error) {
	r = r.withDefaults()
	r.echo(args)

	cmd := r.command(ctx, args...)
	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	started := time.Now()
	err := cmd.Run()
	result := Result{Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}

	r.Log.Debug("command finished",
		zap.String("binary", r.Binary),
		zap.Strings("args", args),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	return result, err
}
