package git

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/samzong/autopush/internal/gitcmd"
)

// fakeExecutor records every invocation and answers from a table keyed by the
// joined argument list.
type fakeExecutor struct {
	calls   [][]string
	results map[string]gitcmd.Result
	errs    map[string]error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{results: map[string]gitcmd.Result{}, errs: map[string]error{}}
}

func (f *fakeExecutor) on(args string, result gitcmd.Result, err error) {
	f.results[args] = result
	if err != nil {
		f.errs[args] = err
	}
}

func (f *fakeExecutor) Run(_ context.Context, args ...string) (gitcmd.Result, error) {
	f.calls = append(f.calls, args)
	key := strings.Join(args, " ")
	return f.results[key], f.errs[key]
}

func (f *fakeExecutor) joinedCalls() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, strings.Join(c, " "))
	}
	return out
}

// createSafeTempRepo initializes a throwaway repository under t.TempDir.
func createSafeTempRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.name", "Test"},
		{"config", "user.email", "test@test.com"},
		{"config", "commit.gpgsign", "false"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	return dir
}
