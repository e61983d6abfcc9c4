package diagnose

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/samzong/autopush/internal/gitcmd"
	"github.com/samzong/autopush/internal/github"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

type call struct {
	binary string
	env    []string
	args   []string
}

type scripted struct {
	result gitcmd.Result
	err    error
}

// fakeCommands answers per binary and records every invocation.
type fakeCommands struct {
	mu      sync.Mutex
	results map[string]scripted
	calls   []call
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{results: map[string]scripted{}}
}

func (f *fakeCommands) on(binary string, result gitcmd.Result, err error) {
	f.results[binary] = scripted{result: result, err: err}
}

func (f *fakeCommands) factory() CommandFactory {
	return func(binary string, env ...string) gitcmd.Executor {
		return fakeExec{parent: f, binary: binary, env: env}
	}
}

func (f *fakeCommands) called(binary string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.binary == binary {
			out = append(out, c)
		}
	}
	return out
}

type fakeExec struct {
	parent *fakeCommands
	binary string
	env    []string
}

func (e fakeExec) Run(_ context.Context, args ...string) (gitcmd.Result, error) {
	e.parent.mu.Lock()
	defer e.parent.mu.Unlock()
	e.parent.calls = append(e.parent.calls, call{binary: e.binary, env: e.env, args: args})
	s, ok := e.parent.results[e.binary]
	if !ok {
		return gitcmd.Result{ExitCode: -1}, errors.New("executable file not found")
	}
	return s.result, s.err
}

type fakeGitConfig struct {
	values  map[string]string
	version string
	err     error
	sets    map[string]string
}

func (f *fakeGitConfig) GlobalConfig(_ context.Context, key string) (string, error) {
	return f.values[key], f.err
}

func (f *fakeGitConfig) SetGlobalConfig(_ context.Context, key, value string) error {
	if f.sets == nil {
		f.sets = map[string]string{}
	}
	f.sets[key] = value
	return nil
}

func (f *fakeGitConfig) Version(context.Context) (string, error) {
	return f.version, nil
}

type fakeBackend struct {
	err error
}

func (f fakeBackend) TestConnection(context.Context) error { return f.err }
func (f fakeBackend) Name() string                         { return "ollama" }
func (f fakeBackend) Model() string                        { return "mistral" }

type fakeGitHub struct {
	repo github.Repository
	err  error
}

func (f fakeGitHub) Repository(_ context.Context, owner, name string) (github.Repository, error) {
	if f.err == nil && f.repo.FullName == "" {
		f.repo.FullName = owner + "/" + name
	}
	return f.repo, f.err
}

// writeKeyPair creates ~/.ssh/<name> and <name>.pub under home and returns the private key.
func writeKeyPair(t *testing.T, home, name string) ed25519.PrivateKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)

	dir := filepath.Join(home, ".ssh")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))) + " dev@example.com\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".pub"), []byte(line), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("private"), 0o600))
	return priv
}

// startAgent serves an in-memory keyring on a unix socket.
func startAgent(t *testing.T, keys ...ed25519.PrivateKey) string {
	t.Helper()
	keyring := agent.NewKeyring()
	for _, k := range keys {
		require.NoError(t, keyring.Add(agent.AddedKey{PrivateKey: k, Comment: "test-key"}))
	}

	sock := filepath.Join(t.TempDir(), "agent.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_ = agent.ServeAgent(keyring, conn)
			}()
		}
	}()
	return sock
}
