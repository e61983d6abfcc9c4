package diagnose

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

const (
	authenticatedMarker = "successfully authenticated"
	unknownIdentity     = "unknown"
	agentDialTimeout    = 2 * time.Second
)

// KeyInfo describes one public key found under ~/.ssh.
type KeyInfo struct {
	File        string
	Type        string
	Fingerprint string
	Comment     string
}

// ListKeys parses every id_*.pub file in dir.
func ListKeys(dir string) ([]KeyInfo, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("ssh directory %s: %w", dir, err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "id_*.pub"))
	if err != nil {
		return nil, fmt.Errorf("failed to list SSH keys: %w", err)
	}

	keys := make([]KeyInfo, 0, len(paths))
	for _, p := range paths {
		info := KeyInfo{File: filepath.Base(p)}
		data, err := os.ReadFile(p)
		if err == nil {
			var pub ssh.PublicKey
			pub, info.Comment, _, _, err = ssh.ParseAuthorizedKey(data)
			if err == nil {
				info.Type = pub.Type()
				info.Fingerprint = ssh.FingerprintSHA256(pub)
			}
		}
		keys = append(keys, info)
	}
	return keys, nil
}

func (k KeyInfo) String() string {
	if k.Fingerprint == "" {
		return k.File + " (unreadable)"
	}
	s := fmt.Sprintf("%s %s %s", k.File, k.Type, k.Fingerprint)
	if k.Comment != "" {
		s += " " + k.Comment
	}
	return s
}

func (d *Diagnoser) checkKeys(_ context.Context, _ *Report) Result {
	keys, err := ListKeys(d.sshDir())
	if err != nil {
		return Result{Status: StatusFail, Detail: "~/.ssh directory not found"}
	}
	if len(keys) == 0 {
		return Result{Status: StatusFail, Detail: "no SSH public keys found"}
	}

	res := Result{Status: StatusOK, Detail: fmt.Sprintf("%d key(s) found", len(keys))}
	for _, k := range keys {
		if k.Fingerprint == "" {
			res.Status = StatusWarn
		}
		res.Lines = append(res.Lines, k.String())
	}
	return res
}

func (d *Diagnoser) checkAgent(ctx context.Context, _ *Report) Result {
	if d.opts.AgentSocket == "" {
		return Result{Status: StatusWarn, Detail: "SSH_AUTH_SOCK not set, no agent running"}
	}

	keys, err := agentKeys(ctx, d.opts.AgentSocket)
	if err != nil {
		d.log.Debug("agent unreachable", zap.Error(err))
		return Result{Status: StatusWarn, Detail: "agent unreachable: " + err.Error()}
	}
	if len(keys) == 0 {
		return Result{Status: StatusWarn, Detail: "agent running, no keys loaded"}
	}

	res := Result{Status: StatusOK, Detail: fmt.Sprintf("%d key(s) loaded", len(keys))}
	for _, k := range keys {
		res.Lines = append(res.Lines, fmt.Sprintf("%s %s %s", k.Type(), ssh.FingerprintSHA256(k), k.Comment))
	}
	return res
}

func agentKeys(ctx context.Context, socket string) ([]*agent.Key, error) {
	dialer := net.Dialer{Timeout: agentDialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", socket)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return agent.NewClient(conn).List()
}

func (d *Diagnoser) checkProbe(ctx context.Context, r *Report) Result {
	probe := d.opts.Command("ssh")
	result, err := probe.Run(ctx, "-T", "-o", "BatchMode=yes", "-o", "ConnectTimeout=10", d.opts.SSHHost)
	output := strings.TrimSpace(result.Combined())

	if strings.Contains(output, authenticatedMarker) {
		r.Identity = ParseGreeting(output)
		return Result{Status: StatusOK, Detail: fmt.Sprintf("authenticated to %s as %s", d.opts.SSHHost, r.Identity)}
	}

	// the runner reports -1 when the binary could not be started
	if err != nil && result.ExitCode == -1 {
		return Result{Status: StatusFail, Detail: "ssh not available: " + err.Error()}
	}
	if output == "" {
		output = "no output"
	}
	return Result{Status: StatusFail, Detail: "SSH connection failed: " + firstLine(output)}
}

// ParseGreeting extracts the account name from the host's greeting,
// e.g. "Hi octo! You've successfully authenticated".
func ParseGreeting(output string) string {
	_, rest, ok := strings.Cut(output, "Hi ")
	if !ok {
		return unknownIdentity
	}
	name, _, ok := strings.Cut(rest, "!")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return unknownIdentity
	}
	return name
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
