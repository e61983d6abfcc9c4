package diagnose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Action is one remediation step and its outcome.
type Action struct {
	Name   string
	Status Status
	Detail string
}

// RemediationReport lists the actions taken. Err aggregates every failed action.
type RemediationReport struct {
	Actions []Action
	// Exports holds shell lines that make a newly started agent visible to the user's shell.
	Exports []string
	Err     error
}

var agentVarPattern = regexp.MustCompile(`(SSH_AUTH_SOCK|SSH_AGENT_PID)=([^;\s]+);`)

// ParseAgentOutput reads the variables printed by `ssh-agent -s`.
func ParseAgentOutput(output string) map[string]string {
	vars := map[string]string{}
	for _, m := range agentVarPattern.FindAllStringSubmatch(output, -1) {
		vars[m[1]] = m[2]
	}
	return vars
}

// Remediate applies the fixes: a missing git identity is set from the
// configuration, an agent is started when none is reachable, and every
// configured key that exists is added to it. Each action is best-effort.
func (d *Diagnoser) Remediate(ctx context.Context) RemediationReport {
	var (
		rep  RemediationReport
		errs *multierror.Error
	)
	record := func(a Action, err error) {
		if err != nil {
			a.Status = StatusFail
			a.Detail = err.Error()
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", a.Name, err))
			d.log.Warn("remediation failed", zap.String("action", a.Name), zap.Error(err))
		}
		rep.Actions = append(rep.Actions, a)
	}

	if d.opts.Git != nil {
		d.fixIdentity(ctx, "user.name", d.opts.UserName, "git_user_name", record)
		d.fixIdentity(ctx, "user.email", d.opts.UserEmail, "git_user_email", record)
	}

	env := d.ensureAgent(ctx, &rep, record)
	d.addKeys(ctx, env, record)

	rep.Err = errs.ErrorOrNil()
	return rep
}

func (d *Diagnoser) fixIdentity(ctx context.Context, key, value, configKey string, record func(Action, error)) {
	name := "git " + key
	current, err := d.opts.Git.GlobalConfig(ctx, key)
	if err != nil {
		record(Action{Name: name}, err)
		return
	}
	if current != "" {
		record(Action{Name: name, Status: StatusSkip, Detail: "already set to " + current}, nil)
		return
	}
	if value == "" {
		record(Action{Name: name, Status: StatusSkip, Detail: fmt.Sprintf("not set, configure %s first", configKey)}, nil)
		return
	}
	err = d.opts.Git.SetGlobalConfig(ctx, key, value)
	record(Action{Name: name, Status: StatusOK, Detail: "set to " + value}, err)
}

// ensureAgent returns the environment entries ssh-add needs to reach the agent.
func (d *Diagnoser) ensureAgent(ctx context.Context, rep *RemediationReport, record func(Action, error)) []string {
	const name = "ssh-agent"
	if d.opts.AgentSocket != "" {
		if _, err := agentKeys(ctx, d.opts.AgentSocket); err == nil {
			record(Action{Name: name, Status: StatusSkip, Detail: "agent already running"}, nil)
			return []string{"SSH_AUTH_SOCK=" + d.opts.AgentSocket}
		}
	}

	result, err := d.opts.Command("ssh-agent").Run(ctx, "-s")
	if err != nil {
		record(Action{Name: name}, fmt.Errorf("failed to start agent: %w", err))
		return nil
	}
	vars := ParseAgentOutput(result.StdoutString(false))
	sock := vars["SSH_AUTH_SOCK"]
	if sock == "" {
		record(Action{Name: name}, fmt.Errorf("unexpected ssh-agent output: %s", result.StdoutString(true)))
		return nil
	}

	env := []string{"SSH_AUTH_SOCK=" + sock}
	rep.Exports = append(rep.Exports, fmt.Sprintf("export SSH_AUTH_SOCK=%s", sock))
	if pid := vars["SSH_AGENT_PID"]; pid != "" {
		env = append(env, "SSH_AGENT_PID="+pid)
		rep.Exports = append(rep.Exports, fmt.Sprintf("export SSH_AGENT_PID=%s", pid))
	}
	record(Action{Name: name, Status: StatusOK, Detail: "started, socket " + sock}, nil)
	return env
}

func (d *Diagnoser) addKeys(ctx context.Context, env []string, record func(Action, error)) {
	if len(env) == 0 {
		return
	}
	for _, keyName := range d.opts.KeyNames {
		path := filepath.Join(d.sshDir(), keyName)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		name := "ssh-add " + keyName
		result, err := d.opts.Command("ssh-add", env...).Run(ctx, path)
		if err != nil {
			if out := firstLine(result.Combined()); out != "" {
				err = fmt.Errorf("%s: %w", out, err)
			}
			record(Action{Name: name}, err)
			continue
		}
		record(Action{Name: name, Status: StatusOK, Detail: "key added"}, nil)
	}
}
