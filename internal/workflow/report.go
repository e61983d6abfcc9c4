package workflow

import (
	"fmt"
	"strings"
)

// Step names, in execution order.
const (
	StepEnsureRepository = "ensure-repository"
	StepDetectChanges    = "detect-changes"
	StepStage            = "stage"
	StepDeriveMessage    = "derive-message"
	StepConfirm          = "confirm"
	StepCommit           = "commit"
	StepNormalizeBranch  = "normalize-branch"
	StepConfigureRemote  = "configure-remote"
	StepPush             = "push"
)

// Outcome classifies how a step ended.
type Outcome int

const (
	Success Outcome = iota
	NoOp
	Recovered
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NoOp:
		return "no-op"
	case Recovered:
		return "recovered"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// StepResult records one step. Halt stops the run without failing it.
type StepResult struct {
	Step    string
	Outcome Outcome
	Detail  string
	Err     error
	Halt    bool
}

// Report is the ordered list of executed steps plus what was committed where.
type Report struct {
	Steps     []StepResult
	Message   string
	Branch    string
	RemoteURL string
}

func (r *Report) add(res StepResult) {
	r.Steps = append(r.Steps, res)
}

// Step returns the result for name, if that step ran.
func (r *Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Halted reports whether a step ended the run early without error.
func (r *Report) Halted() bool {
	if len(r.Steps) == 0 {
		return false
	}
	last := r.Steps[len(r.Steps)-1]
	return last.Halt && last.Outcome != Fatal
}

// Committed reports whether a commit was created.
func (r *Report) Committed() bool {
	s, ok := r.Step(StepCommit)
	return ok && s.Outcome == Success
}

// Summary renders one line per step.
func (r *Report) Summary() string {
	var b strings.Builder
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "%-18s %-9s %s\n", s.Step, s.Outcome, s.Detail)
	}
	return strings.TrimRight(b.String(), "\n")
}
