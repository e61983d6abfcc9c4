package gitutil

import (
	"errors"
	"fmt"
	"strings"
)

var errEmptyBranch = errors.New("branch name cannot be empty")

// forbiddenInRef are sequences git check-ref-format rejects anywhere in a name.
var forbiddenInRef = []string{"..", "@{", "//", "\\", " ", "~", "^", ":", "?", "*", "["}

// ValidateBranchName applies the subset of git's ref-name rules that matter
// for `git branch -M` and `git push origin <name>`.
func ValidateBranchName(name string) error {
	if name == "" {
		return errEmptyBranch
	}
	switch {
	case strings.HasPrefix(name, "-"):
		return fmt.Errorf("branch name %q cannot start with '-'", name)
	case name == "@":
		return fmt.Errorf("branch name %q is reserved", name)
	case strings.HasPrefix(name, "/"), strings.HasSuffix(name, "/"):
		return fmt.Errorf("branch name %q cannot start or end with '/'", name)
	case strings.HasSuffix(name, "."), strings.HasSuffix(name, ".lock"):
		return fmt.Errorf("branch name %q cannot end with '.' or '.lock'", name)
	}
	for _, seq := range forbiddenInRef {
		if strings.Contains(name, seq) {
			return fmt.Errorf("branch name %q contains %q", name, seq)
		}
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("branch name %q contains a control character", name)
		}
	}
	for part := range strings.SplitSeq(name, "/") {
		if strings.HasPrefix(part, ".") {
			return fmt.Errorf("branch name %q has a component starting with '.'", name)
		}
	}
	return nil
}
