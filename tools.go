//go:build tools

package tools

// Tool dependencies for man page generation (cmd/gendoc).
import (
	_ "github.com/spf13/cobra/doc"
)
