package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samzong/autopush/cmd"
	"github.com/samzong/autopush/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx); err != nil {
		if ctx.Err() != nil || errors.Is(err, workflow.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "❌ Error:", err)
		os.Exit(1)
	}
}
