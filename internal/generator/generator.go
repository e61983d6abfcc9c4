// Package generator turns a staged change payload into a finished commit message.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/samzong/autopush/internal/formatter"
	"github.com/samzong/autopush/internal/llm"
	"github.com/samzong/autopush/internal/ui"
	"go.uber.org/zap"
)

// NoChangeMessage is returned for an empty payload without contacting the backend.
const NoChangeMessage = "🔧 Update"

// Options configures a Generator.
type Options struct {
	Backend      llm.Backend
	Template     string
	LengthCap    int
	ShowProgress bool
	Logger       *zap.Logger
}

// Generator builds a prompt, asks the backend and post-processes the answer.
type Generator struct {
	backend      llm.Backend
	template     string
	lengthCap    int
	showProgress bool
	log          *zap.Logger
}

func New(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lengthCap := opts.LengthCap
	if lengthCap <= 0 {
		lengthCap = formatter.DefaultLengthCap
	}
	return &Generator{
		backend:      opts.Backend,
		template:     opts.Template,
		lengthCap:    lengthCap,
		showProgress: opts.ShowProgress,
		log:          logger,
	}
}

// Generate returns a finalized commit message for payload. files is the list
// of changed paths shown to the model alongside the diff.
func (g *Generator) Generate(ctx context.Context, payload string, files []string) (string, error) {
	if strings.TrimSpace(payload) == "" {
		return NoChangeMessage, nil
	}
	if g.backend == nil {
		return "", fmt.Errorf("%w: no backend configured", llm.ErrBackendUnavailable)
	}

	prompt := g.buildPrompt(payload, files)

	if g.showProgress {
		sp := ui.NewSpinner("Generating commit message...")
		sp.Start()
		defer sp.Stop()
	}

	raw, err := g.backend.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	msg, truncated := formatter.Finalize(raw, g.lengthCap)
	if msg == "" {
		return "", fmt.Errorf("%w: nothing left after sanitizing %q", llm.ErrInvalidResponse, raw)
	}
	g.log.Debug("message generated",
		zap.String("message", msg),
		zap.Bool("truncated", truncated),
	)
	return msg, nil
}

func (g *Generator) buildPrompt(payload string, files []string) string {
	content, err := formatter.LoadTemplate(g.template)
	if err != nil {
		g.log.Warn("prompt template unavailable, using default", zap.String("template", g.template), zap.Error(err))
		content, _ = formatter.LoadTemplate(formatter.DefaultTemplate)
	}

	prompt, err := formatter.BuildPrompt(content, files, payload, g.lengthCap)
	if err != nil {
		g.log.Warn("prompt template failed to render, using default", zap.Error(err))
	}
	return prompt
}
