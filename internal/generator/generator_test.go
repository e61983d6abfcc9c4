package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/samzong/autopush/internal/emoji"
	"github.com/samzong/autopush/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeBackend struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeBackend) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestGenerateEmptyPayloadSkipsBackend(t *testing.T) {
	backend := &fakeBackend{reply: "✨ Should not be used"}
	g := New(Options{Backend: backend})

	for _, payload := range []string{"", "  \n\t"} {
		msg, err := g.Generate(context.Background(), payload, nil)
		require.NoError(t, err)
		assert.Equal(t, NoChangeMessage, msg)
	}
	assert.Empty(t, backend.prompts)
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		cap      int
		expected string
	}{
		{"clean reply", "✨ Add login page", 50, "✨ Add login page"},
		{"conventional reply", "fix(parser): handle empty input.", 50, "🐛 Handle empty input"},
		{"chatty reply", "\"Update docs\"\n\nThis message describes...", 50, "📝 Update docs"},
		{"long reply", "Add support for configuring the remote policy from the CLI", 30, "✨ Add support for configuri..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{reply: tt.reply}
			g := New(Options{Backend: backend, LengthCap: tt.cap})

			msg, err := g.Generate(context.Background(), "diff --git a/a b/a\n+x", []string{"a"})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, msg)
			assert.LessOrEqual(t, utf8.RuneCountInString(msg), tt.cap)
			assert.True(t, emoji.HasAllowedPrefix(msg))
			require.Len(t, backend.prompts, 1)
		})
	}
}

func TestGeneratePromptContents(t *testing.T) {
	backend := &fakeBackend{reply: "✨ Add x"}
	g := New(Options{Backend: backend, Template: "detailed", LengthCap: 40})

	_, err := g.Generate(context.Background(), "diff --git a/main.go b/main.go\n+func main() {}", []string{"main.go"})
	require.NoError(t, err)

	prompt := backend.prompts[0]
	assert.Contains(t, prompt, "main.go")
	assert.Contains(t, prompt, "+func main() {}")
	assert.Contains(t, prompt, "max 40 characters")
	assert.Contains(t, prompt, "explain why")
}

func TestGenerateBackendErrors(t *testing.T) {
	tests := []struct {
		name      string
		backend   *fakeBackend
		expectErr error
	}{
		{"unavailable", &fakeBackend{err: llm.ErrBackendUnavailable}, llm.ErrBackendUnavailable},
		{"timeout", &fakeBackend{err: context.DeadlineExceeded}, context.DeadlineExceeded},
		{"sanitized to nothing", &fakeBackend{reply: "\"\""}, llm.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(Options{Backend: tt.backend})
			msg, err := g.Generate(context.Background(), "+x", nil)
			assert.Empty(t, msg)
			assert.True(t, errors.Is(err, tt.expectErr), "got %v", err)
		})
	}
}

func TestGenerateWithoutBackend(t *testing.T) {
	_, err := New(Options{}).Generate(context.Background(), "+x", nil)
	assert.ErrorIs(t, err, llm.ErrBackendUnavailable)
}

func TestGenerateMissingTemplateFallsBack(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	backend := &fakeBackend{reply: "✨ Add x"}
	g := New(Options{
		Backend:  backend,
		Template: filepath.Join(t.TempDir(), "missing.yaml"),
		Logger:   zap.New(core),
	})

	msg, err := g.Generate(context.Background(), "+x", []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, "✨ Add x", msg)
	assert.Contains(t, backend.prompts[0], "Short message:")
	assert.Equal(t, 1, logs.FilterMessage("prompt template unavailable, using default").Len())
}

func TestGenerateCustomTemplateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("template: \"CUSTOM {{.MaxLength}} {{.Files}}\"\n"), 0o644))

	backend := &fakeBackend{reply: "✨ Add x"}
	g := New(Options{Backend: backend, Template: path, LengthCap: 60})

	_, err := g.Generate(context.Background(), "+x", []string{"x.go"})
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM 60 x.go", backend.prompts[0])
}
