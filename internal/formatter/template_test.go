package formatter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinTemplates(t *testing.T) {
	for _, name := range BuiltinTemplates() {
		content, err := LoadTemplate(name)
		require.NoError(t, err, name)
		assert.Contains(t, content, "{{.Diff}}")
		assert.Contains(t, content, "{{.MaxLength}}")
	}

	detailed, err := LoadTemplate("detailed")
	require.NoError(t, err)
	assert.Contains(t, detailed, "explain why")
}

func TestLoadTemplateEmptyNameUsesDefault(t *testing.T) {
	content, err := LoadTemplate("")
	require.NoError(t, err)
	assert.Equal(t, builtinTemplates[DefaultTemplate], content)
}

func TestLoadTemplateFile(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name         string
		fileContent  string
		expectResult string
	}{
		{
			name: "YAML template",
			fileContent: `name: "short"
description: "Test template"
template: |
  Files: {{.Files}}
  Changes: {{.Diff}}`,
			expectResult: "Files: {{.Files}}\nChanges: {{.Diff}}",
		},
		{
			name:         "plain text",
			fileContent:  "Summarize {{.Diff}} in {{.MaxLength}} chars",
			expectResult: "Summarize {{.Diff}} in {{.MaxLength}} chars",
		},
		{
			name:         "invalid YAML is treated as text",
			fileContent:  "invalid yaml: [\nstill {{.Diff}}",
			expectResult: "invalid yaml: [\nstill {{.Diff}}",
		},
		{
			name:         "YAML without template field is treated as text",
			fileContent:  "name: empty\n",
			expectResult: "name: empty\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tempDir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.fileContent), 0o644))

			result, err := LoadTemplate(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expectResult, result)
		})
	}
}

func TestLoadTemplateMissing(t *testing.T) {
	_, err := LoadTemplate(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name        string
		template    string
		data        TemplateData
		expected    string
		expectError bool
	}{
		{
			name:     "all fields",
			template: "{{.Files}}|{{.Diff}}|{{.MaxLength}}|{{.Emojis}}",
			data:     TemplateData{Files: "a.go", Diff: "+x", MaxLength: 50, Emojis: "🐛 for fix"},
			expected: "a.go|+x|50|🐛 for fix",
		},
		{
			name:        "parse error",
			template:    "{{.Files",
			expectError: true,
		},
		{
			name:        "unknown field",
			template:    "{{.Role}}",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RenderTemplate(tt.template, tt.data)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	content, err := LoadTemplate(DefaultTemplate)
	require.NoError(t, err)

	prompt, err := BuildPrompt(content, []string{"main.go", "README.md"}, "diff --git a/main.go b/main.go\n+hello", 50)
	require.NoError(t, err)

	assert.Contains(t, prompt, "main.go\nREADME.md")
	assert.Contains(t, prompt, "+hello")
	assert.Contains(t, prompt, "max 50 characters")
	assert.Contains(t, prompt, "🐛 for fix")
}

func TestBuildPromptDefaults(t *testing.T) {
	prompt, err := BuildPrompt("{{.Files}} {{.MaxLength}}", nil, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "(none listed) 50", prompt)
}

func TestBuildPromptFallsBackOnRenderError(t *testing.T) {
	prompt, err := BuildPrompt("{{.Nope}}", []string{"a.go"}, "+x", 50)
	require.Error(t, err)
	assert.Contains(t, prompt, "Short message:")
	assert.Contains(t, prompt, "a.go")
}

func TestBuildPromptTruncatesLargeDiff(t *testing.T) {
	big := "diff --git a/a.go b/a.go\n@@ -0,0 +1 @@\n+" + strings.Repeat("x", DiffPromptLimit*2)
	prompt, err := BuildPrompt("{{.Diff}}", []string{"a.go"}, big, 50)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(prompt), DiffPromptLimit)
}
