package formatter

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/samzong/autopush/internal/emoji"
	"gopkg.in/yaml.v3"
)

// DefaultTemplate is the name of the built-in prompt used when none is configured.
const DefaultTemplate = "default"

// PromptTemplate is the on-disk YAML form of a custom prompt.
type PromptTemplate struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Template    string `yaml:"template"`
}

// TemplateData is what a prompt template can reference.
type TemplateData struct {
	Files     string
	Diff      string
	MaxLength int
	Emojis    string
}

var builtinTemplates = map[string]string{
	"default": `You are a developer assistant. Summarize the changes below as one very short Git commit message (max {{.MaxLength}} characters).

Changed files:
{{.Files}}

Diff:
{{.Diff}}

Rules:
- At most {{.MaxLength}} characters
- Start with one emoji matching the change ({{.Emojis}})
- Short action verb (Add, Fix, Update, Remove)
- No trailing punctuation

Short message:`,

	"detailed": `You are a developer assistant. Summarize the changes below as one very short Git commit message (max {{.MaxLength}} characters).

Changed files:
{{.Files}}

Diff:
{{.Diff}}

Rules:
- At most {{.MaxLength}} characters
- Start with one emoji matching the change ({{.Emojis}})
- Short action verb (Add, Fix, Update, Remove)
- No trailing punctuation
- Capitalize the first letter
- Do not end the subject with a period
- Use the same verb form for every commit
- The message should explain why the change was made

Short message:`,
}

// BuiltinTemplates returns the names of the built-in prompts.
func BuiltinTemplates() []string {
	return []string{"default", "detailed"}
}

// LoadTemplate resolves name to template text: a built-in name, a YAML file
// with a "template" field, or a plain text file.
func LoadTemplate(name string) (string, error) {
	if name == "" {
		name = DefaultTemplate
	}
	if tpl, ok := builtinTemplates[name]; ok {
		return tpl, nil
	}

	content, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt template %q not found", name)
		}
		return "", fmt.Errorf("unable to read template file %s: %w", name, err)
	}

	var tpl PromptTemplate
	if err := yaml.Unmarshal(content, &tpl); err == nil && strings.TrimSpace(tpl.Template) != "" {
		return tpl.Template, nil
	}
	return string(content), nil
}

// RenderTemplate executes templateContent with data.
func RenderTemplate(templateContent string, data TemplateData) (string, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("template parsing error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template rendering error: %w", err)
	}
	return buf.String(), nil
}

// BuildPrompt renders templateContent for the given files and payload.
// When templateContent fails to render, the default prompt is returned
// together with the render error so the caller can report it.
func BuildPrompt(templateContent string, files []string, payload string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = DefaultLengthCap
	}
	data := TemplateData{
		Files:     strings.Join(files, "\n"),
		Diff:      PromptDiff(payload, DiffPromptLimit),
		MaxLength: maxLength,
		Emojis:    emoji.Description(),
	}
	if data.Files == "" {
		data.Files = "(none listed)"
	}

	prompt, err := RenderTemplate(templateContent, data)
	if err != nil {
		fallback, ferr := RenderTemplate(builtinTemplates[DefaultTemplate], data)
		if ferr != nil {
			return "", ferr
		}
		return fallback, err
	}
	return prompt, nil
}
