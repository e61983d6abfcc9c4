package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samzong/autopush/internal/gitutil"
	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	RepositoryOwner   string   `mapstructure:"repository_owner"`
	RepositoryName    string   `mapstructure:"repository_name"`
	RemoteURLTemplate string   `mapstructure:"remote_url_template" validate:"required"`
	RemotePolicy      string   `mapstructure:"remote_policy" validate:"oneof=replace keep"`
	DefaultBranch     string   `mapstructure:"default_branch" validate:"required"`
	MessageLengthCap  int      `mapstructure:"message_length_cap" validate:"min=10,max=200"`
	Backend           string   `mapstructure:"backend" validate:"oneof=ollama openai"`
	Model             string   `mapstructure:"model"`
	APIKey            string   `mapstructure:"api_key" validate:"required_if=Backend openai"`
	APIBase           string   `mapstructure:"api_base" validate:"omitempty,url"`
	OllamaHost        string   `mapstructure:"ollama_host" validate:"omitempty,url"`
	Timeout           int      `mapstructure:"timeout" validate:"min=0"`
	PromptTemplate    string   `mapstructure:"prompt_template"`
	GitUserName       string   `mapstructure:"git_user_name"`
	GitUserEmail      string   `mapstructure:"git_user_email" validate:"omitempty,email"`
	SSHHost           string   `mapstructure:"ssh_host"`
	SSHKeyNames       []string `mapstructure:"ssh_key_names"`
	LogLevel          string   `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFile           string   `mapstructure:"log_file"`
}

const (
	DefaultConfigName        = "config"
	DefaultConfigDir         = "autopush"
	DefaultRemoteURLTemplate = "git@github.com:{{.Owner}}/{{.Repository}}.git"
	DefaultRemotePolicy      = "replace"
	DefaultBranch            = "main"
	DefaultMessageLengthCap  = 50
	DefaultBackend           = "ollama"
	DefaultOllamaHost        = "http://localhost:11434"
	DefaultPromptTemplate    = "default"
	DefaultSSHHost           = "git@github.com"
	DefaultLogLevel          = "info"
	EnvPrefix                = "AUTOPUSH"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultSSHKeyNames are the private key files offered to ssh-add.
var DefaultSSHKeyNames = []string{"id_ed25519", "id_rsa"}

var validate = validator.New()

// configDir returns $XDG_CONFIG_HOME/autopush or ~/.config/autopush.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, DefaultConfigDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".config", DefaultConfigDir), nil
}

// DefaultConfigPath is where the config file lives unless --config is given.
func DefaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigName+".yaml"), nil
}

func setDefaults(dir string) {
	viper.SetDefault("repository_owner", "")
	viper.SetDefault("repository_name", "")
	viper.SetDefault("remote_url_template", DefaultRemoteURLTemplate)
	viper.SetDefault("remote_policy", DefaultRemotePolicy)
	viper.SetDefault("default_branch", DefaultBranch)
	viper.SetDefault("message_length_cap", DefaultMessageLengthCap)
	viper.SetDefault("backend", DefaultBackend)
	viper.SetDefault("model", "")
	viper.SetDefault("api_key", "")
	viper.SetDefault("api_base", "")
	viper.SetDefault("ollama_host", DefaultOllamaHost)
	viper.SetDefault("timeout", 0)
	viper.SetDefault("prompt_template", DefaultPromptTemplate)
	viper.SetDefault("git_user_name", "")
	viper.SetDefault("git_user_email", "")
	viper.SetDefault("ssh_host", DefaultSSHHost)
	viper.SetDefault("ssh_key_names", DefaultSSHKeyNames)
	viper.SetDefault("log_level", DefaultLogLevel)
	viper.SetDefault("log_file", filepath.Join(dir, "logs", "autopush.log"))
}

// InitConfig loads cfgFile (or the default path), creating it with 0600
// permissions when missing. Environment variables with the AUTOPUSH_ prefix
// override file values, and a .env file in the working directory is loaded
// first without overriding the real environment.
func InitConfig(cfgFile string) error {
	clear(pending)
	if err := LoadDotEnv("."); err != nil {
		return err
	}

	configPath := cfgFile
	if configPath == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		configPath = p
	}
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	setDefaults(filepath.Dir(configPath))

	// written before env binding so environment secrets stay out of the file
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := viper.WriteConfigAs(configPath); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("api_key", EnvPrefix+"_API_KEY", "OPENAI_API_KEY"); err != nil {
		return err
	}

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	return restrictPermissions(configPath)
}

// LoadDotEnv loads dir/.env when present. Existing variables win.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func restrictPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() == 0o600 {
		return nil
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict config permissions: %w", err)
	}
	return nil
}

// GetConfig decodes the current viper state.
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints and the default branch name.
func (c *Config) Validate() error {
	return joinProblems(c.problems())
}

type problem struct {
	key string
	msg string
}

func (c *Config) problems() []problem {
	var out []problem
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return []problem{{msg: err.Error()}}
		}
		for _, fe := range fieldErrs {
			out = append(out, problem{key: keyForField(fe.StructField()), msg: describe(fe)})
		}
	}
	if c.DefaultBranch != "" {
		if err := gitutil.ValidateBranchName(c.DefaultBranch); err != nil {
			out = append(out, problem{key: "default_branch", msg: fmt.Sprintf("default_branch: %v", err)})
		}
	}
	return out
}

func joinProblems(problems []problem) error {
	if len(problems) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(problems))
	for _, p := range problems {
		msgs = append(msgs, p.msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	key := keyForField(fe.StructField())
	switch fe.Tag() {
	case "required", "required_if":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", key, fe.Value())
	case "email":
		return fmt.Sprintf("%s must be an email address, got %q", key, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

// RepositoryNameOrDefault returns repository_name, or the base name of dir.
func (c *Config) RepositoryNameOrDefault(dir string) string {
	if c.RepositoryName != "" {
		return c.RepositoryName
	}
	return filepath.Base(dir)
}

// RemoteURL renders remote_url_template for the repository rooted at dir.
func (c *Config) RemoteURL(dir string) (string, error) {
	if c.RepositoryOwner == "" {
		return "", fmt.Errorf("%w: repository_owner is required, run: autopush config set repository_owner <name>", ErrInvalidConfig)
	}
	tmpl, err := template.New("remote").Option("missingkey=error").Parse(c.RemoteURLTemplate)
	if err != nil {
		return "", fmt.Errorf("%w: remote_url_template: %v", ErrInvalidConfig, err)
	}
	var buf bytes.Buffer
	data := struct{ Owner, Repository string }{c.RepositoryOwner, c.RepositoryNameOrDefault(dir)}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: remote_url_template: %v", ErrInvalidConfig, err)
	}
	return buf.String(), nil
}

// TimeoutDuration converts the timeout setting to a duration; 0 means none.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Keys lists every configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fieldKeys))
	for _, k := range fieldKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var fieldKeys = map[string]string{
	"RepositoryOwner":   "repository_owner",
	"RepositoryName":    "repository_name",
	"RemoteURLTemplate": "remote_url_template",
	"RemotePolicy":      "remote_policy",
	"DefaultBranch":     "default_branch",
	"MessageLengthCap":  "message_length_cap",
	"Backend":           "backend",
	"Model":             "model",
	"APIKey":            "api_key",
	"APIBase":           "api_base",
	"OllamaHost":        "ollama_host",
	"Timeout":           "timeout",
	"PromptTemplate":    "prompt_template",
	"GitUserName":       "git_user_name",
	"GitUserEmail":      "git_user_email",
	"SSHHost":           "ssh_host",
	"SSHKeyNames":       "ssh_key_names",
	"LogLevel":          "log_level",
	"LogFile":           "log_file",
}

func keyForField(field string) string {
	if k, ok := fieldKeys[field]; ok {
		return k
	}
	return field
}

func isKnownKey(key string) bool {
	for _, k := range fieldKeys {
		if k == key {
			return true
		}
	}
	return false
}

// SetFromString parses a command-line value for key, applies it and
// validates that key. The previous value is restored on failure.
func SetFromString(key, value string) error {
	if !isKnownKey(key) {
		return fmt.Errorf("%w: unknown key %q (known keys: %s)", ErrInvalidConfig, key, strings.Join(Keys(), ", "))
	}

	var parsed interface{} = value
	switch key {
	case "message_length_cap", "timeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", ErrInvalidConfig, key)
		}
		parsed = n
	case "ssh_key_names":
		var names []string
		for _, n := range strings.Split(value, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		parsed = names
	}

	previous := viper.Get(key)
	viper.Set(key, parsed)

	cfg, err := GetConfig()
	if err != nil {
		viper.Set(key, previous)
		return err
	}
	var related []problem
	for _, p := range cfg.problems() {
		if p.key == key || p.key == "" {
			related = append(related, p)
		}
	}
	if err := joinProblems(related); err != nil {
		viper.Set(key, previous)
		return err
	}
	// re-entering a value resolved from the environment does not make it a file value
	if fmt.Sprint(previous) != fmt.Sprint(parsed) {
		pending[key] = parsed
	}
	return nil
}

// pending holds the values changed through SetFromString since the last load.
var pending = map[string]any{}

// SaveConfig merges the values changed through SetFromString into the config
// file and keeps it at 0600. Values resolved from the environment or .env are
// never written, so injected secrets stay out of the file.
func SaveConfig() error {
	path := viper.ConfigFileUsed()
	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	for key, value := range pending {
		file.Set(key, value)
	}
	if err := file.WriteConfigAs(path); err != nil {
		return err
	}
	clear(pending)
	return restrictPermissions(path)
}

// ConfigFileUsed returns the path of the loaded config file.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
