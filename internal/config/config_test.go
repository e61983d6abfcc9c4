package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		RepositoryOwner:   "octo",
		RemoteURLTemplate: DefaultRemoteURLTemplate,
		RemotePolicy:      DefaultRemotePolicy,
		DefaultBranch:     DefaultBranch,
		MessageLengthCap:  DefaultMessageLengthCap,
		Backend:           DefaultBackend,
		OllamaHost:        DefaultOllamaHost,
		LogLevel:          DefaultLogLevel,
	}
}

// initTemp resets viper and loads a config file under a fresh temp dir.
func initTemp(t *testing.T, content string) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(t.TempDir())

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if content != "" {
		require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))
	}
	require.NoError(t, InitConfig(configFile))
	return configFile
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, "config", DefaultConfigName)
	assert.Equal(t, "autopush", DefaultConfigDir)
	assert.Equal(t, "AUTOPUSH", EnvPrefix)
	assert.Equal(t, "main", DefaultBranch)
	assert.Equal(t, 50, DefaultMessageLengthCap)
	assert.Equal(t, []string{"id_ed25519", "id_rsa"}, DefaultSSHKeyNames)
}

func TestInitConfig_CreateNewConfigFile(t *testing.T) {
	configFile := initTemp(t, "")

	info, err := os.Stat(configFile)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultRemoteURLTemplate, cfg.RemoteURLTemplate)
	assert.Equal(t, "replace", cfg.RemotePolicy)
	assert.Equal(t, "ollama", cfg.Backend)
	assert.Equal(t, []string{"id_ed25519", "id_rsa"}, cfg.SSHKeyNames)
	assert.Equal(t, filepath.Join(filepath.Dir(configFile), "logs", "autopush.log"), cfg.LogFile)
}

func TestInitConfig_ExistingConfigFile(t *testing.T) {
	configFile := initTemp(t, `repository_owner: "octo"
repository_name: "hello"
backend: "openai"
api_key: "existing-key"
message_length_cap: 72
ssh_key_names: [id_work]`)

	cfg, err := GetConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "octo", cfg.RepositoryOwner)
	assert.Equal(t, "hello", cfg.RepositoryName)
	assert.Equal(t, "openai", cfg.Backend)
	assert.Equal(t, "existing-key", cfg.APIKey)
	assert.Equal(t, 72, cfg.MessageLengthCap)
	assert.Equal(t, []string{"id_work"}, cfg.SSHKeyNames)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(configFile)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestInitConfig_DefaultPathUsesXDG(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(t.TempDir())

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	require.NoError(t, InitConfig(""))
	assert.FileExists(t, filepath.Join(xdg, "autopush", "config.yaml"))
	assert.Equal(t, filepath.Join(xdg, "autopush", "config.yaml"), ConfigFileUsed())
}

func TestInitConfig_InvalidConfigFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	configFile := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("backend: [unclosed"), 0o600))

	err := InitConfig(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestInitConfig_EnvironmentVariables(t *testing.T) {
	t.Setenv("AUTOPUSH_REPOSITORY_OWNER", "env-owner")
	t.Setenv("AUTOPUSH_REMOTE_POLICY", "keep")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	configFile := initTemp(t, `repository_owner: "file-owner"`)

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "env-owner", cfg.RepositoryOwner)
	assert.Equal(t, "keep", cfg.RemotePolicy)
	assert.Equal(t, "sk-from-env", cfg.APIKey)

	content, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "sk-from-env")
}

func TestInitConfig_NewFileOmitsEnvSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-secret")
	configFile := initTemp(t, "")

	content, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "sk-secret")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("AUTOPUSH_TEST_DOTENV=from-file\nAUTOPUSH_TEST_EXISTING=from-file\n"), 0o600))

	t.Setenv("AUTOPUSH_TEST_EXISTING", "from-env")
	t.Cleanup(func() { os.Unsetenv("AUTOPUSH_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(dir))
	assert.Equal(t, "from-file", os.Getenv("AUTOPUSH_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("AUTOPUSH_TEST_EXISTING"))

	assert.NoError(t, LoadDotEnv(t.TempDir()), "missing .env is not an error")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad policy", func(c *Config) { c.RemotePolicy = "merge" }, "remote_policy must be one of"},
		{"bad backend", func(c *Config) { c.Backend = "bard" }, "backend must be one of"},
		{"openai without key", func(c *Config) { c.Backend = "openai" }, "api_key is required"},
		{"openai with key", func(c *Config) { c.Backend = "openai"; c.APIKey = "sk" }, ""},
		{"cap too small", func(c *Config) { c.MessageLengthCap = 5 }, "message_length_cap must be at least 10"},
		{"cap too large", func(c *Config) { c.MessageLengthCap = 500 }, "message_length_cap must be at most 200"},
		{"negative timeout", func(c *Config) { c.Timeout = -1 }, "timeout must be at least 0"},
		{"bad api base", func(c *Config) { c.APIBase = "not a url" }, "api_base must be a URL"},
		{"bad email", func(c *Config) { c.GitUserEmail = "nope" }, "git_user_email must be an email"},
		{"bad branch", func(c *Config) { c.DefaultBranch = "my branch" }, "default_branch"},
		{"empty template", func(c *Config) { c.RemoteURLTemplate = "" }, "remote_url_template is required"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRemoteURL(t *testing.T) {
	cfg := validConfig()

	url, err := cfg.RemoteURL("/work/hello-world")
	require.NoError(t, err)
	assert.Equal(t, "git@github.com:octo/hello-world.git", url)

	cfg.RepositoryName = "renamed"
	cfg.RemoteURLTemplate = "https://git.example.com/{{.Owner}}/{{.Repository}}"
	url, err = cfg.RemoteURL("/work/hello-world")
	require.NoError(t, err)
	assert.Equal(t, "https://git.example.com/octo/renamed", url)

	cfg.RepositoryOwner = ""
	_, err = cfg.RemoteURL("/work/x")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.RepositoryOwner = "octo"
	cfg.RemoteURLTemplate = "{{.Nope}}"
	_, err = cfg.RemoteURL("/work/x")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTimeoutDuration(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, time.Duration(0), cfg.TimeoutDuration())
	cfg.Timeout = 30
	assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Len(t, keys, 19)
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "repository_owner")
	assert.Contains(t, keys, "ssh_key_names")
}

func TestSetFromString(t *testing.T) {
	initTemp(t, "")

	require.NoError(t, SetFromString("repository_owner", "octo"))
	require.NoError(t, SetFromString("message_length_cap", "72"))
	require.NoError(t, SetFromString("ssh_key_names", "id_work, id_home,"))

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "octo", cfg.RepositoryOwner)
	assert.Equal(t, 72, cfg.MessageLengthCap)
	assert.Equal(t, []string{"id_work", "id_home"}, cfg.SSHKeyNames)

	err = SetFromString("nope", "x")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	err = SetFromString("message_length_cap", "lots")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	err = SetFromString("remote_policy", "merge")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, "replace", viper.GetString("remote_policy"), "previous value restored")
}

func TestSaveConfig(t *testing.T) {
	configFile := initTemp(t, "")

	require.NoError(t, SetFromString("repository_owner", "saved-owner"))
	require.NoError(t, SaveConfig())

	content, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "saved-owner")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(configFile)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestSaveConfig_OmitsEnvSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env-secret-123456")
	t.Setenv("AUTOPUSH_REPOSITORY_OWNER", "env-owner")
	configFile := initTemp(t, "backend: openai\nmodel: gpt-4o-mini\n")
	require.Equal(t, "sk-env-secret-123456", viper.GetString("api_key"))

	require.NoError(t, SetFromString("model", "gpt-4o"))
	// the init wizard re-submits the resolved key unchanged
	require.NoError(t, SetFromString("api_key", "sk-env-secret-123456"))
	require.NoError(t, SaveConfig())

	content, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "model: gpt-4o")
	assert.Contains(t, string(content), "backend: openai")
	assert.NotContains(t, string(content), "sk-env-secret-123456")
	assert.NotContains(t, string(content), "env-owner")
}

func TestSaveConfig_WritesExplicitKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env-secret-123456")
	configFile := initTemp(t, "")

	require.NoError(t, SetFromString("api_key", "sk-typed-by-user"))
	require.NoError(t, SaveConfig())

	content, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "api_key: sk-typed-by-user")
	assert.NotContains(t, string(content), "sk-env-secret-123456")
}
