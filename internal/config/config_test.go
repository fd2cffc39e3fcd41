package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/some/path"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_RemoteURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"", true}, // empty means offline-only, allowed
		{"http://localhost:3000", true},
		{"https://reader.example.com/api", true},
		{"not a url", false},
		{"/just/a/path", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := validConfig()
			cfg.Remote.BaseURL = tt.url

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""
	assert.Error(t, cfg.Validate())
}

func TestExpandDataPath_EmptyUsesDefault(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.expandDataPath())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "ReaderSync"), cfg.Data.BasePath)
}

func TestExpandDataPath_TildeExpansion(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "~/reader-data"}}
	require.NoError(t, cfg.expandDataPath())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "reader-data"), cfg.Data.BasePath)
}

func TestExpandInboxPath_EmptyStaysEmpty(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.expandInboxPath())
	assert.Empty(t, cfg.Data.InboxPath)
}

func TestExpandInboxPath_RelativeBecomesAbsolute(t *testing.T) {
	cfg := &Config{Data: DataConfig{InboxPath: "inbox"}}
	require.NoError(t, cfg.expandInboxPath())
	assert.True(t, filepath.IsAbs(cfg.Data.InboxPath))
	assert.True(t, strings.HasSuffix(cfg.Data.InboxPath, "inbox"))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("READERSYNC_TEST_KEY", "from-env")

	// Flag wins over env.
	assert.Equal(t, "from-flag", getConfigValue("from-flag", "READERSYNC_TEST_KEY", "default"))
	// Env wins over default.
	assert.Equal(t, "from-env", getConfigValue("", "READERSYNC_TEST_KEY", "default"))
	// Default when nothing else set.
	assert.Equal(t, "default", getConfigValue("", "READERSYNC_UNSET_KEY", "default"))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\n\nREADERSYNC_ENVFILE_A=hello\nREADERSYNC_ENVFILE_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Cleanup(func() {
		os.Unsetenv("READERSYNC_ENVFILE_A")
		os.Unsetenv("READERSYNC_ENVFILE_B")
	})

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("READERSYNC_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("READERSYNC_ENVFILE_B"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT A PAIR\n"), 0o600))

	assert.Error(t, loadEnvFile(path))
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/definitely/not/here/.env"))
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("READERSYNC_ENVFILE_C=file-value\n"), 0o600))

	t.Setenv("READERSYNC_ENVFILE_C", "env-value")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "env-value", os.Getenv("READERSYNC_ENVFILE_C"))
}
