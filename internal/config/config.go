// Package config provides daemon configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the daemon configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Data   DataConfig
	Remote RemoteConfig
	Sync   SyncConfig
	Server ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds local storage configuration.
type DataConfig struct {
	// BasePath is the directory holding the embedded library database.
	BasePath string
	// InboxPath is watched for dropped PDF files to import. Empty disables the watcher.
	InboxPath string
}

// RemoteConfig holds backend connection configuration.
type RemoteConfig struct {
	// BaseURL of the sync backend. Empty means the daemon runs purely offline.
	BaseURL string
	// Timeout bounds each remote call (default: 15s).
	Timeout time.Duration
	// ProbeTimeout bounds connectivity/auth probes (default: 3s).
	ProbeTimeout time.Duration
}

// SyncConfig holds sync scheduling configuration.
type SyncConfig struct {
	// Debounce coalesces rapid local mutations before a force-push (default: 2s).
	Debounce time.Duration
	// OnlinePollInterval is the reachability poll period while online (default: 10s).
	OnlinePollInterval time.Duration
	// OfflinePollInterval is the reachability poll period while offline (default: 60s).
	OfflinePollInterval time.Duration
	// MinSyncInterval rate-limits manual sync requests (default: 2s).
	MinSyncInterval time.Duration
}

// ServerConfig holds the local control API configuration.
type ServerConfig struct {
	Port          string
	AllowedOrigin string // Browser UI origin for CORS
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for the local library database")
	inboxPath := flag.String("inbox-path", "", "Directory watched for dropped PDF files")
	remoteURL := flag.String("remote-url", "", "Base URL of the sync backend")

	remoteTimeout := flag.String("remote-timeout", "", "Remote call timeout (default: 15s)")
	probeTimeout := flag.String("probe-timeout", "", "Connectivity probe timeout (default: 3s)")
	syncDebounce := flag.String("sync-debounce", "", "Mutation debounce before force-push (default: 2s)")
	onlinePoll := flag.String("online-poll-interval", "", "Reachability poll period while online (default: 10s)")
	offlinePoll := flag.String("offline-poll-interval", "", "Reachability poll period while offline (default: 60s)")
	minSyncInterval := flag.String("min-sync-interval", "", "Minimum gap between manual syncs (default: 2s)")

	serverPort := flag.String("port", "", "Control API port (default: 8585)")
	allowedOrigin := flag.String("allowed-origin", "", "Browser UI origin for CORS")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath:  getConfigValue(*dataPath, "DATA_PATH", ""),
			InboxPath: getConfigValue(*inboxPath, "INBOX_PATH", ""),
		},
		Remote: RemoteConfig{
			BaseURL: getConfigValue(*remoteURL, "REMOTE_URL", ""),
		},
		Server: ServerConfig{
			Port:          getConfigValue(*serverPort, "PORT", "8585"),
			AllowedOrigin: getConfigValue(*allowedOrigin, "ALLOWED_ORIGIN", "http://localhost:5173"),
		},
	}

	// Parse durations.
	durations := []struct {
		dst  *time.Duration
		flag string
		env  string
		def  string
	}{
		{&cfg.Remote.Timeout, *remoteTimeout, "REMOTE_TIMEOUT", "15s"},
		{&cfg.Remote.ProbeTimeout, *probeTimeout, "PROBE_TIMEOUT", "3s"},
		{&cfg.Sync.Debounce, *syncDebounce, "SYNC_DEBOUNCE", "2s"},
		{&cfg.Sync.OnlinePollInterval, *onlinePoll, "ONLINE_POLL_INTERVAL", "10s"},
		{&cfg.Sync.OfflinePollInterval, *offlinePoll, "OFFLINE_POLL_INTERVAL", "60s"},
		{&cfg.Sync.MinSyncInterval, *minSyncInterval, "MIN_SYNC_INTERVAL", "2s"},
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.env, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.env, raw, err)
		}
		*d.dst = parsed
	}

	// Expand and validate data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Expand inbox path (empty disables the watcher).
	if err := cfg.expandInboxPath(); err != nil {
		return nil, fmt.Errorf("invalid inbox path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	// Remote URL may be empty - the daemon is fully usable offline.
	if c.Remote.BaseURL != "" {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid remote URL: %s", c.Remote.BaseURL)
		}
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/ReaderSync.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "ReaderSync")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandInboxPath expands ~ and makes the path absolute.
// If empty, leaves it empty and the inbox watcher stays disabled.
func (c *Config) expandInboxPath() error {
	if c.Data.InboxPath == "" {
		return nil
	}

	expanded, err := expandPath(c.Data.InboxPath, "")
	if err != nil {
		return err
	}
	c.Data.InboxPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
