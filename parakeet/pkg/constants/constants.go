package constants

import (
	"os"
	"path/filepath"
)

const (
	// Environment variables
	EnvAPIKey   = "PARAKEET_API_KEY"
	EnvBaseURL  = "PARAKEET_BASE_URL"
	EnvCacheDir = "PARAKEET_CACHE_DIR"
	EnvTimeout  = "PARAKEET_TIMEOUT"
	EnvLogLevel = "PARAKEET_LOG_LEVEL"
	EnvLogJSON  = "PARAKEET_LOG_JSON"

	// Default values
	DefaultBaseURL        = "https://api.parakeet.ai"
	DefaultAPIPrefix      = "/v1"
	DefaultTimeoutSeconds = 300
	DefaultPollIntervalMs = 1000
	ConfigFileName        = "config.yaml"
	DatabaseFileName      = "parakeet_local.db"

	// PollAfterHeader carries the server-suggested delay, in milliseconds,
	// before the next retrieve of a non-terminal run.
	PollAfterHeader = "Parakeet-Poll-After-Ms"

	// Dev server port range
	DefaultPortStart = 8620
	DefaultPortEnd   = 8680
	DefaultLocalHost = "127.0.0.1"
)

// GetLocalCacheDirectory returns the local cache directory path.
func GetLocalCacheDirectory() string {
	if envPath := os.Getenv(EnvCacheDir); envPath != "" {
		return envPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".parakeet"
	}

	return filepath.Join(homeDir, ".parakeet")
}

// GetConfigPath returns the full path to the config file.
func GetConfigPath() string {
	return filepath.Join(GetLocalCacheDirectory(), ConfigFileName)
}

// GetDatabasePath returns the full path to the local journal database.
func GetDatabasePath() string {
	return filepath.Join(GetLocalCacheDirectory(), DatabaseFileName)
}
