package cli

import (
	"os"
	"time"
)

// Config carries the environment-driven defaults; flags override per
// invocation.
type Config struct {
	TargetBranch string
	NotesDir     string
	StoreDSN     string
	BridgeAddr   string
	PollInterval time.Duration
}

func LoadConfig() Config {
	return Config{
		TargetBranch: getenv("LINEMARK_TARGET_BRANCH", "main"),
		NotesDir:     getenv("LINEMARK_NOTES_DIR", ""),
		StoreDSN:     getenv("LINEMARK_STORE_DSN", ""),
		BridgeAddr:   getenv("LINEMARK_BRIDGE_ADDR", "127.0.0.1:7331"),
		PollInterval: getenvDuration("LINEMARK_POLL_INTERVAL", 2*time.Second),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
