package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the server's environment-driven configuration.
type Config struct {
	Addr            string
	TickRate        int
	ChatMinInterval time.Duration

	// Client-side sync tuning, echoed to tooling and used by the headless
	// client defaults.
	RenderDelay     time.Duration
	SnapshotHorizon time.Duration
	MaxSnapshots    int

	LogFile   string
	SentryDSN string
	ClientDir string
}

// Load reads configuration from the environment, with a .env file merged in
// when present. Unset or malformed values fall back to defaults.
func Load() Config {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	return Config{
		Addr:            envString("ADDR", ":8080"),
		TickRate:        envInt("TICK_RATE", 20),
		ChatMinInterval: envDurationMs("CHAT_MIN_INTERVAL_MS", 300*time.Millisecond),
		RenderDelay:     envDurationMs("RENDER_DELAY_MS", 100*time.Millisecond),
		SnapshotHorizon: envDurationMs("SNAPSHOT_HORIZON_MS", 5*time.Second),
		MaxSnapshots:    envInt("MAX_SNAPSHOTS", 10),
		LogFile:         envString("LOG_FILE", "slipstream.log"),
		SentryDSN:       os.Getenv("SENTRY_DSN"),
		ClientDir:       os.Getenv("CLIENT_DIR"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envDurationMs(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
