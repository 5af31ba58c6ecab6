// Package config loads process settings from the environment.
package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/LemmyAI/tankduel/internal/game"
	"github.com/LemmyAI/tankduel/internal/transport"
)

// MinShotDelay is the shortest gap allowed between projectile_fired and its
// resolution; clients animate the shot inside that gap.
const MinShotDelay = 100 * time.Millisecond

// Config holds everything the server process needs.
type Config struct {
	Port string

	ShotDelay  time.Duration
	FrameRate  float64 // Inbound frames per second per connection
	FrameBurst int

	MaxMessageSize int64
	WriteTimeout   time.Duration
	SendBuffer     int

	HistoryDB     string // Empty disables the match ledger
	StatsInterval time.Duration

	Game game.Config
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	tc := transport.DefaultConfig()
	return Config{
		Port:           "3001",
		ShotDelay:      2 * time.Second,
		FrameRate:      30,
		FrameBurst:     60,
		MaxMessageSize: tc.MaxMessageSize,
		WriteTimeout:   tc.WriteTimeout,
		SendBuffer:     tc.SendBufferSize,
		StatsInterval:  30 * time.Second,
		Game:           game.DefaultConfig(),
	}
}

// Load reads .env (if present) and the environment on top of DefaultConfig.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("⚠️ Could not read .env: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.ShotDelay = getEnvMillis("SHOT_DELAY_MS", cfg.ShotDelay)
	cfg.FrameRate = float64(getEnvInt("FRAME_RATE", int(cfg.FrameRate)))
	cfg.FrameBurst = getEnvInt("FRAME_BURST", cfg.FrameBurst)
	cfg.MaxMessageSize = int64(getEnvInt("MAX_MESSAGE_SIZE", int(cfg.MaxMessageSize)))
	cfg.WriteTimeout = getEnvMillis("WRITE_TIMEOUT_MS", cfg.WriteTimeout)
	cfg.SendBuffer = getEnvInt("SEND_BUFFER", cfg.SendBuffer)
	cfg.HistoryDB = getEnv("HISTORY_DB", cfg.HistoryDB)
	cfg.StatsInterval = time.Duration(getEnvInt("STATS_INTERVAL_S", int(cfg.StatsInterval/time.Second))) * time.Second

	cfg.Clamp()
	return cfg
}

// Clamp forces every value into a workable range.
func (c *Config) Clamp() {
	c.ShotDelay = clampDuration(c.ShotDelay, MinShotDelay, 30*time.Second)
	c.FrameRate = float64(clampInt(int(c.FrameRate), 1, 1000))
	c.FrameBurst = clampInt(c.FrameBurst, 1, 10000)
	c.MaxMessageSize = int64(clampInt(int(c.MaxMessageSize), 4*1024, 16*1024*1024))
	c.WriteTimeout = clampDuration(c.WriteTimeout, 100*time.Millisecond, time.Minute)
	c.SendBuffer = clampInt(c.SendBuffer, 1, 65536)
	c.StatsInterval = clampDuration(c.StatsInterval, time.Second, time.Hour)
	if c.Port == "" {
		c.Port = "3001"
	}
}

// Transport returns the connection settings.
func (c Config) Transport() transport.Config {
	return transport.Config{
		MaxMessageSize: c.MaxMessageSize,
		SendBufferSize: c.SendBuffer,
		WriteTimeout:   c.WriteTimeout,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("⚠️ Ignoring %s=%q: %v", key, val, err)
		return defaultVal
	}
	return n
}

func getEnvMillis(key string, defaultVal time.Duration) time.Duration {
	return time.Duration(getEnvInt(key, int(defaultVal/time.Millisecond))) * time.Millisecond
}

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func clampDuration(v, minV, maxV time.Duration) time.Duration {
	return time.Duration(clampInt(int(v), int(minV), int(maxV)))
}
