package chat

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig defines per-connection message throttling parameters.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the chat server settings.
type Config struct {
	Addr         string
	MetricsAddr  string
	MaxFrameSize uint32
	EventBuffer  int
	SendBuffer   int
	DefaultRooms []string
	AutoJoinRoom string
	RateLimit    RateLimitConfig
}

func DefaultConfig() Config {
	return Config{
		Addr:         ":5050",
		MetricsAddr:  ":9090",
		MaxFrameSize: DefaultMaxPayload,
		EventBuffer:  128,
		SendBuffer:   64,
		DefaultRooms: []string{"#geral", "#jogos"},
		AutoJoinRoom: "#geral",
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back to
// defaults for anything unset or unparsable.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if addr := os.Getenv("CHAT_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if addr := os.Getenv("CHAT_METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}
	if raw := os.Getenv("CHAT_MAX_FRAME_SIZE"); raw != "" {
		if size, err := strconv.ParseUint(raw, 10, 32); err == nil && size > 0 {
			cfg.MaxFrameSize = uint32(size)
		}
	}
	if raw := os.Getenv("CHAT_RATE_BURST"); raw != "" {
		if burst, err := strconv.Atoi(raw); err == nil && burst > 0 {
			cfg.RateLimit.Burst = burst
		}
	}
	if raw := os.Getenv("CHAT_RATE_INTERVAL"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			cfg.RateLimit.RefillInterval = time.Duration(seconds) * time.Second
		}
	}

	return cfg
}

// sanitized fills zero values with defaults so a partially populated Config
// is always usable.
func (c Config) sanitized() Config {
	def := DefaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = def.MetricsAddr
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = def.MaxFrameSize
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = def.EventBuffer
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if len(c.DefaultRooms) == 0 {
		c.DefaultRooms = def.DefaultRooms
	}
	if c.AutoJoinRoom == "" {
		c.AutoJoinRoom = c.DefaultRooms[0]
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	return c
}
