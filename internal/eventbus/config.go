package eventbus

import (
	"time"

	"eventcore/internal/pkg/config"
)

// Config is the Event Bus's runtime configuration, derived from config.EventBusConfig.
type Config struct {
	MaxRetries           int
	RetryDelay           time.Duration
	MaxLength            int64
	MaxLengthOverrides   map[string]int64
	GroupPrefix          string
	BlockTime            time.Duration
	ClaimIdleTime        time.Duration
	ClaimSweepInterval   time.Duration
}

// FromAppConfig translates the application-wide EventBusConfig section.
func FromAppConfig(c config.EventBusConfig) Config {
	return Config{
		MaxRetries:         c.MaxRetries,
		RetryDelay:         time.Duration(c.RetryDelayMs) * time.Millisecond,
		MaxLength:          c.MaxLength,
		MaxLengthOverrides: c.MaxLengthOverrides,
		GroupPrefix:        c.GroupPrefix,
		BlockTime:          time.Duration(c.BlockTimeMs) * time.Millisecond,
		ClaimIdleTime:      time.Duration(c.ClaimIdleTimeMs) * time.Millisecond,
		ClaimSweepInterval: time.Duration(c.ClaimSweepIntervalMs) * time.Millisecond,
	}
}

// maxLenFor returns the per-stream trim bound, falling back to the global default.
func (c Config) maxLenFor(stream string) int64 {
	if v, ok := c.MaxLengthOverrides[stream]; ok {
		return v
	}
	return c.MaxLength
}

// SubscribeOptions parameterizes Subscribe.
type SubscribeOptions struct {
	ConsumerName string
	Concurrency  int
	FilterTypes  []string // if non-empty, only these types are dispatched to this handler
}
