package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Logger    LoggerConfig    `mapstructure:"logger" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis" validate:"required"`
	EventBus  EventBusConfig  `mapstructure:"event_bus"`
	TaskQueue TaskQueueConfig `mapstructure:"task_queue"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Scheduler SchedulerConfig `mapstructure:"maintenance_scheduler"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Expo      ExpoConfig      `mapstructure:"expo"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
}

// ServerConfig holds HTTP server configuration for the main /health server
// (internal/pkg/server); the admin surface uses AdminConfig.
type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"required,oneof=json console"`
	OutputPath string `mapstructure:"output_path" validate:"required"`
}

// RedisConfig holds Redis connection configuration for the stream backend.
type RedisConfig struct {
	Addr            string `mapstructure:"addr"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db" validate:"gte=0"`
	PoolSize        int    `mapstructure:"pool_size" validate:"gte=1"`
	MinIdleConns    int    `mapstructure:"min_idle_conns" validate:"gte=0"`
	DialTimeoutSec  int    `mapstructure:"dial_timeout_sec" validate:"gte=0"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec" validate:"gte=0"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec" validate:"gte=0"`
	TLS             bool   `mapstructure:"tls"`
}

// EventBusConfig configures stream retry/trim policy and consumer timings.
type EventBusConfig struct {
	MaxRetries          int              `mapstructure:"max_retries" validate:"gte=1"`
	RetryDelayMs        int              `mapstructure:"retry_delay_ms" validate:"gte=0"`
	MaxLength           int64            `mapstructure:"max_length" validate:"gte=0"`
	MaxLengthOverrides  map[string]int64 `mapstructure:"max_length_overrides"`
	GroupPrefix         string           `mapstructure:"group_prefix"`
	BlockTimeMs         int              `mapstructure:"block_time_ms" validate:"gte=0"`
	ClaimIdleTimeMs      int             `mapstructure:"claim_idle_time_ms" validate:"gte=0"`
	ClaimSweepIntervalMs int             `mapstructure:"claim_sweep_interval_ms" validate:"gte=0"`
}

// TaskQueueConfig configures the in-process task scheduler.
type TaskQueueConfig struct {
	MaxConcurrentTasks    int               `mapstructure:"max_concurrent_tasks" validate:"gte=1"`
	DefaultRetryConfig    RetryConfig       `mapstructure:"default_retry_config"`
	HealthCheckIntervalMs int               `mapstructure:"health_check_interval_ms" validate:"gte=0"`
	DeadLetterRetentionMs int64             `mapstructure:"dead_letter_retention_ms" validate:"gte=0"`
	DrainGracePeriodMs    int               `mapstructure:"drain_grace_period_ms" validate:"gte=0"`
}

// RetryConfig is the {base_delay_ms, max_delay_ms, strategy, jitter} retry shape.
type RetryConfig struct {
	MaxAttempts int    `mapstructure:"max_attempts" validate:"gte=1"`
	Strategy    string `mapstructure:"strategy" validate:"oneof=exponential linear fixed"`
	BaseDelayMs int64  `mapstructure:"base_delay_ms" validate:"gte=0"`
	MaxDelayMs  int64  `mapstructure:"max_delay_ms" validate:"gte=0"`
	Jitter      bool   `mapstructure:"jitter"`
}

// AdminConfig configures the HTTP admin surface's bind address.
type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// SchedulerConfig configures the maintenance scheduler's tick and distributed lock.
type SchedulerConfig struct {
	TickIntervalMs      int `mapstructure:"tick_interval_ms" validate:"gte=0"`
	LockTTLMs           int `mapstructure:"lock_ttl_ms" validate:"gte=0"`
	LockRefreshInterval int `mapstructure:"lock_refresh_interval_ms" validate:"gte=0"`
}

// RateLimitConfig configures the limiter guarding admin write endpoints.
type RateLimitConfig struct {
	Strategy string `mapstructure:"strategy" validate:"oneof=token_bucket leaky_bucket fixed_window sliding_window"`
	Rate     int    `mapstructure:"rate" validate:"gte=1"`
	Burst    int    `mapstructure:"burst" validate:"gte=1"`
	FailOpen bool   `mapstructure:"fail_open"`
}

// ExpoConfig configures the notification.send task handler's Expo client.
// Unlike the shared Redis client, this is built as an explicit per-handler
// dependency rather than a package-level singleton, so access tokens never
// leak into code that has no business sending notifications.
type ExpoConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	AccessToken string `mapstructure:"access_token"`
	TimeoutSec  int    `mapstructure:"timeout_sec" validate:"gte=1"`
	MaxRetries  int    `mapstructure:"max_retries" validate:"gte=1"`
}

// AlertingConfig configures the system.events-to-webhook bridge.
type AlertingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// NewConfig creates and returns a new Config instance.
// It loads configuration from file, environment variables, and defaults.
func NewConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Merge configuration layers (lowest precedence to highest):
	// 1) repository root config/config.yaml
	// 2) root environment config/config.<env>.yaml
	// 3) environment variables (highest precedence)
	if err := mergeConfigLayers(v); err != nil {
		return nil, err
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")

	// Unmarshal config into struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// mergeConfigLayers reads and merges multiple config files in order
func mergeConfigLayers(v *viper.Viper) error {
	v.SetConfigType("yaml")

	env := getEnvironment()

	baseFiles, envFiles := discoverConfigFiles(env)

	var globalBase, globalEnv string
	if len(baseFiles) > 0 {
		globalBase = baseFiles[0]
	}
	if len(envFiles) > 0 {
		globalEnv = envFiles[0]
	}

	for _, path := range []string{globalBase, globalEnv} {
		if path == "" {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to merge config file %s: %w", path, err)
		}
	}

	return nil
}

// discoverConfigFiles walks up from the working directory and returns all
// config/config.yaml and config/config.<env>.yaml files found, ordered from
// highest ancestor (root-most) to current directory (most specific).
func discoverConfigFiles(env string) (baseFiles []string, envFiles []string) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, nil
	}

	var bases []string
	var envs []string
	dir := wd
	for i := 0; i < 8; i++ {
		base := filepath.Join(dir, "config", "config.yaml")
		envp := filepath.Join(dir, "config", "config."+env+".yaml")
		if fileExists(base) {
			bases = append(bases, base)
		}
		if fileExists(envp) {
			envs = append(envs, envp)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	for i := len(bases) - 1; i >= 0; i-- {
		baseFiles = append(baseFiles, bases[i])
	}
	for i := len(envs) - 1; i >= 0; i-- {
		envFiles = append(envFiles, envs[i])
	}
	return
}

func getEnvironment() string {
	if v := os.Getenv("APP_ENV"); v != "" {
		return v
	}
	if v := os.Getenv("GO_ENV"); v != "" {
		return v
	}
	if v := os.Getenv("ENV"); v != "" {
		return v
	}
	return "development"
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err == nil {
		return true
	}
	return false
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.shutdown_timeout", 10)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.dial_timeout_sec", 5)
	v.SetDefault("redis.read_timeout_sec", 3)
	v.SetDefault("redis.write_timeout_sec", 3)

	v.SetDefault("event_bus.max_retries", 3)
	v.SetDefault("event_bus.retry_delay_ms", 500)
	v.SetDefault("event_bus.max_length", 100000)
	v.SetDefault("event_bus.max_length_overrides", map[string]int64{
		"ai.events":     500000,
		"market.events": 500000,
	})
	v.SetDefault("event_bus.group_prefix", "eventcore")
	v.SetDefault("event_bus.block_time_ms", 5000)
	v.SetDefault("event_bus.claim_idle_time_ms", 30000)
	v.SetDefault("event_bus.claim_sweep_interval_ms", 15000)

	v.SetDefault("task_queue.max_concurrent_tasks", 16)
	v.SetDefault("task_queue.default_retry_config.max_attempts", 5)
	v.SetDefault("task_queue.default_retry_config.strategy", "exponential")
	v.SetDefault("task_queue.default_retry_config.base_delay_ms", 500)
	v.SetDefault("task_queue.default_retry_config.max_delay_ms", 60000)
	v.SetDefault("task_queue.default_retry_config.jitter", true)
	v.SetDefault("task_queue.health_check_interval_ms", 10000)
	v.SetDefault("task_queue.dead_letter_retention_ms", 86400000)
	v.SetDefault("task_queue.drain_grace_period_ms", 30000)

	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.host", "0.0.0.0")
	v.SetDefault("admin.port", 8090)

	v.SetDefault("maintenance_scheduler.tick_interval_ms", 1000)
	v.SetDefault("maintenance_scheduler.lock_ttl_ms", 10000)
	v.SetDefault("maintenance_scheduler.lock_refresh_interval_ms", 3000)

	v.SetDefault("rate_limit.strategy", "token_bucket")
	v.SetDefault("rate_limit.rate", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.fail_open", false)

	v.SetDefault("expo.enabled", true)
	v.SetDefault("expo.timeout_sec", 10)
	v.SetDefault("expo.max_retries", 3)

	v.SetDefault("alerting.enabled", false)
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if cfg.TaskQueue.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("task_queue.max_concurrent_tasks must be positive")
	}
	if cfg.EventBus.MaxRetries <= 0 {
		return fmt.Errorf("event_bus.max_retries must be positive")
	}
	return nil
}
