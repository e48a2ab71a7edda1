package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	AI       AIConfig       `mapstructure:"ai"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
	// SelfURL, when set, is used to fire a follow-up invocation after a yield.
	SelfURL string `mapstructure:"self_url"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	PoolSize   int    `mapstructure:"pool_size"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// AIConfig configures the DeepSeek chat-completions client.
type AIConfig struct {
	APIEndpoint string  `mapstructure:"api_endpoint"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	// ConnectTimeout bounds the wait for response headers.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// StreamTimeout bounds the whole stream from first byte to [DONE].
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
	// SoftCompleteChars is the minimum accumulated length at which a stream
	// timeout is treated as a complete-enough response instead of an error.
	SoftCompleteChars int `mapstructure:"soft_complete_chars"`
	MaxTokensCap      int `mapstructure:"max_tokens_cap"`
}

// WorkerConfig gathers every timing tunable of the job lifecycle in one
// place so the worker and orchestrator receive them explicitly.
type WorkerConfig struct {
	// InvocationBudget is the wall-clock allowance for one invocation.
	InvocationBudget time.Duration `mapstructure:"invocation_budget"`
	// YieldThreshold is the remaining-budget floor below which the
	// orchestrator stops starting new stages.
	YieldThreshold time.Duration `mapstructure:"yield_threshold"`
	LeaseSeconds   int           `mapstructure:"lease_seconds"`
	// HeartbeatPeriod is how often the lease is extended while working.
	HeartbeatPeriod time.Duration `mapstructure:"heartbeat_period"`
	// YieldedLeaseSeconds is the shrunken lease installed on yield so a
	// successor can claim the job without waiting out the full lease.
	YieldedLeaseSeconds int `mapstructure:"yielded_lease_seconds"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

var GlobalConfig *Config

func InitConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/liftor-worker")

	setDefaults()

	// A config file is optional; env vars alone are a valid deployment.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix("LIFTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnvKeys()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	GlobalConfig = &config
	return nil
}

// Preflight verifies the credentials the worker cannot run without.
func (c *Config) Preflight() error {
	if c.Database.Postgres.DSN == "" {
		return fmt.Errorf("database.postgres.dsn is required")
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("app.port", 8080)
	viper.SetDefault("app.mode", "release")
	viper.SetDefault("app.name", "liftor-plan-worker")
	viper.SetDefault("app.version", "1.0.0")

	viper.SetDefault("database.postgres.max_open_conns", 10)
	viper.SetDefault("database.postgres.max_idle_conns", 2)
	viper.SetDefault("database.postgres.conn_max_lifetime", "300s")

	viper.SetDefault("database.redis.enabled", false)
	viper.SetDefault("database.redis.port", 6379)
	viper.SetDefault("database.redis.db", 0)
	viper.SetDefault("database.redis.pool_size", 10)
	viper.SetDefault("database.redis.max_retries", 3)

	viper.SetDefault("ai.api_endpoint", "https://api.deepseek.com/v1")
	viper.SetDefault("ai.model", "deepseek-chat")
	viper.SetDefault("ai.temperature", 0.6)
	viper.SetDefault("ai.connect_timeout", "60s")
	viper.SetDefault("ai.stream_timeout", "55s")
	viper.SetDefault("ai.soft_complete_chars", 2000)
	viper.SetDefault("ai.max_tokens_cap", 8192)

	viper.SetDefault("worker.invocation_budget", "120s")
	viper.SetDefault("worker.yield_threshold", "25s")
	viper.SetDefault("worker.lease_seconds", 180)
	viper.SetDefault("worker.heartbeat_period", "30s")
	viper.SetDefault("worker.yielded_lease_seconds", 1)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.filename", "logs/worker.log")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age", 14)
}

// bindEnvKeys maps nested keys to env vars explicitly; AutomaticEnv alone
// does not see nested keys that are absent from the config file.
func bindEnvKeys() {
	for _, key := range []string{
		"database.postgres.dsn",
		"database.redis.enabled",
		"database.redis.host",
		"database.redis.password",
		"ai.api_endpoint",
		"ai.api_key",
		"ai.model",
		"app.self_url",
		"app.port",
		"app.mode",
	} {
		_ = viper.BindEnv(key)
	}
}
