package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/safrareport/auth-service/pkg/constant"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	TokenSecret string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	SessionTTL  time.Duration

	// Argon2id cost parameters, fixed process-wide.
	Argon2Time    uint32
	Argon2Memory  uint32
	Argon2Threads uint8

	ResetTokenTTL        time.Duration
	VerificationTokenTTL time.Duration
}

type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
}

type SweepConfig struct {
	Schedule         string
	SessionRetention time.Duration
	AttemptRetention time.Duration
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Security    SecurityConfig
	RateLimit   RateLimitConfig
	Sweep       SweepConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("SAFRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails fast at startup so misconfiguration never surfaces as a
// first-request failure.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if len(c.Security.TokenSecret) < constant.MinSecretBytes {
		return fmt.Errorf("security.tokensecret must be at least %d bytes, got %d", constant.MinSecretBytes, len(c.Security.TokenSecret))
	}
	if c.RateLimit.MaxAttempts <= 0 {
		return fmt.Errorf("ratelimit.maxattempts must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	// Empty defaults register the keys so AutomaticEnv can fill them;
	// Validate rejects them when they stay empty.
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("security.tokensecret", "")

	v.SetDefault("postgres.maxopen", 10)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "1h")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.accessttl", "15m")
	v.SetDefault("security.refreshttl", "168h") // 7 days
	v.SetDefault("security.sessionttl", "168h")
	v.SetDefault("security.argon2time", 3)
	v.SetDefault("security.argon2memory", 65536) // KiB
	v.SetDefault("security.argon2threads", 2)
	v.SetDefault("security.resettokenttl", "1h")
	v.SetDefault("security.verificationtokenttl", "24h")

	v.SetDefault("ratelimit.maxattempts", 5)
	v.SetDefault("ratelimit.window", "15m")

	v.SetDefault("sweep.schedule", "@every 1h")
	v.SetDefault("sweep.sessionretention", "720h")
	v.SetDefault("sweep.attemptretention", "168h")
}
