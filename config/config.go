package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type PolicyOverrides struct {
	StackingMaxDTI    *float64
	RebateRate        *float64
	ProcessingFeeRate *float64
	InsuranceFeeRate  *float64
}

type Config struct {
	Port               string
	RedisAddr          string
	MongoURI           string
	MongoDatabase      string
	StrategyCacheTTL   time.Duration
	SessionIdleTTL     time.Duration
	RateLimitPerMinute int
	Policy             PolicyOverrides
}

// LoadENV loads the .env file when GO_ENV is unset or development.
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	if err := LoadENV(); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "topup"),
	}

	var err error
	if cfg.StrategyCacheTTL, err = getDuration("STRATEGY_CACHE_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.SessionIdleTTL, err = getDuration("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 30); err != nil {
		return Config{}, err
	}

	overrides := []struct {
		key string
		dst **float64
	}{
		{"TOPUP_MAX_DTI_STACKING", &cfg.Policy.StackingMaxDTI},
		{"TOPUP_REBATE_RATE", &cfg.Policy.RebateRate},
		{"TOPUP_PROCESSING_FEE_RATE", &cfg.Policy.ProcessingFeeRate},
		{"TOPUP_INSURANCE_FEE_RATE", &cfg.Policy.InsuranceFeeRate},
	}
	for _, o := range overrides {
		if *o.dst, err = getOptionalFloat(o.key); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getOptionalFloat(key string) (*float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &f, nil
}
