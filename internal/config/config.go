package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ServiceName = "strategist-agent"
	Version     = "1.0.0"
)

type Config struct {
	Port            string        `yaml:"port"`
	FrontendURL     string        `yaml:"frontend_url"`
	LogMode         string        `yaml:"log_mode"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	JWTSecret       string        `yaml:"jwt_secret"`
	DefaultUserID   string        `yaml:"default_user_id"`
	PostgresDSN     string        `yaml:"postgres_dsn"`
	QueueMaxSize    int           `yaml:"queue_max_size"`
	BatchMaxSize    int           `yaml:"batch_max_size"`
	BatchMaxWait    time.Duration `yaml:"batch_max_wait"`
	Agent           Agent         `yaml:"agent"`
}

// Agent selects and configures the strategy generation backend.
type Agent struct {
	Provider  string        `yaml:"provider"` // mock, openai or anthropic
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
	MockDelay time.Duration `yaml:"mock_delay"`
}

func Default() Config {
	return Config{
		Port:            "8000",
		FrontendURL:     "http://localhost:3000",
		LogMode:         "dev",
		MaxBodyBytes:    64 << 10,
		RateLimitPerMin: 10,
		DefaultUserID:   "anonymous",
		QueueMaxSize:    1_000,
		BatchMaxSize:    50,
		BatchMaxWait:    200 * time.Millisecond,
		Agent: Agent{
			Provider:  "mock",
			MaxTokens: 4096,
			Timeout:   60 * time.Second,
			MockDelay: time.Second,
		},
	}
}

// Load layers defaults, the YAML file at path (if any) and the environment,
// in that order, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Agent.Provider {
	case "mock":
	case "openai", "anthropic":
		if c.Agent.APIKey == "" {
			return fmt.Errorf("config: AGENT_API_KEY is required for provider %q", c.Agent.Provider)
		}
	default:
		return fmt.Errorf("config: unknown agent provider %q", c.Agent.Provider)
	}
	if c.Agent.Timeout <= 0 {
		return fmt.Errorf("config: agent timeout must be positive")
	}
	if c.Port == "" {
		return fmt.Errorf("config: port is required")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getString("PORT", cfg.Port)
	cfg.Port = getString("API_PORT", cfg.Port)
	cfg.FrontendURL = getString("FRONTEND_URL", cfg.FrontendURL)
	cfg.LogMode = getString("LOG_MODE", cfg.LogMode)
	cfg.MaxBodyBytes = int64(getInt("MAX_BODY_BYTES", int(cfg.MaxBodyBytes)))
	cfg.RateLimitPerMin = getInt("RATE_LIMIT_PER_MIN", cfg.RateLimitPerMin)
	cfg.JWTSecret = getString("JWT_SECRET", cfg.JWTSecret)
	cfg.DefaultUserID = getString("DEFAULT_USER_ID", cfg.DefaultUserID)
	cfg.PostgresDSN = getString("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.QueueMaxSize = getInt("QUEUE_MAX_SIZE", cfg.QueueMaxSize)
	cfg.BatchMaxSize = getInt("BATCH_MAX_SIZE", cfg.BatchMaxSize)
	cfg.BatchMaxWait = getMillis("BATCH_MAX_WAIT_MS", cfg.BatchMaxWait)

	cfg.Agent.Provider = strings.ToLower(getString("AGENT_PROVIDER", cfg.Agent.Provider))
	cfg.Agent.Model = getString("AGENT_MODEL", cfg.Agent.Model)
	cfg.Agent.APIKey = getString("AGENT_API_KEY", cfg.Agent.APIKey)
	cfg.Agent.BaseURL = getString("AGENT_BASE_URL", cfg.Agent.BaseURL)
	cfg.Agent.MaxTokens = getInt("AGENT_MAX_TOKENS", cfg.Agent.MaxTokens)
	cfg.Agent.Timeout = getSeconds("AGENT_TIMEOUT_SECONDS", cfg.Agent.Timeout)
	cfg.Agent.MockDelay = getMillis("MOCK_AGENT_DELAY_MS", cfg.Agent.MockDelay)
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func getMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}
