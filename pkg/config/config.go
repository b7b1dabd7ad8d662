package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"Infinity/pkg/util"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		AllowOrigins    []string      `yaml:"allow_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Session struct {
		Window          time.Duration     `yaml:"window" default:"12h"`
		Quotas          map[string]int    `yaml:"quotas"`
		HistoryCapacity int               `yaml:"history_capacity" default:"100"`
		FeedPeriod      time.Duration     `yaml:"feed_period" default:"2s"`
		DefaultLanguage string            `yaml:"default_language" default:"RU"`
		PersistTimeout  time.Duration     `yaml:"persist_timeout" default:"3s"`
		TierSecrets     map[string]string `yaml:"tier_secrets"`
		Assets          []AssetConfig     `yaml:"assets"`
	} `yaml:"session"`
	State struct {
		Backend string `yaml:"backend" default:"memory"` // memory | redis | layered
		Redis   struct {
			Addr           string        `yaml:"addr" default:"localhost:6379"`
			Password       string        `yaml:"password"`
			DB             int           `yaml:"db"`
			Prefix         string        `yaml:"prefix" default:"infinity"`
			PoolSize       int           `yaml:"pool_size" default:"10"`
			ConnectTimeout time.Duration `yaml:"connect_timeout" default:"15s"`
		} `yaml:"redis"`
	} `yaml:"state"`
	Events struct {
		Backend       string        `yaml:"backend" default:"none"` // none | kafka | clickhouse
		BufferSize    int           `yaml:"buffer_size" default:"1000"`
		RetryDeadline time.Duration `yaml:"retry_deadline" default:"1m"`
		Kafka         struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"infinity.signals"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"snappy"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Host           string        `yaml:"host"`
			Port           int           `yaml:"port" default:"9000"`
			Database       string        `yaml:"database" default:"infinity"`
			User           string        `yaml:"user" default:"default"`
			Password       string        `yaml:"password"`
			UseHTTP        bool          `yaml:"use_http"`
			AsyncInsert    bool          `yaml:"async_insert" default:"true"`
			WaitForAsync   bool          `yaml:"wait_for_async_insert"`
			DialTimeout    time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout    time.Duration `yaml:"read_timeout" default:"10s"`
			ConnectTimeout time.Duration `yaml:"connect_timeout" default:"15s"`
		} `yaml:"clickhouse"`
	} `yaml:"events"`
}

// AssetConfig seeds one tracked instrument.
type AssetConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Price  string `yaml:"price"`
	Change string `yaml:"change" default:"+0.00%"`
	Type   string `yaml:"type"`
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (if any), the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(b)
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for i := range c.Session.Assets {
		if err := defaults.Set(&c.Session.Assets[i]); err != nil {
			return nil, fmt.Errorf("asset defaults: %w", err)
		}
	}
	return &c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("INFINITY_ENV"); ok {
		c.Environment = v
	}
	if v, ok := get("STATE_BACKEND"); ok {
		c.State.Backend = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		c.State.Redis.Addr = v
	}
	if v, ok := get("REDIS_PASSWORD"); ok {
		c.State.Redis.Password = v
	}
	if v, ok := get("EVENTS_BACKEND"); ok {
		c.Events.Backend = v
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		c.Events.Kafka.Brokers = util.SplitCSV(v)
	}
	if v, ok := get("KAFKA_TOPIC"); ok {
		c.Events.Kafka.Topic = v
	}
	if v, ok := get("CLICKHOUSE_HOST"); ok {
		c.Events.ClickHouse.Host = v
	}
	if v, ok := get("HTTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Session.Window <= 0 {
		return fmt.Errorf("session.window must be positive")
	}
	if c.Session.HistoryCapacity <= 0 {
		return fmt.Errorf("session.history_capacity must be positive")
	}
	if c.Session.FeedPeriod <= 0 {
		return fmt.Errorf("session.feed_period must be positive")
	}
	switch strings.ToUpper(c.Session.DefaultLanguage) {
	case "RU", "EN":
	default:
		return fmt.Errorf("session.default_language must be 'RU' or 'EN', got '%s'", c.Session.DefaultLanguage)
	}
	for tier := range c.Session.Quotas {
		if !isTier(tier) {
			return fmt.Errorf("session.quotas: unknown tier '%s'", tier)
		}
	}
	for secret, tier := range c.Session.TierSecrets {
		if secret == "" || !isTier(tier) {
			return fmt.Errorf("session.tier_secrets: invalid entry for tier '%s'", tier)
		}
	}
	seen := make(map[string]bool, len(c.Session.Assets))
	for _, a := range c.Session.Assets {
		if a.ID == "" || a.Price == "" {
			return fmt.Errorf("session.assets: id and price are required")
		}
		if _, err := decimal.NewFromString(a.Price); err != nil {
			return fmt.Errorf("session.assets: price of '%s' is not a decimal: %w", a.ID, err)
		}
		if seen[a.ID] {
			return fmt.Errorf("session.assets: duplicate id '%s'", a.ID)
		}
		seen[a.ID] = true
	}

	switch c.State.Backend {
	case "memory":
	case "redis", "layered":
		if c.State.Redis.Addr == "" {
			return fmt.Errorf("state.redis.addr is required for backend '%s'", c.State.Backend)
		}
	default:
		return fmt.Errorf("state.backend must be 'memory', 'redis' or 'layered', got '%s'", c.State.Backend)
	}

	switch c.Events.Backend {
	case "none":
	case "kafka":
		if len(c.Events.Kafka.Brokers) == 0 || c.Events.Kafka.Topic == "" {
			return fmt.Errorf("events.kafka.brokers and events.kafka.topic are required")
		}
	case "clickhouse":
		if c.Events.ClickHouse.Host == "" {
			return fmt.Errorf("events.clickhouse.host is required")
		}
	default:
		return fmt.Errorf("events.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Events.Backend)
	}
	return nil
}

func isTier(s string) bool {
	switch s {
	case "STANDARD", "VERIFIED", "VIP":
		return true
	default:
		return false
	}
}
