package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecodeDefaults(t *testing.T) {
	c, err := decode([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if c.Server.Port != 8080 || c.Session.Window != 12*time.Hour || c.Session.FeedPeriod != 2*time.Second {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.State.Backend != "memory" || c.Events.Backend != "none" || c.Session.DefaultLanguage != "RU" {
		t.Fatalf("unexpected backend defaults")
	}
	if c.Events.Kafka.RequiredAcks != -1 {
		t.Fatalf("expected acks -1, got %d", c.Events.Kafka.RequiredAcks)
	}
}

func TestRepositoryConfigFileLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Session.Assets) != 9 || c.Session.Quotas["VIP"] != -1 {
		t.Fatalf("unexpected session config %+v", c.Session)
	}
	if c.Session.TierSecrets["2741520"] != "VERIFIED" {
		t.Fatalf("tier secrets not parsed")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown state backend", "state: {backend: etcd}", "state.backend"},
		{"kafka without brokers", "events: {backend: kafka, kafka: {brokers: []}}", "events.kafka"},
		{"clickhouse without host", "events: {backend: clickhouse}", "events.clickhouse.host"},
		{"bad language", "session: {default_language: DE}", "default_language"},
		{"unknown tier quota", "session: {quotas: {GOLD: 5}}", "unknown tier"},
		{"duplicate asset", "session: {assets: [{id: a, price: '1'}, {id: a, price: '2'}]}", "duplicate"},
		{"non-decimal asset price", "session: {assets: [{id: a, price: 'abc'}]}", "not a decimal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := decode([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			err = c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, _ := decode(nil)
	env := map[string]string{
		"EVENTS_BACKEND": "kafka",
		"KAFKA_BROKERS":  "k1:9092,k2:9092",
		"HTTP_PORT":      "9090",
		"STATE_BACKEND":  "redis",
		"REDIS_ADDR":     "cache:6379",
		"LOG_LEVEL":      " ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := c.applyEnv(lookup); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if c.Events.Backend != "kafka" || len(c.Events.Kafka.Brokers) != 2 || c.Server.Port != 9090 {
		t.Fatalf("env not applied: %+v", c.Events)
	}
	if c.State.Redis.Addr != "cache:6379" || c.Log.Level != "info" {
		t.Fatalf("unexpected state/log %s %s", c.State.Redis.Addr, c.Log.Level)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	env["HTTP_PORT"] = "http"
	if err := c.applyEnv(lookup); err == nil {
		t.Fatalf("expected error for bad port")
	}
}

func TestLoadWithEnvMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadWithEnv(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
