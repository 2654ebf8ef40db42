package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadUsesDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Storage.Driver != DriverFile || cfg.Bot.MaxInFlight != 64 || cfg.Log.Level != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Storage.TicketsFile() != "tickets.json" || cfg.Storage.FeedbackFile() != "feedback.json" {
		t.Fatalf("unexpected document paths: %s %s", cfg.Storage.TicketsFile(), cfg.Storage.FeedbackFile())
	}
}

func TestLoadAppliesYAMLThenEnv(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
admins: [11, 22]
bot:
  poll_timeout: 10
storage:
  driver: Redis
  dir: /var/lib/feedback
redis:
  addr: redis:6379
  prefix: "fb:"
kafka:
  brokers: ["k1:9092"]
  topic: tickets
http:
  addr: ":9090"
  read_timeout: 2s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	t.Setenv("ADMINS", "33, 44,33")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("HTTP_WRITE_TIMEOUT", "7s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if !reflect.DeepEqual(cfg.Admins, []int64{33, 44}) {
		t.Fatalf("env admins must replace yaml admins, got %v", cfg.Admins)
	}
	if cfg.Storage.Driver != DriverRedis || cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 3 || cfg.Redis.Prefix != "fb:" {
		t.Fatalf("unexpected redis settings: %+v %+v", cfg.Storage, cfg.Redis)
	}
	if cfg.Bot.PollTimeout != 10 || cfg.Bot.MaxInFlight != 64 {
		t.Fatalf("unexpected bot settings: %+v", cfg.Bot)
	}
	if !cfg.Kafka.Enabled() {
		t.Fatal("expected kafka enabled")
	}
	if cfg.HTTP.Addr != ":9090" || cfg.HTTP.ReadTimeout != 2*time.Second || cfg.HTTP.WriteTimeout != 7*time.Second {
		t.Fatalf("unexpected http settings: %+v", cfg.HTTP)
	}
	if cfg.Storage.StatsFile() != filepath.Join("/var/lib/feedback", "stats.json") {
		t.Fatalf("unexpected stats path: %s", cfg.Storage.StatsFile())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BOT_MAX_INFLIGHT", "many")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non numeric BOT_MAX_INFLIGHT")
	}

	clearConfigEnv(t)
	t.Setenv("ADMINS", "1,abc")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid admin id")
	}
}

func TestValidate(t *testing.T) {
	base := Default()
	base.Admins = []int64{1}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid file driver", mutate: func(*Config) {}},
		{name: "no admins", mutate: func(c *Config) { c.Admins = nil }, wantErr: "admin"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mongo" }, wantErr: "unknown storage driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Driver = DriverPostgres }, wantErr: "postgres dsn"},
		{name: "redis without addr", mutate: func(c *Config) { c.Storage.Driver = DriverRedis; c.Redis.Addr = "" }, wantErr: "redis addr"},
		{name: "kafka without topic", mutate: func(c *Config) { c.Kafka.Brokers = []string{"k:9092"} }, wantErr: "kafka topic"},
		{name: "zero inflight", mutate: func(c *Config) { c.Bot.MaxInFlight = 0 }, wantErr: "inflight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Admins = append([]int64(nil), base.Admins...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadDotEnvKeepsExistingVariables(t *testing.T) {
	const probe = "FEEDBACK_BOT_DOTENV_PROBE"
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("LOG_LEVEL=debug\n"+probe+"=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("LOG_LEVEL", "warn")
	_ = os.Unsetenv(probe)
	t.Cleanup(func() { _ = os.Unsetenv(probe) })

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("LOG_LEVEL"); got != "warn" {
		t.Fatalf("existing variable overwritten: %q", got)
	}
	if got := os.Getenv(probe); got != "from-dotenv" {
		t.Fatalf("expected dotenv value, got %q", got)
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := Config{Admins: []int64{5, 6}}
	if !cfg.IsAdmin(6) || cfg.IsAdmin(7) {
		t.Fatal("unexpected admin membership")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		PathEnv,
		"BOT_TOKEN",
		"BOT_POLL_TIMEOUT",
		"BOT_MAX_INFLIGHT",
		"ADMINS",
		"LOG_LEVEL",
		"STORAGE_DRIVER",
		"STORAGE_DIR",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"REDIS_PREFIX",
		"POSTGRES_DSN",
		"KAFKA_BROKERS",
		"KAFKA_TOPIC",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}
