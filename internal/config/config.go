package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"

	DefaultPath = "configs/config.yaml"
	PathEnv     = "APP_CONFIG"
)

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Admins   []int64        `yaml:"admins"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	HTTP     HTTPConfig     `yaml:"http"`
}

type BotConfig struct {
	Token       string `yaml:"token"`
	PollTimeout int    `yaml:"poll_timeout"`
	MaxInFlight int    `yaml:"max_inflight"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Dir    string `yaml:"dir"`
}

func (s StorageConfig) TicketsFile() string {
	return filepath.Join(s.Dir, "tickets.json")
}

func (s StorageConfig) StatsFile() string {
	return filepath.Join(s.Dir, "stats.json")
}

// FeedbackFile is reserved for a feedback collection nothing reads or
// writes yet.
func (s StorageConfig) FeedbackFile() string {
	return filepath.Join(s.Dir, "feedback.json")
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && strings.TrimSpace(k.Topic) != ""
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

func Default() Config {
	return Config{
		Bot: BotConfig{
			PollTimeout: 30,
			MaxInFlight: 64,
		},
		Log: LogConfig{Level: "info"},
		Storage: StorageConfig{
			Driver: DriverFile,
			Dir:    ".",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "feedback:",
		},
		HTTP: HTTPConfig{
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

// Path returns APP_CONFIG or the default config location.
func Path() string {
	if v := strings.TrimSpace(os.Getenv(PathEnv)); v != "" {
		return v
	}
	return DefaultPath
}

// LoadDotEnv reads .env into the process environment when the file exists.
// Variables that are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.Admins) == 0 {
		return fmt.Errorf("at least one admin id is required")
	}
	for _, id := range c.Admins {
		if id <= 0 {
			return fmt.Errorf("invalid admin id %d", id)
		}
	}
	if c.Bot.PollTimeout < 0 {
		return fmt.Errorf("bot poll timeout must not be negative")
	}
	if c.Bot.MaxInFlight <= 0 {
		return fmt.Errorf("bot max inflight must be positive")
	}

	switch c.Storage.Driver {
	case DriverFile:
		if strings.TrimSpace(c.Storage.Dir) == "" {
			return fmt.Errorf("storage dir is required for the file driver")
		}
	case DriverRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("redis addr is required for the redis driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return fmt.Errorf("postgres dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		return fmt.Errorf("kafka topic is required when brokers are set")
	}
	return nil
}

func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config yaml: %w", err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if err := overrideInt("BOT_POLL_TIMEOUT", &cfg.Bot.PollTimeout); err != nil {
		return err
	}
	if err := overrideInt("BOT_MAX_INFLIGHT", &cfg.Bot.MaxInFlight); err != nil {
		return err
	}
	if v := os.Getenv("ADMINS"); v != "" {
		admins, err := ParseAdmins(v)
		if err != nil {
			return err
		}
		cfg.Admins = admins
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if err := overrideInt("REDIS_DB", &cfg.Redis.DB); err != nil {
		return err
	}
	if v := os.Getenv("REDIS_PREFIX"); v != "" {
		cfg.Redis.Prefix = v
	}

	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if err := overrideDuration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return err
	}
	if err := overrideDuration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return err
	}
	if err := overrideDuration("HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return err
	}

	return nil
}

// ParseAdmins reads a comma separated list of telegram user ids.
func ParseAdmins(raw string) ([]int64, error) {
	items := splitList(raw)
	out := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid admin id %q", item)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func overrideDuration(key string, target *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*target = d
	return nil
}

func overrideInt(key string, target *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*target = n
	return nil
}
