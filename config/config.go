package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"accountability-service/internal/backoff"
	"accountability-service/internal/model"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const EnvPrefix = "ACCOUNTABILITY_"

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	Server      ServerConfig      `json:"server" envPrefix:"SERVER_"`
	Database    DatabaseConfig    `json:"database" envPrefix:"DATABASE_"`
	RabbitMQ    RabbitMQConfig    `json:"rabbitmq" envPrefix:"RABBITMQ_"`
	Redis       RedisConfig       `json:"redis" envPrefix:"REDIS_"`
	JWT         JWTConfig         `json:"jwt" envPrefix:"JWT_"`
	Escalation  EscalationConfig  `json:"escalation" envPrefix:"ESCALATION_"`
	Retry       RetryConfig       `json:"retry" envPrefix:"RETRY_"`
	SLA         SLAConfig         `json:"sla" envPrefix:"SLA_"`
	Departments map[string]string `json:"departments" env:"DEPARTMENTS"`
}

type ServerConfig struct {
	Port string `json:"port" env:"PORT"`
}

type DatabaseConfig struct {
	Driver    string   `json:"driver" env:"DRIVER"`
	Host      string   `json:"host" env:"HOST"`
	Port      string   `json:"port" env:"PORT"`
	User      string   `json:"user" env:"USER"`
	Password  string   `json:"password" env:"PASSWORD"`
	DBName    string   `json:"dbname" env:"DBNAME"`
	OpTimeout Duration `json:"op_timeout" env:"OP_TIMEOUT"`
}

type RabbitMQConfig struct {
	Enabled         bool     `json:"enabled" env:"ENABLED"`
	Host            string   `json:"host" env:"HOST"`
	Port            string   `json:"port" env:"PORT"`
	User            string   `json:"user" env:"USER"`
	Password        string   `json:"password" env:"PASSWORD"`
	PublishInterval Duration `json:"publish_interval" env:"PUBLISH_INTERVAL"`
}

// RedisConfig leaves the dashboard uncached when Addr is empty.
type RedisConfig struct {
	Addr     string   `json:"addr" env:"ADDR"`
	Password string   `json:"password" env:"PASSWORD"`
	DB       int      `json:"db" env:"DB"`
	TTL      Duration `json:"ttl" env:"TTL"`
}

type JWTConfig struct {
	Secret string `json:"secret" env:"SECRET"`
}

type EscalationConfig struct {
	Interval     Duration `json:"interval" env:"INTERVAL"`
	SweepOnStart bool     `json:"sweep_on_start" env:"SWEEP_ON_START"`
}

type RetryConfig struct {
	Attempts uint     `json:"attempts" env:"ATTEMPTS"`
	Delay    Duration `json:"delay" env:"DELAY"`
	MaxDelay Duration `json:"max_delay" env:"MAX_DELAY"`
}

// SLAConfig points at an optional YAML file overriding the built-in windows.
type SLAConfig struct {
	PolicyFile string `json:"policy_file" env:"POLICY_FILE"`
}

// Duration reads "90s" style strings from both JSON and the environment.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func Default() *Config {
	retry := backoff.DefaultPolicy()
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Database: DatabaseConfig{
			Driver:    DriverMemory,
			Host:      "localhost",
			Port:      "5432",
			User:      "postgres",
			DBName:    "accountability",
			OpTimeout: Duration(5 * time.Second),
		},
		RabbitMQ: RabbitMQConfig{
			Host:            "localhost",
			Port:            "5672",
			User:            "guest",
			Password:        "guest",
			PublishInterval: Duration(time.Second),
		},
		Redis: RedisConfig{TTL: Duration(30 * time.Second)},
		Escalation: EscalationConfig{
			Interval:     Duration(time.Minute),
			SweepOnStart: true,
		},
		Retry: RetryConfig{
			Attempts: retry.Attempts,
			Delay:    Duration(retry.Delay),
			MaxDelay: Duration(retry.MaxDelay),
		},
	}
}

// LoadConfig reads the JSON file at path over the defaults, then applies
// ACCOUNTABILITY_* overrides from the environment and an optional .env file.
// A missing file is only an error when path was given explicitly.
func LoadConfig(path string, required bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			decoder := json.NewDecoder(file)
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(cfg); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case DriverMemory, DriverPostgres:
	default:
		problems = append(problems, fmt.Sprintf("database.driver must be %s or %s", DriverMemory, DriverPostgres))
	}
	if c.Server.Port == "" {
		problems = append(problems, "server.port is required")
	}
	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required")
	}
	if c.Database.OpTimeout <= 0 {
		problems = append(problems, "database.op_timeout must be positive")
	}
	if c.Escalation.Interval <= 0 {
		problems = append(problems, "escalation.interval must be positive")
	}
	if c.Retry.Attempts == 0 {
		problems = append(problems, "retry.attempts must be at least 1")
	}
	if c.Retry.MaxDelay < c.Retry.Delay {
		problems = append(problems, "retry.max_delay must not be below retry.delay")
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		problems = append(problems, "redis.ttl must be positive")
	}
	for category := range c.Departments {
		if !model.Category(category).Valid() {
			problems = append(problems, fmt.Sprintf("departments: unknown category %q", category))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func (c *Config) RetryPolicy() backoff.Policy {
	return backoff.Policy{
		Attempts: c.Retry.Attempts,
		Delay:    c.Retry.Delay.Std(),
		MaxDelay: c.Retry.MaxDelay.Std(),
	}
}

// DepartmentMap returns the category to department mapping, nil meaning
// each category is handled by the department of the same name.
func (c *Config) DepartmentMap() map[model.Category]string {
	if len(c.Departments) == 0 {
		return nil
	}
	out := make(map[model.Category]string, len(model.Categories))
	for _, cat := range model.Categories {
		out[cat] = string(cat)
	}
	for cat, dept := range c.Departments {
		out[model.Category(cat)] = dept
	}
	return out
}
