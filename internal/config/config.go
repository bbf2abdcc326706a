// Package config loads application configuration from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. Levels are separated by "__",
// e.g. BARBERQUEUE_SERVER__PORT.
const EnvPrefix = "BARBERQUEUE_"

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	JWT           JWTConfig           `koanf:"jwt"`
	CORS          CORSConfig          `koanf:"cors"`
	Queue         QueueConfig         `koanf:"queue"`
	Redis         RedisConfig         `koanf:"redis"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JWTConfig holds barber token settings.
type JWTConfig struct {
	SecretKey     string        `koanf:"secret_key"`
	TokenDuration time.Duration `koanf:"token_duration"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// QueueConfig holds walk-in queue settings.
type QueueConfig struct {
	Storage               string       `koanf:"storage"`
	AverageServiceMinutes int           `koanf:"average_service_minutes"`
	NotifyTimeout         time.Duration `koanf:"notify_timeout"`
	SeedBarbers           []BarberSeed  `koanf:"seed_barbers"`
}

// BarberSeed is a barber preloaded into the memory store.
type BarberSeed struct {
	ID        string `koanf:"id"`
	Name      string `koanf:"name"`
	SalonName string `koanf:"salon_name"`
}

// RedisConfig holds the change-feed bridge settings.
type RedisConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Address       string `koanf:"address"`
	Password      string `koanf:"password"`
	DB            int    `koanf:"db"`
	ChannelPrefix string `koanf:"channel_prefix"`
}

// NotificationsConfig holds customer messaging settings.
type NotificationsConfig struct {
	Enabled         bool           `koanf:"enabled"`
	PrimaryChannel  string         `koanf:"primary_channel"`
	FallbackChannel string         `koanf:"fallback_channel"`
	WhatsApp        WhatsAppConfig `koanf:"whatsapp"`
	SMS             SMSConfig      `koanf:"sms"`
}

// WhatsAppConfig holds WhatsApp Cloud API settings.
type WhatsAppConfig struct {
	Enabled       bool          `koanf:"enabled"`
	APIURL        string        `koanf:"api_url"`
	PhoneNumberID string        `koanf:"phone_number_id"`
	AccessToken   string        `koanf:"access_token"`
	Timeout       time.Duration `koanf:"timeout"`
	RateLimit     float64       `koanf:"rate_limit"`
}

// SMSConfig holds SMS gateway settings.
type SMSConfig struct {
	Enabled   bool          `koanf:"enabled"`
	APIURL    string        `koanf:"api_url"`
	APIKey    string        `koanf:"api_key"`
	From      string        `koanf:"from"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
}

var defaults = map[string]any{
	"server.host":                "0.0.0.0",
	"server.port":                "8080",
	"server.metrics_port":        "9090",
	"server.read_timeout":        "15s",
	"server.read_header_timeout": "5s",
	"server.write_timeout":       "30s",
	"server.idle_timeout":        "60s",
	"server.request_timeout":     "30s",
	"server.shutdown_timeout":    "15s",

	"database.max_open_conns":    25,
	"database.max_idle_conns":    5,
	"database.conn_max_lifetime": "5m",
	"database.connect_timeout":   "30s",
	"database.connect_attempts":  5,
	"database.migrations_path":   "file://migrations",

	"log.level":  "info",
	"log.format": "json",

	"jwt.token_duration": "12h",

	"cors.allowed_origins": []string{"http://localhost:3000"},

	"queue.storage":                 StoragePostgres,
	"queue.average_service_minutes": 20,
	"queue.notify_timeout":          "1m",

	"redis.enabled":        false,
	"redis.address":        "localhost:6379",
	"redis.db":             0,
	"redis.channel_prefix": "barberqueue:queue",

	"notifications.enabled":             false,
	"notifications.primary_channel":     string(domain.ChannelTypeWhatsApp),
	"notifications.fallback_channel":    string(domain.ChannelTypeSMS),
	"notifications.whatsapp.timeout":    "10s",
	"notifications.whatsapp.rate_limit": 20,
	"notifications.sms.timeout":         "10s",
	"notifications.sms.rate_limit":      5,
}

// Load reads configuration. path may be empty, in which case only defaults and
// the environment are used.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// envKey maps BARBERQUEUE_SERVER__METRICS_PORT to server.metrics_port.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// splitList expands comma separated values coming from the environment.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	var errs []error

	switch c.Queue.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("queue.storage must be %q or %q, got %q", StorageMemory, StoragePostgres, c.Queue.Storage))
	}

	for i, b := range c.Queue.SeedBarbers {
		if b.ID == "" {
			errs = append(errs, fmt.Errorf("queue.seed_barbers[%d].id is required", i))
		}
	}

	if c.Queue.AverageServiceMinutes <= 0 {
		errs = append(errs, errors.New("queue.average_service_minutes must be positive"))
	}

	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("jwt.secret_key is required"))
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		errs = append(errs, errors.New("redis.address is required when redis is enabled"))
	}

	if c.Notifications.Enabled {
		primary := domain.ChannelType(c.Notifications.PrimaryChannel)
		if !primary.IsValid() {
			errs = append(errs, fmt.Errorf("notifications.primary_channel is invalid: %q", c.Notifications.PrimaryChannel))
		}
		fallback := domain.ChannelType(c.Notifications.FallbackChannel)
		if fallback != "" && !fallback.IsValid() {
			errs = append(errs, fmt.Errorf("notifications.fallback_channel is invalid: %q", c.Notifications.FallbackChannel))
		}
	}

	return errors.Join(errs...)
}
