package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every parameter of the application.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	RabbitMQ      RabbitMQConfig      `yaml:"rabbitmq"`
	Redis         RedisConfig         `yaml:"redis"`
	HTTP          HTTPConfig          `yaml:"http"`
	Feed          FeedConfig          `yaml:"feed"`
	Auth          AuthConfig          `yaml:"auth"`
	Locale        LocaleConfig        `yaml:"locale"`
	Kitchen       KitchenConfig       `yaml:"kitchen"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	MaxConns int32  `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Database)
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"use_tls"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
	// ulule rate format, e.g. "300-M".
	RateLimit string `yaml:"rate_limit"`
	// Base URL of the customer menu used for table QR links.
	MenuBaseURL string `yaml:"menu_base_url"`
}

type FeedConfig struct {
	// amqp | postgres
	Driver           string        `yaml:"driver"`
	Channel          string        `yaml:"channel"`
	ReconnectInitial time.Duration `yaml:"reconnect_initial"`
	ReconnectMax     time.Duration `yaml:"reconnect_max"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	PINLength int           `yaml:"pin_length"`
	// Set for single-venue deployments; kiosks then skip the venue code step.
	DefaultVenueID string `yaml:"default_venue_id"`
}

type LocaleConfig struct {
	Default     string        `yaml:"default"`
	GeoURL      string        `yaml:"geo_url"`
	GeoTimeout  time.Duration `yaml:"geo_timeout"`
	GeoCacheTTL time.Duration `yaml:"geo_cache_ttl"`
}

type KitchenConfig struct {
	BellWindow time.Duration `yaml:"bell_window"`
}

type NotificationsConfig struct {
	Cap     int  `yaml:"cap"`
	Publish bool `yaml:"publish"`
}

const (
	FeedAMQP     = "amqp"
	FeedPostgres = "postgres"
)

// LoadConfig reads the YAML file at path, applies .env and process env overrides, then defaults.
// A missing file is tolerated so the service can run from env alone.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("couldn't open the file for the configuration: %w", err)
	}

	_ = godotenv.Load()
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Database, "DB_NAME")
	setString(&cfg.RabbitMQ.Host, "RABBITMQ_HOST")
	setString(&cfg.RabbitMQ.User, "RABBITMQ_USER")
	setString(&cfg.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setInt(&cfg.HTTP.Port, "HTTP_PORT")
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}
	if cfg.RabbitMQ.VHost == "" {
		cfg.RabbitMQ.VHost = "/"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 3000
	}
	if cfg.HTTP.RateLimit == "" {
		cfg.HTTP.RateLimit = "600-M"
	}
	if cfg.Feed.Driver == "" {
		cfg.Feed.Driver = FeedAMQP
	}
	if cfg.Feed.Channel == "" {
		cfg.Feed.Channel = "venue_changes"
	}
	if cfg.Feed.ReconnectInitial == 0 {
		cfg.Feed.ReconnectInitial = 500 * time.Millisecond
	}
	if cfg.Feed.ReconnectMax == 0 {
		cfg.Feed.ReconnectMax = 30 * time.Second
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 12 * time.Hour
	}
	if cfg.Auth.PINLength == 0 {
		cfg.Auth.PINLength = 4
	}
	if cfg.Locale.Default == "" {
		cfg.Locale.Default = "en"
	}
	if cfg.Locale.GeoTimeout == 0 {
		cfg.Locale.GeoTimeout = 5 * time.Second
	}
	if cfg.Locale.GeoCacheTTL == 0 {
		cfg.Locale.GeoCacheTTL = 24 * time.Hour
	}
	if cfg.Kitchen.BellWindow == 0 {
		cfg.Kitchen.BellWindow = 30 * time.Second
	}
	if cfg.Notifications.Cap == 0 {
		cfg.Notifications.Cap = 50
	}
}

// Validate checks the fields the given mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []error
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Database == "" {
		errs = append(errs, errors.New("database host, user and database are required"))
	}
	needsRabbit := c.Feed.Driver == FeedAMQP || c.Notifications.Publish ||
		mode == "feed-relay" || mode == "notification-subscriber"
	if needsRabbit && (c.RabbitMQ.Host == "" || c.RabbitMQ.User == "") {
		errs = append(errs, errors.New("rabbitmq host and user are required"))
	}
	if c.Feed.Driver != FeedAMQP && c.Feed.Driver != FeedPostgres {
		errs = append(errs, fmt.Errorf("unknown feed driver %q", c.Feed.Driver))
	}
	if mode == "api-server" && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
