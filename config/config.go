package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Payment  PaymentConfig  `yaml:"payment"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type LogConfig struct {
	Level            string `yaml:"level"`
	MetricsNamespace string `yaml:"metrics_namespace"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	OrderEventsTopic   string   `yaml:"order_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	FlightsCacheTTL    int `yaml:"flights_cache_ttl_seconds"`
	CheckoutTTLMinutes int `yaml:"checkout_ttl_minutes"`
	WebhookDedupeHours int `yaml:"webhook_dedupe_hours"`
}

// PaymentConfig holds the payment processor settings. Secrets are normally
// supplied through STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET.
type PaymentConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	Currency      string `yaml:"currency"`
	SuccessURL    string `yaml:"success_url"`
	CancelURL     string `yaml:"cancel_url"`
}

type WorkerConfig struct {
	StaleSweepMinutes int    `yaml:"stale_sweep_minutes"`
	MailFrom          string `yaml:"mail_from"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		c.Payment.SecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		c.Payment.WebhookSecret = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DATABASE_HOST"); v != "" {
		c.Database.Host = v
	}
	if v, err := strconv.Atoi(os.Getenv("DATABASE_PORT")); err == nil {
		c.Database.Port = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MetricsNamespace == "" {
		c.Log.MetricsNamespace = "airbooking"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Booking.FlightsCacheTTL == 0 {
		c.Booking.FlightsCacheTTL = 60
	}
	if c.Booking.CheckoutTTLMinutes == 0 {
		c.Booking.CheckoutTTLMinutes = 30
	}
	if c.Booking.WebhookDedupeHours == 0 {
		c.Booking.WebhookDedupeHours = 24
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "usd"
	}
	if c.Worker.StaleSweepMinutes == 0 {
		c.Worker.StaleSweepMinutes = 15
	}
}

// Validate rejects settings the provider would refuse anyway. A missing webhook
// secret is not rejected here: the webhook endpoint reports it on every call.
func (c *Config) Validate() error {
	if c.Booking.CheckoutTTLMinutes < 30 || c.Booking.CheckoutTTLMinutes > 24*60 {
		return errors.New("booking.checkout_ttl_minutes must be between 30 and 1440")
	}
	if c.Booking.FlightsCacheTTL < 0 {
		return errors.New("booking.flights_cache_ttl must not be negative")
	}
	if c.Booking.WebhookDedupeHours <= 0 {
		return errors.New("booking.webhook_dedupe_hours must be positive")
	}
	if c.Worker.StaleSweepMinutes <= 0 {
		return errors.New("worker.stale_sweep_minutes must be positive")
	}
	if len(c.Payment.Currency) != 3 {
		return fmt.Errorf("payment.currency %q is not an ISO 4217 code", c.Payment.Currency)
	}
	return nil
}
