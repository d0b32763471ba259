package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string         `mapstructure:"app_env"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	DB       DBConfig       `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"jwt"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Payments PaymentsConfig `mapstructure:"payment"`
}

type HTTPConfig struct {
	Port               string        `mapstructure:"port"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestBodySize int64         `mapstructure:"max_request_body_size"`
}

type GRPCConfig struct {
	Port string `mapstructure:"port"`
	Addr string `mapstructure:"addr"`
}

type DBConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	Name             string        `mapstructure:"name"`
	SSLMode          string        `mapstructure:"sslmode"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	QueueLimit       int           `mapstructure:"queue_limit"`
	AcquireTimeout   time.Duration `mapstructure:"acquire_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"db_name"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type GatewayConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type PaymentsConfig struct {
	SuccessURL      string        `mapstructure:"success_url"`
	FailureURL      string        `mapstructure:"failure_url"`
	PendingURL      string        `mapstructure:"pending_url"`
	NotificationURL string        `mapstructure:"notification_url"`
	PreferenceTTL   time.Duration `mapstructure:"preference_ttl"`
	Currency        string        `mapstructure:"currency"`
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

var defaults = map[string]any{
	"app_env": "development",

	"http.port":                  "8080",
	"http.request_timeout":       "30s",
	"http.shutdown_timeout":      "10s",
	"http.max_request_body_size": 1 << 20,

	"grpc.port": "50055",
	"grpc.addr": "localhost:50055",

	"db.host":              "localhost",
	"db.port":              5432,
	"db.user":              "postgres",
	"db.password":          "postgres",
	"db.name":              "kairos",
	"db.sslmode":           "disable",
	"db.max_open_conns":    20,
	"db.max_idle_conns":    10,
	"db.queue_limit":       50,
	"db.acquire_timeout":   "5s",
	"db.statement_timeout": "15s",

	"redis.addr":     "localhost:6379",
	"redis.password": "",
	"redis.db":       0,

	"mongo.uri":     "mongodb://localhost:27017",
	"mongo.db_name": "kairos",

	"kafka.brokers":  []string{"localhost:9092"},
	"kafka.topic":    "order-events",
	"kafka.group_id": "catalog-cache",

	"jwt.secret": "",
	"jwt.issuer": "kairos",

	"gateway.base_url":     "https://api.mercadopago.com",
	"gateway.access_token": "",
	"gateway.timeout":      "10s",

	"payment.success_url":      "http://localhost:3000/checkout/success",
	"payment.failure_url":      "http://localhost:3000/checkout/failure",
	"payment.pending_url":      "http://localhost:3000/checkout/pending",
	"payment.notification_url": "http://localhost:8080/api/payments/webhook",
	"payment.preference_ttl":   "24h",
	"payment.currency":         "ARS",
}

// Load reads configuration from defaults, an optional file and the environment.
// Keys map to environment variables by upper-casing and replacing dots with
// underscores: db.host -> DB_HOST.
func Load(file string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DB.MaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.DB.MaxOpenConns)
	}
	if c.DB.QueueLimit < 0 {
		return fmt.Errorf("DB_QUEUE_LIMIT must not be negative, got %d", c.DB.QueueLimit)
	}
	if c.IsProduction() && c.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}
