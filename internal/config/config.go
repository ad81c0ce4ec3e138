package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads at startup.
type Config struct {
	App struct {
		Name      string `mapstructure:"name"`
		Env       string `mapstructure:"env"`
		LogLevel  string `mapstructure:"logLevel"`
		LogFormat string `mapstructure:"logFormat"`
	} `mapstructure:"app"`
	HTTP struct {
		Port            string        `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"readTimeout"`
		WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"http"`
	GRPC struct {
		Enabled bool   `mapstructure:"enabled"`
		Port    string `mapstructure:"port"`
	} `mapstructure:"grpc"`
	Database struct {
		DSN             string        `mapstructure:"dsn"`
		MaxOpenConns    int           `mapstructure:"maxOpenConns"`
		MaxIdleConns    int           `mapstructure:"maxIdleConns"`
		ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	} `mapstructure:"database"`
	Redis struct {
		Enabled  bool          `mapstructure:"enabled"`
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	Kafka struct {
		Enabled          bool     `mapstructure:"enabled"`
		Driver           string   `mapstructure:"driver"`
		Brokers          []string `mapstructure:"brokers"`
		Topic            string   `mapstructure:"topic"`
		AutoCreateTopics bool     `mapstructure:"autoCreateTopics"`
	} `mapstructure:"kafka"`
	Stripe struct {
		APIKey        string `mapstructure:"apiKey"`
		WebhookSecret string `mapstructure:"webhookSecret"`
	} `mapstructure:"stripe"`
	Razorpay struct {
		KeyID         string `mapstructure:"keyId"`
		KeySecret     string `mapstructure:"keySecret"`
		WebhookSecret string `mapstructure:"webhookSecret"`
	} `mapstructure:"razorpay"`
	Email struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		From         string `mapstructure:"from"`
		ContactEmail string `mapstructure:"contactEmail"`
	} `mapstructure:"email"`
	Documents struct {
		URL     string        `mapstructure:"url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"documents"`
	Auth struct {
		JWTSecret  string `mapstructure:"jwtSecret"`
		CookieName string `mapstructure:"cookieName"`
	} `mapstructure:"auth"`
}

// Environment names used by existing deployments.
var envBindings = map[string]string{
	"database.dsn":           "DATABASE_URL",
	"stripe.apiKey":          "STRIPE_SECRET_KEY",
	"stripe.webhookSecret":   "STRIPE_WEBHOOK_SECRET",
	"razorpay.keyId":         "RAZORPAY_KEY_ID",
	"razorpay.keySecret":     "RAZORPAY_KEY_SECRET",
	"razorpay.webhookSecret": "RAZORPAY_WEBHOOK_SECRET",
	"email.host":             "EMAIL_SERVER_HOST",
	"email.port":             "EMAIL_SERVER_PORT",
	"email.user":             "EMAIL_SERVER_USER",
	"email.password":         "EMAIL_SERVER_PASSWORD",
	"email.from":             "EMAIL_FROM",
	"email.contactEmail":     "CONTACT_EMAIL",
	"documents.url":          "FASTAPI_URL",
	"auth.jwtSecret":         "SECRET",
	"redis.addr":             "REDIS_ADDR",
	"kafka.brokers":          "KAFKA_BROKERS",
	"http.port":              "PORT",
	"app.env":                "APP_ENV",
	"app.logLevel":           "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "knowtix")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.logFormat", "console")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.readTimeout", 15*time.Second)
	v.SetDefault("http.writeTimeout", 75*time.Second)
	v.SetDefault("http.shutdownTimeout", 10*time.Second)

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.port", "9090")

	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 30*time.Minute)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.ttl", 15*time.Minute)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.driver", "kafka-go")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "knowtix.subscriptions")

	v.SetDefault("email.port", 587)

	v.SetDefault("documents.url", "http://localhost:8000/upload")
	v.SetDefault("documents.timeout", 60*time.Second)

	v.SetDefault("auth.cookieName", "knowtix.session-token")
}

// LoadConfig reads an optional .env file at envPath, an optional config.yaml
// from the working directory, and environment overrides.
func LoadConfig(envPath string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" && envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// KAFKA_BROKERS arrives as one comma separated string.
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}

	return &cfg, nil
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
