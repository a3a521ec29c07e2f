package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds application configuration loaded from environment variables.
// Defaults target local development.
type Config struct {
	AppName string `env:"APP_NAME" envDefault:"adoptme"`
	Env     string `env:"APP_ENV" envDefault:"development"` // development, staging, production
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`
	// LogLevel overrides the level implied by APP_ENV (debug, info, warn, error)
	LogLevel string `env:"LOG_LEVEL"`

	// Store
	StoreDriver   string        `env:"STORE_DRIVER" envDefault:"postgres"` // postgres | memory
	DatabaseURL   string        `env:"DATABASE_URL"`
	DBHost        string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort        string        `env:"DB_PORT" envDefault:"5432"`
	DBUser        string        `env:"DB_USER" envDefault:"postgres"`
	DBPassword    string        `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName        string        `env:"DB_NAME" envDefault:"adoptme"`
	DBSSLMode     string        `env:"DB_SSLMODE" envDefault:"disable"`
	DBMaxConns    int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns    int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLife time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	MigrationsDir string        `env:"MIGRATIONS_DIR" envDefault:"db/migrations"`

	// Identity
	JWTSecret    string        `env:"JWT_SECRET" envDefault:"devsecret"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"1h"`
	CookieName   string        `env:"COOKIE_NAME" envDefault:"coderCookie"`
	CookieDomain string        `env:"COOKIE_DOMAIN" envDefault:"localhost"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"` // comma-separated
	MaxBodyBytes       int64  `env:"MAX_BODY_BYTES" envDefault:"10485760"`

	// Redis (rate limiting, token revocation); empty address disables it
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Google Cloud Storage; empty bucket disables uploads
	GCSBucket              string `env:"GCS_BUCKET"`
	GCSCredentialsJSONPath string `env:"GCS_CREDENTIALS_JSON"`

	// RabbitMQ adoption events; empty URL disables publishing
	RabbitMQURL           string `env:"RABBITMQ_URL"`
	RabbitMQAdoptionQueue string `env:"RABBITMQ_ADOPTION_QUEUE" envDefault:"adoption-events"`

	// Mailgun (notify worker)
	MailgunDomain   string `env:"MAILGUN_DOMAIN"`
	MailgunAPIKey   string `env:"MAILGUN_API_KEY"`
	MailgunSender   string `env:"MAILGUN_SENDER"`
	MailgunAPIBase  string `env:"MAILGUN_API_BASE"` // e.g. https://api.eu.mailgun.net/v3
	MailSendEnabled bool   `env:"MAIL_SEND_ENABLED" envDefault:"true"`
	SupportURL      string `env:"SUPPORT_URL"`

	// Elasticsearch; empty addresses disable search
	ElasticsearchAddrs string `env:"ELASTICSEARCH_ADDRS"` // comma-separated
	ElasticsearchUser  string `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPass  string `env:"ELASTICSEARCH_PASSWORD"`
	ESPetsIndex        string `env:"ES_PETS_INDEX" envDefault:"pets"`

	MetricsEnabled      bool `env:"METRICS_ENABLED" envDefault:"true"`
	DebugMetricsEnabled bool `env:"DEBUG_METRICS_ENABLED" envDefault:"false"`
	HTTPLogEnabled      bool `env:"HTTP_LOG_ENABLED" envDefault:"true"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PostgresDSN returns DATABASE_URL when set, otherwise a DSN built from the DB_* parts.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// CORSOrigins returns the allowed origins as slice
func (c *Config) CORSOrigins() []string { return splitList(c.CORSAllowedOrigins) }

// ESAddrs returns Elasticsearch addresses as a slice
func (c *Config) ESAddrs() []string { return splitList(c.ElasticsearchAddrs) }

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
