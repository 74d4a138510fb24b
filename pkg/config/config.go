package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
	Stripe       StripeConfig
	SSLCommerz   SSLCommerzConfig
	Square       SquareConfig
	Cron         CronConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	FrontendURL  string `envconfig:"STOREFRONT_FRONTEND_URL" default:"http://localhost:3000"`
	BackendURL   string `envconfig:"STOREFRONT_BACKEND_URL" default:"http://localhost:8080"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CheckoutSuccessURL is where the browser lands after a successful hosted checkout.
func (a AppConfig) CheckoutSuccessURL() string {
	return strings.TrimRight(a.FrontendURL, "/") + "/checkout/success"
}

// CheckoutCancelURL is where the browser lands after an abandoned hosted checkout.
func (a AppConfig) CheckoutCancelURL() string {
	return strings.TrimRight(a.FrontendURL, "/") + "/checkout/cancel"
}

// SquareWebhookURL is the notification URL registered with square. It is part
// of the signed material of every notification.
func (a AppConfig) SquareWebhookURL() string {
	return strings.TrimRight(a.BackendURL, "/") + "/api/v1/payments/square/webhook"
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RateLimitConfig struct {
	CheckoutWindow    time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit   int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_IP_LIMIT" default:"30"`
	CheckoutUserLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_USER_LIMIT" default:"10"`
	CouponWindow      time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_COUPON_WINDOW" default:"1m"`
	CouponIPLimit     int           `envconfig:"STOREFRONT_RATE_LIMIT_COUPON_IP_LIMIT" default:"60"`
	CouponUserLimit   int           `envconfig:"STOREFRONT_RATE_LIMIT_COUPON_USER_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type OrdersConfig struct {
	PendingTTL       time.Duration `envconfig:"STOREFRONT_ORDER_PENDING_TTL" default:"72h"`
	ReturnWindowDays int           `envconfig:"STOREFRONT_RETURN_WINDOW_DAYS" default:"30"`
	Currency         string        `envconfig:"STOREFRONT_ORDER_CURRENCY" default:"USD"`
}

type StripeConfig struct {
	APIKey string `envconfig:"STOREFRONT_STRIPE_API_KEY"`
	Secret string `envconfig:"STOREFRONT_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Enabled reports whether Stripe credentials were supplied.
func (s StripeConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type SSLCommerzConfig struct {
	StoreID       string        `envconfig:"STOREFRONT_SSLCOMMERZ_STORE_ID"`
	StorePassword string        `envconfig:"STOREFRONT_SSLCOMMERZ_STORE_PASSWORD"`
	SessionAPI    string        `envconfig:"STOREFRONT_SSLCOMMERZ_SESSION_API" default:"https://sandbox.sslcommerz.com/gwprocess/v4/api.php"`
	ValidationAPI string        `envconfig:"STOREFRONT_SSLCOMMERZ_VALIDATION_API" default:"https://sandbox.sslcommerz.com/validator/api/validationserverAPI.php"`
	// QueryAPI looks transactions up by tran_id. Empty derives it from ValidationAPI.
	QueryAPI      string        `envconfig:"STOREFRONT_SSLCOMMERZ_QUERY_API"`
	Timeout       time.Duration `envconfig:"STOREFRONT_SSLCOMMERZ_TIMEOUT" default:"15s"`
}

// Enabled reports whether merchant credentials were supplied.
func (s SSLCommerzConfig) Enabled() bool {
	return strings.TrimSpace(s.StoreID) != "" && strings.TrimSpace(s.StorePassword) != ""
}

type SquareConfig struct {
	AccessToken   string `envconfig:"STOREFRONT_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"STOREFRONT_SQUARE_WEBHOOK_SECRET"`
	Env           string `envconfig:"STOREFRONT_SQUARE_ENV" default:"sandbox"`
	LocationID    string `envconfig:"STOREFRONT_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Enabled reports whether a Square access token was supplied.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"15m"`
	LockTTL         time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"10m"`
	OutboxRetention time.Duration `envconfig:"STOREFRONT_CRON_OUTBOX_RETENTION" default:"720h"`
}

type KafkaConfig struct {
	Brokers     []string `envconfig:"STOREFRONT_KAFKA_BROKERS" default:"localhost:9092"`
	TopicPrefix string   `envconfig:"STOREFRONT_KAFKA_TOPIC_PREFIX" default:"storefront"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"STOREFRONT_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"STOREFRONT_METRICS_PATH" default:"/metrics"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
