package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Mpesa         MpesaConfig
	SMTP          SMTPConfig
	Notifications NotificationsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Mpesa.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"WACKA_APP_ENV" required:"true"`
	Port         string   `envconfig:"WACKA_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"WACKA_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"WACKA_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"WACKA_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WACKA_DB_DSN"`
	Driver string `envconfig:"WACKA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WACKA_DB_HOST"`
	LegacyPort     int    `envconfig:"WACKA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WACKA_DB_USER"`
	LegacyPassword string `envconfig:"WACKA_DB_PASSWORD"`
	LegacyName     string `envconfig:"WACKA_DB_NAME"`
	LegacySSLMode  string `envconfig:"WACKA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WACKA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WACKA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WACKA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WACKA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the store runs on the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL            string        `envconfig:"WACKA_REDIS_URL" required:"true"`
	Address        string        `envconfig:"WACKA_REDIS_ADDR"`
	Password       string        `envconfig:"WACKA_REDIS_PASSWORD"`
	DB             int           `envconfig:"WACKA_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"WACKA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"WACKA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"WACKA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"WACKA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"WACKA_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"WACKA_REDIS_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"WACKA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WACKA_JWT_ISSUER" default:"wacka-accessories"`
	ExpirationMinutes int    `envconfig:"WACKA_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"WACKA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"WACKA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"WACKA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"WACKA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"WACKA_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"WACKA_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"WACKA_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"WACKA_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"WACKA_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"WACKA_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"WACKA_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	PaymentWindow      time.Duration `envconfig:"WACKA_RATE_LIMIT_PAYMENT_WINDOW" default:"1m"`
	PaymentUserLimit   int           `envconfig:"WACKA_RATE_LIMIT_PAYMENT_USER_LIMIT" default:"5"`
	PaymentIPLimit     int           `envconfig:"WACKA_RATE_LIMIT_PAYMENT_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"WACKA_AUTO_MIGRATE" default:"false"`
}

// MpesaConfig holds the Daraja STK push credentials and endpoints.
type MpesaConfig struct {
	ConsumerKey      string        `envconfig:"WACKA_MPESA_CONSUMER_KEY"`
	ConsumerSecret   string        `envconfig:"WACKA_MPESA_CONSUMER_SECRET"`
	Shortcode        string        `envconfig:"WACKA_MPESA_SHORTCODE" default:"174379"`
	Passkey          string        `envconfig:"WACKA_MPESA_PASSKEY" default:"bfb279f9aa9bdbcf158e97dd71a467cd2e0c893059b10f78e6b72ada1ed2c919"`
	CallbackURL      string        `envconfig:"WACKA_MPESA_CALLBACK_URL"`
	Environment      string        `envconfig:"WACKA_MPESA_ENV" default:"sandbox"`
	BaseURL          string        `envconfig:"WACKA_MPESA_BASE_URL"`
	Timeout          time.Duration `envconfig:"WACKA_MPESA_TIMEOUT" default:"30s"`
	ReferencePrefix  string        `envconfig:"WACKA_MPESA_REFERENCE_PREFIX" default:"WA"`
	Description      string        `envconfig:"WACKA_MPESA_DESCRIPTION" default:"Wacka Accessories"`
	CallbackGuardTTL time.Duration `envconfig:"WACKA_MPESA_CALLBACK_GUARD_TTL" default:"72h"`
}

// IsSandbox reports whether the gateway runs against the sandbox host.
func (m MpesaConfig) IsSandbox() bool {
	env := strings.TrimSpace(strings.ToLower(m.Environment))
	return env == "" || env == MpesaEnvSandbox
}

// Endpoint returns the configured base URL or the default for the environment.
func (m MpesaConfig) Endpoint() string {
	if base := strings.TrimRight(strings.TrimSpace(m.BaseURL), "/"); base != "" {
		return base
	}
	if m.IsSandbox() {
		return MpesaSandboxURL
	}
	return MpesaProductionURL
}

func (m MpesaConfig) validate() error {
	env := strings.TrimSpace(strings.ToLower(m.Environment))
	if env != "" && env != MpesaEnvSandbox && env != MpesaEnvProduction {
		return fmt.Errorf("%s must be %q or %q", EnvMpesaEnv, MpesaEnvSandbox, MpesaEnvProduction)
	}
	if m.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvMpesaTimeout)
	}
	return nil
}

type SMTPConfig struct {
	Host       string `envconfig:"WACKA_SMTP_HOST" default:"smtp.gmail.com"`
	Port       int    `envconfig:"WACKA_SMTP_PORT" default:"587"`
	Username   string `envconfig:"WACKA_SMTP_USERNAME"`
	Password   string `envconfig:"WACKA_SMTP_PASSWORD"`
	FromName   string `envconfig:"WACKA_SMTP_FROM_NAME" default:"Wacka Accessories"`
	AdminEmail string `envconfig:"WACKA_ADMIN_EMAIL"`
}

// Enabled reports whether credentials are present for outbound mail.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Username) != "" && strings.TrimSpace(s.Password) != ""
}

type NotificationsConfig struct {
	Workers    int           `envconfig:"WACKA_NOTIFY_WORKERS" default:"4"`
	QueueSize  int           `envconfig:"WACKA_NOTIFY_QUEUE_SIZE" default:"256"`
	JobTimeout time.Duration `envconfig:"WACKA_NOTIFY_JOB_TIMEOUT" default:"30s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"WACKA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic    string `envconfig:"WACKA_PUBSUB_ORDERS_TOPIC" default:"wacka-order-events"`
	PaymentsTopic  string `envconfig:"WACKA_PUBSUB_PAYMENTS_TOPIC" default:"wacka-payment-events"`
	InventoryTopic string `envconfig:"WACKA_PUBSUB_INVENTORY_TOPIC" default:"wacka-inventory-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"WACKA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"WACKA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"WACKA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"WACKA_CRON_INTERVAL" default:"15m"`
	LockTTL                   time.Duration `envconfig:"WACKA_CRON_LOCK_TTL" default:"10m"`
	StalePaymentAge           time.Duration `envconfig:"WACKA_CRON_STALE_PAYMENT_AGE" default:"30m"`
	NotificationRetentionDays int           `envconfig:"WACKA_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetentionDays       int           `envconfig:"WACKA_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
		return nil
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
