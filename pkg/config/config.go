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
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Escalation   EscalationConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Escalation.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"ORBZY_APP_ENV" required:"true"`
	Port          string `envconfig:"ORBZY_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"ORBZY_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"ORBZY_LOG_WARN_STACK" default:"false"`
	LogFile       string `envconfig:"ORBZY_LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"ORBZY_LOG_MAX_SIZE_MB" default:"100"`
	LogMaxBackups int    `envconfig:"ORBZY_LOG_MAX_BACKUPS" default:"5"`
	LogMaxAgeDays int    `envconfig:"ORBZY_LOG_MAX_AGE_DAYS" default:"14"`
	// MetricsAddr is where worker binaries serve /metrics. Empty disables it.
	MetricsAddr   string `envconfig:"ORBZY_METRICS_ADDR" default:":9091"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"ORBZY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ORBZY_DB_DSN"`
	Driver string `envconfig:"ORBZY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORBZY_DB_HOST"`
	LegacyPort     int    `envconfig:"ORBZY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORBZY_DB_USER"`
	LegacyPassword string `envconfig:"ORBZY_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORBZY_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORBZY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORBZY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORBZY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORBZY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORBZY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL            string        `envconfig:"ORBZY_REDIS_URL" required:"true"`
	Address        string        `envconfig:"ORBZY_REDIS_ADDR"`
	Password       string        `envconfig:"ORBZY_REDIS_PASSWORD"`
	DB             int           `envconfig:"ORBZY_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"ORBZY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"ORBZY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"ORBZY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"ORBZY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"ORBZY_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"ORBZY_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ORBZY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORBZY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORBZY_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig bounds request volume. The per-IP bucket guards the whole
// API; the escalate window caps manual escalations per user.
type RateLimitConfig struct {
	RequestsPerSecond float64       `envconfig:"ORBZY_RATE_LIMIT_RPS" default:"20"`
	Burst             int           `envconfig:"ORBZY_RATE_LIMIT_BURST" default:"40"`
	EscalateLimit     int           `envconfig:"ORBZY_RATE_LIMIT_ESCALATE_LIMIT" default:"5"`
	EscalateWindow    time.Duration `envconfig:"ORBZY_RATE_LIMIT_ESCALATE_WINDOW" default:"1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ORBZY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ORBZY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxPublisherEnabled bool `envconfig:"ORBZY_EVENTING_OUTBOX_PUBLISHER_ENABLED" default:"true"`
}

type EscalationConfig struct {
	ResponseWindow        time.Duration `envconfig:"ORBZY_ESCALATION_RESPONSE_WINDOW" default:"24h"`
	SweepSchedule         string        `envconfig:"ORBZY_ESCALATION_SWEEP_SCHEDULE" default:"0 * * * *"`
	SweepConcurrency      int           `envconfig:"ORBZY_ESCALATION_SWEEP_CONCURRENCY" default:"4"`
	ManualRequiresOverdue bool          `envconfig:"ORBZY_ESCALATION_MANUAL_REQUIRES_OVERDUE" default:"true"`
	CronSecret            string        `envconfig:"ORBZY_CRON_SECRET"`
	LockTTL               time.Duration `envconfig:"ORBZY_CRON_LOCK_TTL" default:"55m"`
}

func (e EscalationConfig) validate() error {
	if e.ResponseWindow <= 0 {
		return fmt.Errorf("%s must be positive", EnvEscalationResponseWindow)
	}
	if e.SweepConcurrency <= 0 {
		return fmt.Errorf("%s must be positive", EnvEscalationSweepConcurrency)
	}
	if strings.TrimSpace(e.SweepSchedule) == "" {
		return fmt.Errorf("%s is required", EnvEscalationSweepSchedule)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ORBZY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ORBZY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ORBZY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BookingEventsTopic string `envconfig:"ORBZY_PUBSUB_BOOKING_EVENTS_TOPIC" default:"orbzy-booking-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ORBZY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ORBZY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ORBZY_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"ORBZY_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
