package config

const (
	EnvPrefix = "ORBZY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "ORBZY_APP_ENV"
	EnvPort     = "ORBZY_APP_PORT"
	EnvLogLevel = "ORBZY_LOG_LEVEL"
	EnvLogFile  = "ORBZY_LOG_FILE"

	EnvMetricsAddr = "ORBZY_METRICS_ADDR"

	EnvDBDSN  = "ORBZY_DB_DSN"
	EnvDBHost = "ORBZY_DB_HOST"
	EnvDBPort = "ORBZY_DB_PORT"
	EnvDBUser = "ORBZY_DB_USER"
	EnvDBPass = "ORBZY_DB_PASSWORD"
	EnvDBName = "ORBZY_DB_NAME"

	EnvRedisURL = "ORBZY_REDIS_URL"

	EnvJWTSecret  = "ORBZY_JWT_SECRET"
	EnvJWTIssuer  = "ORBZY_JWT_ISSUER"
	EnvJWTExpMins = "ORBZY_JWT_EXPIRATION_MINUTES"

	EnvEscalationResponseWindow   = "ORBZY_ESCALATION_RESPONSE_WINDOW"
	EnvEscalationSweepSchedule    = "ORBZY_ESCALATION_SWEEP_SCHEDULE"
	EnvEscalationSweepConcurrency = "ORBZY_ESCALATION_SWEEP_CONCURRENCY"
	EnvEscalationManualOverdue    = "ORBZY_ESCALATION_MANUAL_REQUIRES_OVERDUE"
	EnvCronSecret                 = "ORBZY_CRON_SECRET"

	EnvGCPProjectID           = "ORBZY_GCP_PROJECT_ID"
	EnvPubSubBookingEventsTop = "ORBZY_PUBSUB_BOOKING_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
