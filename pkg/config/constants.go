package config

const EnvPrefix = "WACKA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:wacka.db?cache=shared&_foreign_keys=on"

	MpesaEnvSandbox    = "sandbox"
	MpesaEnvProduction = "production"
	MpesaSandboxURL    = "https://sandbox.safaricom.co.ke"
	MpesaProductionURL = "https://api.safaricom.co.ke"
)

const (
	EnvAppEnv            = "WACKA_APP_ENV"
	EnvPort              = "WACKA_APP_PORT"
	EnvLogLevel          = "WACKA_LOG_LEVEL"
	EnvCORSOrigins       = "WACKA_CORS_ORIGINS"
	EnvDBDSN             = "WACKA_DB_DSN"
	EnvDBDriver          = "WACKA_DB_DRIVER"
	EnvDBHost            = "WACKA_DB_HOST"
	EnvDBPort            = "WACKA_DB_PORT"
	EnvDBUser            = "WACKA_DB_USER"
	EnvDBPassword        = "WACKA_DB_PASSWORD"
	EnvDBName            = "WACKA_DB_NAME"
	EnvRedisURL          = "WACKA_REDIS_URL"
	EnvJWTSecret         = "WACKA_JWT_SECRET"
	EnvJWTIssuer         = "WACKA_JWT_ISSUER"
	EnvJWTExpMins        = "WACKA_JWT_EXPIRATION_MINUTES"
	EnvAutoMigrate       = "WACKA_AUTO_MIGRATE"
	EnvMpesaKey          = "WACKA_MPESA_CONSUMER_KEY"
	EnvMpesaSecret       = "WACKA_MPESA_CONSUMER_SECRET"
	EnvMpesaEnv          = "WACKA_MPESA_ENV"
	EnvMpesaBaseURL      = "WACKA_MPESA_BASE_URL"
	EnvMpesaTimeout      = "WACKA_MPESA_TIMEOUT"
	EnvMpesaCallback     = "WACKA_MPESA_CALLBACK_URL"
	EnvSMTPUsername      = "WACKA_SMTP_USERNAME"
	EnvSMTPPassword      = "WACKA_SMTP_PASSWORD"
	EnvAdminEmail        = "WACKA_ADMIN_EMAIL"
	EnvNotifyWorkers     = "WACKA_NOTIFY_WORKERS"
	EnvGCPProjectID      = "WACKA_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "WACKA_PUBSUB_ORDERS_TOPIC"
	EnvCronInterval      = "WACKA_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
