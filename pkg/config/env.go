package config

const (
	EnvPrefix = "CARTWATCH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "CARTWATCH_APP_ENV"
	EnvPort        = "CARTWATCH_APP_PORT"
	EnvDBDSN       = "CARTWATCH_DB_DSN"
	EnvDBHost      = "CARTWATCH_DB_HOST"
	EnvDBUser      = "CARTWATCH_DB_USER"
	EnvDBName      = "CARTWATCH_DB_NAME"
	EnvRedisURL    = "CARTWATCH_REDIS_URL"
	EnvUseSQLite   = "CARTWATCH_USE_SQLITE"
	EnvAdminAPIKey = "CARTWATCH_ADMIN_API_KEY"
	EnvCronEvery   = "CARTWATCH_CRON_INTERVAL"
	EnvArchiveDays = "CARTWATCH_ARCHIVE_AFTER_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
