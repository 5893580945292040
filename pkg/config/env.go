package config

// EnvPrefix is passed to envconfig; every field carries an explicit name so it only
// matters for fields without one.
const EnvPrefix = "PEDIDOS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "PEDIDOS_APP_ENV"
	EnvLogLevel  = "PEDIDOS_LOG_LEVEL"
	EnvLogFormat = "PEDIDOS_LOG_FORMAT"

	EnvDBDSN  = "PEDIDOS_DB_DSN"
	EnvDBHost = "PEDIDOS_DB_HOST"
	EnvDBUser = "PEDIDOS_DB_USER"
	EnvDBName = "PEDIDOS_DB_NAME"

	EnvRedisURL  = "PEDIDOS_REDIS_URL"
	EnvUseSQLite = "PEDIDOS_USE_SQLITE"

	EnvGCPProjectID            = "PEDIDOS_GCP_PROJECT_ID"
	EnvPubSubNotificationTopic = "PEDIDOS_PUBSUB_NOTIFICATION_TOPIC"

	EnvSweepSchedule = "PEDIDOS_SWEEP_SCHEDULE"
	EnvSweepTimezone = "PEDIDOS_SWEEP_TIMEZONE"

	EnvOpsAddr = "PEDIDOS_OPS_ADDR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
