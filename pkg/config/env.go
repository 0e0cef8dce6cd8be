package config

const (
	// EnvPrefix is handed to envconfig; every field carries its full name.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "VATAVARAN_APP_ENV"

	EnvDBDSN  = "VATAVARAN_DB_DSN"
	EnvDBHost = "VATAVARAN_DB_HOST"
	EnvDBUser = "VATAVARAN_DB_USER"
	EnvDBName = "VATAVARAN_DB_NAME"

	EnvRedisURL  = "VATAVARAN_REDIS_URL"
	EnvRedisAddr = "VATAVARAN_REDIS_ADDR"

	EnvJWTSecret   = "VATAVARAN_JWT_SECRET"
	EnvJWTExpMins  = "VATAVARAN_JWT_EXPIRATION_MINUTES"
	EnvRefreshDays = "VATAVARAN_REFRESH_TOKEN_TTL_DAYS"

	EnvClassifierSlots = "VATAVARAN_CLASSIFIER_MAX_IN_FLIGHT"
	EnvCORSOrigins     = "VATAVARAN_CORS_ALLOWED_ORIGINS"
)
