package config

const (
	EnvPrefix = "BOOKSTORE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv = "BOOKSTORE_APP_ENV"
	EnvPort   = "BOOKSTORE_APP_PORT"

	EnvDBDSN    = "BOOKSTORE_DB_DSN"
	EnvDBDriver = "BOOKSTORE_DB_DRIVER"
	EnvDBHost   = "BOOKSTORE_DB_HOST"
	EnvDBUser   = "BOOKSTORE_DB_USER"
	EnvDBPass   = "BOOKSTORE_DB_PASSWORD"
	EnvDBName   = "BOOKSTORE_DB_NAME"

	EnvRedisURL = "BOOKSTORE_REDIS_URL"

	EnvSessionSecret = "BOOKSTORE_SESSION_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
