package config

// EnvPrefix is empty because every field carries its full LOTLEDGER_* name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"

	defaultSQLiteDSN = "file:lotledger.db?_busy_timeout=5000&_foreign_keys=on"
)

const (
	EnvAppEnv      = "LOTLEDGER_APP_ENV"
	EnvPort        = "LOTLEDGER_APP_PORT"
	EnvLogLevel    = "LOTLEDGER_LOG_LEVEL"
	EnvDBDSN       = "LOTLEDGER_DB_DSN"
	EnvDBDriver    = "LOTLEDGER_DB_DRIVER"
	EnvDBHost      = "LOTLEDGER_DB_HOST"
	EnvDBUser      = "LOTLEDGER_DB_USER"
	EnvDBName      = "LOTLEDGER_DB_NAME"
	EnvRedisURL    = "LOTLEDGER_REDIS_URL"
	EnvRedisAddr   = "LOTLEDGER_REDIS_ADDR"
	EnvLockBackend = "LOTLEDGER_LOCK_BACKEND"
	EnvLockWait    = "LOTLEDGER_LOCK_WAIT_TIMEOUT"
	EnvCORSOrigins = "LOTLEDGER_CORS_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
