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
	Lock         LockConfig
	HTTP         HTTPConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Lock.validate(cfg.Redis); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LOTLEDGER_APP_ENV" default:"dev"`
	Port         string `envconfig:"LOTLEDGER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LOTLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOTLEDGER_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"LOTLEDGER_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LOTLEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LOTLEDGER_DB_DSN"`
	Driver string `envconfig:"LOTLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LOTLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"LOTLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOTLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"LOTLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOTLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOTLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOTLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOTLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOTLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOTLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// LockTimeout bounds how long a transaction waits on a row lock before the
	// store reports the item as busy. Postgres only.
	LockTimeout time.Duration `envconfig:"LOTLEDGER_DB_LOCK_TIMEOUT" default:"3s"`
}

// IsSQLite reports whether the embedded SQLite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"LOTLEDGER_REDIS_URL"`
	Address      string        `envconfig:"LOTLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"LOTLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOTLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOTLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOTLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOTLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOTLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOTLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any Redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// LockConfig configures the per-item exclusive section taken by every mutation.
type LockConfig struct {
	Backend       string        `envconfig:"LOTLEDGER_LOCK_BACKEND" default:"memory"`
	WaitTimeout   time.Duration `envconfig:"LOTLEDGER_LOCK_WAIT_TIMEOUT" default:"5s"`
	TTL           time.Duration `envconfig:"LOTLEDGER_LOCK_TTL" default:"30s"`
	RetryInterval time.Duration `envconfig:"LOTLEDGER_LOCK_RETRY_INTERVAL" default:"25ms"`
}

// UsesRedis reports whether item locks are coordinated through Redis.
func (l LockConfig) UsesRedis() bool {
	return strings.EqualFold(strings.TrimSpace(l.Backend), LockBackendRedis)
}

func (l LockConfig) validate(redis RedisConfig) error {
	switch strings.ToLower(strings.TrimSpace(l.Backend)) {
	case LockBackendMemory:
		return nil
	case LockBackendRedis:
		if !redis.Enabled() {
			return fmt.Errorf("%s=redis requires %s or %s", EnvLockBackend, EnvRedisURL, EnvRedisAddr)
		}
		return nil
	default:
		return fmt.Errorf("unsupported lock backend %q", l.Backend)
	}
}

type HTTPConfig struct {
	CORSOrigins  []string      `envconfig:"LOTLEDGER_CORS_ORIGINS" default:"*"`
	ReadTimeout  time.Duration `envconfig:"LOTLEDGER_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"LOTLEDGER_HTTP_WRITE_TIMEOUT" default:"15s"`
	// IdempotencyTTL is how long replayable POST responses are kept in Redis.
	IdempotencyTTL time.Duration `envconfig:"LOTLEDGER_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LOTLEDGER_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
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
