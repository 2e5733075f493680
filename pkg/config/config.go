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
	Session       SessionConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Verification  VerificationConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BOOKSTORE_APP_ENV" required:"true"`
	Port         string `envconfig:"BOOKSTORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOOKSTORE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"BOOKSTORE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"BOOKSTORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BOOKSTORE_DB_DSN"`
	Driver string `envconfig:"BOOKSTORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOOKSTORE_DB_HOST"`
	LegacyPort     int    `envconfig:"BOOKSTORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOOKSTORE_DB_USER"`
	LegacyPassword string `envconfig:"BOOKSTORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOOKSTORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOOKSTORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOOKSTORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOOKSTORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOOKSTORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOOKSTORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BOOKSTORE_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"BOOKSTORE_REDIS_URL"`
	Address      string        `envconfig:"BOOKSTORE_REDIS_ADDR"`
	Password     string        `envconfig:"BOOKSTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOOKSTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOOKSTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOOKSTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOOKSTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOOKSTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOOKSTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	Secret       string        `envconfig:"BOOKSTORE_SESSION_SECRET" required:"true"`
	Issuer       string        `envconfig:"BOOKSTORE_SESSION_ISSUER" default:"bookstore"`
	TTL          time.Duration `envconfig:"BOOKSTORE_SESSION_TTL" default:"168h"`
	CookieName   string        `envconfig:"BOOKSTORE_SESSION_COOKIE_NAME" default:"bookstore_session"`
	CookieSecure bool          `envconfig:"BOOKSTORE_SESSION_COOKIE_SECURE" default:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BOOKSTORE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BOOKSTORE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BOOKSTORE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BOOKSTORE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BOOKSTORE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BOOKSTORE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BOOKSTORE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BOOKSTORE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BOOKSTORE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BOOKSTORE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BOOKSTORE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	SendCodeWindow     time.Duration `envconfig:"BOOKSTORE_AUTH_RATE_LIMIT_SEND_CODE_WINDOW" default:"15m"`
	SendCodeUserLimit  int           `envconfig:"BOOKSTORE_AUTH_RATE_LIMIT_SEND_CODE_USER_LIMIT" default:"3"`
	SendCodeIPLimit    int           `envconfig:"BOOKSTORE_AUTH_RATE_LIMIT_SEND_CODE_IP_LIMIT" default:"10"`
}

type VerificationConfig struct {
	CodeTTL     time.Duration `envconfig:"BOOKSTORE_VERIFICATION_CODE_TTL" default:"15m"`
	CodeLength  int           `envconfig:"BOOKSTORE_VERIFICATION_CODE_LENGTH" default:"6"`
	ExposeCode  bool          `envconfig:"BOOKSTORE_EXPOSE_VERIFICATION_CODE" default:"false"`
	SenderLabel string        `envconfig:"BOOKSTORE_VERIFICATION_SENDER" default:"Bookstore"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BOOKSTORE_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BOOKSTORE_AUTO_MIGRATE" default:"false"`
	SeedCatalog bool `envconfig:"BOOKSTORE_SEED_CATALOG" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DBDriverSQLite)
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
