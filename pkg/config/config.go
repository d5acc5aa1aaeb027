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
	FeatureFlags FeatureFlagsConfig
	Admin        AdminConfig
	Cart         CartConfig
	Analytics    AnalyticsConfig
	Export       ExportConfig
	Resend       ResendConfig
	FTP          FTPConfig
	Cron         CronConfig
	Retention    RetentionConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTWATCH_APP_ENV" required:"true"`
	Port         string `envconfig:"CARTWATCH_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CARTWATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTWATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CARTWATCH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARTWATCH_DB_DSN"`
	Driver string `envconfig:"CARTWATCH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARTWATCH_DB_HOST"`
	LegacyPort     int    `envconfig:"CARTWATCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARTWATCH_DB_USER"`
	LegacyPassword string `envconfig:"CARTWATCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARTWATCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARTWATCH_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"CARTWATCH_SQLITE_PATH" default:"cartwatch.db"`

	MaxOpenConns    int           `envconfig:"CARTWATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARTWATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARTWATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTWATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTWATCH_REDIS_URL"`
	Address      string        `envconfig:"CARTWATCH_REDIS_ADDR"`
	Password     string        `envconfig:"CARTWATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTWATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTWATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTWATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTWATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTWATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTWATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CARTWATCH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CARTWATCH_AUTO_MIGRATE" default:"false"`
}

type AdminConfig struct {
	APIKey string `envconfig:"CARTWATCH_ADMIN_API_KEY" required:"true"`
}

type CartConfig struct {
	CacheTTL time.Duration `envconfig:"CARTWATCH_CART_CACHE_TTL" default:"300s"`
	// LocalPurchaseCount derives past purchases from converted carts instead
	// of trusting the count sent with storefront events.
	LocalPurchaseCount bool `envconfig:"CARTWATCH_CART_LOCAL_PURCHASE_COUNT" default:"false"`
}

type AnalyticsConfig struct {
	CacheTTL time.Duration `envconfig:"CARTWATCH_ANALYTICS_CACHE_TTL" default:"300s"`
}

type ExportConfig struct {
	TempDir        string `envconfig:"CARTWATCH_EXPORT_TEMP_DIR"`
	DefaultSubject string `envconfig:"CARTWATCH_EXPORT_DEFAULT_SUBJECT" default:"Cart export"`
	SiteName       string `envconfig:"CARTWATCH_EXPORT_SITE_NAME" default:"CartWatch"`
	Timezone       string `envconfig:"CARTWATCH_EXPORT_TIMEZONE" default:"UTC"`
}

type ResendConfig struct {
	APIKey    string `envconfig:"CARTWATCH_RESEND_API_KEY"`
	FromEmail string `envconfig:"CARTWATCH_RESEND_FROM_EMAIL" default:"noreply@cartwatch.local"`
	FromName  string `envconfig:"CARTWATCH_RESEND_FROM_NAME" default:"CartWatch"`
}

type FTPConfig struct {
	Timeout time.Duration `envconfig:"CARTWATCH_FTP_TIMEOUT" default:"30s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CARTWATCH_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"CARTWATCH_CRON_LOCK_TTL" default:"55m"`
	// JobTimeout bounds each job; FTP and mail delivery are the slow parts.
	JobTimeout time.Duration `envconfig:"CARTWATCH_CRON_JOB_TIMEOUT" default:"30m"`
}

type RetentionConfig struct {
	ArchiveAfterDays int `envconfig:"CARTWATCH_ARCHIVE_AFTER_DAYS" default:"90"`
	PurgeAfterDays   int `envconfig:"CARTWATCH_PURGE_ARCHIVE_AFTER_DAYS" default:"365"`
}

// RateLimitConfig throttles the export endpoints per client IP and per admin.
type RateLimitConfig struct {
	ExportWindow     time.Duration `envconfig:"CARTWATCH_EXPORT_RATE_WINDOW" default:"1m"`
	ExportIPLimit    int           `envconfig:"CARTWATCH_EXPORT_RATE_IP_LIMIT" default:"20"`
	ExportAdminLimit int           `envconfig:"CARTWATCH_EXPORT_RATE_ADMIN_LIMIT" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
