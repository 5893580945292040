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
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Sweep        SweepConfig
	Ops          OpsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = cfg.FeatureFlags.SQLitePath
		}
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PEDIDOS_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"PEDIDOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PEDIDOS_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PEDIDOS_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PEDIDOS_DB_DSN"`
	Driver string `envconfig:"PEDIDOS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PEDIDOS_DB_HOST"`
	LegacyPort     int    `envconfig:"PEDIDOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PEDIDOS_DB_USER"`
	LegacyPassword string `envconfig:"PEDIDOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"PEDIDOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"PEDIDOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PEDIDOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PEDIDOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PEDIDOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PEDIDOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PEDIDOS_REDIS_URL"`
	Address      string        `envconfig:"PEDIDOS_REDIS_ADDR"`
	Password     string        `envconfig:"PEDIDOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"PEDIDOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PEDIDOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PEDIDOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PEDIDOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PEDIDOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PEDIDOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool   `envconfig:"PEDIDOS_USE_SQLITE" default:"false"`
	SQLitePath  string `envconfig:"PEDIDOS_SQLITE_PATH" default:"pedidos.db"`
	AutoMigrate bool   `envconfig:"PEDIDOS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PEDIDOS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"PEDIDOS_PUBSUB_NOTIFICATION_TOPIC" default:"pedidos-notifications"`
}

// SweepConfig drives the zero-value finalize sweep.
type SweepConfig struct {
	Schedule  string        `envconfig:"PEDIDOS_SWEEP_SCHEDULE" default:"0 3 * * *"`
	Timezone  string        `envconfig:"PEDIDOS_SWEEP_TIMEZONE" default:"America/Fortaleza"`
	LockTTL   time.Duration `envconfig:"PEDIDOS_SWEEP_LOCK_TTL" default:"25h"`
	BatchSize int           `envconfig:"PEDIDOS_SWEEP_BATCH_SIZE" default:"500"`
}

// Location resolves the sweep timezone, falling back to UTC.
func (s SweepConfig) Location() *time.Location {
	if strings.TrimSpace(s.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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

// OpsConfig controls the worker's health, metrics and manual trigger endpoints.
// An empty address keeps the listener off.
type OpsConfig struct {
	Addr            string        `envconfig:"PEDIDOS_OPS_ADDR"`
	ShutdownTimeout time.Duration `envconfig:"PEDIDOS_OPS_SHUTDOWN_TIMEOUT" default:"10s"`
}

func (o OpsConfig) Enabled() bool {
	return strings.TrimSpace(o.Addr) != ""
}
