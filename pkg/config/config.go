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
	GCP          GCPConfig
	PubSub       PubSubConfig
	MercadoPago  MercadoPagoConfig
	Catalog      CatalogConfig
	Sweeper      SweeperConfig
	Payment      PaymentConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"THOMAGGIO_APP_ENV" required:"true"`
	Port         string `envconfig:"THOMAGGIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"THOMAGGIO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THOMAGGIO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"THOMAGGIO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"THOMAGGIO_DB_DSN"`
	Driver string `envconfig:"THOMAGGIO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"THOMAGGIO_DB_HOST"`
	LegacyPort     int    `envconfig:"THOMAGGIO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"THOMAGGIO_DB_USER"`
	LegacyPassword string `envconfig:"THOMAGGIO_DB_PASSWORD"`
	LegacyName     string `envconfig:"THOMAGGIO_DB_NAME"`
	LegacySSLMode  string `envconfig:"THOMAGGIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"THOMAGGIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THOMAGGIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THOMAGGIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THOMAGGIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"THOMAGGIO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"THOMAGGIO_REDIS_ADDR"`
	Password     string        `envconfig:"THOMAGGIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"THOMAGGIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THOMAGGIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THOMAGGIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THOMAGGIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THOMAGGIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THOMAGGIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"THOMAGGIO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"THOMAGGIO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"THOMAGGIO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic    string        `envconfig:"THOMAGGIO_PUBSUB_ORDERS_TOPIC" default:"orders"`
	PaymentTopic   string        `envconfig:"THOMAGGIO_PUBSUB_PAYMENT_TOPIC" default:"payment"`
	PublishTimeout time.Duration `envconfig:"THOMAGGIO_PUBSUB_PUBLISH_TIMEOUT" default:"5s"`
}

type MercadoPagoConfig struct {
	AccessToken     string        `envconfig:"THOMAGGIO_MP_ACCESS_TOKEN" required:"true"`
	TestAccessToken string        `envconfig:"THOMAGGIO_MP_TEST_ACCESS_TOKEN"`
	BaseURL         string        `envconfig:"THOMAGGIO_MP_BASE_URL" default:"https://api.mercadopago.com"`
	Timeout         time.Duration `envconfig:"THOMAGGIO_MP_TIMEOUT" default:"10s"`
}

// Token returns the access token for the configured app environment.
func (m MercadoPagoConfig) Token(appEnv string) string {
	if strings.EqualFold(appEnv, AppEnvProd) || m.TestAccessToken == "" {
		return m.AccessToken
	}
	return m.TestAccessToken
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"THOMAGGIO_CATALOG_CACHE_TTL" default:"5m"`
}

type SweeperConfig struct {
	Interval        time.Duration `envconfig:"THOMAGGIO_SWEEP_INTERVAL" default:"5m"`
	CartExpireAfter time.Duration `envconfig:"THOMAGGIO_CART_EXPIRE_AFTER" default:"168h"`
	CartPurgeAfter  time.Duration `envconfig:"THOMAGGIO_CART_PURGE_AFTER" default:"720h"`
	LockTTL         time.Duration `envconfig:"THOMAGGIO_SWEEP_LOCK_TTL" default:"10m"`
	SweepBatchSize  int           `envconfig:"THOMAGGIO_SWEEP_BATCH_SIZE" default:"200"`
}

type PaymentConfig struct {
	PIXExpiry     time.Duration `envconfig:"THOMAGGIO_PAYMENT_PIX_EXPIRY" default:"10m"`
	GenericExpiry time.Duration `envconfig:"THOMAGGIO_PAYMENT_GENERIC_EXPIRY" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"THOMAGGIO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"THOMAGGIO_AUTO_MIGRATE" default:"false"`
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
