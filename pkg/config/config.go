package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SHOPWIRE"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv            = "SHOPWIRE_APP_ENV"
	EnvPort              = "SHOPWIRE_APP_PORT"
	EnvDBDSN             = "SHOPWIRE_DB_DSN"
	EnvDBHost            = "SHOPWIRE_DB_HOST"
	EnvDBUser            = "SHOPWIRE_DB_USER"
	EnvDBName            = "SHOPWIRE_DB_NAME"
	EnvRedisURL          = "SHOPWIRE_REDIS_URL"
	EnvJWTSecret         = "SHOPWIRE_JWT_SECRET"
	EnvJWTIssuer         = "SHOPWIRE_JWT_ISSUER"
	EnvJWTExpMins        = "SHOPWIRE_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID      = "SHOPWIRE_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "SHOPWIRE_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub   = "SHOPWIRE_PUBSUB_DOMAIN_SUBSCRIPTION"
	EnvFeedRetentionDays = "SHOPWIRE_FEED_RETENTION_DAYS"
	EnvFeedSweepInterval = "SHOPWIRE_FEED_SWEEP_INTERVAL"
	EnvStreamBufferSize  = "SHOPWIRE_STREAM_BUFFER_SIZE"
	EnvStreamPushTimeout = "SHOPWIRE_STREAM_PUSH_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	GCP     GCPConfig
	PubSub  PubSubConfig
	Feed    FeedConfig
	Stream  StreamConfig
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
	Env          string `envconfig:"SHOPWIRE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPWIRE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPWIRE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPWIRE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOPWIRE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPWIRE_DB_DSN"`
	Driver string `envconfig:"SHOPWIRE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPWIRE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPWIRE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPWIRE_DB_USER"`
	LegacyPassword string `envconfig:"SHOPWIRE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPWIRE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPWIRE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPWIRE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPWIRE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPWIRE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPWIRE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"SHOPWIRE_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPWIRE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPWIRE_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPWIRE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPWIRE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPWIRE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPWIRE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPWIRE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPWIRE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPWIRE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPWIRE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPWIRE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOPWIRE_JWT_EXPIRATION_MINUTES" required:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SHOPWIRE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SHOPWIRE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SHOPWIRE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"SHOPWIRE_PUBSUB_DOMAIN_TOPIC" default:"sw-domain-events"`
	DomainSubscription string `envconfig:"SHOPWIRE_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type FeedConfig struct {
	RetentionDays int           `envconfig:"SHOPWIRE_FEED_RETENTION_DAYS" default:"7"`
	SweepInterval time.Duration `envconfig:"SHOPWIRE_FEED_SWEEP_INTERVAL" default:"24h"`
}

type StreamConfig struct {
	BufferSize  int           `envconfig:"SHOPWIRE_STREAM_BUFFER_SIZE" default:"16"`
	PushTimeout time.Duration `envconfig:"SHOPWIRE_STREAM_PUSH_TIMEOUT" default:"2s"`
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
