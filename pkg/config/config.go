package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "pwpanel"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PWPANEL_DB_DSN"
	EnvDBHost = "PWPANEL_DB_HOST"
	EnvDBUser = "PWPANEL_DB_USER"
	EnvDBName = "PWPANEL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
	Gateway       GatewayConfig
	GameServer    GameServerConfig
	Sweep         SweepConfig
	Dispatch      DispatchConfig
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
	Env          string `envconfig:"PWPANEL_APP_ENV" required:"true"`
	Port         string `envconfig:"PWPANEL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PWPANEL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PWPANEL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PWPANEL_DB_DSN"`
	Driver string `envconfig:"PWPANEL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PWPANEL_DB_HOST"`
	LegacyPort     int    `envconfig:"PWPANEL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PWPANEL_DB_USER"`
	LegacyPassword string `envconfig:"PWPANEL_DB_PASSWORD"`
	LegacyName     string `envconfig:"PWPANEL_DB_NAME"`
	LegacySSLMode  string `envconfig:"PWPANEL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PWPANEL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PWPANEL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PWPANEL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PWPANEL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PWPANEL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PWPANEL_REDIS_ADDR"`
	Password     string        `envconfig:"PWPANEL_REDIS_PASSWORD"`
	DB           int           `envconfig:"PWPANEL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PWPANEL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PWPANEL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PWPANEL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PWPANEL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PWPANEL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PWPANEL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PWPANEL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PWPANEL_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PWPANEL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PWPANEL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PWPANEL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PWPANEL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PWPANEL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow       time.Duration `envconfig:"PWPANEL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginNameLimit    int           `envconfig:"PWPANEL_AUTH_RATE_LIMIT_LOGIN_NAME_LIMIT" default:"5"`
	LoginIPLimit      int           `envconfig:"PWPANEL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow    time.Duration `envconfig:"PWPANEL_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterNameLimit int           `envconfig:"PWPANEL_AUTH_RATE_LIMIT_REGISTER_NAME_LIMIT" default:"3"`
	RegisterIPLimit   int           `envconfig:"PWPANEL_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PWPANEL_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PWPANEL_AUTO_MIGRATE" default:"false"`
}

// GatewayConfig points at the external checkout provider. The webhook secret
// signs settlement callbacks; callbacks without a valid signature are rejected.
type GatewayConfig struct {
	BaseURL        string        `envconfig:"PWPANEL_GATEWAY_BASE_URL" required:"true"`
	APIKey         string        `envconfig:"PWPANEL_GATEWAY_API_KEY"`
	WebhookSecret  string        `envconfig:"PWPANEL_GATEWAY_WEBHOOK_SECRET" required:"true"`
	RequestTimeout time.Duration `envconfig:"PWPANEL_GATEWAY_REQUEST_TIMEOUT" default:"10s"`
	Currency       string        `envconfig:"PWPANEL_GATEWAY_CURRENCY" default:"BRL"`
}

type GameServerConfig struct {
	StartScript    string        `envconfig:"PWPANEL_SERVER_START_SCRIPT" default:"./scripts/start_server.sh"`
	StopScript     string        `envconfig:"PWPANEL_SERVER_STOP_SCRIPT" default:"./scripts/stop_server.sh"`
	ScriptTimeout  time.Duration `envconfig:"PWPANEL_SERVER_SCRIPT_TIMEOUT" default:"30s"`
	Daemons        []string      `envconfig:"PWPANEL_SERVER_DAEMONS" default:"gauthd,gamedbd,gdeliveryd,glinkd,gs,uniquenamed,logservice"`
	DeliveryAddr   string        `envconfig:"PWPANEL_SERVER_DELIVERY_ADDR"`
	CommandTimeout time.Duration `envconfig:"PWPANEL_SERVER_COMMAND_TIMEOUT" default:"5s"`
}

// SweepConfig drives the donation expiry worker.
type SweepConfig struct {
	Interval   time.Duration `envconfig:"PWPANEL_SWEEP_INTERVAL" default:"1h"`
	PendingTTL time.Duration `envconfig:"PWPANEL_SWEEP_PENDING_TTL" default:"72h"`
	BatchSize  int           `envconfig:"PWPANEL_SWEEP_BATCH_SIZE" default:"500"`
}

// DispatchConfig drives the server-command dispatch worker.
type DispatchConfig struct {
	BatchSize    int           `envconfig:"PWPANEL_DISPATCH_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"PWPANEL_DISPATCH_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"PWPANEL_DISPATCH_MAX_ATTEMPTS" default:"10"`
	LeaseTimeout time.Duration `envconfig:"PWPANEL_DISPATCH_LEASE_TIMEOUT" default:"5m"`
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
