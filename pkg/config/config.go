package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "CARTSYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv             = "CARTSYNC_APP_ENV"
	EnvLogLevel           = "CARTSYNC_LOG_LEVEL"
	EnvAPIBaseURL         = "CARTSYNC_API_BASE_URL"
	EnvAPITimeout         = "CARTSYNC_API_TIMEOUT"
	EnvSequencing         = "CARTSYNC_SEQUENCING"
	EnvDeliveryType       = "CARTSYNC_DELIVERY_TYPE"
	EnvDeliveryIn         = "CARTSYNC_DELIVERY_IN"
	EnvDateWindowDays     = "CARTSYNC_DATE_WINDOW_DAYS"
	EnvTimezone           = "CARTSYNC_TIMEZONE"
	EnvCredentialsBackend = "CARTSYNC_CREDENTIALS_BACKEND"
	EnvDBDriver           = "CARTSYNC_DB_DRIVER"
	EnvDBDSN              = "CARTSYNC_DB_DSN"
	EnvDBHost             = "CARTSYNC_DB_HOST"
	EnvDBUser             = "CARTSYNC_DB_USER"
	EnvDBName             = "CARTSYNC_DB_NAME"
	EnvRedisURL           = "CARTSYNC_REDIS_URL"
	EnvRedisAddr          = "CARTSYNC_REDIS_ADDR"
	EnvSandboxPort        = "CARTSYNC_SANDBOX_PORT"
	EnvSandboxJWTSecret   = "CARTSYNC_SANDBOX_JWT_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App         AppConfig
	API         APIConfig
	Cart        CartConfig
	Checkout    CheckoutConfig
	Credentials CredentialsConfig
	DB          DBConfig
	Redis       RedisConfig
	Sandbox     SandboxConfig
	Metrics     MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("invalid %s %q: %w", EnvAPIBaseURL, c.API.BaseURL, err)
	}
	switch strings.ToLower(c.Cart.Sequencing) {
	case "serialize", "sequence":
	default:
		return fmt.Errorf("%s must be serialize or sequence, got %q", EnvSequencing, c.Cart.Sequencing)
	}
	if c.Checkout.DateWindowDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvDateWindowDays)
	}
	if _, err := c.Checkout.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.Credentials.Backend) {
	case "memory":
	case "redis":
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("credentials backend redis requires %s or %s", EnvRedisURL, EnvRedisAddr)
		}
	case "sql":
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%s must be memory, redis or sql, got %q", EnvCredentialsBackend, c.Credentials.Backend)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTSYNC_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"CARTSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points the client at the remote commerce API.
type APIConfig struct {
	BaseURL       string        `envconfig:"CARTSYNC_API_BASE_URL" default:"http://localhost:8085/api"`
	Timeout       time.Duration `envconfig:"CARTSYNC_API_TIMEOUT" default:"10s"`
	BodyReadLimit int64         `envconfig:"CARTSYNC_API_BODY_READ_LIMIT" default:"1048576"`
}

type CartConfig struct {
	Sequencing string `envconfig:"CARTSYNC_SEQUENCING" default:"serialize"`
}

type CheckoutConfig struct {
	DeliveryType   string `envconfig:"CARTSYNC_DELIVERY_TYPE" default:"standard"`
	DeliveryIn     string `envconfig:"CARTSYNC_DELIVERY_IN" default:"1HR"`
	DateWindowDays int    `envconfig:"CARTSYNC_DATE_WINDOW_DAYS" default:"10"`
	Timezone       string `envconfig:"CARTSYNC_TIMEZONE" default:"Local"`
}

// Location resolves the configured timezone used for delivery dates and slots.
func (c CheckoutConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvTimezone, name, err)
	}
	return loc, nil
}

type CredentialsConfig struct {
	Backend string `envconfig:"CARTSYNC_CREDENTIALS_BACKEND" default:"sql"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARTSYNC_DB_DSN"`
	Driver string `envconfig:"CARTSYNC_DB_DRIVER" default:"sqlite"`

	LegacyHost     string `envconfig:"CARTSYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"CARTSYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARTSYNC_DB_USER"`
	LegacyPassword string `envconfig:"CARTSYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARTSYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARTSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARTSYNC_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"CARTSYNC_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"CARTSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	AutoMigrate     bool          `envconfig:"CARTSYNC_DB_AUTO_MIGRATE" default:"true"`
}

// IsSQLite reports whether the credential database is a local sqlite file.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTSYNC_REDIS_URL"`
	Address      string        `envconfig:"CARTSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"CARTSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTSYNC_REDIS_POOL_SIZE" default:"4"`
	DialTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"CARTSYNC_REDIS_WRITE_TIMEOUT" default:"3s"`
	Namespace    string        `envconfig:"CARTSYNC_REDIS_NAMESPACE" default:"gc"`
}

type SandboxConfig struct {
	Port              string        `envconfig:"CARTSYNC_SANDBOX_PORT" default:"8085"`
	JWTSecret         string        `envconfig:"CARTSYNC_SANDBOX_JWT_SECRET" default:"sandbox-secret"`
	JWTIssuer         string        `envconfig:"CARTSYNC_SANDBOX_JWT_ISSUER" default:"grocerycart-sandbox"`
	TokenTTL          time.Duration `envconfig:"CARTSYNC_SANDBOX_TOKEN_TTL" default:"24h"`
	TaxRate           string        `envconfig:"CARTSYNC_SANDBOX_TAX_RATE" default:"0.05"`
	DiscountRate      string        `envconfig:"CARTSYNC_SANDBOX_DISCOUNT_RATE" default:"0"`
	DefaultWallet     string        `envconfig:"CARTSYNC_SANDBOX_DEFAULT_WALLET" default:"50.00"`
	AllowedOrigins    []string      `envconfig:"CARTSYNC_SANDBOX_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ArtificialLatency time.Duration `envconfig:"CARTSYNC_SANDBOX_LATENCY" default:"0s"`
	DemoEmail         string        `envconfig:"CARTSYNC_SANDBOX_DEMO_EMAIL" default:"demo@grocerycart.local"`
	DemoPassword      string        `envconfig:"CARTSYNC_SANDBOX_DEMO_PASSWORD" default:"demo-password"`
	Password          PasswordConfig
}

// PasswordConfig tunes the Argon2id hashing of sandbox customer passwords.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CARTSYNC_ARGON_MEMORY_KB" default:"32768"`
	ArgonTime        int `envconfig:"CARTSYNC_ARGON_TIME" default:"1"`
	ArgonParallelism int `envconfig:"CARTSYNC_ARGON_PARALLELISM" default:"1"`
	ArgonSaltLen     int `envconfig:"CARTSYNC_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CARTSYNC_ARGON_KEY_LEN" default:"32"`
}

type MetricsConfig struct {
	Namespace string `envconfig:"CARTSYNC_METRICS_NAMESPACE" default:"cartsync"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:cartsync.db?_busy_timeout=5000"
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
