// Package config loads process configuration from VATAVARAN_* environment
// variables. Every binary calls Load once at startup.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

// minProdSecretLen is the shortest HS256 secret accepted outside dev.
const minProdSecretLen = 32

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Storage       StorageConfig
	Classifier    ClassifierConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Admin         AdminSeedConfig
}

// Load parses the environment, fills in the database DSN from its parts when
// needed and rejects inconsistent settings. All problems are reported at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	if c.App.IsProd() && len(c.JWT.Secret) < minProdSecretLen {
		err = multierr.Append(err, fmt.Errorf("%s must be at least %d bytes in production", EnvJWTSecret, minProdSecretLen))
	}
	if c.JWT.ExpirationMinutes <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if c.JWT.RefreshTokenTTL() <= time.Duration(c.JWT.ExpirationMinutes)*time.Minute {
		err = multierr.Append(err, fmt.Errorf("%s must outlive the access token", EnvRefreshDays))
	}
	if c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		err = multierr.Append(err, errors.New("db max idle conns cannot exceed max open conns"))
	}
	if strings.TrimSpace(c.Redis.URL) == "" && strings.TrimSpace(c.Redis.Address) == "" {
		err = multierr.Append(err, fmt.Errorf("either %s or %s is required", EnvRedisURL, EnvRedisAddr))
	}
	if (c.Storage.AccessKeyID == "") != (c.Storage.SecretKey == "") {
		err = multierr.Append(err, errors.New("s3 access key id and secret must be set together"))
	}
	if c.Storage.MaxUploadMB <= 0 {
		err = multierr.Append(err, errors.New("max upload size must be positive"))
	}
	if c.Classifier.MaxInFlight < 1 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1", EnvClassifierSlots))
	}
	if c.App.IsProd() && slices.Contains(c.CORS.AllowedOrigins, "*") {
		err = multierr.Append(err, fmt.Errorf("%s cannot contain * in production", EnvCORSOrigins))
	}
	if c.Outbox.BatchSize <= 0 || c.Outbox.PollIntervalMS <= 0 || c.Outbox.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("outbox batch size, poll interval and max attempts must be positive"))
	}
	return err
}

type AppConfig struct {
	Env          string `envconfig:"VATAVARAN_APP_ENV" required:"true"`
	Port         string `envconfig:"VATAVARAN_APP_PORT" default:"4000"`
	LogLevel     string `envconfig:"VATAVARAN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VATAVARAN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// DBConfig accepts either a full DSN or its parts.
type DBConfig struct {
	DSN string `envconfig:"VATAVARAN_DB_DSN"`

	Host     string `envconfig:"VATAVARAN_DB_HOST"`
	Port     int    `envconfig:"VATAVARAN_DB_PORT" default:"5432"`
	User     string `envconfig:"VATAVARAN_DB_USER"`
	Password string `envconfig:"VATAVARAN_DB_PASSWORD"`
	Name     string `envconfig:"VATAVARAN_DB_NAME"`
	SSLMode  string `envconfig:"VATAVARAN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VATAVARAN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VATAVARAN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VATAVARAN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VATAVARAN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// StatementTimeout bounds every request-scoped transaction.
	StatementTimeout time.Duration `envconfig:"VATAVARAN_DB_STATEMENT_TIMEOUT" default:"10s"`
	SlowQuery        time.Duration `envconfig:"VATAVARAN_DB_SLOW_QUERY" default:"500ms"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	user := url.User(db.User)
	if db.Password != "" {
		user = url.UserPassword(db.User, db.Password)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   db.Host + ":" + strconv.Itoa(db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}

// RedisConfig prefers URL; Address and the fields after it are used when no
// URL is given.
type RedisConfig struct {
	URL          string        `envconfig:"VATAVARAN_REDIS_URL"`
	Address      string        `envconfig:"VATAVARAN_REDIS_ADDR"`
	Password     string        `envconfig:"VATAVARAN_REDIS_PASSWORD"`
	DB           int           `envconfig:"VATAVARAN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VATAVARAN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VATAVARAN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VATAVARAN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VATAVARAN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VATAVARAN_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"VATAVARAN_REDIS_KEY_PREFIX" default:"vt"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VATAVARAN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VATAVARAN_JWT_ISSUER" default:"vatavaran"`
	ExpirationMinutes int    `envconfig:"VATAVARAN_JWT_EXPIRATION_MINUTES" default:"1440"`
	RefreshTokenDays  int    `envconfig:"VATAVARAN_REFRESH_TOKEN_TTL_DAYS" default:"7"`
}

// RefreshTokenTTL returns how long a refresh session stays valid in Redis.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(j.RefreshTokenDays) * 24 * time.Hour
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VATAVARAN_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VATAVARAN_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VATAVARAN_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VATAVARAN_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VATAVARAN_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"VATAVARAN_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"VATAVARAN_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"VATAVARAN_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"VATAVARAN_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"VATAVARAN_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"VATAVARAN_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	// AutoMigrate applies embedded migrations on boot, dev only.
	AutoMigrate bool `envconfig:"VATAVARAN_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"VATAVARAN_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:3001,https://vatavaranapp.vercel.app,https://*.vercel.app"`
}

type StorageConfig struct {
	Bucket        string `envconfig:"VATAVARAN_S3_BUCKET"`
	Region        string `envconfig:"VATAVARAN_S3_REGION" default:"ap-south-1"`
	Endpoint      string `envconfig:"VATAVARAN_S3_ENDPOINT"`
	AccessKeyID   string `envconfig:"VATAVARAN_S3_ACCESS_KEY_ID"`
	SecretKey     string `envconfig:"VATAVARAN_S3_SECRET_ACCESS_KEY"`
	PublicBaseURL string `envconfig:"VATAVARAN_S3_PUBLIC_BASE_URL"`
	Folder        string `envconfig:"VATAVARAN_S3_FOLDER" default:"vatavaran/pickups"`
	UsePathStyle  bool   `envconfig:"VATAVARAN_S3_USE_PATH_STYLE" default:"false"`
	MaxUploadMB   int    `envconfig:"VATAVARAN_MAX_UPLOAD_MB" default:"5"`
}

// Enabled reports whether an upload bucket is configured.
func (s StorageConfig) Enabled() bool {
	return strings.TrimSpace(s.Bucket) != ""
}

type ClassifierConfig struct {
	APIKey         string        `envconfig:"VATAVARAN_GEMINI_API_KEY"`
	Model          string        `envconfig:"VATAVARAN_GEMINI_MODEL" default:"gemini-1.5-flash"`
	BaseURL        string        `envconfig:"VATAVARAN_GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Timeout        time.Duration `envconfig:"VATAVARAN_CLASSIFIER_TIMEOUT" default:"20s"`
	MaxInFlight    int64         `envconfig:"VATAVARAN_CLASSIFIER_MAX_IN_FLIGHT" default:"2"`
	AcquireTimeout time.Duration `envconfig:"VATAVARAN_CLASSIFIER_ACQUIRE_TIMEOUT" default:"250ms"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"VATAVARAN_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"VATAVARAN_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"VATAVARAN_PUBSUB_DOMAIN_TOPIC" default:"vatavaran-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VATAVARAN_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VATAVARAN_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VATAVARAN_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// AdminSeedConfig is read only by cmd/create-admin.
type AdminSeedConfig struct {
	Name     string `envconfig:"VATAVARAN_ADMIN_NAME"`
	Email    string `envconfig:"VATAVARAN_ADMIN_EMAIL"`
	Password string `envconfig:"VATAVARAN_ADMIN_PASSWORD"`
}
