package config

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	PublicBaseURL   string

	DatabaseURL string
	DB          DBConfig

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	URLSigningKey   string
	SignedURLTTL    time.Duration

	Dispatch DispatchConfig

	CallbackSecret    string
	CallbackRateLimit float64
	APIRateLimit      float64

	DefaultPageRate float64
	Log             LogConfig
}

// DBConfig overrides the connection pool defaults when set.
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// DispatchConfig configures delivery of analysis requests to the worker.
type DispatchConfig struct {
	Transport      string
	WorkerURL      string
	WorkerToken    string
	SQSQueueURL    string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment and optional local env files.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if err := mergeEnvFiles(v, ".env", "cmd/.env"); err != nil {
		return Config{}, err
	}

	env := normalizeEnv(v.GetString("ENV"))
	cfg := Config{
		Port:            v.GetString("PORT"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		PublicBaseURL:   strings.TrimRight(strings.TrimSpace(v.GetString("PUBLIC_BASE_URL")), "/"),
		DatabaseURL:     strings.TrimSpace(v.GetString("DATABASE_URL")),
		DB: DBConfig{
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
			PingTimeout:     v.GetDuration("DB_PING_TIMEOUT"),
		},
		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),
		URLSigningKey:   v.GetString("URL_SIGNING_KEY"),
		SignedURLTTL:    v.GetDuration("SIGNED_URL_TTL"),
		Dispatch: DispatchConfig{
			Transport:      normalizeTransport(v.GetString("DISPATCH_TRANSPORT")),
			WorkerURL:      strings.TrimSpace(v.GetString("WORKER_URL")),
			WorkerToken:    v.GetString("WORKER_TOKEN"),
			SQSQueueURL:    strings.TrimSpace(v.GetString("DISPATCH_SQS_QUEUE_URL")),
			Timeout:        v.GetDuration("DISPATCH_TIMEOUT"),
			MaxAttempts:    v.GetInt("DISPATCH_MAX_ATTEMPTS"),
			InitialBackoff: v.GetDuration("DISPATCH_INITIAL_BACKOFF"),
			MaxBackoff:     v.GetDuration("DISPATCH_MAX_BACKOFF"),
		},
		CallbackSecret:    v.GetString("CALLBACK_SECRET"),
		CallbackRateLimit: v.GetFloat64("CALLBACK_RATE_LIMIT"),
		APIRateLimit:      v.GetFloat64("API_RATE_LIMIT"),
		DefaultPageRate:   v.GetFloat64("DEFAULT_PAGE_RATE"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if env == "production" {
		if cfg.DatabaseURL == "" {
			return cfg, eris.New("config: DATABASE_URL is required in production")
		}
		if cfg.CallbackSecret == "" {
			return cfg, eris.New("config: CALLBACK_SECRET is required in production")
		}
	}
	if err := validateSigningKey(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// validateSigningKey keeps the download-link key separate from the callback
// secret, which travels to the worker inside every dispatch payload.
func validateSigningKey(cfg Config) error {
	if cfg.URLSigningKey != "" && cfg.URLSigningKey == cfg.CallbackSecret {
		return eris.New("config: URL_SIGNING_KEY must differ from CALLBACK_SECRET")
	}
	signsLocally := cfg.ObjectStoreType == "local" && cfg.PublicBaseURL != ""
	if signsLocally && cfg.URLSigningKey == "" && cfg.Env != "dev" && cfg.Env != "local" {
		return eris.Errorf("config: URL_SIGNING_KEY is required for local file links in %s", cfg.Env)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("SIGNED_URL_TTL", 15*time.Minute)
	v.SetDefault("DISPATCH_TRANSPORT", "webhook")
	v.SetDefault("DISPATCH_TIMEOUT", 30*time.Second)
	v.SetDefault("DISPATCH_MAX_ATTEMPTS", 3)
	v.SetDefault("DISPATCH_INITIAL_BACKOFF", 500*time.Millisecond)
	v.SetDefault("DISPATCH_MAX_BACKOFF", 5*time.Second)
	v.SetDefault("CALLBACK_RATE_LIMIT", 5.0)
	v.SetDefault("API_RATE_LIMIT", 10.0)
	v.SetDefault("DEFAULT_PAGE_RATE", 65.0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// mergeEnvFiles reads KEY=VALUE files that exist. Real environment
// variables still win because AutomaticEnv is consulted first.
func mergeEnvFiles(v *viper.Viper, paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			return eris.Wrapf(err, "config: read %s", path)
		}
	}
	return nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeTransport(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "none", "off":
		return "none"
	default:
		return "webhook"
	}
}
