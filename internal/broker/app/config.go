package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mona-chen/jean/pkg/breaker"
	"github.com/mona-chen/jean/pkg/httpx"
)

type Config struct {
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	Issuer              string // iss claim of every TEP token (default: tween-broker)
	KeyID               string // kid header (default: tep-1)
	Algorithm           string // RS256, RS384 or RS512 (default: RS256)
	PrivateKey          string // PEM signing key, inline
	PrivateKeyFile      string // PEM signing key, from a file
	AllowEphemeralKey   bool   // generate a throwaway key when none is configured; refused in prod
	DatabaseFile        string // SQLite database (default: ./broker.db)
	PepperFile          string // pepper for client secret hashes (default: ./pepper)
	RedisURL            string // empty selects the in-memory cache
	MiniAppsFile        string // optional JSON list of mini-app registrations
	ReaperSchedule      string // cron spec (default: @every 5m)
	AllowUnverifiedRoom bool   // skip room membership checks without a homeserver client

	ConsentSessionTTL time.Duration
	AuthRequestTTL    time.Duration
	InitiateGuardTTL  time.Duration
	ConfirmGuardTTL   time.Duration

	MASClientID         string
	MASClientSecret     string
	MASClientSecretFile string
	MASTokenURL         string
	MASIntrospectionURL string
	MASRevocationURL    string
	MASAuthURL          string
	MASTimeout          time.Duration

	WalletBaseURL string
	WalletAPIKey  string
	WalletTimeout time.Duration

	MatrixAPIURL      string
	MatrixAccessToken string

	Breaker    breaker.Config
	RateLimits httpx.RateLimits
}

// LoadConfig reads the environment, after loading .env when one exists.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	def := breaker.DefaultConfig()
	cfg := Config{
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		Issuer:              getEnvOrDefault("TEP_ISSUER", "tween-broker"),
		KeyID:               getEnvOrDefault("TEP_KEY_ID", "tep-1"),
		Algorithm:           getEnvOrDefault("TEP_ALGORITHM", "RS256"),
		PrivateKey:          os.Getenv("TEP_PRIVATE_KEY"),
		PrivateKeyFile:      os.Getenv("TEP_PRIVATE_KEY_FILE"),
		AllowEphemeralKey:   getEnvBool("TEP_ALLOW_EPHEMERAL_KEY"),
		DatabaseFile:        getEnvOrDefault("DATABASE_FILE", "broker.db"),
		PepperFile:          getEnvOrDefault("PEPPER_FILE", "pepper"),
		RedisURL:            os.Getenv("REDIS_URL"),
		MiniAppsFile:        os.Getenv("MINIAPPS_FILE"),
		ReaperSchedule:      getEnvOrDefault("REAPER_SCHEDULE", "@every 5m"),
		AllowUnverifiedRoom: getEnvBool("ALLOW_UNVERIFIED_ROOMS"),

		ConsentSessionTTL: getEnvDurationOrDefault("CONSENT_SESSION_TTL", 0),
		AuthRequestTTL:    getEnvDurationOrDefault("AUTH_REQUEST_TTL", 0),
		InitiateGuardTTL:  getEnvDurationOrDefault("P2P_IDEMPOTENCY_TTL", 0),
		ConfirmGuardTTL:   getEnvDurationOrDefault("P2P_CONFIRM_TTL", 0),

		MASClientID:         os.Getenv("MAS_CLIENT_ID"),
		MASClientSecret:     os.Getenv("MAS_CLIENT_SECRET"),
		MASClientSecretFile: os.Getenv("MAS_CLIENT_SECRET_FILE"),
		MASTokenURL:         os.Getenv("MAS_TOKEN_URL"),
		MASIntrospectionURL: os.Getenv("MAS_INTROSPECTION_URL"),
		MASRevocationURL:    os.Getenv("MAS_REVOCATION_URL"),
		MASAuthURL:          os.Getenv("MAS_AUTH_URL"),
		MASTimeout:          getEnvDurationOrDefault("MAS_TIMEOUT", 30*time.Second),

		WalletBaseURL: os.Getenv("WALLET_API_BASE_URL"),
		WalletAPIKey:  os.Getenv("WALLET_API_KEY"),
		WalletTimeout: getEnvDurationOrDefault("WALLET_API_TIMEOUT", 30*time.Second),

		MatrixAPIURL:      os.Getenv("MATRIX_API_URL"),
		MatrixAccessToken: os.Getenv("MATRIX_ACCESS_TOKEN"),

		Breaker: breaker.Config{
			FailureThreshold: getEnvIntOrDefault("BREAKER_FAILURE_THRESHOLD", def.FailureThreshold),
			SuccessThreshold: getEnvIntOrDefault("BREAKER_SUCCESS_THRESHOLD", def.SuccessThreshold),
			CoolDown:         getEnvDurationOrDefault("BREAKER_COOL_DOWN", def.CoolDown),
		},
		RateLimits: httpx.RateLimitsFromEnv(os.Getenv),
	}

	return cfg, cfg.validate()
}

// Production reports whether ENV names a production deployment.
func (c Config) Production() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

func (c Config) validate() error {
	var missing []string
	for _, kv := range [][2]string{
		{"MAS_CLIENT_ID", c.MASClientID},
		{"MAS_TOKEN_URL", c.MASTokenURL},
		{"MAS_INTROSPECTION_URL", c.MASIntrospectionURL},
		{"MAS_REVOCATION_URL", c.MASRevocationURL},
		{"WALLET_API_BASE_URL", c.WalletBaseURL},
	} {
		if kv[1] == "" {
			missing = append(missing, kv[0])
		}
	}
	if c.MASClientSecret == "" && c.MASClientSecretFile == "" {
		missing = append(missing, "MAS_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Production() {
		if c.AllowEphemeralKey {
			return errors.New("TEP_ALLOW_EPHEMERAL_KEY is not permitted when ENV=prod")
		}
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when ENV=prod")
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
