package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBSchema    string

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// EncryptionSecret derives the field-encryption key. Startup fails when
	// it is missing or shorter than fieldcrypt.MinSecretLen.
	EncryptionSecret string

	// TokenSigningSecret signs session tokens. Startup fails when it is
	// missing or shorter than token.MinKeyLen.
	TokenSigningSecret string
	TokenTTL           time.Duration

	// MaxConcurrentHashes bounds in-flight argon2id work.
	MaxConcurrentHashes int

	// WebDir holds the static frontend ("" or a missing dir disables it).
	WebDir string

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	RateLimitEvents int
	RateLimitWindow time.Duration
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  envString("GAMESWAP_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  envString("GAMESWAP_LOG_LEVEL", "info"),
		LogFormat: envString("GAMESWAP_LOG_FORMAT", "json"),

		ReadHeaderTimeout: envDuration("GAMESWAP_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       envDuration("GAMESWAP_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      envDuration("GAMESWAP_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       envDuration("GAMESWAP_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: envInt("GAMESWAP_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: envString("GAMESWAP_DATABASE_URL", ""),
		DBMaxConns:  envInt32("GAMESWAP_DB_MAX_CONNS", 10),
		DBMinConns:  envInt32("GAMESWAP_DB_MIN_CONNS", 0),
		DBSchema:    envString("GAMESWAP_DB_SCHEMA", "gameswap"),

		ReadinessRequireDB: envBool("GAMESWAP_READINESS_REQUIRE_DB", false),

		EncryptionSecret:   envString("GAMESWAP_ENCRYPTION_SECRET", ""),
		TokenSigningSecret: envString("GAMESWAP_TOKEN_SECRET", ""),
		TokenTTL:           envDuration("GAMESWAP_TOKEN_TTL", 24*time.Hour),

		MaxConcurrentHashes: envInt("GAMESWAP_MAX_CONCURRENT_HASHES", 4),

		WebDir: envString("GAMESWAP_WEB_DIR", "./web"),

		CORSAllowedOrigins:   envCSV("GAMESWAP_CORS_ALLOWED_ORIGINS", ""),
		CORSAllowCredentials: envBool("GAMESWAP_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    envInt("GAMESWAP_CORS_MAX_AGE_SECONDS", 600),

		RateLimitEvents: envInt("GAMESWAP_RATE_LIMIT_EVENTS", 20),
		RateLimitWindow: envDuration("GAMESWAP_RATE_LIMIT_WINDOW", 10*time.Second),
	}
}
