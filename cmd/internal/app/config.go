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

	// Chain access.
	RPCURL    string
	ProgramID string

	// Sign-in domain bound into SIWS messages.
	SIWSDomain string

	// Fairscale scoring. An empty API key disables the client; gated drops
	// then deny with score_unavailable while ungated drops degrade to 0.
	FairscaleAPIKey  string
	FairscaleBaseURL string

	// Slug persistence. Redis wins when both are set; neither means the
	// in-memory dev store.
	RedisURL    string
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless Postgres is configured and reachable.
	ReadinessRequireDB bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("FAIRDROP_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("FAIRDROP_LOG_LEVEL", "info"),
		LogFormat: EnvString("FAIRDROP_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("FAIRDROP_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("FAIRDROP_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("FAIRDROP_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("FAIRDROP_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("FAIRDROP_HTTP_MAX_HEADER_BYTES", 1<<20),

		RPCURL:    EnvString("FAIRDROP_RPC_URL", "https://api.devnet.solana.com"),
		ProgramID: EnvString("FAIRDROP_PROGRAM_ID", ""),

		SIWSDomain: EnvString("FAIRDROP_SIWS_DOMAIN", "fairdrop.app"),

		FairscaleAPIKey:  EnvString("FAIRDROP_FAIRSCALE_API_KEY", ""),
		FairscaleBaseURL: EnvString("FAIRDROP_FAIRSCALE_BASE_URL", ""),

		RedisURL:    EnvString("FAIRDROP_REDIS_URL", ""),
		DatabaseURL: EnvString("FAIRDROP_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("FAIRDROP_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("FAIRDROP_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("FAIRDROP_READINESS_REQUIRE_DB", false),

		CORSAllowedOrigins:   EnvCSV("FAIRDROP_CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "http://127.0.0.1:*"}),
		CORSAllowCredentials: EnvBool("FAIRDROP_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("FAIRDROP_CORS_MAX_AGE_SECONDS", 600),
	}
}
