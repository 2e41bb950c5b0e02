package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Startup account. Both values empty means no seeding.
	SeedUsername string
	SeedPassword string

	// Live vote feed.
	FeedQueueSize    int
	WSAllowedOrigins []string
	WSInsecureOrigin bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("UPVOTE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("UPVOTE_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("UPVOTE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("UPVOTE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("UPVOTE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("UPVOTE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("UPVOTE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("UPVOTE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("UPVOTE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("UPVOTE_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("UPVOTE_READINESS_REQUIRE_DB", false),

		SeedUsername: EnvString("UPVOTE_SEED_USERNAME", ""),
		SeedPassword: EnvString("UPVOTE_SEED_PASSWORD", ""),

		FeedQueueSize:    EnvInt("UPVOTE_FEED_QUEUE_SIZE", 256),
		WSAllowedOrigins: EnvStrings("UPVOTE_WS_ALLOWED_ORIGINS", nil),
		WSInsecureOrigin: EnvBool("UPVOTE_WS_INSECURE_ORIGIN", false),
	}
}
