package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout (ex: 15s)

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Record store
	DatabaseURL string // "memory://", "file:linkshelf.db", "postgres://...", "libsql://..."
	AutoMigrate bool   // run embedded migrations at startup

	// Auth
	JWTSecret string        // HS256 signing secret
	JWTIssuer string        // expected "iss" claim
	JWTTTL    time.Duration // lifetime of issued tokens

	// Cache and sessions
	CacheTTL       time.Duration // 0 = entries live until invalidated
	CacheLoadLimit time.Duration // timeout of a single store load
	SessionIdleTTL time.Duration // sessions idle past this are ended
	SweepInterval  time.Duration // 0 = half of SessionIdleTTL

	// Metadata
	MetadataMode         string        // "stub" | "scrape"
	MetadataTimeout      time.Duration // scraper HTTP timeout
	MetadataDebounce     time.Duration // draft URL debounce window
	MetadataAllowPrivate bool          // let the scraper reach loopback and private addresses

	// Homepage import
	HomepageFile           string        // optional bookmarks.yaml or services.yaml to import periodically
	HomepageFormat         string        // "bookmarks" | "services"
	HomepageUser           string        // owner of imported bookmarks
	HomepageReloadInterval time.Duration // ex: 24h
	ImportMaxBytes         int64         // max body size of POST /api/import/homepage

	// Redis (optional L2 cache)
	RedisAddr           string        // empty = L2 disabled; "host:port" or "redis://..."
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts
	RedisFlushOnStart   bool          // drop cached query results left by a previous run

	// Access restrictions
	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	RateLimit    int      // requests per minute per user or IP, 0 = disabled
}

// Load reads an optional .env file, then the environment.
// It panics when a required variable is missing.
func Load() *Config {
	envFile := getenv("LINKSHELF_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		panic(fmt.Sprintf("❌ FATAL: failed to load %s: %v", envFile, err))
	}

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LINKSHELF_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("LINKSHELF_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("LINKSHELF_REQUEST_TIMEOUT", 15*time.Second),

		// Logging
		LogLevel:  getenv("LINKSHELF_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LINKSHELF_PRETTY_LOG", true),

		// Record store
		DatabaseURL: getenv("LINKSHELF_DATABASE_URL", "file:linkshelf.db"),
		AutoMigrate: mustBool("LINKSHELF_AUTO_MIGRATE", true),

		// Auth
		JWTSecret: requireEnv("LINKSHELF_JWT_SECRET"),
		JWTIssuer: getenv("LINKSHELF_JWT_ISSUER", "linkshelf"),
		JWTTTL:    mustDuration("LINKSHELF_JWT_TTL", 7*24*time.Hour),

		// Cache and sessions
		CacheTTL:       mustDuration("LINKSHELF_CACHE_TTL", 0),
		CacheLoadLimit: mustDuration("LINKSHELF_CACHE_LOAD_TIMEOUT", 10*time.Second),
		SessionIdleTTL: mustDuration("LINKSHELF_SESSION_IDLE_TTL", 30*time.Minute),
		SweepInterval:  mustDuration("LINKSHELF_SESSION_SWEEP_INTERVAL", 0),

		// Metadata
		MetadataMode:         strings.ToLower(getenv("LINKSHELF_METADATA_MODE", "stub")),
		MetadataTimeout:      mustDuration("LINKSHELF_METADATA_TIMEOUT", 5*time.Second),
		MetadataDebounce:     mustDuration("LINKSHELF_METADATA_DEBOUNCE", 800*time.Millisecond),
		MetadataAllowPrivate: mustBool("LINKSHELF_METADATA_ALLOW_PRIVATE", false),

		// Homepage import
		HomepageFile:           getenv("LINKSHELF_HOMEPAGE_FILE", ""),
		HomepageFormat:         getenv("LINKSHELF_HOMEPAGE_FORMAT", "bookmarks"),
		HomepageUser:           getenv("LINKSHELF_HOMEPAGE_USER", ""),
		HomepageReloadInterval: mustDuration("LINKSHELF_HOMEPAGE_RELOAD_INTERVAL", 24*time.Hour),
		ImportMaxBytes:         int64(getenvInt("LINKSHELF_IMPORT_MAX_BYTES", 1<<20)),

		// Redis settings
		RedisAddr:           getenv("LINKSHELF_REDIS_ADDR", ""),
		RedisUser:           getenv("LINKSHELF_REDIS_USERNAME", ""),
		RedisPassword:       getenv("LINKSHELF_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("LINKSHELF_REDIS_DB", 0),
		RedisDT:             mustDuration("LINKSHELF_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("LINKSHELF_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("LINKSHELF_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("LINKSHELF_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("LINKSHELF_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("LINKSHELF_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("LINKSHELF_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("LINKSHELF_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("LINKSHELF_REDIS_WARN_THRESHOLD", 3),
		RedisFlushOnStart:   mustBool("LINKSHELF_REDIS_FLUSH_ON_START", true),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("LINKSHELF_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("LINKSHELF_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("LINKSHELF_TRUST_PROXY", false),
		RateLimit:    getenvInt("LINKSHELF_RATE_LIMIT", 120),
	}

	if err := cfg.validate(); err != nil {
		panic("❌ FATAL: " + err.Error())
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

func (c *Config) validate() error {
	switch c.MetadataMode {
	case "stub", "scrape":
	default:
		return fmt.Errorf("LINKSHELF_METADATA_MODE must be stub or scrape, got %q", c.MetadataMode)
	}
	if c.HomepageFile != "" && c.HomepageUser == "" {
		return fmt.Errorf("LINKSHELF_HOMEPAGE_USER is required when LINKSHELF_HOMEPAGE_FILE is set")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("LINKSHELF_SESSION_IDLE_TTL must be positive")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	cp.JWTSecret = "***REDACTED***"
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	cp.DatabaseURL = redactURL(cp.DatabaseURL)
	return cp
}

// redactURL hides the userinfo of a DSN ("postgres://u:p@h/db" -> "postgres://***@h/db").
func redactURL(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	at := strings.LastIndex(rest, "@")
	if at == -1 {
		return dsn
	}
	return scheme + "://***" + rest[at:]
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
