package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkshelf/internal/auth"
	"github.com/MrSnakeDoc/linkshelf/internal/dashboard"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/metadata"
	"github.com/MrSnakeDoc/linkshelf/internal/session"
	"github.com/MrSnakeDoc/linkshelf/internal/version"
)

// Pinger is a backend the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Build          version.Info
	TimeNow        func() time.Time   // for testing, defaults to time.Now
	AllowedHosts   []string           // Host headers allowed to access the server
	AllowedCIDRS   []string           // IPs allowed to access healthz/readyz/infra/reload
	TrustProxy     bool               // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateLimit      int                // API requests per minute per user or IP, 0 = disabled
	Dashboard      *dashboard.Service // bookmark use cases
	Sessions       *session.Registry  // per-user cache and draft
	JWT            *auth.JWTManager   // verifies bearer tokens and cookies
	Fetcher        metadata.Fetcher   // URL metadata for drafts and /api/metadata
	DebounceWindow time.Duration      // draft URL debounce
	ImportMaxBytes int64              // max Homepage import body
	Store          Pinger             // record store
	RedisClient    *redis.Client      // nil when the shared cache is disabled
	DatabaseDriver string             // "memory", "sqlite", "pgx", "libsql"
	ImportTrigger  chan struct{}      // manual Homepage file import (nil if disabled)
}

// Now returns the current time from TimeNow, or time.Now.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
