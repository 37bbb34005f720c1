package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/metadata"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
	Count  *int   `json:"count,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports every component and the resulting service mode.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		sessions := d.Sessions.Count()
		components := map[string]componentStatus{
			"store":    checkStore(ctx, d),
			"redis":    checkRedis(ctx, d),
			"sessions": {OK: true, Count: &sessions},
			"metadata": {OK: true, Mode: fetcherMode(d)},
			"homepage": homepageStatus(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if store, ok := components["store"]; ok && !store.OK {
		return "critical" // no store = nothing works
	}
	if redis, ok := components["redis"]; ok && !redis.OK {
		return "degraded" // per-session cache only
	}
	return "optimal"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: d.DatabaseDriver, Error: "unreachable"}
	}
	return componentStatus{OK: true, Mode: d.DatabaseDriver}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{OK: true, Mode: "disabled", Impact: "session-cache-only"}
	}
	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{OK: false, Mode: "degraded", Impact: "session-cache-only", Error: "timeout"}
	}
	return componentStatus{OK: true, Mode: "shared", Impact: "shared-cache-enabled"}
}

func fetcherMode(d deps.Deps) string {
	switch d.Fetcher.(type) {
	case nil:
		return "none"
	case *metadata.Scraper:
		return "scrape"
	default:
		return "stub"
	}
}

func homepageStatus(d deps.Deps) componentStatus {
	if d.ImportTrigger == nil {
		return componentStatus{OK: true, Mode: "disabled"}
	}
	return componentStatus{OK: true, Mode: "scheduled"}
}
