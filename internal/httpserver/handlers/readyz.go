package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

const pingTimeout = 2 * time.Second

type readyzResponse struct {
	Ready bool  `json:"ready"`
	Store bool  `json:"store"`
	Redis *bool `json:"redis,omitempty"`
}

// Readyz reports ready when the record store answers. The shared cache is
// optional and only reported.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		res := readyzResponse{Store: true}
		if err := d.Store.Ping(ctx); err != nil {
			d.Logger.Warn("record store not ready", logger.Error(err))
			res.Store = false
		}
		if d.RedisClient != nil {
			ok := d.RedisClient.Ping(ctx).Err() == nil
			res.Redis = &ok
		}
		res.Ready = res.Store

		status := http.StatusOK
		if !res.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, res)
	}
}
