package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/utils"
)

type reloadResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Reload triggers an immediate import of the configured Homepage file.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := utils.ClientIP(r, d.TrustProxy)
		if d.ImportTrigger == nil {
			writeJSON(w, http.StatusNotFound, reloadResponse{Message: "no homepage file configured"})
			return
		}

		select {
		case d.ImportTrigger <- struct{}{}:
			d.Logger.Info("manual homepage import triggered via endpoint",
				logger.String("remote_ip", ip))
			writeJSON(w, http.StatusAccepted, reloadResponse{Triggered: true, Message: "import triggered"})
		default:
			d.Logger.Warn("homepage import already pending",
				logger.String("remote_ip", ip))
			writeJSON(w, http.StatusTooManyRequests, reloadResponse{Message: "import already pending, please wait"})
		}
	}
}
