package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go-storefront/models"
	"go-storefront/utils"
)

// Pinger is implemented by every backend the process depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	base
	checks map[string]Pinger
}

func NewHealthController(checks map[string]Pinger, logger *slog.Logger, timeout time.Duration) *HealthController {
	return &HealthController{base: base{logger: logger, timeout: timeout}, checks: checks}
}

// Healthz reports 200 when every dependency answers, 503 otherwise.
func (hc *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := hc.ctx(r)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range hc.checks {
		if err := check.Ping(ctx); err != nil {
			hc.logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		utils.RespondJSON(w, http.StatusServiceUnavailable, models.ErrUnavailable.Error(), map[string]any{"checks": status})
		return
	}
	utils.RespondJSON(w, http.StatusOK, "ok", map[string]any{"checks": status})
}
