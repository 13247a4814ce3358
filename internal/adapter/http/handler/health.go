package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	serviceName string
	deps        map[string]Pinger
	log         logger.Logger
}

func NewHealth(serviceName string, deps map[string]Pinger, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		deps:        deps,
		log:         log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Returns the health status of the service and its dependencies
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      503  {object}  map[string]any
// @Router       /health [get]
func (a *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	status, code := "available", http.StatusOK
	checks := make(map[string]string, len(a.deps))
	for name, dep := range a.deps {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := dep.Ping(pingCtx)
		cancel()
		if err != nil {
			a.log.Warn(ctx, "dependency is unhealthy", "dependency", name, "error", err.Error())
			checks[name] = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	response := envelope{
		"status": status,
		"checks": checks,
		"system_info": map[string]string{
			"service-name": a.serviceName,
		},
	}

	if err := writeJSON(w, code, response, nil); err != nil {
		a.log.Error(ctx, "healthcheck", err)
		return
	}
}
