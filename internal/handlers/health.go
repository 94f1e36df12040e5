package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medcoding/api/internal/logging"
)

// Pinger is a dependency that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db           Pinger
	redis        Pinger
	nats         Pinger
	modelPath    string
	modelVersion string
}

// NewHealthHandler creates a new health handler. redis and nats may be nil
// when the cache or the event stream is disabled.
func NewHealthHandler(db, redis, nats Pinger, modelPath, modelVersion string) *HealthHandler {
	return &HealthHandler{
		db:           db,
		redis:        redis,
		nats:         nats,
		modelPath:    modelPath,
		modelVersion: modelVersion,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Health returns basic health status
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: logging.ServiceName,
		Version: h.modelVersion,
	})
}

// DeepHealth returns health status with dependency checks
// @Summary Readiness check with dependency checks
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/deep [get]
func (h *HealthHandler) DeepHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	deps := make(map[string]string)
	allHealthy := true

	check := func(name string, p Pinger) {
		if p == nil {
			deps[name] = "not configured"
			return
		}
		if err := p.Ping(ctx); err != nil {
			deps[name] = "unhealthy: " + err.Error()
			allHealthy = false
			return
		}
		deps[name] = "healthy"
	}
	check("database", h.db)
	check("redis", h.redis)
	check("nats", h.nats)

	if _, err := os.Stat(h.modelPath); err != nil {
		deps["model"] = "missing: " + h.modelPath
		allHealthy = false
	} else {
		deps["model"] = "present"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:       status,
		Service:      logging.ServiceName,
		Version:      h.modelVersion,
		Dependencies: deps,
	})
}
