package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/jewel_catalog/internal/cache"
	"github.com/GTDGit/jewel_catalog/internal/utils"
)

var startTime = time.Now()

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type builtAtReporter interface {
	BuiltAt() time.Time
}

// HealthHandler provides health endpoint.
type HealthHandler struct {
	db      Pinger
	redis   Pinger
	catalog cache.CatalogCache
}

// NewHealthHandler creates a new HealthHandler. redis may be nil when not configured.
func NewHealthHandler(db Pinger, redis Pinger, catalog cache.CatalogCache) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, catalog: catalog}
}

// GetHealth responds with service, database and Redis status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := probe(ctx, h.db)
	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = probe(ctx, h.redis)
	}

	cacheInfo := gin.H{"backend": "redis"}
	if r, ok := h.catalog.(builtAtReporter); ok {
		cacheInfo["backend"] = "memory"
		if built := r.BuiltAt(); !built.IsZero() {
			cacheInfo["ageSeconds"] = int(time.Since(built).Seconds())
		}
	}

	status, code := "healthy", 200
	if dbStatus != "connected" {
		status, code = "degraded", 503
	}

	utils.Success(c, code, "Service is "+status, gin.H{
		"status":   status,
		"version":  "1.0.0",
		"uptime":   int(time.Since(startTime).Seconds()),
		"database": gin.H{"status": dbStatus},
		"redis":    gin.H{"status": redisStatus},
		"cache":    cacheInfo,
	})
}

func probe(ctx context.Context, p Pinger) string {
	if err := p.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}
