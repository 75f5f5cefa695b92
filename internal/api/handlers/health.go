package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
)

var startTime = time.Now()

// HealthChecker is a dependency that can report its own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db      HealthChecker
	redis   HealthChecker
	version string
	memory  func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Memory    *MemoryStatus     `json:"memory,omitempty"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

type MemoryStatus struct {
	TotalMB     uint64  `json:"total_mb"`
	AvailableMB uint64  `json:"available_mb"`
	UsedPercent float64 `json:"used_percent"`
}

func NewHealthHandler(db, redis HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		version: version,
		memory:  mem.VirtualMemoryWithContext,
	}
}

// HealthCheck reports Postgres and Redis reachability and host memory.
// Redis backs only the quote cache, lease and pub/sub, so losing it degrades
// the service without failing the probe.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	services := map[string]string{
		"database": checkDependency(ctx, h.db),
		"redis":    checkDependency(ctx, h.redis),
	}

	status := "healthy"
	code := http.StatusOK
	switch {
	case services["database"] != "healthy":
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	case services["redis"] != "healthy":
		status = "degraded"
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Services:  services,
		Version:   h.version,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
	if vm, err := h.memory(ctx); err == nil && vm != nil {
		resp.Memory = &MemoryStatus{
			TotalMB:     vm.Total / 1024 / 1024,
			AvailableMB: vm.Available / 1024 / 1024,
			UsedPercent: vm.UsedPercent,
		}
	}

	c.JSON(code, resp)
}

// LivenessCheck always succeeds while the process serves requests.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func checkDependency(ctx context.Context, dep HealthChecker) string {
	if dep == nil {
		return "unhealthy: not configured"
	}
	if err := dep.HealthCheck(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}
