package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-herald/internal/pipeline"
)

func NewHandler(provider StatusProvider, version string) *Handler {
	return &Handler{
		pipeline: provider,
		version:  version,
	}
}

// GetHealth reports the pipeline state. A stopped pipeline is unhealthy.
func (h *Handler) GetHealth(c *gin.Context) {
	status := h.pipeline.Status()

	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"state":     status.State,
		"cycle":     status.Cycle,
	}
	if !status.LastCycleStart.IsZero() {
		health["last_cycle_start"] = status.LastCycleStart.Format(time.RFC3339)
	}
	if !status.LastCycleEnd.IsZero() {
		health["last_cycle_end"] = status.LastCycleEnd.Format(time.RFC3339)
	}

	code := http.StatusOK
	if status.State == pipeline.StateStopped {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	status := h.pipeline.Status()

	c.JSON(http.StatusOK, gin.H{
		"cycles":           status.Cycles,
		"seen_links":       status.SeenLinks,
		"queued":           status.Queued,
		"published":        status.Published,
		"skipped":          status.Skipped,
		"baseline_pending": status.BaselinePending,
	})
}
