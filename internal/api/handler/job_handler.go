package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// GetStats handles GET /api/v1/jobs/stats
// Returns aggregate counts over the tracked postings
func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.storage.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListRecent handles GET /api/v1/jobs/recent
// Lists the most recently discovered postings, newest first
func (h *JobHandler) ListRecent(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	jobs, err := h.storage.GetRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list recent postings", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list recent postings",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// ListSourceHealth handles GET /api/v1/sources/health
// Returns the per-source failure/recovery state
func (h *JobHandler) ListSourceHealth(c *gin.Context) {
	states, err := h.storage.ListSourceHealth(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list source health", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list source health",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(states),
		"sources": states,
	})
}
