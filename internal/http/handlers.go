package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"whitelist-bot/internal/common/middleware"
)

const readyTimeout = 2 * time.Second

type handlers struct {
	store    Pinger
	exporter Exporter
	log      zerolog.Logger
}

func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Whitelist bot running"})
}

func (h *handlers) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pong": true})
}

func (h *handlers) live(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *handlers) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unready",
			"error":  "wallet store unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	})
}

// export streams the registry as a CSV attachment to an administrator.
func (h *handlers) export(c *gin.Context) {
	snap, err := h.exporter.Export(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.AbortWithError(c, err, h.log)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snap.Filename))
	c.Header("X-Export-Rows", strconv.Itoa(snap.Rows))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", snap.Content)
}
