package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/siteauth/internal/sessions"
	"github.com/gogotex/siteauth/pkg/logger"
)

// Health serves liveness and readiness.
type Health struct {
	started time.Time
	timeout time.Duration
	deps    map[string]sessions.Pinger
}

func NewHealth(timeout time.Duration) *Health {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Health{started: time.Now(), timeout: timeout, deps: map[string]sessions.Pinger{}}
}

// Check adds a dependency that must answer Ping for /ready to pass.
func (h *Health) Check(name string, p sessions.Pinger) {
	if p != nil {
		h.deps[name] = p
	}
}

func (h *Health) Register(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", h.Ready)
}

// Ready returns 200 only when every registered dependency answers.
func (h *Health) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for n := range h.deps {
		names = append(names, n)
	}
	sort.Strings(names)

	ready := true
	deps := map[string]bool{}
	for _, n := range names {
		err := h.deps[n].Ping(ctx)
		deps[n] = err == nil
		if err != nil {
			logger.Warnf("readiness: %s unavailable: %v", n, err)
			ready = false
		}
	}

	uptime := time.Since(h.started).Round(time.Second).String()
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": uptime})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": uptime})
}
