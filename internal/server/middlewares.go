package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dscc-qa/backup-harness/pkg/metrics"
)

// RequestMetrics counts served requests by route template.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.MockRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

type Rejecter interface {
	Reject() bool
}

// InjectFaults answers a fraction of requests with 503 before they reach a handler.
func InjectFaults(r Rejecter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.Reject() {
			metrics.MockFaultsTotal.Inc()
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable (injected)"})
			return
		}
		c.Next()
	}
}
