package middleware

import (
	"strconv"
	"time"

	"chat_fanout_server/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 按路由模板统计请求数与耗时，未匹配的路由归到 "unmatched"
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
