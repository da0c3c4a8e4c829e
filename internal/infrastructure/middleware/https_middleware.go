package middleware

import (
	"strconv"

	"chat_fanout_server/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// Secure 安全响应头；开启 TLS 时把 http 请求重定向到 https
func Secure(cfg config.MainConfig) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:        cfg.TLS,
		SSLHost:            cfg.Host + ":" + strconv.Itoa(cfg.Port),
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IsDevelopment:      cfg.Mode == "dev",
	})

	return func(c *gin.Context) {
		// 重定向时 Process 已写响应并返回 error
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			zap.L().Debug("secure middleware aborted request", zap.Error(err))
			c.Abort()
			return
		}
		// 避免响应头被后续 handler 的 WriteHeader 覆盖
		if status := c.Writer.Status(); status > 300 && status < 399 {
			c.Abort()
			return
		}
		c.Next()
	}
}
