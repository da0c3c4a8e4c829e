package middleware

import (
	"net/http"
	"strings"

	"chat_fanout_server/pkg/constants"
	"chat_fanout_server/pkg/errorx"
	"chat_fanout_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// JWTAuth 验证 Access Token 并把 user_id (int64) 写入上下文
// websocket 握手无法自定义 Header，允许通过 ?token= 传入
func JWTAuth(signer *jwt.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "请先登录")
			return
		}

		claims, err := signer.ParseToken(token)
		if err != nil {
			abortUnauthorized(c, "Token 已过期或无效，请重新登录")
			return
		}
		if claims.Subject != "access_token" {
			abortUnauthorized(c, "请使用 Access Token 访问此接口")
			return
		}

		c.Set(constants.CTX_USER_ID, claims.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	token := c.Query("token")
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": errorx.CodeUnauthorized,
		"msg":  msg,
	})
}
