package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"interprep/internal/auth"
)

const identityContextKey = "identity"

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验 Bearer 令牌并将已验证身份注入上下文。
// 令牌无效与已过期不作区分，统一返回 401。
func AuthMiddleware(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(identityContextKey, claims.Identity())
		c.Next()
	}
}
