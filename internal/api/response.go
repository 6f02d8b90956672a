package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"interprep/internal/auth"
	"interprep/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// RespondError 将 errcode 分类映射为 HTTP 状态码。
// Storage/Persistence 细节不出网，统一折叠为 internal error。
func RespondError(c *gin.Context, err error) {
	msg := errcode.SafeMessage(err)
	switch errcode.KindOf(err) {
	case errcode.Validation:
		BadRequest(c, msg)
	case errcode.Conflict:
		Conflict(c, msg)
	case errcode.Auth:
		Error(c, http.StatusUnauthorized, msg)
	case errcode.Forbidden:
		Forbidden(c, msg)
	case errcode.NotFound:
		NotFound(c, msg)
	default:
		Internal(c, msg)
	}
}

const identityContextKey = "identity"

// identityFromContext 取出认证中间件注入的请求身份。
func identityFromContext(c *gin.Context) (auth.Identity, bool) {
	value, ok := c.Get(identityContextKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}
