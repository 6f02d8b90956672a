package auth

import (
	"github.com/google/uuid"

	"interprep/internal/errcode"
)

// 角色常量。注册固定写入 RoleUser，RoleAdmin 仅由 cmd/admin 创建。
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Identity 表示一次已通过令牌验证的请求身份。
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// Authorize 仅当身份主体与资源属主一致时放行。
// ADMIN 不享有越权访问，与普通用户同等对待。
func Authorize(identity Identity, ownerID uuid.UUID) error {
	if identity.UserID != ownerID {
		return errcode.New(errcode.Forbidden, "access denied")
	}
	return nil
}
