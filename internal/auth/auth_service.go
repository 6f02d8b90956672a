package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Service 负责处理密码哈希、JWT 签发与校验。
// 令牌为无状态凭证：有效性只取决于签名与过期时间，服务端不保存。
type Service struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	tokenTTL   time.Duration
}

// TokenClaims 表示 JWT 中的业务字段，便于中间件读取用户信息。
type TokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// Identity 返回声明对应的已验证身份。
func (c *TokenClaims) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role}
}

// NewService 解析 PEM 密钥并构造服务实例。
func NewService(privateKeyPEM, publicKeyPEM []byte, tokenTTL time.Duration) (*Service, error) {
	if len(privateKeyPEM) == 0 {
		return nil, errors.New("private key pem is required")
	}
	if len(publicKeyPEM) == 0 {
		return nil, errors.New("public key pem is required")
	}
	if tokenTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa private key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}

	return &Service{
		privateKey: privateKey,
		publicKey:  publicKey,
		tokenTTL:   tokenTTL,
	}, nil
}

// HashPassword 使用 bcrypt 生成密码哈希。
func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password)
}

// CheckPasswordHash 校验密码是否匹配哈希。
func (s *Service) CheckPasswordHash(password, hash string) bool {
	return CheckPasswordHash(password, hash)
}

// GenerateToken 为用户签发身份令牌，过期时间为签发时刻加 TTL。
func (s *Service) GenerateToken(userID uuid.UUID, role string) (string, error) {
	now := time.Now()

	claims := TokenClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	return s.signClaims(claims)
}

// ValidateToken 解析并验证 JWT。
// 纯计算，无任何网络或存储访问，可被任意并发调用。
func (s *Service) ValidateToken(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

func (s *Service) signClaims(claims TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// TokenTTL 暴露令牌有效期。
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}
