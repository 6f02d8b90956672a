package api

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"interprep/internal/api/middleware"
	"interprep/internal/auth"
	"interprep/internal/database"
)

func newTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestAuthService(t *testing.T) *auth.Service {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	service, err := auth.NewService(privPEM, pubPEM, 24*time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return service
}

// 未连接的客户端，所有调用都会失败，用于验证限流降级放行。
func newUnreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *auth.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t, &database.User{}, &database.VerificationToken{})
	authService := newTestAuthService(t)
	handler := NewAuthHandler(db, authService, newUnreachableRedis(), nil, discardLogger())

	router := gin.New()
	router.POST("/v1/auth/register", handler.Register)
	router.POST("/v1/auth/login", handler.Login)
	router.GET("/v1/auth/verify", handler.VerifyEmail)
	router.GET("/v1/auth/me", middleware.AuthMiddleware(authService), handler.Me)
	return router, db, authService
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func registerPayload(email, username string) map[string]string {
	return map[string]string{
		"name":             "Test User",
		"email":            email,
		"username":         username,
		"password":         "correct-horse-battery",
		"confirm_password": "correct-horse-battery",
	}
}

func TestRegister_CreatesUser(t *testing.T) {
	router, db, _ := newAuthTestRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/v1/auth/register", registerPayload("alice@example.com", "alice"), nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.Code, resp.Body.String())
	}

	var user database.User
	if err := db.Where("email = ?", "alice@example.com").First(&user).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Role != auth.RoleUser {
		t.Fatalf("role = %q, want %q", user.Role, auth.RoleUser)
	}
	if user.PasswordHash == "correct-horse-battery" {
		t.Fatal("password stored in plaintext")
	}
	if user.EmailVerified != nil {
		t.Fatal("new user should not be email-verified")
	}
}

func TestRegister_PasswordMismatch(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	payload := registerPayload("bob@example.com", "bob")
	payload["confirm_password"] = "something-else-entirely"

	resp := doJSON(t, router, http.MethodPost, "/v1/auth/register", payload, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	if resp := doJSON(t, router, http.MethodPost, "/v1/auth/register", registerPayload("carol@example.com", "carol"), nil); resp.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", resp.Code)
	}
	resp := doJSON(t, router, http.MethodPost, "/v1/auth/register", registerPayload("carol@example.com", "carol2"), nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.Code)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	if resp := doJSON(t, router, http.MethodPost, "/v1/auth/register", registerPayload("dan@example.com", "dan"), nil); resp.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", resp.Code)
	}
	resp := doJSON(t, router, http.MethodPost, "/v1/auth/register", registerPayload("dan2@example.com", "dan"), nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.Code)
	}
}

// 未知邮箱与口令错误必须返回完全一致的响应，避免账号枚举。
func TestLogin_UnifiedFailureResponse(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	if resp := doJSON(t, router, http.MethodPost, "/v1/auth/register", registerPayload("eve@example.com", "eve"), nil); resp.Code != http.StatusCreated {
		t.Fatalf("register status = %d", resp.Code)
	}

	unknownEmail := doJSON(t, router, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "correct-horse-battery",
	}, nil)
	wrongPassword := doJSON(t, router, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "eve@example.com",
		"password": "not-the-password",
	}, nil)

	if unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email status = %d, want 401", unknownEmail.Code)
	}
	if wrongPassword.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", wrongPassword.Code)
	}
	if unknownEmail.Body.String() != wrongPassword.Body.String() {
		t.Fatalf("failure bodies differ: %q vs %q", unknownEmail.Body.String(), wrongPassword.Body.String())
	}
	if !strings.Contains(unknownEmail.Body.String(), invalidCredentialsMessage) {
		t.Fatalf("body %q missing unified message", unknownEmail.Body.String())
	}
}

func TestLogin_IssuesValidToken(t *testing.T) {
	router, _, authService := newAuthTestRouter(t)

	if resp := doJSON(t, router, http.MethodPost, "/v1/auth/register", registerPayload("frank@example.com", "frank"), nil); resp.Code != http.StatusCreated {
		t.Fatalf("register status = %d", resp.Code)
	}

	resp := doJSON(t, router, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "frank@example.com",
		"password": "correct-horse-battery",
	}, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("login status = %d, body=%s", resp.Code, resp.Body.String())
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	if body.TokenType != "Bearer" {
		t.Fatalf("token_type = %q, want Bearer", body.TokenType)
	}
	if body.ExpiresIn != int((24 * time.Hour).Seconds()) {
		t.Fatalf("expires_in = %d", body.ExpiresIn)
	}

	claims, err := authService.ValidateToken(body.AccessToken)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.UserID.String() != body.UserID {
		t.Fatalf("token user %s != response user %s", claims.UserID, body.UserID)
	}
	if claims.Role != auth.RoleUser {
		t.Fatalf("token role = %q", claims.Role)
	}
}

func TestMe_RequiresAndReturnsIdentity(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	if resp := doJSON(t, router, http.MethodGet, "/v1/auth/me", nil, nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.Code)
	}

	if resp := doJSON(t, router, http.MethodPost, "/v1/auth/register", registerPayload("grace@example.com", "grace"), nil); resp.Code != http.StatusCreated {
		t.Fatalf("register status = %d", resp.Code)
	}
	login := doJSON(t, router, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "correct-horse-battery",
	}, nil)
	var token tokenResponse
	if err := json.Unmarshal(login.Body.Bytes(), &token); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}

	resp := doJSON(t, router, http.MethodGet, "/v1/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + token.AccessToken,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("me status = %d, body=%s", resp.Code, resp.Body.String())
	}

	var me userResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &me); err != nil {
		t.Fatalf("unmarshal me response: %v", err)
	}
	if me.Email != "grace@example.com" || me.Username != "grace" {
		t.Fatalf("unexpected me payload: %+v", me)
	}
}

func TestVerifyEmail(t *testing.T) {
	router, db, _ := newAuthTestRouter(t)

	if resp := doJSON(t, router, http.MethodPost, "/v1/auth/register", registerPayload("heidi@example.com", "heidi"), nil); resp.Code != http.StatusCreated {
		t.Fatalf("register status = %d", resp.Code)
	}

	record := database.VerificationToken{
		Identifier: "heidi@example.com",
		Token:      "verify-token-1",
		Expires:    time.Now().Add(time.Hour),
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed token: %v", err)
	}

	resp := doJSON(t, router, http.MethodGet, "/v1/auth/verify?token=verify-token-1", nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body=%s", resp.Code, resp.Body.String())
	}

	var user database.User
	if err := db.Where("email = ?", "heidi@example.com").First(&user).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.EmailVerified == nil {
		t.Fatal("email_verified not set")
	}

	var count int64
	if err := db.Model(&database.VerificationToken{}).Where("token = ?", "verify-token-1").Count(&count).Error; err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	if count != 0 {
		t.Fatalf("token rows remaining = %d, want 0", count)
	}
}

func TestVerifyEmail_Expired(t *testing.T) {
	router, db, _ := newAuthTestRouter(t)

	record := database.VerificationToken{
		Identifier: "ivan@example.com",
		Token:      "verify-token-2",
		Expires:    time.Now().Add(-time.Minute),
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed token: %v", err)
	}

	resp := doJSON(t, router, http.MethodGet, "/v1/auth/verify?token=verify-token-2", nil, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestVerifyEmail_UnknownToken(t *testing.T) {
	router, _, _ := newAuthTestRouter(t)

	resp := doJSON(t, router, http.MethodGet, "/v1/auth/verify?token=missing", nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
}
