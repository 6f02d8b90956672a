package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"interprep/internal/api/middleware"
	"interprep/internal/auth"
	"interprep/internal/database"
	"interprep/internal/tasks"
)

// 登录失败对外只有一种说法，避免暴露邮箱是否已注册。
const invalidCredentialsMessage = "invalid email or password"

// taskEnqueuer 抽象 asynq 客户端，便于测试时注入空实现。
type taskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AuthHandler 处理注册、登录、邮箱验证与当前用户查询。
type AuthHandler struct {
	db                    *gorm.DB
	authService           *auth.Service
	redis                 redis.UniversalClient
	tasks                 taskEnqueuer
	logger                *slog.Logger
	loginRateLimitPerHour int
	loginLockThreshold    int
	loginLockTTL          time.Duration
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(db *gorm.DB, authService *auth.Service, redisClient redis.UniversalClient, taskClient taskEnqueuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		db:                    db,
		authService:           authService,
		redis:                 redisClient,
		tasks:                 taskClient,
		logger:                logger,
		loginRateLimitPerHour: 10,
		loginLockThreshold:    5,
		loginLockTTL:          15 * time.Minute,
	}
}

type registerRequest struct {
	Name            string `json:"name" binding:"required,max=255"`
	Email           string `json:"email" binding:"required,email,max=255"`
	Username        string `json:"username" binding:"required,min=3,max=100"`
	Password        string `json:"password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(user database.User) userResponse {
	return userResponse{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// Register 创建新用户账号，角色固定为 USER。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if req.Password != req.ConfirmPassword {
		BadRequest(c, "passwords do not match")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(
		slog.String("username", req.Username),
	)

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		logger.Info("register conflict: email already registered")
		Conflict(c, "email already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register email lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).Where("username = ?", req.Username).First(&existing).Error; err == nil {
		logger.Info("register conflict: username already taken")
		Conflict(c, "username already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register username lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user := database.User{
		Name:         req.Name,
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hashed,
		Role:         auth.RoleUser,
	}

	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// 验证邮件投递是尽力而为：入队失败不影响注册结果。
	h.enqueueVerificationEmail(c, user, logger)

	logger.Info("user registered", slog.String("user_id", user.ID.String()))
	c.JSON(http.StatusCreated, newUserResponse(user))
}

func (h *AuthHandler) enqueueVerificationEmail(c *gin.Context, user database.User, logger *slog.Logger) {
	if h.tasks == nil {
		return
	}
	task, err := tasks.NewVerificationEmailTask(user.ID, user.Email, middleware.GetCorrelationID(c))
	if err != nil {
		logger.Error("build verification email task failed", slog.Any("error", err))
		return
	}
	if _, err := h.tasks.Enqueue(task); err != nil {
		logger.Error("enqueue verification email failed", slog.Any("error", err))
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	UserID      string `json:"user_id"`
}

// Login 校验口令并签发身份令牌。
// 邮箱不存在与密码错误返回完全相同的响应。
func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	logger := h.loggerFromContext(c)

	// 速率限制：每 IP+邮箱 每小时 10 次。Redis 故障时放行，不阻断登录。
	rateKey := "rate:login:" + ip + ":" + email + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
	if err != nil {
		count = 0
	}
	if count > int64(h.loginRateLimitPerHour) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	// 锁定检查
	lockKey := "lock:login:" + email
	if ttl, _ := h.redis.TTL(ctx, lockKey).Result(); ttl > 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "account temporarily locked"})
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: user not found")
			_ = h.incrementLoginFail(ctx, email)
			Error(c, http.StatusUnauthorized, invalidCredentialsMessage)
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.String("user_id", user.ID.String()))
		_ = h.incrementLoginFail(ctx, email)
		Error(c, http.StatusUnauthorized, invalidCredentialsMessage)
		return
	}

	// 登录成功：清理失败计数
	_ = h.redis.Del(ctx, "lock:login:fail:"+email).Err()

	token, err := h.authService.GenerateToken(user.ID, user.Role)
	if err != nil {
		logger.Error("generate token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.authService.TokenTTL().Seconds()),
		UserID:      user.ID.String(),
	})
}

// VerifyEmail 消费邮箱验证令牌并标记邮箱已验证。
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		BadRequest(c, "token is required")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	var record database.VerificationToken
	if err := h.db.WithContext(ctx).Where("token = ?", token).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "verification token not found")
			return
		}
		logger.Error("verification token lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if time.Now().After(record.Expires) {
		BadRequest(c, "verification token expired")
		return
	}

	now := time.Now()
	if err := h.db.WithContext(ctx).
		Model(&database.User{}).
		Where("email = ?", record.Identifier).
		Update("email_verified", &now).Error; err != nil {
		logger.Error("mark email verified failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).
		Where("identifier = ? AND token = ?", record.Identifier, record.Token).
		Delete(&database.VerificationToken{}).Error; err != nil {
		logger.Error("delete verification token failed", slog.Any("error", err))
	}

	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

// Me 返回当前令牌对应的用户信息。
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, "id = ?", identity.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "user not found")
			return
		}
		h.loggerFromContext(c).Error("load current user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *AuthHandler) incrementLoginFail(ctx context.Context, email string) error {
	failKey := "lock:login:fail:" + email
	count, err := h.redis.Incr(ctx, failKey).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		_ = h.redis.Expire(ctx, failKey, h.loginLockTTL).Err()
	}
	if count >= int64(h.loginLockThreshold) {
		_ = h.redis.Set(ctx, "lock:login:"+email, "1", h.loginLockTTL).Err()
	}
	return nil
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
