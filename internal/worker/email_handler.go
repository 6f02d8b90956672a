package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/resend/resend-go/v3"
	"gorm.io/gorm"

	"interprep/internal/config"
	"interprep/internal/database"
	"interprep/internal/tasks"
)

// 验证令牌有效期。
const verificationTokenTTL = 24 * time.Hour

// mailSender 抽象 Resend 客户端，便于测试时替换为假实现。
type mailSender interface {
	SendWithContext(ctx context.Context, req *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailTaskHandler 负责消费邮箱验证邮件任务。
type EmailTaskHandler struct {
	db            *gorm.DB
	sender        mailSender
	logger        *slog.Logger
	fromAddress   string
	verifyBaseURL string
}

// NewEmailTaskHandler 创建任务处理器。
func NewEmailTaskHandler(db *gorm.DB, cfg config.MailConfig, logger *slog.Logger) *EmailTaskHandler {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailTaskHandler{
		db:            db,
		sender:        client.Emails,
		logger:        logger,
		fromAddress:   cfg.FromAddress,
		verifyBaseURL: strings.TrimRight(strings.TrimSpace(cfg.VerifyBaseURL), "/"),
	}
}

// ProcessTask 实现 asynq.Handler。
// 先落库验证令牌，再发送邮件；发送失败由 asynq 按重试策略重投。
func (h *EmailTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log := h.logger

	var payload tasks.EmailVerificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("user_id", payload.UserID.String()),
	)

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, "id = ?", payload.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("user not found, skipping verification email")
			return nil
		}
		log.Error("query user failed", slog.Any("error", err))
		return err
	}
	if user.EmailVerified != nil {
		log.Info("email already verified, skipping")
		return nil
	}

	token := uuid.NewString()
	record := database.VerificationToken{
		Identifier: user.Email,
		Token:      token,
		Expires:    time.Now().Add(verificationTokenTTL),
	}
	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		log.Error("persist verification token failed", slog.Any("error", err))
		return err
	}

	verifyLink := fmt.Sprintf("%s?token=%s", h.verifyBaseURL, url.QueryEscape(token))
	req := &resend.SendEmailRequest{
		From:    h.fromAddress,
		To:      []string{user.Email},
		Subject: "Verify your email address",
		Html: fmt.Sprintf(
			"<p>Hi %s,</p><p>Please confirm your email address by clicking the link below:</p><p><a href=%q>Verify email</a></p><p>This link expires in 24 hours.</p>",
			user.Name, verifyLink,
		),
		Text: fmt.Sprintf("Hi %s,\n\nPlease confirm your email address:\n%s\n\nThis link expires in 24 hours.\n", user.Name, verifyLink),
	}

	if _, err := h.sender.SendWithContext(ctx, req); err != nil {
		log.Error("send verification email failed", slog.Any("error", err))
		return err
	}

	log.Info("verification email sent")
	return nil
}
