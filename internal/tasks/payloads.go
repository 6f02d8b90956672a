package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeEmailVerification = "email:verification"
)

// EmailVerificationPayload 描述发送验证邮件所需的最小信息。
type EmailVerificationPayload struct {
	UserID        uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	CorrelationID string    `json:"correlation_id"`
}

// NewVerificationEmailTask 构造一个新的邮箱验证邮件任务。
func NewVerificationEmailTask(userID uuid.UUID, email, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailVerificationPayload{
		UserID:        userID,
		Email:         email,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmailVerification, payload), nil
}
