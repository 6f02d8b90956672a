package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"interprep/internal/api/middleware"
	"interprep/internal/auth"
	"interprep/internal/database"
)

// InterviewHandler 管理面试练习记录的生命周期。
type InterviewHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewInterviewHandler 构造面试记录处理器。
func NewInterviewHandler(db *gorm.DB, logger *slog.Logger) *InterviewHandler {
	return &InterviewHandler{db: db, logger: logger}
}

type createInterviewRequest struct {
	TopicID         *string `json:"topic_id"`
	LanguageID      *string `json:"language_id"`
	DifficultyID    *string `json:"difficulty_id"`
	JobDescription  string  `json:"job_description"`
	ExperienceYears int     `json:"experience_years" binding:"min=0,max=60"`
}

type interviewResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	TopicID         *string    `json:"topic_id,omitempty"`
	LanguageID      *string    `json:"language_id,omitempty"`
	DifficultyID    *string    `json:"difficulty_id,omitempty"`
	JobDescription  string     `json:"job_description,omitempty"`
	ExperienceYears int        `json:"experience_years"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Status          string     `json:"status"`
}

func newInterviewResponse(record database.Interview) interviewResponse {
	resp := interviewResponse{
		ID:              record.ID.String(),
		UserID:          record.UserID.String(),
		JobDescription:  record.JobDescription,
		ExperienceYears: record.ExperienceYears,
		StartTime:       record.StartTime,
		EndTime:         record.EndTime,
		Status:          record.Status,
	}
	resp.TopicID = uuidString(record.TopicID)
	resp.LanguageID = uuidString(record.LanguageID)
	resp.DifficultyID = uuidString(record.DifficultyID)
	return resp
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// Create 开启一次新的面试练习。
// 主题、语言、难度均为可选，但给出时必须指向已存在的记录。
func (h *InterviewHandler) Create(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	record := database.Interview{
		UserID:          identity.UserID,
		JobDescription:  req.JobDescription,
		ExperienceYears: req.ExperienceYears,
		StartTime:       time.Now(),
		Status:          "in_progress",
	}

	topicID, err := h.resolveLookup(c, req.TopicID, &database.Topic{}, "topic")
	if err != nil {
		return
	}
	record.TopicID = topicID

	languageID, err := h.resolveLookup(c, req.LanguageID, &database.Language{}, "language")
	if err != nil {
		return
	}
	record.LanguageID = languageID

	difficultyID, err := h.resolveLookup(c, req.DifficultyID, &database.Difficulty{}, "difficulty")
	if err != nil {
		return
	}
	record.DifficultyID = difficultyID

	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		h.loggerFromContext(c).Error("create interview failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusCreated, newInterviewResponse(record))
}

// resolveLookup 校验外键引用。校验失败时已写入响应，调用方直接返回即可。
func (h *InterviewHandler) resolveLookup(c *gin.Context, raw *string, model any, name string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		BadRequest(c, "invalid "+name+" id")
		return nil, err
	}
	if err := h.db.WithContext(c.Request.Context()).First(model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			BadRequest(c, name+" not found")
			return nil, err
		}
		h.loggerFromContext(c).Error("lookup reference failed", slog.String("lookup", name), slog.Any("error", err))
		Internal(c, "internal error")
		return nil, err
	}
	return &id, nil
}

// Get 返回单条面试记录，仅限本人访问。
func (h *InterviewHandler) Get(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	record, ok := h.loadOwned(c, identity)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, newInterviewResponse(*record))
}

type completeInterviewRequest struct {
	Status string `json:"status" binding:"omitempty,oneof=completed abandoned"`
}

// Complete 结束一次面试，记录结束时间。
func (h *InterviewHandler) Complete(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req completeInterviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	if req.Status == "" {
		req.Status = "completed"
	}

	record, ok := h.loadOwned(c, identity)
	if !ok {
		return
	}

	if record.EndTime != nil {
		Conflict(c, "interview already completed")
		return
	}

	now := time.Now()
	record.EndTime = &now
	record.Status = req.Status

	if err := h.db.WithContext(c.Request.Context()).
		Model(record).
		Updates(map[string]any{"end_time": record.EndTime, "status": record.Status}).Error; err != nil {
		h.loggerFromContext(c).Error("complete interview failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, newInterviewResponse(*record))
}

// List 返回当前用户的全部面试记录，按开始时间倒序。
func (h *InterviewHandler) List(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var records []database.Interview
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", identity.UserID).
		Order("start_time DESC").
		Find(&records).Error; err != nil {
		h.loggerFromContext(c).Error("list interviews failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	responses := make([]interviewResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, newInterviewResponse(record))
	}

	c.JSON(http.StatusOK, gin.H{"interviews": responses})
}

// loadOwned 加载路径参数指定的面试记录并做属主校验。
// 失败时已写入响应。
func (h *InterviewHandler) loadOwned(c *gin.Context, identity auth.Identity) (*database.Interview, bool) {
	interviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid interview id")
		return nil, false
	}

	var record database.Interview
	if err := h.db.WithContext(c.Request.Context()).First(&record, "id = ?", interviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "interview not found")
			return nil, false
		}
		h.loggerFromContext(c).Error("load interview failed", slog.Any("error", err))
		Internal(c, "internal error")
		return nil, false
	}

	if err := auth.Authorize(identity, record.UserID); err != nil {
		RespondError(c, err)
		return nil, false
	}

	return &record, true
}

func (h *InterviewHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
