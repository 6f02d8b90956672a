package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"interprep/internal/api/middleware"
	"interprep/internal/database"
)

// LookupHandler 提供面试配置所需的只读字典数据。
type LookupHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewLookupHandler 构造字典数据处理器。
func NewLookupHandler(db *gorm.DB, logger *slog.Logger) *LookupHandler {
	return &LookupHandler{db: db, logger: logger}
}

type lookupItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Topics 返回全部面试主题。
func (h *LookupHandler) Topics(c *gin.Context) {
	var topics []database.Topic
	if err := h.db.WithContext(c.Request.Context()).Order("name").Find(&topics).Error; err != nil {
		h.logError(c, "list topics failed", err)
		Internal(c, "internal error")
		return
	}

	items := make([]lookupItem, 0, len(topics))
	for _, t := range topics {
		items = append(items, lookupItem{ID: t.ID.String(), Name: t.Name, Description: t.Description})
	}
	c.JSON(http.StatusOK, gin.H{"topics": items})
}

// Languages 返回全部编程语言。
func (h *LookupHandler) Languages(c *gin.Context) {
	var languages []database.Language
	if err := h.db.WithContext(c.Request.Context()).Order("name").Find(&languages).Error; err != nil {
		h.logError(c, "list languages failed", err)
		Internal(c, "internal error")
		return
	}

	items := make([]lookupItem, 0, len(languages))
	for _, l := range languages {
		items = append(items, lookupItem{ID: l.ID.String(), Name: l.Name})
	}
	c.JSON(http.StatusOK, gin.H{"languages": items})
}

// Difficulties 返回全部难度档位。
func (h *LookupHandler) Difficulties(c *gin.Context) {
	var difficulties []database.Difficulty
	if err := h.db.WithContext(c.Request.Context()).Find(&difficulties).Error; err != nil {
		h.logError(c, "list difficulties failed", err)
		Internal(c, "internal error")
		return
	}

	items := make([]lookupItem, 0, len(difficulties))
	for _, d := range difficulties {
		items = append(items, lookupItem{ID: d.ID.String(), Name: d.Level, Description: d.Description})
	}
	c.JSON(http.StatusOK, gin.H{"difficulties": items})
}

func (h *LookupHandler) logError(c *gin.Context, msg string, err error) {
	logger := middleware.LoggerFromContext(c)
	if logger == nil {
		logger = h.logger
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(msg, slog.Any("error", err))
}
