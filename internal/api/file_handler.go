package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"interprep/internal/api/middleware"
	"interprep/internal/files"
)

// FileHandler 提供文件上传、下载、查询与删除的 HTTP 接口。
type FileHandler struct {
	files  *files.Service
	logger *slog.Logger
}

// NewFileHandler 构造文件处理器。
func NewFileHandler(fileService *files.Service, logger *slog.Logger) *FileHandler {
	return &FileHandler{files: fileService, logger: logger}
}

// Upload 接收 multipart 表单上传，字段为 file 与 category。
func (h *FileHandler) Upload(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file field is required")
		return
	}

	category, ok := files.ParseCategory(c.PostForm("category"))
	if !ok {
		BadRequest(c, "unknown file category")
		return
	}

	reader, err := header.Open()
	if err != nil {
		h.loggerFromContext(c).Error("open multipart file failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	defer reader.Close()

	descriptor, err := h.files.Upload(c.Request.Context(), files.UploadInput{
		Reader:      reader,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Category:    category,
		OwnerID:     identity.UserID,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, descriptor)
}

// Download 以流式方式返回文件内容。
func (h *FileHandler) Download(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid file id")
		return
	}

	descriptor, reader, err := h.files.Download(c.Request.Context(), fileID, identity)
	if err != nil {
		RespondError(c, err)
		return
	}
	defer reader.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", descriptor.OriginalFilename),
	}
	c.DataFromReader(http.StatusOK, descriptor.Size, descriptor.ContentType, reader, headers)
}

// Get 返回单个文件的元数据。
func (h *FileHandler) Get(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid file id")
		return
	}

	descriptor, err := h.files.Get(c.Request.Context(), fileID, identity)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, descriptor)
}

// Delete 删除文件对象及其元数据。
func (h *FileHandler) Delete(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid file id")
		return
	}

	if err := h.files.Delete(c.Request.Context(), fileID, identity); err != nil {
		RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// List 返回当前用户的文件列表，可选按 category 过滤。
func (h *FileHandler) List(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var category *files.Category
	if raw := c.Query("category"); raw != "" {
		parsed, ok := files.ParseCategory(raw)
		if !ok {
			BadRequest(c, "unknown file category")
			return
		}
		category = &parsed
	}

	descriptors, err := h.files.List(c.Request.Context(), identity.UserID, category)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": descriptors})
}

func (h *FileHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
