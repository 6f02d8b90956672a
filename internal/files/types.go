package files

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category 表示上传文件的类别，决定校验规则与存储路由。
type Category string

const (
	CategoryResume         Category = "RESUME"
	CategoryJobDescription Category = "JOB_DESCRIPTION"
)

// ParseCategory 解析调用方传入的类别字符串（大小写不敏感）。
func ParseCategory(value string) (Category, bool) {
	switch Category(strings.ToUpper(strings.TrimSpace(value))) {
	case CategoryResume:
		return CategoryResume, true
	case CategoryJobDescription:
		return CategoryJobDescription, true
	default:
		return "", false
	}
}

// Descriptor 是对外暴露的文件元数据视图。
type Descriptor struct {
	ID               uuid.UUID `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	Size             int64     `json:"size"`
	Category         Category  `json:"category"`
	OwnerID          uuid.UUID `json:"owner_id"`
	UploadedAt       time.Time `json:"uploaded_at"`
	DownloadURL      string    `json:"download_url"`
}
