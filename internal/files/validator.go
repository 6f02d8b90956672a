package files

import (
	"strings"

	"interprep/internal/errcode"
)

// 每个类别允许的基础 Content-Type。比较前先剥离 ';' 之后的参数。
var allowedContentTypes = map[Category]map[string]struct{}{
	CategoryResume: {
		"application/pdf":    {},
		"application/msword": {},
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	},
	CategoryJobDescription: {
		"text/plain":      {},
		"application/pdf": {},
	},
}

// ValidateUpload 校验文件名、大小与 Content-Type 是否符合类别规则。
// size 等于上限时放行；任何失败都在发生 I/O 之前返回。
func ValidateUpload(filename, contentType string, size, maxSize int64, category Category) error {
	if size <= 0 {
		return errcode.New(errcode.Validation, "file size must be positive")
	}
	if size > maxSize {
		return errcode.New(errcode.Validation, "file size exceeds maximum allowed size")
	}

	allowed, ok := allowedContentTypes[category]
	if !ok {
		return errcode.New(errcode.Validation, "unknown file category")
	}

	baseContentType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if _, ok := allowed[baseContentType]; !ok {
		return errcode.New(errcode.Validation, "file type not allowed for "+strings.ToLower(string(category)))
	}

	if strings.TrimSpace(filename) == "" {
		return errcode.New(errcode.Validation, "filename cannot be empty")
	}

	return nil
}
