package files

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"interprep/internal/config"
)

// routeRule 描述类别到 Bucket 与对象 Key 模板的映射。
// 模板参数依次为属主、时间戳、原始文件名。
type routeRule struct {
	bucket      func(b config.BucketsConfig) string
	keyTemplate string
}

var routeRules = map[Category]routeRule{
	CategoryResume: {
		bucket:      func(b config.BucketsConfig) string { return b.Resumes },
		keyTemplate: "users/%s/resumes/%s_%s",
	},
	CategoryJobDescription: {
		bucket:      func(b config.BucketsConfig) string { return b.JobDescriptions },
		keyTemplate: "users/%s/job-descriptions/%s_%s",
	},
}

// 未识别类别统一落入 Fallback Bucket 的 misc 前缀。
var fallbackRule = routeRule{
	bucket:      func(b config.BucketsConfig) string { return b.Fallback },
	keyTemplate: "misc/%s/%s_%s",
}

// Router 将 (类别, 属主, 文件名, 时间戳) 映射到 Bucket 与对象 Key。
// 纯函数组件：时间戳由调用方传入，两次不同时间戳的调用必然得到不同 Key，
// 并发上传的正确性完全依赖这一点而非任何锁。
type Router struct {
	buckets config.BucketsConfig
}

// NewRouter 构造路由器。
func NewRouter(buckets config.BucketsConfig) *Router {
	return &Router{buckets: buckets}
}

// BucketFor 返回类别对应的 Bucket 名称；映射对所有输入总是有结果。
func (r *Router) BucketFor(category Category) string {
	rule, ok := routeRules[category]
	if !ok {
		rule = fallbackRule
	}
	return rule.bucket(r.buckets)
}

// DeriveKey 派生按类别与属主分层的对象 Key，并嵌入高精度时间戳。
func (r *Router) DeriveKey(category Category, ownerID uuid.UUID, filename string, timestamp time.Time) string {
	rule, ok := routeRules[category]
	if !ok {
		rule = fallbackRule
	}
	stamp := formatKeyTimestamp(timestamp)
	return fmt.Sprintf(rule.keyTemplate, ownerID.String(), stamp, filename)
}

// formatKeyTimestamp 将时间戳压成可安全嵌入对象 Key 的形式。
// RFC3339Nano 提供纳秒精度；':' 与 '.' 替换为 '-' 以兼容各类 S3 网关。
func formatKeyTimestamp(timestamp time.Time) string {
	stamp := timestamp.UTC().Format(time.RFC3339Nano)
	return strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
}
