package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"interprep/internal/config"
)

// Client 封装 MinIO 客户端，提供按 (bucket, key) 寻址的简化接口。
// 实例在进程启动时构造一次，作为共享句柄显式传递，可安全并发使用。
type Client struct {
	internalClient *minio.Client
	region         string
}

// ObjectMeta 描述 Bucket 中对象的关键信息。
type ObjectMeta struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// NewClient 根据配置初始化 MinIO 客户端。
func NewClient(cfg config.MinIOConfig) (*Client, error) {
	internalClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &Client{
		internalClient: internalClient,
		region:         cfg.Region,
	}, nil
}

// EnsureBuckets 确认所有目标 Bucket 存在，缺失时按需创建。
// autoCreate 为 false 时，缺失直接报错。
func (c *Client) EnsureBuckets(ctx context.Context, buckets []string, autoCreate bool) error {
	for _, bucket := range buckets {
		exists, err := c.internalClient.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %q: %w", bucket, err)
		}
		if exists {
			continue
		}
		if !autoCreate {
			return fmt.Errorf("bucket %q does not exist (auto create disabled)", bucket)
		}
		if err := c.internalClient.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
			return fmt.Errorf("make bucket %q: %w", bucket, err)
		}
	}
	return nil
}

// ListBuckets 返回当前可见的全部 Bucket 名称。
func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := c.internalClient.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	names := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		names = append(names, bucket.Name)
	}
	return names, nil
}

// PutObject 将对象写入指定 Bucket。
func (c *Client) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := c.internalClient.PutObject(ctx, bucket, key, reader, size, opts); err != nil {
		return fmt.Errorf("put object %q/%q: %w", bucket, key, err)
	}
	return nil
}

// GetObject 读取指定对象的字节流。
func (c *Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := c.internalClient.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q/%q: %w", bucket, key, err)
	}
	return obj, nil
}

// StatObject 返回指定对象的元信息。
func (c *Client) StatObject(ctx context.Context, bucket, key string) (*ObjectMeta, error) {
	info, err := c.internalClient.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("stat object %q/%q: %w", bucket, key, err)
	}
	return &ObjectMeta{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// DeleteObject 删除指定对象。
// 若对象不存在会被视为成功（幂等）。
func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if err := c.internalClient.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if IsNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object %q/%q: %w", bucket, key, err)
	}
	return nil
}
