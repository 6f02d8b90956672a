package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"interprep/internal/auth"
	"interprep/internal/database"
	"interprep/internal/errcode"
)

// ObjectStore 是编排层对对象存储网关的最小依赖。
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

// Service 组合校验、路由、对象存储与元数据库，实现文件的完整生命周期。
//
// 对象存储与元数据库之间不存在跨存储事务：写入成功而元数据落库失败时，
// 对象会成为孤儿并仅记录日志，不做自动补偿。这是文档化的一致性取舍。
type Service struct {
	db          *gorm.DB
	store       ObjectStore
	router      *Router
	maxFileSize int64
	logger      *slog.Logger
}

// UploadInput 聚合一次上传所需的全部输入。
type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
	Category    Category
	OwnerID     uuid.UUID
}

// NewService 构造文件服务。
func NewService(db *gorm.DB, store ObjectStore, router *Router, maxFileSize int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:          db,
		store:       store,
		router:      router,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Upload 校验输入、确认属主存在，再写对象、落元数据。
// 校验失败不触发任何 I/O；属主缺失时对象存储同样保持原样。
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Descriptor, error) {
	if err := ValidateUpload(in.Filename, in.ContentType, in.Size, s.maxFileSize, in.Category); err != nil {
		return nil, err
	}

	var owner database.User
	if err := s.db.WithContext(ctx).First(&owner, "id = ?", in.OwnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.New(errcode.NotFound, "user not found")
		}
		return nil, errcode.Wrap(errcode.Persistence, "failed to resolve owner", err)
	}

	bucket := s.router.BucketFor(in.Category)
	key := s.router.DeriveKey(in.Category, in.OwnerID, in.Filename, time.Now())

	if err := s.store.PutObject(ctx, bucket, key, in.Reader, in.Size, in.ContentType); err != nil {
		return nil, errcode.Wrap(errcode.Storage, "failed to store file", err)
	}

	record := database.File{
		OwnerID:          in.OwnerID,
		OriginalFilename: in.Filename,
		StoredKey:        key,
		ContentType:      in.ContentType,
		Size:             in.Size,
		Bucket:           bucket,
		Category:         string(in.Category),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		// 对象已写入但元数据未落库：留下孤儿对象，只记录，不回滚。
		s.logger.Warn("orphaned object after metadata failure",
			slog.String("bucket", bucket),
			slog.String("key", key),
			slog.Any("error", err),
		)
		return nil, errcode.Wrap(errcode.Persistence, "failed to persist file metadata", err)
	}

	descriptor := s.newDescriptor(record)
	return &descriptor, nil
}

// Download 返回文件描述与字节流；调用方负责关闭流。
func (s *Service) Download(ctx context.Context, fileID uuid.UUID, requester auth.Identity) (*Descriptor, io.ReadCloser, error) {
	record, err := s.findFile(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if err := auth.Authorize(requester, record.OwnerID); err != nil {
		return nil, nil, err
	}

	stream, err := s.store.GetObject(ctx, record.Bucket, record.StoredKey)
	if err != nil {
		return nil, nil, errcode.Wrap(errcode.Storage, "failed to read file", err)
	}

	descriptor := s.newDescriptor(*record)
	return &descriptor, stream, nil
}

// Delete 先删对象再删元数据行。
// 对象删除失败时保留元数据行并报错，不会出现有行无对象的静默状态。
func (s *Service) Delete(ctx context.Context, fileID uuid.UUID, requester auth.Identity) error {
	record, err := s.findFile(ctx, fileID)
	if err != nil {
		return err
	}
	if err := auth.Authorize(requester, record.OwnerID); err != nil {
		return err
	}

	if err := s.store.DeleteObject(ctx, record.Bucket, record.StoredKey); err != nil {
		return errcode.Wrap(errcode.Storage, "failed to delete file", err)
	}

	if err := s.db.WithContext(ctx).Delete(&database.File{}, "id = ?", record.ID).Error; err != nil {
		return errcode.Wrap(errcode.Persistence, "failed to delete file metadata", err)
	}

	return nil
}

// Get 返回单个文件的元数据视图。
func (s *Service) Get(ctx context.Context, fileID uuid.UUID, requester auth.Identity) (*Descriptor, error) {
	record, err := s.findFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(requester, record.OwnerID); err != nil {
		return nil, err
	}
	descriptor := s.newDescriptor(*record)
	return &descriptor, nil
}

// List 按属主（可选按类别）列出文件元数据，不访问对象存储。
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, category *Category) ([]Descriptor, error) {
	query := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if category != nil {
		query = query.Where("category = ?", string(*category))
	}

	var records []database.File
	if err := query.Order("uploaded_at DESC").Find(&records).Error; err != nil {
		return nil, errcode.Wrap(errcode.Persistence, "failed to list files", err)
	}

	descriptors := make([]Descriptor, 0, len(records))
	for _, record := range records {
		descriptors = append(descriptors, s.newDescriptor(record))
	}
	return descriptors, nil
}

func (s *Service) findFile(ctx context.Context, fileID uuid.UUID) (*database.File, error) {
	var record database.File
	if err := s.db.WithContext(ctx).First(&record, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.New(errcode.NotFound, "file not found")
		}
		return nil, errcode.Wrap(errcode.Persistence, "failed to query file", err)
	}
	return &record, nil
}

func (s *Service) newDescriptor(record database.File) Descriptor {
	return Descriptor{
		ID:               record.ID,
		OriginalFilename: record.OriginalFilename,
		ContentType:      record.ContentType,
		Size:             record.Size,
		Category:         Category(record.Category),
		OwnerID:          record.OwnerID,
		UploadedAt:       record.UploadedAt,
		DownloadURL:      fmt.Sprintf("/v1/files/%s/download", record.ID),
	}
}
