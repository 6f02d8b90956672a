package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"interprep/internal/auth"
	"interprep/internal/database"
	"interprep/internal/errcode"
)

type fakeObjectStore struct {
	objects map[string][]byte

	putCalls  int
	putErr    error
	getErr    error
	deleteErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (s *fakeObjectStore) key(bucket, key string) string { return bucket + "/" + key }

func (s *fakeObjectStore) PutObject(_ context.Context, bucket, key string, reader io.Reader, _ int64, _ string) error {
	s.putCalls++
	if s.putErr != nil {
		return s.putErr
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[s.key(bucket, key)] = b
	return nil
}

func (s *fakeObjectStore) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	b, ok := s.objects[s.key(bucket, key)]
	if !ok {
		return nil, errors.New("NoSuchKey: the specified key does not exist")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeObjectStore) DeleteObject(_ context.Context, bucket, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, s.key(bucket, key))
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.File{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, store ObjectStore) *Service {
	t.Helper()
	router := NewRouter(testBuckets)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(db, store, router, testMaxFileSize, logger)
}

func seedUser(t *testing.T, db *gorm.DB, username string) database.User {
	t.Helper()
	user := database.User{
		Name:         username,
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "x",
		Role:         auth.RoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func identityOf(user database.User) auth.Identity {
	return auth.Identity{UserID: user.ID, Role: user.Role}
}

func TestUploadDownload_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestService(t, db, store)
	owner := seedUser(t, db, "u1")

	content := bytes.Repeat([]byte("resume-bytes "), 1024)
	descriptor, err := svc.Upload(ctx, UploadInput{
		Reader:      bytes.NewReader(content),
		Filename:    "cv.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Category:    CategoryResume,
		OwnerID:     owner.ID,
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if descriptor.Category != CategoryResume {
		t.Fatalf("descriptor category = %q, want RESUME", descriptor.Category)
	}
	if descriptor.OwnerID != owner.ID {
		t.Fatalf("descriptor owner = %s, want %s", descriptor.OwnerID, owner.ID)
	}
	if descriptor.DownloadURL != fmt.Sprintf("/v1/files/%s/download", descriptor.ID) {
		t.Fatalf("unexpected download url %q", descriptor.DownloadURL)
	}

	got, stream, err := svc.Download(ctx, descriptor.ID, identityOf(owner))
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer stream.Close()

	b, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if !bytes.Equal(b, content) {
		t.Fatalf("downloaded %d bytes, want byte-identical %d bytes", len(b), len(content))
	}
	if got.OriginalFilename != "cv.pdf" {
		t.Fatalf("filename = %q, want cv.pdf", got.OriginalFilename)
	}
}

func TestUpload_UnknownOwner(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestService(t, db, store)

	_, err := svc.Upload(ctx, UploadInput{
		Reader:      strings.NewReader("data"),
		Filename:    "cv.pdf",
		ContentType: "application/pdf",
		Size:        4,
		Category:    CategoryResume,
		OwnerID:     uuid.New(),
	})
	if errcode.KindOf(err) != errcode.NotFound {
		t.Fatalf("expected not-found, got %v", err)
	}

	var count int64
	if err := db.Model(&database.File{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no metadata rows, got %d", count)
	}
	// 属主在对象写入之前解析，对象存储必须保持原样。
	if len(store.objects) != 0 || store.putCalls != 0 {
		t.Fatalf("expected untouched object store, got %d objects %d puts", len(store.objects), store.putCalls)
	}
}

func TestUpload_ValidationFailureSkipsIO(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestService(t, db, store)
	owner := seedUser(t, db, "u1")

	_, err := svc.Upload(ctx, UploadInput{
		Reader:      strings.NewReader("data"),
		Filename:    "cv.png",
		ContentType: "image/png",
		Size:        4,
		Category:    CategoryResume,
		OwnerID:     owner.ID,
	})
	if errcode.KindOf(err) != errcode.Validation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.putCalls != 0 {
		t.Fatalf("expected no object store calls, got %d", store.putCalls)
	}
}

func TestUpload_MetadataFailureLeavesOrphan(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestService(t, db, store)
	owner := seedUser(t, db, "u1")

	// 模拟元数据落库失败：对象写入成功后建表缺失，Create 必然报错。
	if err := db.Migrator().DropTable(&database.File{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	_, err := svc.Upload(ctx, UploadInput{
		Reader:      strings.NewReader("data"),
		Filename:    "cv.pdf",
		ContentType: "application/pdf",
		Size:        4,
		Category:    CategoryResume,
		OwnerID:     owner.ID,
	})
	if errcode.KindOf(err) != errcode.Persistence {
		t.Fatalf("expected persistence error, got %v", err)
	}
	// 不做补偿删除：对象作为孤儿留在存储中。
	if len(store.objects) != 1 {
		t.Fatalf("expected orphaned object to remain, got %d objects", len(store.objects))
	}
}

func TestDownload_NonOwnerForbidden(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestService(t, db, store)
	owner := seedUser(t, db, "u1")
	other := seedUser(t, db, "u2")

	descriptor, err := svc.Upload(ctx, UploadInput{
		Reader:      strings.NewReader("data"),
		Filename:    "cv.pdf",
		ContentType: "application/pdf",
		Size:        4,
		Category:    CategoryResume,
		OwnerID:     owner.ID,
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, _, err := svc.Download(ctx, descriptor.ID, identityOf(other)); errcode.KindOf(err) != errcode.Forbidden {
		t.Fatalf("expected forbidden for non-owner download, got %v", err)
	}
	if err := svc.Delete(ctx, descriptor.ID, identityOf(other)); errcode.KindOf(err) != errcode.Forbidden {
		t.Fatalf("expected forbidden for non-owner delete, got %v", err)
	}
}

func TestDelete_RemovesObjectAndRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestService(t, db, store)
	owner := seedUser(t, db, "u1")

	descriptor, err := svc.Upload(ctx, UploadInput{
		Reader:      strings.NewReader("data"),
		Filename:    "cv.pdf",
		ContentType: "application/pdf",
		Size:        4,
		Category:    CategoryResume,
		OwnerID:     owner.ID,
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Delete(ctx, descriptor.ID, identityOf(owner)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatalf("expected object removed, got %d objects", len(store.objects))
	}
	if _, err := svc.Get(ctx, descriptor.ID, identityOf(owner)); errcode.KindOf(err) != errcode.NotFound {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
}

func TestDelete_ObjectStoreFailureKeepsRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestService(t, db, store)
	owner := seedUser(t, db, "u1")

	descriptor, err := svc.Upload(ctx, UploadInput{
		Reader:      strings.NewReader("data"),
		Filename:    "cv.pdf",
		ContentType: "application/pdf",
		Size:        4,
		Category:    CategoryResume,
		OwnerID:     owner.ID,
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	store.deleteErr = errors.New("backend unavailable")
	if err := svc.Delete(ctx, descriptor.ID, identityOf(owner)); errcode.KindOf(err) != errcode.Storage {
		t.Fatalf("expected storage error, got %v", err)
	}

	// 对象删除失败时元数据行必须保留。
	if _, err := svc.Get(ctx, descriptor.ID, identityOf(owner)); err != nil {
		t.Fatalf("expected metadata row to survive, got %v", err)
	}
}

func TestList_FiltersByOwnerAndCategory(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestService(t, db, store)
	owner := seedUser(t, db, "u1")
	other := seedUser(t, db, "u2")

	uploads := []struct {
		filename    string
		contentType string
		category    Category
		ownerID     uuid.UUID
	}{
		{"cv.pdf", "application/pdf", CategoryResume, owner.ID},
		{"jd.txt", "text/plain", CategoryJobDescription, owner.ID},
		{"other.pdf", "application/pdf", CategoryResume, other.ID},
	}
	for _, up := range uploads {
		if _, err := svc.Upload(ctx, UploadInput{
			Reader:      strings.NewReader("data"),
			Filename:    up.filename,
			ContentType: up.contentType,
			Size:        4,
			Category:    up.category,
			OwnerID:     up.ownerID,
		}); err != nil {
			t.Fatalf("upload %s: %v", up.filename, err)
		}
	}

	all, err := svc.List(ctx, owner.ID, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 files for owner, got %d", len(all))
	}

	resumes := CategoryResume
	filtered, err := svc.List(ctx, owner.ID, &resumes)
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(filtered) != 1 || filtered[0].OriginalFilename != "cv.pdf" {
		t.Fatalf("expected only cv.pdf, got %+v", filtered)
	}
}
