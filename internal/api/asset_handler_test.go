package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mailcanvas/internal/database"
)

type fakeStorage struct {
	uploaded map[string][]byte

	deleted []string

	presign map[string]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		uploaded: map[string][]byte{},
		presign:  map[string]string{},
	}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	return &minio.UploadInfo{}, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if v, ok := s.presign[objectKey]; ok {
		return v, nil
	}
	return "https://example.invalid/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.Asset{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newRedisCounter(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	return client
}

func newMultipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func newAssetTestHandler(db *gorm.DB, storage *fakeStorage, redisClient *redis.Client) *AssetHandler {
	return &AssetHandler{
		store:            newGormAssetStore(db),
		Storage:          storage,
		Logger:           nil,
		ClamdAddr:        "",
		MaxBytes:         5 * 1024 * 1024,
		MIMEWhitelist:    []string{"image/png"},
		RedisClient:      redisClient,
		maxAssetsPerUser: 4,
		maxUploadsPerDay: 4,
	}
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func doUpload(t *testing.T, h *AssetHandler, userID uint, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := newMultipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/v1/assets/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("userID", userID)

	h.UploadAsset(c)
	return w
}

func TestUploadAsset_LimitsByCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := newTestDB(t)
	storage := newFakeStorage()
	redisClient := newRedisCounter(t)

	h := newAssetTestHandler(db, storage, redisClient)

	for i := 0; i < 4; i++ {
		objectKey := "user-assets/1/existing-" + strconv.Itoa(i) + ".png"
		if err := h.store.Create(ctx, database.Asset{UserID: 1, ObjectKey: objectKey}); err != nil {
			t.Fatalf("seed asset: %v", err)
		}
	}

	w := doUpload(t, h, 1, "a.png", pngMagic)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d body=%s", w.Code, w.Body.String())
	}
	if len(storage.uploaded) != 0 {
		t.Fatalf("nothing should be uploaded, got %d objects", len(storage.uploaded))
	}
}

func TestUploadAsset_SniffsContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	storage := newFakeStorage()

	h := newAssetTestHandler(db, storage, nil)

	// multipart 默认的 application/octet-stream 不可信，
	// 真实 PNG 内容应当通过白名单校验。
	w := doUpload(t, h, 1, "a.png", pngMagic)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		ObjectKey string `json:"objectKey"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.ObjectKey, "user-assets/1/") || !strings.HasSuffix(resp.ObjectKey, ".png") {
		t.Fatalf("unexpected object key %q", resp.ObjectKey)
	}
	if _, ok := storage.uploaded[resp.ObjectKey]; !ok {
		t.Fatalf("object %q not uploaded", resp.ObjectKey)
	}

	count, err := h.store.CountByUser(context.Background(), 1)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 registered asset, got %d err=%v", count, err)
	}
}

func TestUploadAsset_RejectsUnknownType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	storage := newFakeStorage()

	h := newAssetTestHandler(db, storage, nil)

	w := doUpload(t, h, 1, "evil.png", []byte("#!/bin/sh\nrm -rf /\n"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
	if len(storage.uploaded) != 0 {
		t.Fatalf("nothing should be uploaded")
	}
}

func TestGetAssetURL_RejectsForeignKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	storage := newFakeStorage()
	h := newAssetTestHandler(db, storage, nil)

	cases := []string{
		"user-assets/2/other.png",
		"user-assets/1/../2/steal.png",
		"rendered-emails/1/a.html",
	}
	for _, key := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/v1/assets/view?key="+key, nil)
		c.Set("userID", uint(1))

		h.GetAssetURL(c)
		if w.Code != http.StatusForbidden {
			t.Fatalf("key %q: expected 403 got %d", key, w.Code)
		}
	}
}

func TestDeleteAsset_RemovesRecordAndObject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := newTestDB(t)
	storage := newFakeStorage()
	h := newAssetTestHandler(db, storage, nil)

	objectKey := "user-assets/1/keep.png"
	if err := h.store.Create(ctx, database.Asset{UserID: 1, ObjectKey: objectKey}); err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/v1/assets?key="+objectKey, nil)
	c.Set("userID", uint(1))

	h.DeleteAsset(c)
	// 204 没有响应体，gin 要到请求收尾才真正写出状态码；
	// 直接调用 handler 时需要手动补一次 flush。
	c.Writer.WriteHeaderNow()
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d body=%s", w.Code, w.Body.String())
	}
	if len(storage.deleted) != 1 || storage.deleted[0] != objectKey {
		t.Fatalf("object not deleted from storage: %v", storage.deleted)
	}

	count, err := h.store.CountByUser(ctx, 1)
	if err != nil || count != 0 {
		t.Fatalf("expected 0 assets after delete, got %d err=%v", count, err)
	}
}
