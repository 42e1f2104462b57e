package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mailcanvas/internal/config"
	"mailcanvas/internal/database"
	"mailcanvas/internal/storage"
)

// assetStorage 抽象对象存储访问，便于测试替换。
type assetStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// AssetHandler 负责处理图片资产上传与访问。
type AssetHandler struct {
	store            assetStore
	Storage          assetStorage
	Logger           *slog.Logger
	ClamdAddr        string
	MaxBytes         int64
	MIMEWhitelist    []string
	RedisClient      *redis.Client
	maxAssetsPerUser int
	maxUploadsPerDay int
}

// NewAssetHandler 返回 AssetHandler 实例。
func NewAssetHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
	clamdAddr string,
	limits config.LimitsConfig,
) *AssetHandler {
	return &AssetHandler{
		store:            newGormAssetStore(db),
		Storage:          storageClient,
		Logger:           logger,
		ClamdAddr:        clamdAddr,
		MaxBytes:         int64(limits.AssetMaxBytes),
		MIMEWhitelist:    []string{"image/png", "image/jpeg", "image/webp"},
		RedisClient:      redisClient,
		maxAssetsPerUser: limits.AssetsPerUser,
		maxUploadsPerDay: limits.AssetUploadsPerDay,
	}
}

func (h *AssetHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var assetExtByMIME = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// UploadAsset 处理受保护的图片上传。
// 顺序：大小限制 → 数量限额 → 当日上传配额 → 类型嗅探 → 病毒扫描 → 入库。
func (h *AssetHandler) UploadAsset(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	if h.MaxBytes > 0 && file.Size > h.MaxBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	ctx := c.Request.Context()

	count, err := h.store.CountByUser(ctx, userID)
	if err != nil {
		h.log().Error("count assets", slog.Any("error", err))
		Internal(c, "failed to count assets")
		return
	}
	if h.maxAssetsPerUser > 0 && count >= int64(h.maxAssetsPerUser) {
		Forbidden(c, "asset limit reached")
		return
	}

	if h.RedisClient != nil && h.maxUploadsPerDay > 0 {
		quotaKey := fmt.Sprintf("rate:asset_upload:%d:%s", userID, time.Now().UTC().Format("20060102"))
		uploads, err := incrWithTTL(ctx, h.RedisClient, quotaKey, 24*time.Hour)
		if err != nil {
			uploads = 0
		}
		if uploads > int64(h.maxUploadsPerDay) {
			Error(c, http.StatusTooManyRequests, "daily upload quota exceeded")
			return
		}
	}

	// 类型以内容嗅探为准，不信任客户端 Content-Type。
	contentType, err := h.sniffContentType(file)
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	if !h.mimeAllowed(contentType) {
		BadRequest(c, "unsupported file type")
		return
	}

	if h.ClamdAddr != "" {
		if infected, err := h.scanForViruses(file); err != nil {
			h.log().Error("scan file", slog.String("error", err.Error()))
			Internal(c, "failed to scan file")
			return
		} else if infected {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to reopen file")
		return
	}
	defer fileReader.Close()

	objectKey := fmt.Sprintf("%s%s%s", storage.UserAssetPrefix(userID), uuid.NewString(), assetExtByMIME[contentType])

	if _, err := h.Storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType); err != nil {
		h.log().Error("upload file", slog.String("error", err.Error()))
		Internal(c, "failed to upload file")
		return
	}

	if err := h.store.Create(ctx, database.Asset{
		UserID:      userID,
		ObjectKey:   objectKey,
		ContentType: contentType,
		SizeBytes:   file.Size,
	}); err != nil {
		h.log().Error("register asset", slog.Any("error", err))
		Internal(c, "failed to register asset")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"objectKey": objectKey})
}

// ListAssets 列出用户上传的资产，附带临时预览链接。
func (h *AssetHandler) ListAssets(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	limitStr := c.DefaultQuery("limit", "60")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 60
	}
	if limit > 200 {
		limit = 200
	}

	assets, err := h.store.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		h.log().Error("list assets", slog.Any("error", err))
		Internal(c, "failed to list assets")
		return
	}

	items := make([]gin.H, 0, len(assets))
	for _, asset := range assets {
		url, err := h.Storage.GeneratePresignedURL(c.Request.Context(), asset.ObjectKey, 10*time.Minute)
		if err != nil {
			h.log().Error("generate asset url", slog.String("objectKey", asset.ObjectKey), slog.Any("error", err))
			continue
		}
		items = append(items, gin.H{
			"objectKey":   asset.ObjectKey,
			"previewUrl":  url,
			"contentType": asset.ContentType,
			"size":        asset.SizeBytes,
			"createdAt":   asset.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetAssetURL 返回资产的临时预签名 URL。
func (h *AssetHandler) GetAssetURL(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("key")
	if objectKey == "" {
		BadRequest(c, "missing key")
		return
	}

	if !storage.IsValidUserAssetKey(userID, objectKey) {
		Forbidden(c, "access denied")
		return
	}

	signedURL, err := h.Storage.GeneratePresignedURL(c.Request.Context(), objectKey, 15*time.Minute)
	if err != nil {
		h.log().Error("generate presigned url", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// DeleteAsset 删除登记记录与对象本体。
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("key")
	if objectKey == "" {
		BadRequest(c, "missing key")
		return
	}
	if !storage.IsValidUserAssetKey(userID, objectKey) {
		Forbidden(c, "access denied")
		return
	}

	ctx := c.Request.Context()
	deleted, err := h.store.DeleteByKey(ctx, userID, objectKey)
	if err != nil {
		h.log().Error("delete asset record", slog.Any("error", err))
		Internal(c, "failed to delete asset")
		return
	}
	if !deleted {
		NotFound(c, "asset not found")
		return
	}

	if err := h.Storage.DeleteObject(ctx, objectKey); err != nil {
		h.log().Error("delete asset object", slog.String("objectKey", objectKey), slog.Any("error", err))
	}

	c.Status(http.StatusNoContent)
}

func (h *AssetHandler) sniffContentType(file *multipart.FileHeader) (string, error) {
	reader, err := file.Open()
	if err != nil {
		return "", err
	}
	defer reader.Close()

	buf := make([]byte, 512)
	n, err := reader.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(splitMediaType(http.DetectContentType(buf[:n])))), nil
}

func (h *AssetHandler) mimeAllowed(contentType string) bool {
	for _, allowed := range h.MIMEWhitelist {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

func (h *AssetHandler) scanForViruses(file *multipart.FileHeader) (infected bool, err error) {
	clamdClient := clamd.NewClamd(h.ClamdAddr)

	reader, err := file.Open()
	if err != nil {
		return false, err
	}

	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(reader, abortChan)
	reader.Close()
	if err != nil {
		return false, err
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return true, nil
		}
	}
	return false, nil
}

// splitMediaType 去掉 Content-Type 中的参数部分（如 charset）。
func splitMediaType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		return contentType[:idx]
	}
	return contentType
}
