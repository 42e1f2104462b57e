package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mailcanvas/internal/database"
	"mailcanvas/internal/email"
	"mailcanvas/internal/errcode"
	"mailcanvas/internal/render"
	"mailcanvas/internal/storage"
	"mailcanvas/internal/tasks"
)

// RenderTaskHandler 负责消费邮件预览渲染任务。
type RenderTaskHandler struct {
	db          *gorm.DB
	storage     *storage.Client
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewRenderTaskHandler 创建任务处理器。
func NewRenderTaskHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
) *RenderTaskHandler {
	return &RenderTaskHandler{
		db:          db,
		storage:     storageClient,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *RenderTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.RenderPreviewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("draft_id", int(payload.DraftID)),
	)
	log.Info("Starting email preview render task...")

	var draft database.Draft
	if err := h.db.WithContext(ctx).First(&draft, payload.DraftID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("draft not found, skipping task")
			return nil
		}
		log.Error("query draft failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(draft.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		notify := RenderNotifyMessage{
			Status:        "error",
			DraftID:       draft.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishRenderNotify(ctx, draft.UserID, notify); err != nil {
			log.Error("publish render error notification failed", slog.Any("error", err))
		}
	}()

	doc, err := decodeDraftDocument(draft)
	if err != nil {
		log.Error("decode draft document failed", slog.Any("error", err))
		return err
	}

	inlined, missingKeys, err := render.InlineImages(ctx, h.storage, draft.UserID, doc)
	if err != nil {
		log.Error("inline draft images failed", slog.Any("error", err))
		return err
	}

	htmlContent, err := render.EmailHTML(inlined)
	if err != nil {
		log.Error("build email html failed", slog.Any("error", err))
		return err
	}

	htmlKey := fmt.Sprintf("rendered-emails/%d/%s.html", draft.UserID, uuid.NewString())
	htmlReader := bytes.NewReader([]byte(htmlContent))
	if _, err := h.storage.UploadFile(ctx, htmlKey, htmlReader, int64(len(htmlContent)), "text/html; charset=utf-8"); err != nil {
		log.Error("upload rendered html failed", slog.Any("error", err))
		return err
	}

	update := map[string]any{
		"html_key": htmlKey,
		"status":   "completed",
	}
	if err := h.db.WithContext(ctx).Model(&draft).Updates(update).Error; err != nil {
		log.Error("update draft failed", slog.Any("error", err))
		return err
	}

	notify := RenderNotifyMessage{
		Status:        "completed",
		DraftID:       draft.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		ErrorMessage:  "",
	}
	if len(missingKeys) > 0 {
		notify.ErrorCode = errcode.ResourceMissing
		notify.ErrorMessage = "部分图片资源缺失/无效，已自动跳过并继续渲染"
		notify.MissingKeys = missingKeys
		log.Warn("email rendered with missing assets",
			slog.Int("missing_count", len(missingKeys)),
			slog.Any("missing_keys", missingKeys),
		)
	}
	if err := h.publishRenderNotify(ctx, draft.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	if err := h.generatePreviewImage(ctx, &draft, doc.Style, htmlContent); err != nil {
		log.Warn("generate draft preview failed", slog.Any("error", err))
	}

	log.Info("Email preview render task completed successfully.")
	return nil
}

// decodeDraftDocument 将持久化的 Markup/Style 还原为编辑器文档。
func decodeDraftDocument(draft database.Draft) (email.Document, error) {
	var markup email.Markup
	if len(draft.Markup) > 0 {
		if err := json.Unmarshal(draft.Markup, &markup); err != nil {
			return email.Document{}, fmt.Errorf("decode draft markup: %w", err)
		}
	}

	doc := email.Parse(markup)

	if len(draft.Style) > 0 {
		var style email.DocumentStyle
		if err := json.Unmarshal(draft.Style, &style); err != nil {
			return email.Document{}, fmt.Errorf("decode draft style: %w", err)
		}
		doc.Style = style
	}
	return doc, nil
}

func (h *RenderTaskHandler) generatePreviewImage(ctx context.Context, draft *database.Draft, style email.DocumentStyle, htmlContent string) error {
	const (
		previewQuality = 80
		presignTTL     = 7 * 24 * time.Hour
	)

	previewBytes, err := render.ScreenshotHTML(htmlContent, style.ContentWidthPx, previewQuality)
	if err != nil {
		return fmt.Errorf("capture preview screenshot: %w", err)
	}

	objectName := fmt.Sprintf("thumbnails/draft/%d/preview.jpg", draft.ID)
	reader := bytes.NewReader(previewBytes)
	if _, err := h.storage.UploadFile(ctx, objectName, reader, int64(len(previewBytes)), "image/jpeg"); err != nil {
		return fmt.Errorf("upload preview image: %w", err)
	}

	presignedURL, err := h.storage.GeneratePresignedURL(ctx, objectName, presignTTL)
	if err != nil {
		return fmt.Errorf("generate preview presigned url: %w", err)
	}

	if err := h.db.WithContext(ctx).Model(draft).Updates(map[string]any{
		"preview_image_url":  presignedURL,
		"preview_object_key": objectName,
	}).Error; err != nil {
		return fmt.Errorf("update draft preview url: %w", err)
	}

	return nil
}

func (h *RenderTaskHandler) publishRenderNotify(ctx context.Context, userID uint, notify RenderNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
