package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"mailcanvas/internal/database"
	"mailcanvas/internal/email"
	"mailcanvas/internal/render"
	"mailcanvas/internal/storage"
	"mailcanvas/internal/tasks"
)

// TemplatePreviewHandler 负责模板缩略图生成任务。
type TemplatePreviewHandler struct {
	db      *gorm.DB
	storage *storage.Client
	logger  *slog.Logger
}

func NewTemplatePreviewHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	logger *slog.Logger,
) *TemplatePreviewHandler {
	return &TemplatePreviewHandler{
		db:      db,
		storage: storageClient,
		logger:  logger,
	}
}

func (h *TemplatePreviewHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log := h.logger

	var payload tasks.TemplatePreviewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal template preview payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.Int("template_id", int(payload.TemplateID)),
		slog.String("correlation_id", payload.CorrelationID),
	)
	log.Info("Starting template preview generation task...")

	var template database.Template
	if err := h.db.WithContext(ctx).First(&template, payload.TemplateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("template not found, skipping task")
			return nil
		}
		log.Error("query template failed", slog.Any("error", err))
		return err
	}

	doc, err := decodeTemplateDocument(template)
	if err != nil {
		log.Error("decode template document failed", slog.Any("error", err))
		return err
	}

	inlined, missingKeys, err := render.InlineImages(ctx, h.storage, template.UserID, doc)
	if err != nil {
		log.Error("inline template images failed", slog.Any("error", err))
		return err
	}
	if len(missingKeys) > 0 {
		log.Warn("template rendered with missing assets", slog.Any("missing_keys", missingKeys))
	}

	htmlContent, err := render.EmailHTML(inlined)
	if err != nil {
		log.Error("build template html failed", slog.Any("error", err))
		return err
	}

	const previewQuality = 80
	previewBytes, err := render.ScreenshotHTML(htmlContent, doc.Style.ContentWidthPx, previewQuality)
	if err != nil {
		log.Error("capture template screenshot failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("thumbnails/template/%d/preview.jpg", template.ID)
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(previewBytes), int64(len(previewBytes)), "image/jpeg"); err != nil {
		log.Error("upload template preview failed", slog.Any("error", err))
		return err
	}

	const presignTTL = 7 * 24 * time.Hour
	previewURL, err := h.storage.GeneratePresignedURL(ctx, objectName, presignTTL)
	if err != nil {
		log.Error("generate template preview url failed", slog.Any("error", err))
		return err
	}

	if err := h.db.WithContext(ctx).
		Model(&template).
		Update("preview_image_url", previewURL).Error; err != nil {
		log.Error("update template preview url failed", slog.Any("error", err))
		return err
	}

	log.Info("Template preview generation completed.")
	return nil
}

func decodeTemplateDocument(template database.Template) (email.Document, error) {
	var markup email.Markup
	if len(template.Markup) > 0 {
		if err := json.Unmarshal(template.Markup, &markup); err != nil {
			return email.Document{}, fmt.Errorf("decode template markup: %w", err)
		}
	}

	doc := email.Parse(markup)

	if len(template.Style) > 0 {
		var style email.DocumentStyle
		if err := json.Unmarshal(template.Style, &style); err != nil {
			return email.Document{}, fmt.Errorf("decode template style: %w", err)
		}
		doc.Style = style
	}
	return doc, nil
}
