package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mailcanvas/internal/api/middleware"
	"mailcanvas/internal/database"
	"mailcanvas/internal/email"
	"mailcanvas/internal/render"
	"mailcanvas/internal/storage"
	"mailcanvas/internal/tasks"
)

// DraftHandler 负责处理与邮件草稿相关的 API 请求。
type DraftHandler struct {
	db          *gorm.DB
	asynqClient *asynq.Client
	storage     *storage.Client
	maxDrafts   int
}

// NewDraftHandler 构造 DraftHandler。
func NewDraftHandler(db *gorm.DB, asynqClient *asynq.Client, storageClient *storage.Client, maxDrafts int) *DraftHandler {
	return &DraftHandler{
		db:          db,
		asynqClient: asynqClient,
		storage:     storageClient,
		maxDrafts:   maxDrafts,
	}
}

var errInvalidDraftID = errors.New("invalid draft id")

type draftPayloadRequest struct {
	Title  string         `json:"title" binding:"required"`
	Markup datatypes.JSON `json:"markup" binding:"required"`
	Style  datatypes.JSON `json:"style"`
}

type draftListItem struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	PreviewImageURL string    `json:"preview_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type draftResponse struct {
	ID              uint           `json:"id"`
	Title           string         `json:"title"`
	Markup          datatypes.JSON `json:"markup"`
	Style           datatypes.JSON `json:"style,omitempty"`
	Status          string         `json:"status"`
	PreviewImageURL string         `json:"preview_image_url,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// normalizeMarkupPayload 将客户端提交的 markup 过一遍解析/序列化。
// 无法识别的片段会被原样保留为不透明块，而不是被拒绝或丢弃；
// 同时这一步保证入库的 payload 是规范形态。
func normalizeMarkupPayload(raw datatypes.JSON) (datatypes.JSON, error) {
	var markup email.Markup
	if err := json.Unmarshal(raw, &markup); err != nil {
		return nil, fmt.Errorf("decode markup payload: %w", err)
	}
	normalized := email.Serialize(email.Parse(markup))
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("encode markup payload: %w", err)
	}
	return datatypes.JSON(data), nil
}

func validateStylePayload(raw datatypes.JSON) error {
	if len(raw) == 0 {
		return nil
	}
	var style email.DocumentStyle
	if err := json.Unmarshal(raw, &style); err != nil {
		return fmt.Errorf("decode style payload: %w", err)
	}
	return nil
}

// CreateDraft 保存一份新的草稿，超过限额则提示升级。
func (h *DraftHandler) CreateDraft(c *gin.Context) {
	var req draftPayloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	normalized, err := normalizeMarkupPayload(req.Markup)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := validateStylePayload(req.Style); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	var count int64
	if err := h.db.WithContext(ctx).
		Model(&database.Draft{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		Internal(c, "failed to count drafts")
		return
	}

	if h.maxDrafts > 0 && count >= int64(h.maxDrafts) {
		Forbidden(c, "draft limit reached")
		return
	}

	draft := database.Draft{
		Title:  req.Title,
		Markup: normalized,
		Style:  req.Style,
		UserID: userID,
		Status: "draft",
	}

	if err := h.db.WithContext(ctx).Create(&draft).Error; err != nil {
		Internal(c, "failed to create draft")
		return
	}

	if err := h.setActiveDraftID(ctx, userID, &draft.ID); err != nil {
		Internal(c, "failed to mark active draft")
		return
	}

	c.JSON(http.StatusCreated, newDraftResponse(draft))
}

// GetLatestDraft 返回用户最近编辑的草稿，或一份起始文档。
func (h *DraftHandler) GetLatestDraft(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	draft, err := h.findActiveOrLatestDraft(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, draftResponse{
				ID:     0,
				Title:  defaultDraftTitle,
				Markup: defaultDraftMarkup(),
				Style:  defaultDraftStyle(),
				Status: "draft",
			})
			return
		}
		Internal(c, "failed to query latest draft")
		return
	}

	c.JSON(http.StatusOK, newDraftResponse(*draft))
}

// ListDrafts 列出用户全部草稿。
func (h *DraftHandler) ListDrafts(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var drafts []database.Draft
	if err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&drafts).Error; err != nil {
		Internal(c, "failed to list drafts")
		return
	}

	items := make([]draftListItem, 0, len(drafts))
	for _, d := range drafts {
		items = append(items, draftListItem{
			ID:              d.ID,
			Title:           d.Title,
			Status:          d.Status,
			PreviewImageURL: d.PreviewImageURL,
			CreatedAt:       d.CreatedAt,
			UpdatedAt:       d.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetDraft 返回指定 ID 的草稿并标记为当前正在编辑。
func (h *DraftHandler) GetDraft(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	draft, err := h.getDraftForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyDraftLookupError(c, err)
		return
	}

	if err := h.setActiveDraftID(c.Request.Context(), userID, &draft.ID); err != nil {
		Internal(c, "failed to mark active draft")
		return
	}

	c.JSON(http.StatusOK, newDraftResponse(*draft))
}

// UpdateDraft 覆盖指定草稿的标题、markup 与样式。
func (h *DraftHandler) UpdateDraft(c *gin.Context) {
	var req draftPayloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	draft, err := h.getDraftForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyDraftLookupError(c, err)
		return
	}

	normalized, err := normalizeMarkupPayload(req.Markup)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := validateStylePayload(req.Style); err != nil {
		BadRequest(c, err.Error())
		return
	}

	updates := map[string]any{
		"title":  req.Title,
		"markup": normalized,
		"status": "draft",
	}
	if len(req.Style) > 0 {
		updates["style"] = req.Style
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(draft).Updates(updates).Error; err != nil {
		Internal(c, "failed to update draft")
		return
	}

	if err := h.db.WithContext(ctx).First(draft, draft.ID).Error; err != nil {
		Internal(c, "failed to reload draft")
		return
	}

	if err := h.setActiveDraftID(ctx, userID, &draft.ID); err != nil {
		Internal(c, "failed to mark active draft")
		return
	}

	c.JSON(http.StatusOK, newDraftResponse(*draft))
}

// DeleteDraft 删除指定草稿，并尝试回落到最近一份。
func (h *DraftHandler) DeleteDraft(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	draft, err := h.getDraftForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyDraftLookupError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Delete(&database.Draft{}, draft.ID).Error; err != nil {
		Internal(c, "failed to delete draft")
		return
	}

	if err := h.assignLatestDraftAsActive(ctx, userID); err != nil {
		Internal(c, "failed to update active draft")
		return
	}

	// 渲染产物清理是尽力而为的，失败不影响删除结果。
	if h.storage != nil {
		if draft.HTMLKey != "" {
			_ = h.storage.DeleteObject(ctx, draft.HTMLKey)
		}
		_ = h.storage.DeletePrefix(ctx, fmt.Sprintf("thumbnails/draft/%d/", draft.ID))
	}

	c.Status(http.StatusNoContent)
}

// RenderDraft 将渲染任务入队并立即返回 202。
func (h *DraftHandler) RenderDraft(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	draft, err := h.getDraftForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyDraftLookupError(c, err)
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewRenderPreviewTask(draft.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue render")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "render request accepted",
		"task_id": info.ID,
	})
}

// GetDownloadLink 生成渲染产物（完整 HTML）的预签名下载链接。
func (h *DraftHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	draft, err := h.getDraftForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyDraftLookupError(c, err)
		return
	}

	if draft.HTMLKey == "" {
		Conflict(c, "rendered html not ready")
		return
	}

	filename := strings.TrimSpace(draft.Title)
	if filename == "" {
		filename = "email"
	}
	signedURL, err := h.storage.GeneratePresignedURLWithParams(c.Request.Context(), draft.HTMLKey, 5*time.Minute, map[string]string{
		"response-content-disposition": fmt.Sprintf("attachment; filename=%q", filename+".html"),
	})
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// GetRenderedEmailHTML 同步渲染草稿并返回完整 HTML（仅限内部调用）。
// 图片会被内联为 data URI，产物自包含，可直接交给 ESP 或打印管线。
func (h *DraftHandler) GetRenderedEmailHTML(c *gin.Context) {
	draftID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid draft id")
		return
	}

	ctx := c.Request.Context()
	var draft database.Draft
	if err := h.db.WithContext(ctx).First(&draft, uint(draftID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "draft not found")
			return
		}
		Internal(c, "failed to load draft")
		return
	}

	var markup email.Markup
	if len(draft.Markup) > 0 {
		if err := json.Unmarshal(draft.Markup, &markup); err != nil {
			Internal(c, "failed to decode draft markup")
			return
		}
	}
	doc := email.Parse(markup)
	if len(draft.Style) > 0 {
		var style email.DocumentStyle
		if err := json.Unmarshal(draft.Style, &style); err != nil {
			Internal(c, "failed to decode draft style")
			return
		}
		doc.Style = style
	}

	inlined, missingKeys, err := render.InlineImages(ctx, h.storage, draft.UserID, doc)
	if err != nil {
		Internal(c, err.Error())
		return
	}
	if len(missingKeys) > 0 {
		c.Header("X-Missing-Assets", strconv.Itoa(len(missingKeys)))
	}

	htmlContent, err := render.EmailHTML(inlined)
	if err != nil {
		Internal(c, "failed to render email html")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(htmlContent))
}

func (h *DraftHandler) replyDraftLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidDraftID):
		BadRequest(c, "invalid draft id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "draft not found")
	default:
		Internal(c, "failed to query draft")
	}
}

func (h *DraftHandler) setActiveDraftID(ctx context.Context, userID uint, draftID *uint) error {
	var value any
	if draftID != nil {
		value = *draftID
	} else {
		value = nil
	}
	return h.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", userID).
		Update("active_draft_id", value).Error
}

func (h *DraftHandler) assignLatestDraftAsActive(ctx context.Context, userID uint) error {
	var draft database.Draft
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		First(&draft).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return h.setActiveDraftID(ctx, userID, nil)
	case err != nil:
		return err
	default:
		return h.setActiveDraftID(ctx, userID, &draft.ID)
	}
}

func (h *DraftHandler) findActiveOrLatestDraft(ctx context.Context, userID uint) (*database.Draft, error) {
	var user database.User
	if err := h.db.WithContext(ctx).
		Select("id", "active_draft_id").
		First(&user, userID).Error; err != nil {
		return nil, err
	}

	if user.ActiveDraftID != nil {
		var draft database.Draft
		if err := h.db.WithContext(ctx).
			Where("id = ? AND user_id = ?", *user.ActiveDraftID, userID).
			First(&draft).Error; err == nil {
			return &draft, nil
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var latest database.Draft
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = h.setActiveDraftID(ctx, userID, nil)
		}
		return nil, err
	}

	if err := h.setActiveDraftID(ctx, userID, &latest.ID); err != nil {
		return nil, err
	}
	return &latest, nil
}

func (h *DraftHandler) getDraftForUser(ctx context.Context, idParam string, userID uint) (*database.Draft, error) {
	draftID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidDraftID
	}

	var draft database.Draft
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(draftID), userID).
		First(&draft).Error; err != nil {
		return nil, err
	}

	return &draft, nil
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

const defaultDraftTitle = "My first campaign"

// defaultDraftMarkup 为新用户生成一份起始文档：Logo 头部、标题+正文+按钮、社交页脚。
func defaultDraftMarkup() datatypes.JSON {
	var doc email.Document
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionHeader, Index: 0, Type: email.TypeLogo})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeHeading})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionBody, Index: 1, Type: email.TypeParagraph})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionBody, Index: 2, Type: email.TypeButton})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionFooter, Index: 0, Type: email.TypeDivider})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionFooter, Index: 1, Type: email.TypeSocial})

	data, err := json.Marshal(email.Serialize(doc))
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(data)
}

func defaultDraftStyle() datatypes.JSON {
	data, err := json.Marshal(email.DefaultStyle)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(data)
}

func newDraftResponse(draft database.Draft) draftResponse {
	return draftResponse{
		ID:              draft.ID,
		Title:           draft.Title,
		Markup:          draft.Markup,
		Style:           draft.Style,
		Status:          draft.Status,
		PreviewImageURL: draft.PreviewImageURL,
		CreatedAt:       draft.CreatedAt,
		UpdatedAt:       draft.UpdatedAt,
	}
}
