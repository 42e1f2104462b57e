package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mailcanvas/internal/api/middleware"
	"mailcanvas/internal/database"
	"mailcanvas/internal/tasks"
)

// TemplateHandler 负责模板相关的 API。
type TemplateHandler struct {
	db          *gorm.DB
	asynqClient *asynq.Client
}

func NewTemplateHandler(db *gorm.DB, asynqClient *asynq.Client) *TemplateHandler {
	return &TemplateHandler{db: db, asynqClient: asynqClient}
}

type createTemplateRequest struct {
	Title  string         `json:"title" binding:"required"`
	Markup datatypes.JSON `json:"markup" binding:"required"`
	Style  datatypes.JSON `json:"style"`
	// 目前创建默认私有，若后续需要开放，可增加 IsPublic 入参并严格校验
}

type templateListItem struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	IsPublic        bool   `json:"is_public"`
	PreviewImageURL string `json:"preview_image_url,omitempty"`
}

type templateDetailResponse struct {
	ID              uint           `json:"id"`
	Title           string         `json:"title"`
	Markup          datatypes.JSON `json:"markup"`
	Style           datatypes.JSON `json:"style,omitempty"`
	IsPublic        bool           `json:"is_public"`
	PreviewImageURL string         `json:"preview_image_url,omitempty"`
}

// POST /v1/templates
// 创建模板：默认私有，Owner 为当前用户。入库前 markup 会被规范化，
// 创建成功后异步生成缩略图。
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
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

	model := database.Template{
		Title:    req.Title,
		Markup:   normalized,
		Style:    req.Style,
		UserID:   userID,
		IsPublic: false,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&model).Error; err != nil {
		Internal(c, "failed to create template")
		return
	}

	if h.asynqClient != nil {
		correlationID := middleware.GetCorrelationID(c)
		if task, err := tasks.NewTemplatePreviewTask(model.ID, correlationID); err == nil {
			_, _ = h.asynqClient.Enqueue(task, asynq.MaxRetry(3))
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    model.ID,
		"title": model.Title,
	})
}

// GET /v1/templates
// 列表：返回当前用户模板 ∪ 所有公开模板（去重由主键自然保证）。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var templates []database.Template
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? OR is_public = ?", userID, true).
		Order("updated_at DESC").
		Find(&templates).Error; err != nil {
		Internal(c, "failed to list templates")
		return
	}

	items := make([]templateListItem, 0, len(templates))
	for _, t := range templates {
		items = append(items, templateListItem{
			ID:              t.ID,
			Title:           t.Title,
			IsPublic:        t.IsPublic,
			PreviewImageURL: t.PreviewImageURL,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GET /v1/templates/:id
// 详情：允许 Owner 访问，或公开模板允许任何已登录用户访问。
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid template id")
		return
	}

	var model database.Template
	if err := h.db.WithContext(c.Request.Context()).
		First(&model, uint(id)).Error; err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "template not found")
		default:
			Internal(c, "failed to query template")
		}
		return
	}

	if model.UserID != userID && !model.IsPublic {
		Forbidden(c, "access denied")
		return
	}

	c.JSON(http.StatusOK, templateDetailResponse{
		ID:              model.ID,
		Title:           model.Title,
		Markup:          model.Markup,
		Style:           model.Style,
		IsPublic:        model.IsPublic,
		PreviewImageURL: model.PreviewImageURL,
	})
}

// DELETE /v1/templates/:id
// 仅允许 Owner 删除，公开模板同理。
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid template id")
		return
	}

	var model database.Template
	if err := h.db.WithContext(c.Request.Context()).
		First(&model, uint(id)).Error; err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "template not found")
		default:
			Internal(c, "failed to query template")
		}
		return
	}

	if model.UserID != userID {
		Forbidden(c, "access denied")
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(&model).Error; err != nil {
		Internal(c, "failed to delete template")
		return
	}

	c.Status(http.StatusNoContent)
}
