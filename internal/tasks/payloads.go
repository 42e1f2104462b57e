package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeRenderPreview   = "email:render_preview"
	TypeTemplatePreview = "template:render_preview"
)

// RenderPreviewPayload 描述渲染一封草稿邮件所需的最小信息。
type RenderPreviewPayload struct {
	DraftID       uint   `json:"draft_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewRenderPreviewTask 构造一个新的邮件预览渲染任务。
func NewRenderPreviewTask(draftID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(RenderPreviewPayload{
		DraftID:       draftID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRenderPreview, payload), nil
}

// TemplatePreviewPayload 描述模板缩略图生成任务。
type TemplatePreviewPayload struct {
	TemplateID    uint   `json:"template_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewTemplatePreviewTask 构造模板缩略图生成任务。
func NewTemplatePreviewTask(templateID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TemplatePreviewPayload{
		TemplateID:    templateID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTemplatePreview, payload), nil
}
