package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
// ActiveDraftID 记录用户最近打开的草稿，用于编辑器的"继续编辑"入口。
type User struct {
	gorm.Model
	Username      string  `gorm:"uniqueIndex;size:64"`
	PasswordHash  string  `gorm:"size:255"`
	ActiveDraftID *uint   `gorm:"index"`
	Drafts        []Draft `gorm:"constraint:OnDelete:CASCADE"`
}

// Draft 表示一封正在编辑的营销邮件。
// Markup 存储 {header, body, footer} 三段 HTML 片段；Style 存储文档级样式。
// 两者合起来即编辑器文档的持久化形态，重新打开时由解析器还原成块树。
type Draft struct {
	gorm.Model
	Title            string         `gorm:"size:255"`
	Markup           datatypes.JSON `gorm:"type:jsonb"`
	Style            datatypes.JSON `gorm:"type:jsonb"`
	UserID           uint           `gorm:"index"`
	User             User           `gorm:"constraint:OnDelete:CASCADE"`
	HTMLKey          string         `gorm:"size:512"` // 渲染产物（完整 HTML）的对象键
	PreviewImageURL  string         `gorm:"size:1024"`
	PreviewObjectKey string         `gorm:"size:512"`
	Status           string         `gorm:"size:32"`
}

// Template 表示可复用的邮件模板。
// 支持私有与公开模板（IsPublic），并归属于创建者（UserID）。
type Template struct {
	gorm.Model
	Title           string         `gorm:"size:255"`
	PreviewImageURL string         `gorm:"size:1024"`
	Markup          datatypes.JSON `gorm:"type:jsonb"`
	Style           datatypes.JSON `gorm:"type:jsonb"`
	IsPublic        bool           `gorm:"default:false"`
	UserID          uint           `gorm:"index"`
	User            User           `gorm:"constraint:OnDelete:CASCADE"`
}

// Asset 登记用户上传的图片对象，用于限额统计与列表展示。
// 实际字节存放在对象存储中，这里只保留键与元数据。
type Asset struct {
	gorm.Model
	UserID      uint   `gorm:"index"`
	ObjectKey   string `gorm:"uniqueIndex;size:255"`
	ContentType string `gorm:"size:64"`
	SizeBytes   int64
}
