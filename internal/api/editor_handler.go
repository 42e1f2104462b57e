package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailcanvas/internal/email"
)

// EditorHandler 暴露无状态的文档编辑操作。
// 客户端提交当前 markup 与一个操作，服务端应用后返回新的 markup；
// 文档本身不在服务端保存，撤销/重做栈由客户端维护。
type EditorHandler struct{}

func NewEditorHandler() *EditorHandler {
	return &EditorHandler{}
}

type placeBlockRequest struct {
	Markup  email.Markup `json:"markup"`
	Section string       `json:"section" binding:"required"`
	Index   int          `json:"index"`
	Type    string       `json:"block_type" binding:"required"`
	Columns int          `json:"columns"`
}

// PlaceBlock 在指定区段创建一个带默认负载的新块。
func (h *EditorHandler) PlaceBlock(c *gin.Context) {
	var req placeBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc := email.Parse(req.Markup)
	next, placed := email.Place(doc, email.Placement{
		Section: email.Section(req.Section),
		Index:   req.Index,
		Type:    email.BlockType(req.Type),
		Columns: req.Columns,
	})
	if placed == nil {
		BadRequest(c, "unknown section or block type")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"markup":   email.Serialize(next),
		"block_id": placed.BlockID(),
	})
}

type moveBlockRequest struct {
	Markup  email.Markup `json:"markup"`
	BlockID string       `json:"block_id" binding:"required"`
	From    string       `json:"from_section" binding:"required"`
	To      string       `json:"to_section" binding:"required"`
	Index   int          `json:"index"`
}

// MoveBlock 将块移动到目标区段的指定位置，保留块的内容与样式。
func (h *EditorHandler) MoveBlock(c *gin.Context) {
	var req moveBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc := email.Parse(req.Markup)
	next, ok := email.Move(doc, email.Section(req.From), req.BlockID, email.Section(req.To), req.Index)
	if !ok {
		NotFound(c, "block not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"markup": email.Serialize(next)})
}

type removeBlockRequest struct {
	Markup  email.Markup `json:"markup"`
	Section string       `json:"section" binding:"required"`
	BlockID string       `json:"block_id" binding:"required"`
}

// RemoveBlock 删除指定块。
func (h *EditorHandler) RemoveBlock(c *gin.Context) {
	var req removeBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc := email.Parse(req.Markup)
	next, ok := doc.RemoveBlock(email.Section(req.Section), req.BlockID)
	if !ok {
		NotFound(c, "block not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"markup": email.Serialize(next)})
}

type updateBlockRequest struct {
	Markup  email.Markup `json:"markup"`
	Section string       `json:"section" binding:"required"`
	BlockID string       `json:"block_id" binding:"required"`
	// 块的新序列化片段；种类与 id 必须与原块一致。
	Fragment string `json:"fragment" binding:"required"`
}

// UpdateBlock 用新的片段替换指定块的内容与样式。
// 片段先经过解析器还原成块，再以原块的 id 写回；改变块种类的替换会被拒绝。
func (h *EditorHandler) UpdateBlock(c *gin.Context) {
	var req updateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	parsed := email.Parse(email.Markup{Body: req.Fragment})
	if len(parsed.Body) != 1 {
		BadRequest(c, "fragment must contain exactly one block")
		return
	}
	replacement := parsed.Body[0]

	doc := email.Parse(req.Markup)
	current, exists := doc.FindBlock(email.Section(req.Section), req.BlockID)
	if !exists {
		NotFound(c, "block not found")
		return
	}
	if replacement.Type() != current.Type() {
		BadRequest(c, "block kind cannot change")
		return
	}

	next, ok := doc.UpdateBlock(email.Section(req.Section), req.BlockID, func(b email.Block) email.Block {
		return withBlockID(replacement, req.BlockID)
	})
	if !ok {
		BadRequest(c, "update rejected")
		return
	}

	c.JSON(http.StatusOK, gin.H{"markup": email.Serialize(next)})
}

// withBlockID 返回一份携带指定 id 的块拷贝。
func withBlockID(b email.Block, id string) email.Block {
	switch block := b.(type) {
	case *email.Heading:
		c := *block
		c.ID = id
		return &c
	case *email.Paragraph:
		c := *block
		c.ID = id
		return &c
	case *email.Button:
		c := *block
		c.ID = id
		return &c
	case *email.Logo:
		c := *block
		c.ID = id
		return &c
	case *email.Image:
		c := *block
		c.ID = id
		return &c
	case *email.Divider:
		c := *block
		c.ID = id
		return &c
	case *email.Spacer:
		c := *block
		c.ID = id
		return &c
	case *email.Social:
		c := *block
		c.ID = id
		return &c
	case *email.Layout:
		c := *block
		c.ID = id
		return &c
	case *email.Raw:
		c := *block
		c.ID = id
		return &c
	default:
		return nil
	}
}

type resizeColumnsRequest struct {
	Markup  email.Markup `json:"markup"`
	Section string       `json:"section" binding:"required"`
	BlockID string       `json:"block_id" binding:"required"`
	// 边界左侧列的下标；delta 为正表示左列变宽。
	Boundary int `json:"boundary"`
	Delta    int `json:"delta"`
	// 可选：客户端直接上报拖拽像素位移，由服务端换算成栅格单位。
	PixelDelta       float64 `json:"pixel_delta"`
	ContainerWidthPx float64 `json:"container_width_px"`
}

// ResizeColumns 调整布局块的列宽。越过最小列宽（3 格）的调整不会被应用，
// 响应中 applied=false 且 markup 保持原样。
func (h *EditorHandler) ResizeColumns(c *gin.Context) {
	var req resizeColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	delta := req.Delta
	if delta == 0 && req.PixelDelta != 0 {
		delta = email.UnitsForPixelDelta(req.PixelDelta, req.ContainerWidthPx)
	}

	doc := email.Parse(req.Markup)
	applied := false
	var widths []int
	next, found := doc.UpdateBlock(email.Section(req.Section), req.BlockID, func(b email.Block) email.Block {
		layout, ok := b.(*email.Layout)
		if !ok {
			return nil
		}
		resized, ok := email.ResizeColumns(layout.Widths, req.Boundary, delta)
		widths = resized
		if !ok {
			return nil
		}
		applied = true
		layout.Widths = resized
		return layout
	})

	if !found && !applied {
		// 块不存在，或目标不是布局块，或调整被拒绝。
		if _, exists := doc.FindBlock(email.Section(req.Section), req.BlockID); !exists {
			NotFound(c, "layout block not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"markup":  req.Markup,
			"applied": false,
			"widths":  widths,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"markup":  email.Serialize(next),
		"applied": true,
		"widths":  widths,
	})
}

type validateMarkupRequest struct {
	Markup email.Markup `json:"markup"`
}

// ValidateMarkup 解析 payload 并返回结构摘要。
// 解析是全量的：无法识别的片段会被计为不透明块而不是报错。
func (h *EditorHandler) ValidateMarkup(c *gin.Context) {
	var req validateMarkupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc := email.Parse(req.Markup)

	rawCount := 0
	var countRaw func(blocks []email.Block)
	countRaw = func(blocks []email.Block) {
		for _, b := range blocks {
			switch block := b.(type) {
			case *email.Raw:
				rawCount++
			case *email.Layout:
				for _, col := range block.Columns {
					countRaw(col)
				}
			}
		}
	}
	countRaw(doc.Header)
	countRaw(doc.Body)
	countRaw(doc.Footer)

	c.JSON(http.StatusOK, gin.H{
		"block_count": doc.BlockCount(),
		"raw_count":   rawCount,
		"markup":      email.Serialize(doc),
	})
}
