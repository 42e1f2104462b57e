package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"mailcanvas/internal/email"
)

func postJSON(t *testing.T, handler gin.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	handler(c)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v body=%s", err, w.Body.String())
	}
}

func TestPlaceBlockOnEmptyDocument(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEditorHandler()

	w := postJSON(t, h.PlaceBlock, "/v1/editor/place", gin.H{
		"markup":     email.Markup{},
		"section":    "body",
		"index":      0,
		"block_type": "heading",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Markup  email.Markup `json:"markup"`
		BlockID string       `json:"block_id"`
	}
	decodeBody(t, w, &resp)

	if resp.BlockID == "" {
		t.Fatal("expected a block id")
	}
	doc := email.Parse(resp.Markup)
	if len(doc.Body) != 1 {
		t.Fatalf("expected 1 body block, got %d", len(doc.Body))
	}
	if _, ok := doc.FindBlock(email.SectionBody, resp.BlockID); !ok {
		t.Fatalf("placed block %q not found in parsed markup", resp.BlockID)
	}
}

func TestPlaceBlockRejectsUnknownType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEditorHandler()

	w := postJSON(t, h.PlaceBlock, "/v1/editor/place", gin.H{
		"markup":     email.Markup{},
		"section":    "body",
		"block_type": "carousel",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestMoveBlockBetweenSections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEditorHandler()

	var doc email.Document
	doc, placed := email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeDivider})
	if placed == nil {
		t.Fatal("seed placement failed")
	}

	w := postJSON(t, h.MoveBlock, "/v1/editor/move", gin.H{
		"markup":       email.Serialize(doc),
		"block_id":     placed.BlockID(),
		"from_section": "body",
		"to_section":   "footer",
		"index":        0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Markup email.Markup `json:"markup"`
	}
	decodeBody(t, w, &resp)

	next := email.Parse(resp.Markup)
	if len(next.Body) != 0 {
		t.Fatalf("expected empty body, got %d blocks", len(next.Body))
	}
	if _, ok := next.FindBlock(email.SectionFooter, placed.BlockID()); !ok {
		t.Fatal("moved block not found in footer")
	}
}

func TestUpdateBlockReplacesContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEditorHandler()

	var doc email.Document
	doc, placed := email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeHeading})
	if placed == nil {
		t.Fatal("seed placement failed")
	}

	// 以同一个块改写文本后的序列化片段作为替换内容。
	var edited email.Document
	edited, other := email.Place(edited, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeHeading})
	edited, _ = edited.UpdateBlock(email.SectionBody, other.BlockID(), func(b email.Block) email.Block {
		heading := b.(*email.Heading)
		heading.Text = "Fresh subject line"
		return heading
	})
	fragment := email.Serialize(edited).Body

	w := postJSON(t, h.UpdateBlock, "/v1/editor/update", gin.H{
		"markup":   email.Serialize(doc),
		"section":  "body",
		"block_id": placed.BlockID(),
		"fragment": fragment,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Markup email.Markup `json:"markup"`
	}
	decodeBody(t, w, &resp)

	next := email.Parse(resp.Markup)
	b, ok := next.FindBlock(email.SectionBody, placed.BlockID())
	if !ok {
		t.Fatal("block id must survive the update")
	}
	if got := b.(*email.Heading).Text; got != "Fresh subject line" {
		t.Fatalf("text = %q, want updated text", got)
	}
}

func TestUpdateBlockRejectsKindChange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEditorHandler()

	var doc email.Document
	doc, placed := email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeHeading})
	if placed == nil {
		t.Fatal("seed placement failed")
	}

	var replacement email.Document
	replacement, _ = email.Place(replacement, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeDivider})
	fragment := email.Serialize(replacement).Body

	w := postJSON(t, h.UpdateBlock, "/v1/editor/update", gin.H{
		"markup":   email.Serialize(doc),
		"section":  "body",
		"block_id": placed.BlockID(),
		"fragment": fragment,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestRemoveBlockNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEditorHandler()

	w := postJSON(t, h.RemoveBlock, "/v1/editor/remove", gin.H{
		"markup":   email.Markup{},
		"section":  "body",
		"block_id": "blk-missing",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestResizeColumnsAppliesDelta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEditorHandler()

	var doc email.Document
	doc, placed := email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeLayout, Columns: 3})
	if placed == nil {
		t.Fatal("seed placement failed")
	}

	w := postJSON(t, h.ResizeColumns, "/v1/editor/resize-columns", gin.H{
		"markup":   email.Serialize(doc),
		"section":  "body",
		"block_id": placed.BlockID(),
		"boundary": 0,
		"delta":    1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Markup  email.Markup `json:"markup"`
		Applied bool         `json:"applied"`
		Widths  []int        `json:"widths"`
	}
	decodeBody(t, w, &resp)

	if !resp.Applied {
		t.Fatal("expected resize to be applied")
	}
	want := []int{5, 3, 4}
	for i, v := range want {
		if resp.Widths[i] != v {
			t.Fatalf("widths = %v, want %v", resp.Widths, want)
		}
	}

	next := email.Parse(resp.Markup)
	b, ok := next.FindBlock(email.SectionBody, placed.BlockID())
	if !ok {
		t.Fatal("layout missing after resize")
	}
	layout := b.(*email.Layout)
	for i, v := range want {
		if layout.Widths[i] != v {
			t.Fatalf("persisted widths = %v, want %v", layout.Widths, want)
		}
	}
}

func TestResizeColumnsRejectedBelowMinimum(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEditorHandler()

	var doc email.Document
	doc, placed := email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeLayout, Columns: 3})
	if placed == nil {
		t.Fatal("seed placement failed")
	}
	markup := email.Serialize(doc)

	// [4,4,4] 的中列向左借 2 格会低于最小列宽，调整应被拒绝。
	w := postJSON(t, h.ResizeColumns, "/v1/editor/resize-columns", gin.H{
		"markup":   markup,
		"section":  "body",
		"block_id": placed.BlockID(),
		"boundary": 0,
		"delta":    2,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Markup  email.Markup `json:"markup"`
		Applied bool         `json:"applied"`
		Widths  []int        `json:"widths"`
	}
	decodeBody(t, w, &resp)

	if resp.Applied {
		t.Fatal("resize should be rejected")
	}
	if resp.Markup != markup {
		t.Fatal("markup must be returned unchanged on rejection")
	}
	for i, v := range []int{4, 4, 4} {
		if resp.Widths[i] != v {
			t.Fatalf("widths = %v, want unchanged [4 4 4]", resp.Widths)
		}
	}
}

func TestResizeColumnsMissingBlock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEditorHandler()

	w := postJSON(t, h.ResizeColumns, "/v1/editor/resize-columns", gin.H{
		"markup":   email.Markup{},
		"section":  "body",
		"block_id": "blk-missing",
		"boundary": 0,
		"delta":    1,
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestValidateMarkupCountsRawBlocks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEditorHandler()

	var doc email.Document
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeParagraph})
	markup := email.Serialize(doc)
	markup.Footer = `<table><tr><td>legacy footer</td></tr></table>`

	w := postJSON(t, h.ValidateMarkup, "/v1/editor/validate", gin.H{"markup": markup})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		BlockCount int `json:"block_count"`
		RawCount   int `json:"raw_count"`
	}
	decodeBody(t, w, &resp)

	if resp.BlockCount != 2 {
		t.Fatalf("block_count = %d, want 2", resp.BlockCount)
	}
	if resp.RawCount != 1 {
		t.Fatalf("raw_count = %d, want 1", resp.RawCount)
	}
}
