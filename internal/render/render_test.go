package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"

	"mailcanvas/internal/email"
)

type fakeObjectReader struct {
	objects map[string][]byte
	err     error
}

func (r *fakeObjectReader) ReadObject(_ context.Context, objectKey string) ([]byte, string, error) {
	if r.err != nil {
		return nil, "", r.err
	}
	data, ok := r.objects[objectKey]
	if !ok {
		return nil, "", minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return data, "image/png", nil
}

func sampleDoc() email.Document {
	var doc email.Document
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionHeader, Index: 0, Type: email.TypeLogo})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeHeading})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionBody, Index: 1, Type: email.TypeParagraph})
	doc, _ = email.Place(doc, email.Placement{Section: email.SectionFooter, Index: 0, Type: email.TypeSocial})
	return doc
}

func TestEmailHTMLWrapsSections(t *testing.T) {
	doc := sampleDoc()
	html, err := EmailHTML(doc)
	if err != nil {
		t.Fatalf("EmailHTML: %v", err)
	}

	for _, marker := range []string{
		`data-section="header"`,
		`data-section="body"`,
		`data-section="footer"`,
		"<!DOCTYPE html>",
	} {
		if !strings.Contains(html, marker) {
			t.Fatalf("rendered html missing %q", marker)
		}
	}

	// 片段必须原文注入，不能被转义。
	if strings.Contains(html, "&lt;") {
		t.Fatal("section fragments were escaped")
	}
}

func TestEmailHTMLAppliesDefaults(t *testing.T) {
	html, err := EmailHTML(email.Document{})
	if err != nil {
		t.Fatalf("EmailHTML: %v", err)
	}
	if !strings.Contains(html, email.DefaultStyle.BackgroundColor) {
		t.Fatalf("default background missing from %q", html)
	}
	if !strings.Contains(html, "width: 600px") {
		t.Fatal("default content width missing")
	}
}

func TestEmailHTMLUsesDocumentStyle(t *testing.T) {
	doc := email.Document{Style: email.DocumentStyle{
		BackgroundColor: "#123456",
		ContentWidthPx:  480,
	}}
	html, err := EmailHTML(doc)
	if err != nil {
		t.Fatalf("EmailHTML: %v", err)
	}
	if !strings.Contains(html, "#123456") {
		t.Fatal("document background not applied")
	}
	if !strings.Contains(html, "width: 480px") {
		t.Fatal("document content width not applied")
	}
}

func TestInlineImagesReplacesObjectKeys(t *testing.T) {
	store := &fakeObjectReader{objects: map[string][]byte{
		"user-assets/7/pic.png": []byte("fake-png-bytes"),
	}}

	var doc email.Document
	doc, placed := email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeImage})
	doc, _ = doc.UpdateBlock(email.SectionBody, placed.BlockID(), func(b email.Block) email.Block {
		img := b.(*email.Image)
		img.Src = "user-assets/7/pic.png"
		return img
	})

	inlined, missing, err := InlineImages(context.Background(), store, 7, doc)
	if err != nil {
		t.Fatalf("InlineImages: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("unexpected missing keys: %v", missing)
	}

	b, _ := inlined.FindBlock(email.SectionBody, placed.BlockID())
	src := b.(*email.Image).Src
	if !strings.HasPrefix(src, "data:image/png;base64,") {
		t.Fatalf("src = %q, want data URI", src)
	}

	// 原文档不受影响。
	orig, _ := doc.FindBlock(email.SectionBody, placed.BlockID())
	if orig.(*email.Image).Src != "user-assets/7/pic.png" {
		t.Fatal("input document mutated")
	}
}

func TestInlineImagesDegradesOnMissingKey(t *testing.T) {
	store := &fakeObjectReader{objects: map[string][]byte{}}

	var doc email.Document
	doc, placed := email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeImage})
	doc, _ = doc.UpdateBlock(email.SectionBody, placed.BlockID(), func(b email.Block) email.Block {
		img := b.(*email.Image)
		img.Src = "user-assets/7/gone.png"
		return img
	})

	inlined, missing, err := InlineImages(context.Background(), store, 7, doc)
	if err != nil {
		t.Fatalf("InlineImages: %v", err)
	}
	if len(missing) != 1 || missing[0] != "user-assets/7/gone.png" {
		t.Fatalf("missing = %v, want the gone key", missing)
	}

	b, _ := inlined.FindBlock(email.SectionBody, placed.BlockID())
	if src := b.(*email.Image).Src; src != "" {
		t.Fatalf("src = %q, want cleared", src)
	}
}

func TestInlineImagesKeepsExternalURLs(t *testing.T) {
	store := &fakeObjectReader{objects: map[string][]byte{}}

	var doc email.Document
	doc, placed := email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeImage})
	doc, _ = doc.UpdateBlock(email.SectionBody, placed.BlockID(), func(b email.Block) email.Block {
		img := b.(*email.Image)
		img.Src = "https://cdn.example.com/banner.png"
		return img
	})

	inlined, missing, err := InlineImages(context.Background(), store, 7, doc)
	if err != nil {
		t.Fatalf("InlineImages: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("unexpected missing keys: %v", missing)
	}
	b, _ := inlined.FindBlock(email.SectionBody, placed.BlockID())
	if src := b.(*email.Image).Src; src != "https://cdn.example.com/banner.png" {
		t.Fatalf("external src changed: %q", src)
	}
}

func TestInlineImagesFailsOnMissingBucket(t *testing.T) {
	store := &fakeObjectReader{err: minio.ErrorResponse{Code: "NoSuchBucket"}}

	var doc email.Document
	doc, placed := email.Place(doc, email.Placement{Section: email.SectionBody, Index: 0, Type: email.TypeImage})
	doc, _ = doc.UpdateBlock(email.SectionBody, placed.BlockID(), func(b email.Block) email.Block {
		img := b.(*email.Image)
		img.Src = "user-assets/7/pic.png"
		return img
	})

	_, _, err := InlineImages(context.Background(), store, 7, doc)
	if err == nil {
		t.Fatal("expected error for missing bucket")
	}
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) || resp.Code != "NoSuchBucket" {
		t.Fatalf("unexpected error: %v", err)
	}
}
