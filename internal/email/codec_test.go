package email

import (
	"strings"
	"testing"
)

func roundTrip(t *testing.T, doc Document) Document {
	t.Helper()
	got := Parse(Serialize(doc))
	if !got.Equal(doc) {
		t.Fatalf("round trip mismatch\n got: %#v\nwant: %#v", got, doc)
	}
	return got
}

func TestRoundTripTextBlocks(t *testing.T) {
	var doc Document
	doc = doc.InsertBlock(SectionBody, 0, &Heading{
		ID:   "h1",
		Text: "Hello & <World>",
		Style: TextStyle{
			FontFamily: "Georgia, serif",
			FontSizePx: 28,
			FontWeight: "bold",
			FontStyle:  "italic",
			Color:      "#112233",
			Align:      "center",
			Decoration: "underline",
			Background: "#ffffff",
			Border:     "1px solid #000000",
			Padding:    "4px 8px",
		},
		Link: Link{Href: "https://example.com", Kind: LinkWeb, NewTab: true},
	})
	doc = doc.InsertBlock(SectionBody, 1, &Paragraph{
		ID:    "p1",
		Text:  "Plain paragraph with \"quotes\".",
		Style: TextStyle{FontSizePx: 16, Color: "#374151", Align: "left"},
	})
	doc = doc.InsertBlock(SectionBody, 2, &Button{
		ID:   "btn1",
		Text: "Get in touch",
		Style: TextStyle{
			FontSizePx: 16,
			Color:      "#ffffff",
			Background: "#2563eb",
			Align:      "center",
			Padding:    "12px 24px",
		},
		Link: Link{Href: "hello@example.com", Kind: LinkEmail},
	})
	roundTrip(t, doc)
}

func TestRoundTripImageAndLogo(t *testing.T) {
	var doc Document
	doc = doc.InsertBlock(SectionHeader, 0, &Logo{
		ID:   "logo1",
		Text: "Acme Corp",
		Alt:  "acme",
		Style: TextStyle{
			FontSizePx: 22,
			FontWeight: "bold",
			Align:      "left",
		},
		Fit: FitOriginal,
	})
	doc = doc.InsertBlock(SectionBody, 0, &Image{
		ID:       "img1",
		Src:      "https://cdn.example.com/hero.png",
		Alt:      "hero",
		Fit:      FitScale,
		ScalePct: 80,
		Align:    "center",
		Link:     Link{Href: "https://example.com/shop", Kind: LinkWeb, NewTab: true},
		Box:      BoxStyle{Padding: "8px", Background: "#fafafa"},
	})
	doc = doc.InsertBlock(SectionBody, 1, &Image{
		ID:  "img2",
		Src: "user-assets/7/asset.png",
		Fit: FitFill,
	})
	roundTrip(t, doc)
}

func TestRoundTripLogoImageModeKeepsWordmark(t *testing.T) {
	var doc Document
	doc = doc.InsertBlock(SectionHeader, 0, &Logo{
		ID:    "logo1",
		Src:   "https://cdn.example.com/logo.png",
		Alt:   "acme",
		Text:  "Acme Corp",
		Style: TextStyle{Align: "center"},
		Fit:   FitOriginal,
	})
	got := roundTrip(t, doc)
	if got.Header[0].(*Logo).Text != "Acme Corp" {
		t.Fatal("wordmark text lost in image mode")
	}
}

func TestRoundTripDividerSpacerSocial(t *testing.T) {
	var doc Document
	doc = doc.InsertBlock(SectionFooter, 0, &Divider{
		ID:          "div1",
		Line:        "dashed",
		Color:       "#cccccc",
		ThicknessPx: 2,
		Box:         BoxStyle{Padding: "8px 0"},
	})
	doc = doc.InsertBlock(SectionFooter, 1, &Spacer{ID: "sp1", HeightPx: 32})
	doc = doc.InsertBlock(SectionFooter, 2, &Social{
		ID:   "soc1",
		Mode: SocialFollow,
		Links: []SocialLink{
			{Platform: "x", URL: "https://x.com/acme", Label: "X"},
			{Platform: "instagram", URL: "https://instagram.com/acme", Label: "Instagram"},
		},
		Display:     DisplayIconsText,
		IconStyle:   "circle",
		Orientation: "horizontal",
		SizePx:      24,
		SpacingPx:   8,
		Align:       "center",
		IconColor:   "#333333",
	})
	roundTrip(t, doc)
}

func TestRoundTripLayoutWithNestedBlocks(t *testing.T) {
	var doc Document
	layout := &Layout{
		ID:     "lay1",
		Widths: []int{5, 3, 4},
		Columns: [][]Block{
			{&Paragraph{ID: "p1", Text: "left", Style: TextStyle{Align: "left"}}},
			nil,
			{&Spacer{ID: "sp1", HeightPx: 16}, &Divider{ID: "d1", Line: "solid", Color: "#eeeeee", ThicknessPx: 1}},
		},
		Box: BoxStyle{Background: "#fafafa"},
	}
	doc = doc.InsertBlock(SectionBody, 0, layout)
	roundTrip(t, doc)
}

func TestSerializeIsDeterministic(t *testing.T) {
	var doc Document
	doc, _ = Place(doc, Placement{Section: SectionBody, Index: 0, Type: TypeHeading})
	doc, _ = Place(doc, Placement{Section: SectionBody, Index: 1, Type: TypeSocial})
	doc, _ = Place(doc, Placement{Section: SectionBody, Index: 2, Type: TypeLayout, Columns: 3})

	a := Serialize(doc)
	b := Serialize(doc)
	if a != b {
		t.Fatal("serializing the same document twice produced different markup")
	}
}

func TestRoundTripPlacedDefaults(t *testing.T) {
	// Every kind the palette can drop must survive a save/load cycle.
	var doc Document
	kinds := []BlockType{
		TypeHeading, TypeParagraph, TypeButton, TypeLogo, TypeImage,
		TypeDivider, TypeSpacer, TypeSocial, TypeLayout,
	}
	for i, k := range kinds {
		doc, _ = Place(doc, Placement{Section: SectionBody, Index: i, Type: k, Columns: 2})
	}
	roundTrip(t, doc)
}

func TestParseUnrecognizedFragmentBecomesRaw(t *testing.T) {
	doc := Parse(Markup{Body: `<table><tr><td>legacy</td></tr></table>`})
	if len(doc.Body) != 1 {
		t.Fatalf("expected 1 block, got %d", len(doc.Body))
	}
	raw, ok := doc.Body[0].(*Raw)
	if !ok {
		t.Fatalf("expected raw block, got %T", doc.Body[0])
	}
	if !strings.Contains(raw.HTML, "<td>legacy</td>") {
		t.Fatalf("raw block lost content: %q", raw.HTML)
	}
	if raw.ID == "" {
		t.Fatal("raw block must still carry an id")
	}

	// The opaque block survives another save/load untouched.
	again := Parse(Serialize(doc))
	if got := again.Body[0].(*Raw).HTML; got != raw.HTML {
		t.Fatalf("raw markup changed across cycles: %q != %q", got, raw.HTML)
	}
}

func TestParseStrayTextBecomesRaw(t *testing.T) {
	doc := Parse(Markup{Body: "just some text"})
	if len(doc.Body) != 1 {
		t.Fatalf("expected 1 block, got %d", len(doc.Body))
	}
	if raw, ok := doc.Body[0].(*Raw); !ok || raw.HTML != "just some text" {
		t.Fatalf("stray text not preserved: %#v", doc.Body[0])
	}
}

func TestParseMixedRecognizedAndUnknown(t *testing.T) {
	var doc Document
	doc = doc.InsertBlock(SectionBody, 0, &Paragraph{ID: "p1", Text: "known"})
	m := Serialize(doc)
	m.Body = `<custom-widget a="1">x</custom-widget>` + "\n" + m.Body

	got := Parse(m)
	if len(got.Body) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(got.Body))
	}
	if got.Body[0].Type() != TypeRaw {
		t.Fatalf("first block should be raw, got %v", got.Body[0].Type())
	}
	if p, ok := got.Body[1].(*Paragraph); !ok || p.Text != "known" {
		t.Fatalf("recognized block corrupted: %#v", got.Body[1])
	}
}

func TestParseNeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t ",
		"<div",
		"<<<>>>",
		`<div data-mc-type="layout" data-mc-id="x"></div>`,
		`<div data-mc-type="image"></div>`,
		`<div data-mc-type="spacer" style="height:oops"></div>`,
		strings.Repeat("<div>", 50),
	}
	for _, in := range inputs {
		doc := Parse(Markup{Header: in, Body: in, Footer: in})
		// Re-serializing whatever came out must also be safe.
		_ = Serialize(doc)
	}
}

func TestParseEmptySectionsYieldEmptyDocument(t *testing.T) {
	doc := Parse(Markup{})
	if len(doc.Header)+len(doc.Body)+len(doc.Footer) != 0 {
		t.Fatal("empty payload must parse to an empty document")
	}
}

func TestLayoutWithBrokenWidthsFallsBackToEvenSplit(t *testing.T) {
	m := Markup{Body: `<div data-mc-id="l1" data-mc-type="layout" data-mc-widths="9,9,9">` +
		`<div data-mc-column="1"></div><div data-mc-column="2"></div><div data-mc-column="3"></div></div>`}
	doc := Parse(m)
	layout, ok := doc.Body[0].(*Layout)
	if !ok {
		t.Fatalf("expected layout, got %T", doc.Body[0])
	}
	if layout.Widths[0] != 4 || layout.Widths[1] != 4 || layout.Widths[2] != 4 {
		t.Fatalf("invalid widths must fall back to even split, got %v", layout.Widths)
	}
}

// TestEditorScenario walks the full editing story: drop a layout, try an
// illegal resize, apply a legal one, then save and reload.
func TestEditorScenario(t *testing.T) {
	var doc Document

	doc, placed := Place(doc, Placement{Section: SectionBody, Index: 0, Type: TypeLayout, Columns: 3})
	layout := placed.(*Layout)
	if got := layout.Widths; got[0] != 4 || got[1] != 4 || got[2] != 4 {
		t.Fatalf("initial widths = %v, want [4 4 4]", got)
	}

	resize := func(delta int) (Document, bool) {
		return doc.UpdateBlock(SectionBody, layout.ID, func(b Block) Block {
			l := b.(*Layout)
			widths, ok := ResizeColumns(l.Widths, 0, delta)
			if !ok {
				return nil
			}
			l.Widths = widths
			return l
		})
	}

	if _, ok := resize(2); ok {
		t.Fatal("resize to [6,2,4] must be rejected")
	}
	if got := doc.Body[0].(*Layout).Widths; got[0] != 4 || got[1] != 4 || got[2] != 4 {
		t.Fatalf("rejected resize changed widths: %v", got)
	}

	next, ok := resize(1)
	if !ok {
		t.Fatal("resize to [5,3,4] must be accepted")
	}
	doc = next

	reloaded := Parse(Serialize(doc))
	got := reloaded.Body[0].(*Layout).Widths
	if got[0] != 5 || got[1] != 3 || got[2] != 4 {
		t.Fatalf("reloaded widths = %v, want [5 3 4]", got)
	}
}
