package email

import "testing"

func threeBlockBody() Document {
	var doc Document
	doc = doc.InsertBlock(SectionBody, 0, &Heading{ID: "b1", Text: "one"})
	doc = doc.InsertBlock(SectionBody, 1, &Paragraph{ID: "b2", Text: "two"})
	doc = doc.InsertBlock(SectionBody, 2, &Spacer{ID: "b3", HeightPx: 16})
	return doc
}

func TestFindBlock(t *testing.T) {
	doc := threeBlockBody()
	b, ok := doc.FindBlock(SectionBody, "b2")
	if !ok || b.Type() != TypeParagraph {
		t.Fatalf("FindBlock(b2) = %v, %v", b, ok)
	}
	if _, ok := doc.FindBlock(SectionBody, "missing"); ok {
		t.Fatal("unknown id must report not found")
	}
	if _, ok := doc.FindBlock(SectionHeader, "b2"); ok {
		t.Fatal("lookup must be scoped to the section")
	}
}

func TestUpdateBlock(t *testing.T) {
	doc := threeBlockBody()
	next, ok := doc.UpdateBlock(SectionBody, "b1", func(b Block) Block {
		h := b.(*Heading)
		h.Text = "changed"
		return h
	})
	if !ok {
		t.Fatal("update of existing block failed")
	}
	if next.Body[0].(*Heading).Text != "changed" {
		t.Fatal("patch not applied")
	}
	// Source document untouched.
	if doc.Body[0].(*Heading).Text != "one" {
		t.Fatal("update mutated the original document")
	}
}

func TestUpdateBlockUnknownIDIsNoop(t *testing.T) {
	doc := threeBlockBody()
	next, ok := doc.UpdateBlock(SectionBody, "missing", func(b Block) Block { return b })
	if ok {
		t.Fatal("unknown id must signal not found")
	}
	if !next.Equal(doc) {
		t.Fatal("no-op update changed the document")
	}
}

func TestUpdateBlockRejectsIdentityChange(t *testing.T) {
	doc := threeBlockBody()
	_, ok := doc.UpdateBlock(SectionBody, "b1", func(b Block) Block {
		h := b.(*Heading)
		h.ID = "hijacked"
		return h
	})
	if ok {
		t.Fatal("id change must be rejected")
	}
	_, ok = doc.UpdateBlock(SectionBody, "b1", func(b Block) Block { return nil })
	if ok {
		t.Fatal("nil result must be rejected")
	}
}

func TestRemoveBlock(t *testing.T) {
	doc := threeBlockBody()
	next, ok := doc.RemoveBlock(SectionBody, "b2")
	if !ok || len(next.Body) != 2 {
		t.Fatalf("remove failed: ok=%v len=%d", ok, len(next.Body))
	}
	if next.Body[0].BlockID() != "b1" || next.Body[1].BlockID() != "b3" {
		t.Fatal("remove disturbed the order of remaining blocks")
	}

	same, ok := doc.RemoveBlock(SectionBody, "missing")
	if ok || !same.Equal(doc) {
		t.Fatal("removing an absent id must be a no-op")
	}
}

func TestInsertBlockClampsIndex(t *testing.T) {
	doc := threeBlockBody()

	appended := doc.InsertBlock(SectionBody, 9999, &Divider{ID: "b4"})
	if len(appended.Body) != 4 || appended.Body[3].BlockID() != "b4" {
		t.Fatal("out-of-range insert must append at the end")
	}

	prepended := doc.InsertBlock(SectionBody, -5, &Divider{ID: "b5"})
	if prepended.Body[0].BlockID() != "b5" {
		t.Fatal("negative index must clamp to 0")
	}
}

func TestCloneIsDeep(t *testing.T) {
	var doc Document
	layout := defaultLayout("l1", 2)
	layout.Columns[0] = []Block{&Paragraph{ID: "p1", Text: "inner"}}
	doc = doc.InsertBlock(SectionBody, 0, layout)

	clone := doc.Clone()
	clone.Body[0].(*Layout).Columns[0][0].(*Paragraph).Text = "tampered"
	clone.Body[0].(*Layout).Widths[0] = 99

	orig := doc.Body[0].(*Layout)
	if orig.Columns[0][0].(*Paragraph).Text != "inner" || orig.Widths[0] != 6 {
		t.Fatal("Clone shares state with the original")
	}
}

func TestBlockCountIncludesNestedColumns(t *testing.T) {
	var doc Document
	layout := defaultLayout("l1", 3)
	layout.Columns[0] = []Block{&Paragraph{ID: "p1"}}
	layout.Columns[2] = []Block{&Spacer{ID: "s1"}, &Divider{ID: "d1"}}
	doc = doc.InsertBlock(SectionBody, 0, layout)
	doc = doc.InsertBlock(SectionFooter, 0, &Paragraph{ID: "p2"})

	if got := doc.BlockCount(); got != 5 {
		t.Fatalf("BlockCount = %d, want 5", got)
	}
}
