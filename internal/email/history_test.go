package email

import "testing"

func docWithHeadingText(text string) Document {
	var doc Document
	return doc.InsertBlock(SectionBody, 0, &Heading{ID: "h1", Text: text})
}

func TestHistoryPushUndoRedo(t *testing.T) {
	h := NewHistory(10)
	a := docWithHeadingText("a")
	b := docWithHeadingText("b")

	h.Push(a)
	if h.CanUndo() || h.CanRedo() {
		t.Fatal("single snapshot: neither undo nor redo should be possible")
	}

	h.Push(b)
	if !h.CanUndo() {
		t.Fatal("expected undo to be available after second push")
	}

	got, ok := h.Undo()
	if !ok || !got.Equal(a) {
		t.Fatalf("undo returned wrong snapshot: ok=%v", ok)
	}
	if !h.CanRedo() {
		t.Fatal("expected redo after undo")
	}

	got, ok = h.Redo()
	if !ok || !got.Equal(b) {
		t.Fatalf("redo returned wrong snapshot: ok=%v", ok)
	}
	if h.CanRedo() {
		t.Fatal("redo at the newest snapshot must not be possible")
	}
}

func TestHistoryUndoAtBottomIsNoop(t *testing.T) {
	h := NewHistory(10)
	if _, ok := h.Undo(); ok {
		t.Fatal("undo on empty history must return none")
	}
	h.Push(docWithHeadingText("a"))
	if _, ok := h.Undo(); ok {
		t.Fatal("undo at position 0 must return none")
	}
	if _, ok := h.Redo(); ok {
		t.Fatal("redo at last index must return none")
	}
}

func TestHistoryIdenticalPushIsIdempotent(t *testing.T) {
	h := NewHistory(10)
	h.Push(docWithHeadingText("a"))
	h.Push(docWithHeadingText("b"))

	depth := h.Len()
	canUndo, canRedo := h.CanUndo(), h.CanRedo()

	// Value-identical document, freshly built.
	h.Push(docWithHeadingText("b"))

	if h.Len() != depth {
		t.Fatalf("identical push grew the stack: %d -> %d", depth, h.Len())
	}
	if h.CanUndo() != canUndo || h.CanRedo() != canRedo {
		t.Fatal("identical push changed undo/redo availability")
	}
}

func TestHistoryPushDiscardsRedoBranch(t *testing.T) {
	h := NewHistory(10)
	a := docWithHeadingText("a")
	b := docWithHeadingText("b")
	c := docWithHeadingText("c")

	h.Push(a)
	h.Push(b)
	if _, ok := h.Undo(); !ok {
		t.Fatal("undo failed")
	}
	h.Push(c)

	if h.Len() != 2 {
		t.Fatalf("expected [a, c], got %d snapshots", h.Len())
	}
	if _, ok := h.Redo(); ok {
		t.Fatal("b was discarded; redo must return none")
	}
	got, ok := h.Undo()
	if !ok || !got.Equal(a) {
		t.Fatal("undo after branch discard should return a")
	}
}

func TestHistoryEvictsOldestBeyondMaxDepth(t *testing.T) {
	h := NewHistory(3)
	h.Push(docWithHeadingText("1"))
	h.Push(docWithHeadingText("2"))
	h.Push(docWithHeadingText("3"))
	h.Push(docWithHeadingText("4"))

	if h.Len() != 3 {
		t.Fatalf("stack depth %d, want 3", h.Len())
	}

	// Walk all the way back: the oldest reachable snapshot is "2".
	var last Document
	for {
		doc, ok := h.Undo()
		if !ok {
			break
		}
		last = doc
	}
	if !last.Equal(docWithHeadingText("2")) {
		t.Fatal("oldest snapshot should be 2 after eviction of 1")
	}
}

func TestHistorySnapshotsAreIsolated(t *testing.T) {
	h := NewHistory(10)
	doc := docWithHeadingText("a")
	h.Push(doc)

	// Mutating the live block must not reach into the stored snapshot.
	doc.Body[0].(*Heading).Text = "tampered"

	h.Push(docWithHeadingText("b"))
	restored, ok := h.Undo()
	if !ok {
		t.Fatal("undo failed")
	}
	if restored.Body[0].(*Heading).Text != "a" {
		t.Fatal("snapshot shares state with the live document")
	}
}
