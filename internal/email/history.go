package email

// DefaultHistoryDepth bounds the snapshot stack when the caller does not
// pick a limit.
const DefaultHistoryDepth = 50

// History is the undo/redo engine: a bounded vector of whole-document
// snapshots with a position cursor. Pushing while the cursor sits before
// the last snapshot discards the redo branch; exceeding the depth limit
// evicts the oldest snapshot. Snapshots are deep copies, so later edits
// to the live document never leak into history.
//
// The caller decides what counts as a "settled" change worth pushing
// (e.g. not every keystroke); History only guarantees that pushing an
// identical value is a no-op and that the stack never grows unbounded.
type History struct {
	snapshots []Document
	position  int
	maxDepth  int
}

// NewHistory returns an empty history bounded to maxDepth snapshots.
// maxDepth < 1 selects DefaultHistoryDepth.
func NewHistory(maxDepth int) *History {
	if maxDepth < 1 {
		maxDepth = DefaultHistoryDepth
	}
	return &History{position: -1, maxDepth: maxDepth}
}

// Push records doc as the new current snapshot. If doc is structurally
// identical to the current snapshot the push is a no-op. Otherwise any
// snapshots after the cursor are discarded, doc is appended, and the
// oldest snapshot is evicted if the stack would exceed the depth limit.
func (h *History) Push(doc Document) {
	if h.position >= 0 && doc.Equal(h.snapshots[h.position]) {
		return
	}
	h.snapshots = append(h.snapshots[:h.position+1], doc.Clone())
	h.position = len(h.snapshots) - 1
	if len(h.snapshots) > h.maxDepth {
		drop := len(h.snapshots) - h.maxDepth
		h.snapshots = append(h.snapshots[:0], h.snapshots[drop:]...)
		h.position -= drop
	}
}

// Undo steps the cursor back one snapshot and returns a copy of it.
// At the oldest snapshot it returns false and changes nothing.
func (h *History) Undo() (Document, bool) {
	if !h.CanUndo() {
		return Document{}, false
	}
	h.position--
	return h.snapshots[h.position].Clone(), true
}

// Redo steps the cursor forward one snapshot and returns a copy of it.
// At the newest snapshot it returns false and changes nothing.
func (h *History) Redo() (Document, bool) {
	if !h.CanRedo() {
		return Document{}, false
	}
	h.position++
	return h.snapshots[h.position].Clone(), true
}

// CanUndo reports whether an older snapshot exists.
func (h *History) CanUndo() bool { return h.position > 0 }

// CanRedo reports whether a newer snapshot exists.
func (h *History) CanRedo() bool {
	return h.position >= 0 && h.position < len(h.snapshots)-1
}

// Len returns the current number of snapshots.
func (h *History) Len() int { return len(h.snapshots) }
