package email

import "github.com/google/uuid"

// Placement is the transfer payload of a drop gesture: what to create and
// where to put it. Columns only matters for layout drops; zero or invalid
// values fall back to DefaultLayoutColumns.
type Placement struct {
	Section Section   `json:"section"`
	Index   int       `json:"index"`
	Type    BlockType `json:"blockType"`
	Columns int       `json:"columns,omitempty"`
}

// NewBlock builds a fresh block of the given kind with a new id and the
// kind's default payload. Unrecognized kinds return nil; the placement
// resolver turns that into a no-op rather than an error, since drop
// payloads arrive from outside the core.
func NewBlock(t BlockType, columns int) Block {
	id := uuid.NewString()
	switch t {
	case TypeHeading:
		return defaultHeading(id)
	case TypeParagraph:
		return defaultParagraph(id)
	case TypeButton:
		return defaultButton(id)
	case TypeLogo:
		return defaultLogo(id)
	case TypeImage:
		return defaultImage(id)
	case TypeDivider:
		return defaultDivider(id)
	case TypeSpacer:
		return defaultSpacer(id)
	case TypeSocial:
		return defaultSocial(id)
	case TypeLayout:
		return defaultLayout(id, columns)
	}
	return nil
}

// Place resolves a drop gesture: it creates the block described by p and
// inserts it at the clamped index of the target section. The new block is
// returned alongside the updated document; a nil block means the gesture
// was ignored (unknown type or unknown section).
func Place(doc Document, p Placement) (Document, Block) {
	if !validSection(p.Section) {
		return doc, nil
	}
	b := NewBlock(p.Type, p.Columns)
	if b == nil {
		return doc, nil
	}
	return doc.InsertBlock(p.Section, p.Index, b), b
}

// Move relocates an existing block, preserving its id, content and style:
// a drag-move is remove-then-insert of the same block value. The target
// index is interpreted against the sequence after removal, then clamped.
// A missing id or invalid section leaves the document unchanged.
func Move(doc Document, from Section, id string, to Section, index int) (Document, bool) {
	if !validSection(from) || !validSection(to) {
		return doc, false
	}
	moved, ok := doc.FindBlock(from, id)
	if !ok {
		return doc, false
	}
	next, _ := doc.RemoveBlock(from, id)
	return next.InsertBlock(to, index, moved), true
}

func validSection(s Section) bool {
	switch s {
	case SectionHeader, SectionBody, SectionFooter:
		return true
	}
	return false
}
