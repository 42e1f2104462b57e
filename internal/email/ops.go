package email

import "reflect"

// Section returns the block sequence of the given zone. Unknown section
// names yield nil, which every operation treats as an empty sequence.
func (d Document) Section(s Section) []Block {
	switch s {
	case SectionHeader:
		return d.Header
	case SectionBody:
		return d.Body
	case SectionFooter:
		return d.Footer
	}
	return nil
}

func (d Document) withSection(s Section, blocks []Block) Document {
	switch s {
	case SectionHeader:
		d.Header = blocks
	case SectionBody:
		d.Body = blocks
	case SectionFooter:
		d.Footer = blocks
	}
	return d
}

// FindBlock looks up a block by id within one section. The returned block
// is the live value; callers must not mutate it.
func (d Document) FindBlock(s Section, id string) (Block, bool) {
	for _, b := range d.Section(s) {
		if b.BlockID() == id {
			return b, true
		}
	}
	return nil, false
}

// UpdateBlock applies mutate to a deep copy of the identified block and
// replaces it in a new document. The id and type of a block are fixed for
// its lifetime: if mutate returns nil, changes the id, or changes the
// type, the update is rejected. An unknown id is a no-op; the second
// return value reports whether anything changed.
func (d Document) UpdateBlock(s Section, id string, mutate func(Block) Block) (Document, bool) {
	blocks := d.Section(s)
	for i, b := range blocks {
		if b.BlockID() != id {
			continue
		}
		updated := mutate(b.clone())
		if updated == nil || updated.BlockID() != id || updated.Type() != b.Type() {
			return d, false
		}
		next := make([]Block, len(blocks))
		copy(next, blocks)
		next[i] = updated
		return d.withSection(s, next), true
	}
	return d, false
}

// RemoveBlock removes the first block with the given id from the section.
// An absent id leaves the document unchanged and returns false.
func (d Document) RemoveBlock(s Section, id string) (Document, bool) {
	blocks := d.Section(s)
	for i, b := range blocks {
		if b.BlockID() != id {
			continue
		}
		next := make([]Block, 0, len(blocks)-1)
		next = append(next, blocks[:i]...)
		next = append(next, blocks[i+1:]...)
		return d.withSection(s, next), true
	}
	return d, false
}

// InsertBlock inserts b at index in the section, clamping index into
// [0, len]. Out-of-range inserts are normalized, never an error.
func (d Document) InsertBlock(s Section, index int, b Block) Document {
	blocks := d.Section(s)
	if index < 0 {
		index = 0
	}
	if index > len(blocks) {
		index = len(blocks)
	}
	next := make([]Block, 0, len(blocks)+1)
	next = append(next, blocks[:index]...)
	next = append(next, b)
	next = append(next, blocks[index:]...)
	return d.withSection(s, next)
}

// Clone returns a deep copy of the document, sharing nothing mutable with
// the receiver. History snapshots are taken through Clone.
func (d Document) Clone() Document {
	return Document{
		Style:  d.Style,
		Header: cloneBlocks(d.Header),
		Body:   cloneBlocks(d.Body),
		Footer: cloneBlocks(d.Footer),
	}
}

// Equal reports deep structural equality of two documents.
func (d Document) Equal(other Document) bool {
	return reflect.DeepEqual(d, other)
}

// BlockCount returns the total number of blocks, including blocks nested
// inside layout columns.
func (d Document) BlockCount() int {
	n := 0
	for _, s := range Sections {
		n += countBlocks(d.Section(s))
	}
	return n
}

func countBlocks(blocks []Block) int {
	n := 0
	for _, b := range blocks {
		n++
		if l, ok := b.(*Layout); ok {
			for _, col := range l.Columns {
				n += countBlocks(col)
			}
		}
	}
	return n
}
