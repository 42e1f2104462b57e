// Package email holds the canonical in-memory model of an editable
// marketing e-mail and the pure operations the editor performs on it:
// block lookup and mutation, the 12-unit column grid, snapshot history,
// drop placement, and the bidirectional markup codec.
//
// Everything in this package is synchronous and free of I/O. Operations
// take a Document value and return a new Document value; the caller owns
// persistence, rendering and gesture handling.
package email

// Section identifies one of the three fixed zones of a document.
// Section order and block order within a section are meaningful and are
// preserved exactly by every operation and by the markup codec.
type Section string

const (
	SectionHeader Section = "header"
	SectionBody   Section = "body"
	SectionFooter Section = "footer"
)

// Sections lists the zones in rendering/serialization order.
var Sections = []Section{SectionHeader, SectionBody, SectionFooter}

// BlockType discriminates the block variants.
type BlockType string

const (
	TypeHeading   BlockType = "heading"
	TypeParagraph BlockType = "paragraph"
	TypeButton    BlockType = "button"
	TypeLogo      BlockType = "logo"
	TypeImage     BlockType = "image"
	TypeDivider   BlockType = "divider"
	TypeSpacer    BlockType = "spacer"
	TypeSocial    BlockType = "social"
	TypeLayout    BlockType = "layout"

	// TypeRaw preserves markup the parser did not recognize so that a
	// load/save cycle never destroys content it cannot interpret.
	TypeRaw BlockType = "raw"
)

// LinkKind distinguishes hyperlink targets.
type LinkKind string

const (
	LinkWeb   LinkKind = "web"
	LinkEmail LinkKind = "email"
	LinkPhone LinkKind = "phone"
)

// Link is an optional hyperlink attached to text, buttons and images.
// The zero value means "no link".
type Link struct {
	Href   string
	Kind   LinkKind
	NewTab bool
}

// IsZero reports whether the link is absent.
func (l Link) IsZero() bool { return l.Href == "" }

// TextStyle carries the presentational fields of text-bearing blocks.
// The zero value of every field means "inherit/default", never zero:
// absent fields are omitted from serialized markup and resolved by the
// per-kind default table at render time.
type TextStyle struct {
	FontFamily string
	FontSizePx int
	FontWeight string
	FontStyle  string
	Color      string
	Align      string
	Decoration string
	Background string
	Border     string
	Padding    string
}

// BoxStyle is the frame styling shared by non-text blocks.
type BoxStyle struct {
	Background string
	Border     string
	Padding    string
}

// ImageFit selects how an image fills its frame.
type ImageFit string

const (
	FitOriginal ImageFit = "original"
	FitFill     ImageFit = "fill"
	FitScale    ImageFit = "scale"
)

// SocialMode distinguishes follow-us rows from share rows.
type SocialMode string

const (
	SocialFollow SocialMode = "follow"
	SocialShare  SocialMode = "share"
)

// SocialDisplay selects icon-only or icon-plus-label rendering.
type SocialDisplay string

const (
	DisplayIcons     SocialDisplay = "icons"
	DisplayIconsText SocialDisplay = "icons-text"
)

// SocialLink is one entry of a social block. Order is preserved.
type SocialLink struct {
	Platform string
	URL      string
	Label    string
}

// Block is the closed set of content variants a section can hold. The
// concrete types below are the only implementations; the unexported
// method keeps the union sealed.
type Block interface {
	// BlockID returns the identifier, unique across the whole document
	// for the lifetime of the block.
	BlockID() string
	// Type returns the variant discriminant.
	Type() BlockType
	// clone returns a deep copy sharing no mutable state.
	clone() Block
}

// Heading is a single-line title.
type Heading struct {
	ID    string
	Text  string
	Style TextStyle
	Link  Link
}

// Paragraph is a body-text block.
type Paragraph struct {
	ID    string
	Text  string
	Style TextStyle
	Link  Link
}

// Button is a call-to-action link rendered as a filled box.
type Button struct {
	ID    string
	Text  string
	Style TextStyle
	Link  Link
}

// Logo is a brand mark: an image when Src is set, otherwise a styled
// wordmark falling back to Text.
type Logo struct {
	ID       string
	Src      string
	Alt      string
	Text     string
	Style    TextStyle
	Fit      ImageFit
	ScalePct int
	Link     Link
	Box      BoxStyle
}

// Image is a picture block. Src is either an absolute URL or an asset
// object key resolved by the storage layer at render time.
type Image struct {
	ID       string
	Src      string
	Alt      string
	Fit      ImageFit
	ScalePct int
	Align    string
	Link     Link
	Box      BoxStyle
}

// Divider is a horizontal rule.
type Divider struct {
	ID          string
	Line        string // solid, dashed, dotted, double
	Color       string
	ThicknessPx int
	Box         BoxStyle
}

// Spacer is vertical whitespace.
type Spacer struct {
	ID       string
	HeightPx int
	Box      BoxStyle
}

// Social is an ordered row (or column) of social-network links.
type Social struct {
	ID          string
	Mode        SocialMode
	Links       []SocialLink
	Display     SocialDisplay
	IconStyle   string
	Orientation string // horizontal, vertical
	SizePx      int
	SpacingPx   int
	Align       string
	IconColor   string
	Box         BoxStyle
}

// Layout is a multi-column container. Widths is the 12ths-grid partition
// (len(Widths) == number of columns, sum == GridUnits); Columns holds the
// nested block sequences. The structure is recursive, though the editor
// conventionally keeps nesting one level deep.
type Layout struct {
	ID      string
	Widths  []int
	Columns [][]Block
	Box     BoxStyle
}

// ColumnCount returns the number of columns.
func (b *Layout) ColumnCount() int { return len(b.Widths) }

// Raw is markup the parser could not interpret, carried verbatim so it
// round-trips through save/load untouched. Its ID is regenerated on each
// parse and is not persisted.
type Raw struct {
	ID   string
	HTML string
}

func (b *Heading) BlockID() string   { return b.ID }
func (b *Paragraph) BlockID() string { return b.ID }
func (b *Button) BlockID() string    { return b.ID }
func (b *Logo) BlockID() string      { return b.ID }
func (b *Image) BlockID() string     { return b.ID }
func (b *Divider) BlockID() string   { return b.ID }
func (b *Spacer) BlockID() string    { return b.ID }
func (b *Social) BlockID() string    { return b.ID }
func (b *Layout) BlockID() string    { return b.ID }
func (b *Raw) BlockID() string       { return b.ID }

func (b *Heading) Type() BlockType   { return TypeHeading }
func (b *Paragraph) Type() BlockType { return TypeParagraph }
func (b *Button) Type() BlockType    { return TypeButton }
func (b *Logo) Type() BlockType      { return TypeLogo }
func (b *Image) Type() BlockType     { return TypeImage }
func (b *Divider) Type() BlockType   { return TypeDivider }
func (b *Spacer) Type() BlockType    { return TypeSpacer }
func (b *Social) Type() BlockType    { return TypeSocial }
func (b *Layout) Type() BlockType    { return TypeLayout }
func (b *Raw) Type() BlockType       { return TypeRaw }

func (b *Heading) clone() Block   { c := *b; return &c }
func (b *Paragraph) clone() Block { c := *b; return &c }
func (b *Button) clone() Block    { c := *b; return &c }
func (b *Logo) clone() Block      { c := *b; return &c }
func (b *Image) clone() Block     { c := *b; return &c }
func (b *Divider) clone() Block   { c := *b; return &c }
func (b *Spacer) clone() Block    { c := *b; return &c }
func (b *Raw) clone() Block       { c := *b; return &c }

func (b *Social) clone() Block {
	c := *b
	c.Links = append([]SocialLink(nil), b.Links...)
	return &c
}

func (b *Layout) clone() Block {
	c := *b
	c.Widths = append([]int(nil), b.Widths...)
	c.Columns = make([][]Block, len(b.Columns))
	for i, col := range b.Columns {
		c.Columns[i] = cloneBlocks(col)
	}
	return &c
}

func cloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.clone()
	}
	return out
}

// DocumentStyle carries the document-level presentation fields. It is not
// part of the per-section markup payload; the draft store persists it
// alongside the payload.
type DocumentStyle struct {
	BackgroundColor string `json:"background_color,omitempty"`
	ContentWidthPx  int    `json:"content_width_px,omitempty"`
	FontFamily      string `json:"font_family,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
}

// Document is the whole editable e-mail: three ordered block sequences
// plus document-level style. Document values are treated as immutable;
// every operation returns a new value with structural sharing of the
// untouched parts.
type Document struct {
	Style  DocumentStyle
	Header []Block
	Body   []Block
	Footer []Block
}

// Markup is the portable form of a document's sections: one self-contained
// fragment string per zone, concatenated in block order. This mapping is
// the persisted/transmitted payload shape.
type Markup struct {
	Header string `json:"header"`
	Body   string `json:"body"`
	Footer string `json:"footer"`
}
