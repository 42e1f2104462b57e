package email

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse reconstructs a document from its portable markup form. It
// recognizes exactly the fragment shapes Serialize emits; anything else
// is captured as a Raw block holding the verbatim markup, so Parse is
// total over arbitrary input and a load/save cycle never drops content.
//
// Document-level style is not part of the markup payload; the caller
// restores it from wherever it was persisted.
func Parse(m Markup) Document {
	return Document{
		Header: parseSection(m.Header),
		Body:   parseSection(m.Body),
		Footer: parseSection(m.Footer),
	}
}

func parseSection(markup string) []Block {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		// The html parser virtually never errors on string input, but if
		// it does the whole section survives as one opaque block.
		return []Block{&Raw{ID: uuid.NewString(), HTML: markup}}
	}
	return parseNodes(nodes)
}

func parseNodes(nodes []*html.Node) []Block {
	var blocks []Block
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			blocks = append(blocks, decodeElement(n))
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				blocks = append(blocks, &Raw{ID: uuid.NewString(), HTML: n.Data})
			}
		}
	}
	return blocks
}

func childNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func decodeElement(n *html.Node) Block {
	attrs := nodeAttrs(n)
	switch BlockType(attrs[attrType]) {
	case TypeHeading:
		return decodeText(n, attrs, TypeHeading)
	case TypeParagraph:
		return decodeText(n, attrs, TypeParagraph)
	case TypeButton:
		return decodeButton(n, attrs)
	case TypeLogo:
		return decodeLogo(n, attrs)
	case TypeImage:
		return decodeImage(n, attrs)
	case TypeDivider:
		return decodeDivider(n, attrs)
	case TypeSpacer:
		return decodeSpacer(n, attrs)
	case TypeSocial:
		return decodeSocial(n, attrs)
	case TypeLayout:
		if b := decodeLayout(n, attrs); b != nil {
			return b
		}
	}
	return rawBlock(n)
}

func rawBlock(n *html.Node) *Raw {
	return &Raw{ID: uuid.NewString(), HTML: renderNode(n)}
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func nodeAttrs(n *html.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}

// findElement returns the first descendant element with the given tag,
// depth first.
func findElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func linkFromNode(a *html.Node) Link {
	attrs := nodeAttrs(a)
	l := Link{Href: attrs["href"]}
	if l.Href == "" {
		return Link{}
	}
	l.Kind = LinkWeb
	if kind := attrs[attrLinkKind]; kind != "" {
		l.Kind = LinkKind(kind)
	}
	l.NewTab = attrs["target"] == "_blank"
	return l
}

func decodeText(n *html.Node, attrs map[string]string, t BlockType) Block {
	style := textStyleFromProps(parseInlineStyle(attrs["style"]), true)

	var link Link
	text := textContent(n)
	if a := findElement(n, "a"); a != nil {
		link = linkFromNode(a)
		text = textContent(a)
	}

	switch t {
	case TypeHeading:
		return &Heading{ID: attrs[attrID], Text: text, Style: style, Link: link}
	default:
		return &Paragraph{ID: attrs[attrID], Text: text, Style: style, Link: link}
	}
}

func decodeButton(n *html.Node, attrs map[string]string) Block {
	wrapProps := parseInlineStyle(attrs["style"])
	b := &Button{ID: attrs[attrID]}
	b.Style.Align = wrapProps["text-align"]

	if a := findElement(n, "a"); a != nil {
		aAttrs := nodeAttrs(a)
		style := textStyleFromProps(parseInlineStyle(aAttrs["style"]), false)
		style.Align = b.Style.Align
		b.Style = style
		b.Link = linkFromNode(a)
		b.Text = textContent(a)
	} else {
		b.Text = textContent(n)
	}
	return b
}

func decodeImage(n *html.Node, attrs map[string]string) Block {
	props := parseInlineStyle(attrs["style"])
	b := &Image{
		ID:       attrs[attrID],
		Fit:      ImageFit(attrs[attrFit]),
		ScalePct: atoiOrZero(attrs[attrScale]),
		Align:    props["text-align"],
		Box:      boxStyleFromProps(props),
	}
	if a := findElement(n, "a"); a != nil {
		b.Link = linkFromNode(a)
	}
	if img := findElement(n, "img"); img != nil {
		imgAttrs := nodeAttrs(img)
		b.Src = imgAttrs["src"]
		b.Alt = imgAttrs["alt"]
	}
	return b
}

func decodeLogo(n *html.Node, attrs map[string]string) Block {
	props := parseInlineStyle(attrs["style"])
	b := &Logo{
		ID:       attrs[attrID],
		Fit:      ImageFit(attrs[attrFit]),
		ScalePct: atoiOrZero(attrs[attrScale]),
		Box:      boxStyleFromProps(props),
	}
	b.Style.Align = props["text-align"]

	if a := findElement(n, "a"); a != nil {
		b.Link = linkFromNode(a)
	}
	if img := findElement(n, "img"); img != nil {
		imgAttrs := nodeAttrs(img)
		b.Src = imgAttrs["src"]
		b.Alt = imgAttrs["alt"]
		b.Text = attrs[attrText]
		return b
	}
	if span := findElement(n, "span"); span != nil {
		style := textStyleFromProps(parseInlineStyle(nodeAttrs(span)["style"]), false)
		style.Align = b.Style.Align
		b.Style = style
		b.Text = textContent(span)
		b.Alt = attrs["data-mc-alt"]
	}
	return b
}

func decodeDivider(n *html.Node, attrs map[string]string) Block {
	b := &Divider{
		ID:  attrs[attrID],
		Box: boxStyleFromProps(parseInlineStyle(attrs["style"])),
	}
	if hr := findElement(n, "hr"); hr != nil {
		props := parseInlineStyle(nodeAttrs(hr)["style"])
		b.ThicknessPx = pxValue(props["border-top-width"])
		b.Line = props["border-top-style"]
		b.Color = props["border-top-color"]
	}
	return b
}

func decodeSpacer(n *html.Node, attrs map[string]string) Block {
	props := parseInlineStyle(attrs["style"])
	return &Spacer{
		ID:       attrs[attrID],
		HeightPx: pxValue(props["height"]),
		Box:      boxStyleFromProps(props),
	}
}

func decodeSocial(n *html.Node, attrs map[string]string) Block {
	props := parseInlineStyle(attrs["style"])
	b := &Social{
		ID:          attrs[attrID],
		Mode:        SocialMode(attrs[attrMode]),
		Display:     SocialDisplay(attrs[attrDisplay]),
		Orientation: attrs[attrOrient],
		IconStyle:   attrs[attrIconSt],
		SizePx:      atoiOrZero(attrs[attrSize]),
		SpacingPx:   atoiOrZero(attrs[attrSpacing]),
		IconColor:   attrs[attrIconCol],
		Align:       props["text-align"],
		Box:         boxStyleFromProps(props),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "a" {
			continue
		}
		aAttrs := nodeAttrs(c)
		b.Links = append(b.Links, SocialLink{
			Platform: aAttrs[attrPlatform],
			URL:      aAttrs["href"],
			Label:    textContent(c),
		})
	}
	return b
}

// decodeLayout returns nil when the fragment carries no usable columns,
// in which case the caller degrades it to a Raw block.
func decodeLayout(n *html.Node, attrs map[string]string) Block {
	var colDivs []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "div" {
			colDivs = append(colDivs, c)
		}
	}
	if len(colDivs) == 0 {
		return nil
	}

	widths := parseWidths(attrs[attrWidths])
	if len(widths) != len(colDivs) || !ColumnsValid(widths) {
		widths = SplitColumns(len(colDivs))
	}

	columns := make([][]Block, len(colDivs))
	for i, col := range colDivs {
		columns[i] = parseNodes(childNodes(col))
	}

	return &Layout{
		ID:      attrs[attrID],
		Widths:  widths,
		Columns: columns,
		Box:     boxStyleFromProps(parseInlineStyle(attrs["style"])),
	}
}

func parseWidths(v string) []int {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	widths := make([]int, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || w < 1 {
			return nil
		}
		widths = append(widths, w)
	}
	return widths
}

func atoiOrZero(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
