package email

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// Marker attributes identify block fragments in serialized markup. The
// parser recognizes exactly the shapes this file emits.
const (
	attrID       = "data-mc-id"
	attrType     = "data-mc-type"
	attrLinkKind = "data-mc-link-kind"
	attrFit      = "data-mc-fit"
	attrScale    = "data-mc-scale"
	attrText     = "data-mc-text"
	attrMode     = "data-mc-mode"
	attrDisplay  = "data-mc-display"
	attrOrient   = "data-mc-orientation"
	attrIconSt   = "data-mc-icon-style"
	attrSize     = "data-mc-size"
	attrSpacing  = "data-mc-spacing"
	attrIconCol  = "data-mc-icon-color"
	attrPlatform = "data-mc-platform"
	attrWidths   = "data-mc-widths"
	attrColumn   = "data-mc-column"
)

// Serialize renders the document's three sections to their portable
// markup form. Blocks are emitted in sequence order with fixed per-kind
// templates; the output is deterministic for a given document.
func Serialize(doc Document) Markup {
	return Markup{
		Header: serializeBlocks(doc.Header),
		Body:   serializeBlocks(doc.Body),
		Footer: serializeBlocks(doc.Footer),
	}
}

func serializeBlocks(blocks []Block) string {
	fragments := make([]string, 0, len(blocks))
	for _, b := range blocks {
		fragments = append(fragments, serializeBlock(b))
	}
	return strings.Join(fragments, "\n")
}

func serializeBlock(b Block) string {
	switch v := b.(type) {
	case *Heading:
		return serializeText(v.ID, TypeHeading, "h2", v.Text, v.Style, v.Link)
	case *Paragraph:
		return serializeText(v.ID, TypeParagraph, "p", v.Text, v.Style, v.Link)
	case *Button:
		return serializeButton(v)
	case *Logo:
		return serializeLogo(v)
	case *Image:
		return serializeImage(v)
	case *Divider:
		return serializeDivider(v)
	case *Spacer:
		return serializeSpacer(v)
	case *Social:
		return serializeSocial(v)
	case *Layout:
		return serializeLayout(v)
	case *Raw:
		return v.HTML
	}
	return ""
}

type attrWriter struct {
	b strings.Builder
}

func (w *attrWriter) attr(name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(&w.b, ` %s="%s"`, name, html.EscapeString(value))
}

func (w *attrWriter) attrInt(name string, v int) {
	if v == 0 {
		return
	}
	w.attr(name, strconv.Itoa(v))
}

func (w *attrWriter) String() string { return w.b.String() }

func linkAttrs(w *attrWriter, l Link) {
	w.attr("href", l.Href)
	if l.Kind != "" && l.Kind != LinkWeb {
		w.attr(attrLinkKind, string(l.Kind))
	}
	if l.NewTab {
		w.attr("target", "_blank")
	}
}

func serializeText(id string, t BlockType, tag, text string, style TextStyle, link Link) string {
	var css inlineStyle
	textStyleCSS(&css, style, true)

	var attrs attrWriter
	attrs.attr(attrID, id)
	attrs.attr(attrType, string(t))
	attrs.attr("style", css.String())

	inner := html.EscapeString(text)
	if !link.IsZero() {
		var la attrWriter
		linkAttrs(&la, link)
		inner = fmt.Sprintf(`<a%s style="color:inherit;text-decoration:inherit">%s</a>`, la.String(), inner)
	}
	return fmt.Sprintf("<%s%s>%s</%s>", tag, attrs.String(), inner, tag)
}

func serializeButton(b *Button) string {
	var wrapCSS inlineStyle
	wrapCSS.add("text-align", b.Style.Align)

	var wrap attrWriter
	wrap.attr(attrID, b.ID)
	wrap.attr(attrType, string(TypeButton))
	wrap.attr("style", wrapCSS.String())

	var css inlineStyle
	css.add("display", "inline-block")
	textStyleCSS(&css, b.Style, false)

	var la attrWriter
	linkAttrs(&la, b.Link)
	la.attr("style", css.String())

	return fmt.Sprintf(`<div%s><a%s>%s</a></div>`, wrap.String(), la.String(), html.EscapeString(b.Text))
}

func serializeImage(b *Image) string {
	var wrapCSS inlineStyle
	boxStyleCSS(&wrapCSS, b.Box)
	wrapCSS.add("text-align", b.Align)

	var wrap attrWriter
	wrap.attr(attrID, b.ID)
	wrap.attr(attrType, string(TypeImage))
	wrap.attr(attrFit, string(b.Fit))
	if b.Fit == FitScale {
		wrap.attrInt(attrScale, b.ScalePct)
	}
	wrap.attr("style", wrapCSS.String())

	img := imageTag(b.Src, b.Alt, b.Fit, b.ScalePct)
	if !b.Link.IsZero() {
		var la attrWriter
		linkAttrs(&la, b.Link)
		img = fmt.Sprintf(`<a%s>%s</a>`, la.String(), img)
	}
	return fmt.Sprintf(`<div%s>%s</div>`, wrap.String(), img)
}

func imageTag(src, alt string, fit ImageFit, scalePct int) string {
	var css inlineStyle
	switch fit {
	case FitFill:
		css.add("width", "100%")
	case FitScale:
		if scalePct > 0 {
			css.add("width", strconv.Itoa(scalePct)+"%")
		}
	}

	var attrs attrWriter
	attrs.attr("src", src)
	attrs.attr("alt", alt)
	attrs.attr("style", css.String())
	return fmt.Sprintf(`<img%s>`, attrs.String())
}

func serializeLogo(b *Logo) string {
	var wrapCSS inlineStyle
	boxStyleCSS(&wrapCSS, b.Box)
	wrapCSS.add("text-align", b.Style.Align)

	var wrap attrWriter
	wrap.attr(attrID, b.ID)
	wrap.attr(attrType, string(TypeLogo))
	wrap.attr(attrFit, string(b.Fit))
	if b.Fit == FitScale {
		wrap.attrInt(attrScale, b.ScalePct)
	}

	var inner string
	if b.Src != "" {
		// Image mode keeps the wordmark text on a marker attribute so a
		// round trip does not lose it.
		wrap.attr(attrText, b.Text)
		inner = imageTag(b.Src, b.Alt, b.Fit, b.ScalePct)
	} else {
		var css inlineStyle
		textStyleCSS(&css, b.Style, false)
		var span attrWriter
		span.attr("style", css.String())
		wrap.attr("data-mc-alt", b.Alt)
		inner = fmt.Sprintf(`<span%s>%s</span>`, span.String(), html.EscapeString(b.Text))
	}
	wrap.attr("style", wrapCSS.String())

	if !b.Link.IsZero() {
		var la attrWriter
		linkAttrs(&la, b.Link)
		inner = fmt.Sprintf(`<a%s>%s</a>`, la.String(), inner)
	}
	return fmt.Sprintf(`<div%s>%s</div>`, wrap.String(), inner)
}

func serializeDivider(b *Divider) string {
	var wrapCSS inlineStyle
	boxStyleCSS(&wrapCSS, b.Box)

	var wrap attrWriter
	wrap.attr(attrID, b.ID)
	wrap.attr(attrType, string(TypeDivider))
	wrap.attr("style", wrapCSS.String())

	var hrCSS inlineStyle
	hrCSS.add("border", "none")
	hrCSS.addPx("border-top-width", b.ThicknessPx)
	hrCSS.add("border-top-style", b.Line)
	hrCSS.add("border-top-color", b.Color)
	hrCSS.add("margin", "0")

	return fmt.Sprintf(`<div%s><hr style="%s"></div>`, wrap.String(), hrCSS.String())
}

func serializeSpacer(b *Spacer) string {
	var css inlineStyle
	boxStyleCSS(&css, b.Box)
	css.addPx("height", b.HeightPx)

	var wrap attrWriter
	wrap.attr(attrID, b.ID)
	wrap.attr(attrType, string(TypeSpacer))
	wrap.attr("style", css.String())
	return fmt.Sprintf(`<div%s></div>`, wrap.String())
}

func serializeSocial(b *Social) string {
	var css inlineStyle
	boxStyleCSS(&css, b.Box)
	css.add("text-align", b.Align)

	var wrap attrWriter
	wrap.attr(attrID, b.ID)
	wrap.attr(attrType, string(TypeSocial))
	wrap.attr(attrMode, string(b.Mode))
	wrap.attr(attrDisplay, string(b.Display))
	wrap.attr(attrOrient, b.Orientation)
	wrap.attr(attrIconSt, b.IconStyle)
	wrap.attrInt(attrSize, b.SizePx)
	wrap.attrInt(attrSpacing, b.SpacingPx)
	wrap.attr(attrIconCol, b.IconColor)
	wrap.attr("style", css.String())

	var inner strings.Builder
	for _, l := range b.Links {
		var la attrWriter
		la.attr("href", l.URL)
		la.attr(attrPlatform, l.Platform)
		fmt.Fprintf(&inner, `<a%s>%s</a>`, la.String(), html.EscapeString(l.Label))
	}
	return fmt.Sprintf(`<div%s>%s</div>`, wrap.String(), inner.String())
}

func serializeLayout(b *Layout) string {
	var css inlineStyle
	boxStyleCSS(&css, b.Box)
	css.add("display", "flex")

	widths := make([]string, len(b.Widths))
	for i, w := range b.Widths {
		widths[i] = strconv.Itoa(w)
	}

	var wrap attrWriter
	wrap.attr(attrID, b.ID)
	wrap.attr(attrType, string(TypeLayout))
	wrap.attr(attrWidths, strings.Join(widths, ","))
	wrap.attr("style", css.String())

	var inner strings.Builder
	for i, w := range b.Widths {
		pct := float64(w) / GridUnits * 100
		var col attrWriter
		col.attr(attrColumn, strconv.Itoa(i+1))
		col.attr("style", "width:"+strconv.FormatFloat(pct, 'f', 4, 64)+"%")

		var children string
		if i < len(b.Columns) {
			children = serializeBlocks(b.Columns[i])
		}
		fmt.Fprintf(&inner, `<div%s>%s</div>`, col.String(), children)
	}
	return fmt.Sprintf(`<div%s>%s</div>`, wrap.String(), inner.String())
}
