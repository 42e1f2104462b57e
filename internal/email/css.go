package email

import (
	"strconv"
	"strings"
)

// inlineStyle builds a deterministic inline CSS declaration list. The
// serializer appends properties in a fixed order so identical documents
// always produce identical markup.
type inlineStyle struct {
	b strings.Builder
}

func (s *inlineStyle) add(name, value string) {
	if value == "" {
		return
	}
	if s.b.Len() > 0 {
		s.b.WriteByte(';')
	}
	s.b.WriteString(name)
	s.b.WriteByte(':')
	s.b.WriteString(value)
}

func (s *inlineStyle) addPx(name string, v int) {
	if v == 0 {
		return
	}
	s.add(name, strconv.Itoa(v)+"px")
}

func (s *inlineStyle) String() string { return s.b.String() }

// parseInlineStyle splits an inline declaration list into a property map.
// Malformed declarations are dropped rather than reported; the codec
// degrades gracefully on anything it cannot read.
func parseInlineStyle(style string) map[string]string {
	props := map[string]string{}
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(strings.ToLower(name))
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		props[name] = value
	}
	return props
}

// pxValue reads an integer pixel value such as "24px"; anything else
// yields 0 ("absent").
func pxValue(v string) int {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// textStyleCSS maps a TextStyle to its inline properties. Absent fields
// are omitted; the reading side resolves omissions against the per-kind
// default table, not the writer.
func textStyleCSS(s *inlineStyle, t TextStyle, includeAlign bool) {
	s.add("font-family", t.FontFamily)
	s.addPx("font-size", t.FontSizePx)
	s.add("font-weight", t.FontWeight)
	s.add("font-style", t.FontStyle)
	s.add("color", t.Color)
	if includeAlign {
		s.add("text-align", t.Align)
	}
	s.add("text-decoration", t.Decoration)
	s.add("background-color", t.Background)
	s.add("border", t.Border)
	s.add("padding", t.Padding)
}

func textStyleFromProps(props map[string]string, includeAlign bool) TextStyle {
	t := TextStyle{
		FontFamily: props["font-family"],
		FontSizePx: pxValue(props["font-size"]),
		FontWeight: props["font-weight"],
		FontStyle:  props["font-style"],
		Color:      props["color"],
		Decoration: props["text-decoration"],
		Background: props["background-color"],
		Border:     props["border"],
		Padding:    props["padding"],
	}
	if includeAlign {
		t.Align = props["text-align"]
	}
	return t
}

func boxStyleCSS(s *inlineStyle, b BoxStyle) {
	s.add("background-color", b.Background)
	s.add("border", b.Border)
	s.add("padding", b.Padding)
}

func boxStyleFromProps(props map[string]string) BoxStyle {
	return BoxStyle{
		Background: props["background-color"],
		Border:     props["border"],
		Padding:    props["padding"],
	}
}
