package email

// Per-kind default payloads. These are the values a freshly dropped block
// starts with, and the values the rendering shell falls back to for style
// fields a document leaves absent. They are fixed here rather than spread
// across the renderer so the writing and reading sides agree.

// DefaultStyle is the document-level fallback.
var DefaultStyle = DocumentStyle{
	BackgroundColor: "#f4f4f5",
	ContentWidthPx:  600,
	FontFamily:      "Helvetica, Arial, sans-serif",
	TextColor:       "#1f2937",
}

func defaultHeading(id string) *Heading {
	return &Heading{
		ID:   id,
		Text: "Your headline",
		Style: TextStyle{
			FontSizePx: 28,
			FontWeight: "bold",
			Color:      "#111827",
			Align:      "left",
		},
	}
}

func defaultParagraph(id string) *Paragraph {
	return &Paragraph{
		ID:   id,
		Text: "Write your message here.",
		Style: TextStyle{
			FontSizePx: 16,
			Color:      "#374151",
			Align:      "left",
		},
	}
}

func defaultButton(id string) *Button {
	return &Button{
		ID:   id,
		Text: "Call to action",
		Style: TextStyle{
			FontSizePx: 16,
			Color:      "#ffffff",
			Background: "#2563eb",
			Align:      "center",
			Padding:    "12px 24px",
		},
		Link: Link{Href: "https://example.com", Kind: LinkWeb},
	}
}

func defaultLogo(id string) *Logo {
	return &Logo{
		ID:   id,
		Text: "Your brand",
		Alt:  "logo",
		Style: TextStyle{
			FontSizePx: 22,
			FontWeight: "bold",
			Align:      "left",
		},
		Fit: FitOriginal,
	}
}

func defaultImage(id string) *Image {
	return &Image{
		ID:    id,
		Alt:   "",
		Fit:   FitFill,
		Align: "center",
	}
}

func defaultDivider(id string) *Divider {
	return &Divider{
		ID:          id,
		Line:        "solid",
		Color:       "#e5e7eb",
		ThicknessPx: 1,
		Box:         BoxStyle{Padding: "8px 0"},
	}
}

func defaultSpacer(id string) *Spacer {
	return &Spacer{ID: id, HeightPx: 24}
}

func defaultSocial(id string) *Social {
	return &Social{
		ID:   id,
		Mode: SocialFollow,
		Links: []SocialLink{
			{Platform: "facebook", URL: "https://facebook.com", Label: "Facebook"},
			{Platform: "x", URL: "https://x.com", Label: "X"},
			{Platform: "instagram", URL: "https://instagram.com", Label: "Instagram"},
		},
		Display:     DisplayIcons,
		Orientation: "horizontal",
		SizePx:      24,
		SpacingPx:   8,
		Align:       "center",
	}
}

func defaultLayout(id string, columns int) *Layout {
	if columns < 1 {
		columns = DefaultLayoutColumns
	}
	widths := SplitColumns(columns)
	return &Layout{
		ID:      id,
		Widths:  widths,
		Columns: make([][]Block, len(widths)),
	}
}
