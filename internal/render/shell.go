// Package render turns an editor document into a self-contained HTML email
// and, on the worker side, into a JPEG thumbnail.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"mailcanvas/internal/email"
)

// emailShellTemplate 是邮件的外壳模板。
// 三段片段由序列化器生成（或为用户保留的原样片段），必须原文注入。
const emailShellTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body {
            margin: 0;
            padding: 0;
            background-color: {{.BackgroundColor}};
            font-family: {{.FontFamily}};
            color: {{.TextColor}};
            -webkit-text-size-adjust: 100%;
        }
        .email-canvas {
            width: {{.ContentWidthPx}}px;
            max-width: 100%;
            margin: 0 auto;
            background-color: #ffffff;
        }
        .email-section {
            padding: 0;
        }
        img {
            border: 0;
            display: block;
            max-width: 100%;
        }
        a {
            color: inherit;
        }
    </style>
</head>
<body>
    <div class="email-canvas">
        <div class="email-section" data-section="header">{{.Header}}</div>
        <div class="email-section" data-section="body">{{.Body}}</div>
        <div class="email-section" data-section="footer">{{.Footer}}</div>
    </div>
</body>
</html>
`

var emailShell = template.Must(template.New("email").Parse(emailShellTemplate))

type shellData struct {
	BackgroundColor template.CSS
	FontFamily      template.CSS
	TextColor       template.CSS
	ContentWidthPx  int
	Header          template.HTML
	Body            template.HTML
	Footer          template.HTML
}

// EmailHTML 将文档序列化并包进邮件外壳，返回完整 HTML。
// 文档样式缺省字段回退到全局默认样式。
func EmailHTML(doc email.Document) (string, error) {
	style := doc.Style
	if style.BackgroundColor == "" {
		style.BackgroundColor = email.DefaultStyle.BackgroundColor
	}
	if style.ContentWidthPx <= 0 {
		style.ContentWidthPx = email.DefaultStyle.ContentWidthPx
	}
	if style.FontFamily == "" {
		style.FontFamily = email.DefaultStyle.FontFamily
	}
	if style.TextColor == "" {
		style.TextColor = email.DefaultStyle.TextColor
	}

	markup := email.Serialize(doc)

	var buf bytes.Buffer
	err := emailShell.Execute(&buf, shellData{
		BackgroundColor: template.CSS(style.BackgroundColor),
		FontFamily:      template.CSS(style.FontFamily),
		TextColor:       template.CSS(style.TextColor),
		ContentWidthPx:  style.ContentWidthPx,
		Header:          template.HTML(markup.Header),
		Body:            template.HTML(markup.Body),
		Footer:          template.HTML(markup.Footer),
	})
	if err != nil {
		return "", fmt.Errorf("execute email shell: %w", err)
	}
	return buf.String(), nil
}
