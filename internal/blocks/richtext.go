package blocks

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/rushcms/rush-web/internal/xerrors"
)

// tipTapNode is one node of the editor document tree.
type tipTapNode struct {
	Type    string          `json:"type"`
	Content []tipTapNode    `json:"content,omitempty"`
	Text    string          `json:"text,omitempty"`
	Marks   []tipTapMark    `json:"marks,omitempty"`
	Attrs   json.RawMessage `json:"attrs,omitempty"`
}

type tipTapMark struct {
	Type  string `json:"type"`
	Attrs struct {
		Href   string `json:"href,omitempty"`
		Target string `json:"target,omitempty"`
	} `json:"attrs,omitempty"`
}

type richTextData struct {
	// Content arrives either as an embedded document object or as a
	// JSON string holding one.
	Content json.RawMessage `json:"content"`
}

type richTextRenderer struct{}

func (richTextRenderer) Type() string { return "richtext" }

func (richTextRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d richTextData
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "richtext data")
	}
	if len(d.Content) == 0 {
		return "", nil
	}

	raw := d.Content
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", xerrors.Wrap(err, "richtext content string")
		}
		raw = []byte(s)
	}

	var doc tipTapNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", xerrors.Wrap(err, "richtext document")
	}
	if len(doc.Content) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(`<div class="richtext">`)
	for _, n := range doc.Content {
		renderTipTapNode(&b, n)
	}
	b.WriteString(`</div>`)
	return template.HTML(sanitizeRichText(b.String())), nil
}

func renderTipTapNode(b *strings.Builder, n tipTapNode) {
	if n.Type == "text" {
		renderTipTapText(b, n)
		return
	}

	children := func() {
		for _, c := range n.Content {
			renderTipTapNode(b, c)
		}
	}

	switch n.Type {
	case "paragraph":
		b.WriteString("<p>")
		children()
		b.WriteString("</p>")
	case "heading":
		level := headingLevel(n.Attrs)
		fmt.Fprintf(b, "<h%d>", level)
		children()
		fmt.Fprintf(b, "</h%d>", level)
	case "bulletList":
		b.WriteString("<ul>")
		children()
		b.WriteString("</ul>")
	case "orderedList":
		b.WriteString("<ol>")
		children()
		b.WriteString("</ol>")
	case "listItem":
		b.WriteString("<li>")
		children()
		b.WriteString("</li>")
	case "blockquote":
		b.WriteString("<blockquote>")
		children()
		b.WriteString("</blockquote>")
	case "codeBlock":
		b.WriteString("<pre><code>")
		children()
		b.WriteString("</code></pre>")
	case "horizontalRule":
		b.WriteString("<hr>")
	case "hardBreak":
		b.WriteString("<br>")
	default:
		// unknown inline container, keep its children
		b.WriteString("<div>")
		children()
		b.WriteString("</div>")
	}
}

// renderTipTapText wraps the escaped text in its marks, innermost first,
// matching the editor's own serialization order.
func renderTipTapText(b *strings.Builder, n tipTapNode) {
	if n.Text == "" {
		return
	}
	out := template.HTMLEscapeString(n.Text)
	for _, m := range n.Marks {
		switch m.Type {
		case "bold":
			out = "<strong>" + out + "</strong>"
		case "italic":
			out = "<em>" + out + "</em>"
		case "code":
			out = "<code>" + out + "</code>"
		case "strike":
			out = "<s>" + out + "</s>"
		case "underline":
			out = "<u>" + out + "</u>"
		case "link":
			href := safeURL(m.Attrs.Href)
			if href == "" {
				continue
			}
			target := ""
			if m.Attrs.Target != "" {
				target = ` target="` + template.HTMLEscapeString(m.Attrs.Target) + `"`
			}
			out = `<a href="` + template.HTMLEscapeString(href) + `"` + target +
				` rel="noopener noreferrer">` + out + `</a>`
		}
	}
	b.WriteString(out)
}

func headingLevel(attrs json.RawMessage) int {
	var a struct {
		Level int `json:"level"`
	}
	if len(attrs) > 0 {
		_ = json.Unmarshal(attrs, &a)
	}
	if a.Level < 1 || a.Level > 6 {
		return 2
	}
	return a.Level
}
