package blocks

import (
	"context"
	"encoding/json"
	"html/template"
	"strings"

	"github.com/rushcms/rush-web/internal/xerrors"
)

type paragraphRenderer struct{}

func (paragraphRenderer) Type() string { return "paragraph" }

func (paragraphRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "paragraph data")
	}
	if d.Content == "" {
		return "", nil
	}
	return template.HTML(`<p class="block-paragraph">` + sanitizeText(d.Content) + `</p>`), nil
}

type quoteRenderer struct{}

func (quoteRenderer) Type() string { return "quote" }

func (quoteRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		Content string `json:"content"`
		Author  string `json:"author,omitempty"`
		Cite    string `json:"cite,omitempty"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "quote data")
	}
	if d.Content == "" {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(`<blockquote class="block-quote"><p>`)
	b.WriteString(template.HTMLEscapeString(d.Content))
	b.WriteString(`</p>`)
	if d.Author != "" {
		b.WriteString(`<footer><cite>`)
		b.WriteString(template.HTMLEscapeString(d.Author))
		if d.Cite != "" {
			b.WriteString(`, <span class="block-quote-source">`)
			b.WriteString(template.HTMLEscapeString(d.Cite))
			b.WriteString(`</span>`)
		}
		b.WriteString(`</cite></footer>`)
	}
	b.WriteString(`</blockquote>`)
	return template.HTML(b.String()), nil
}

// admonitionVariant validates the callout/alert style, defaulting to info.
func admonitionVariant(v string) string {
	switch v {
	case "info", "warning", "success", "error":
		return v
	}
	return "info"
}

type calloutRenderer struct{}

func (calloutRenderer) Type() string { return "callout" }

func (calloutRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		Type    string `json:"type,omitempty"`
		Title   string `json:"title,omitempty"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "callout data")
	}
	if d.Content == "" {
		return "", nil
	}

	variant := admonitionVariant(d.Type)
	var b strings.Builder
	b.WriteString(`<div class="block-callout block-callout-` + variant + `">`)
	if d.Title != "" {
		b.WriteString(`<p class="block-callout-title">`)
		b.WriteString(template.HTMLEscapeString(d.Title))
		b.WriteString(`</p>`)
	}
	b.WriteString(`<div class="block-callout-content">`)
	b.WriteString(sanitizeText(d.Content))
	b.WriteString(`</div></div>`)
	return template.HTML(b.String()), nil
}

type alertRenderer struct{}

func (alertRenderer) Type() string { return "alert" }

func (alertRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		Type    string `json:"type,omitempty"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "alert data")
	}
	if d.Content == "" {
		return "", nil
	}
	variant := admonitionVariant(d.Type)
	return template.HTML(`<div class="block-alert block-alert-` + variant + `" role="alert">` +
		sanitizeText(d.Content) + `</div>`), nil
}

type toggleRenderer struct{}

func (toggleRenderer) Type() string { return "toggle" }

func (toggleRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "toggle data")
	}
	if d.Title == "" || d.Content == "" {
		return "", nil
	}
	return template.HTML(`<details class="block-toggle"><summary>` +
		template.HTMLEscapeString(d.Title) + `</summary><div class="block-toggle-content">` +
		sanitizeText(d.Content) + `</div></details>`), nil
}

type dividerRenderer struct{}

func (dividerRenderer) Type() string { return "divider" }

func (dividerRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		Style string `json:"style,omitempty"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "divider data")
	}
	switch d.Style {
	case "dashed", "dotted", "double":
	default:
		d.Style = "solid"
	}
	return template.HTML(`<hr class="block-divider block-divider-` + d.Style + `">`), nil
}

type codeRenderer struct{}

func (codeRenderer) Type() string { return "code" }

func (codeRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		Code     string `json:"code"`
		Language string `json:"language,omitempty"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "code data")
	}
	if d.Code == "" {
		return "", nil
	}
	lang := d.Language
	if lang == "" {
		lang = "code"
	}

	var b strings.Builder
	b.WriteString(`<div class="block-code"><div class="block-code-header"><span class="block-code-lang">`)
	b.WriteString(template.HTMLEscapeString(lang))
	b.WriteString(`</span><button type="button" class="block-code-copy" data-copy>Copy</button></div><pre><code>`)
	b.WriteString(template.HTMLEscapeString(d.Code))
	b.WriteString(`</code></pre></div>`)
	return template.HTML(b.String()), nil
}

type buttonRenderer struct{}

func (buttonRenderer) Type() string { return "button" }

func (buttonRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		Text         string `json:"text"`
		URL          string `json:"url"`
		Variant      string `json:"variant,omitempty"`
		Size         string `json:"size,omitempty"`
		OpenInNewTab bool   `json:"openInNewTab,omitempty"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "button data")
	}
	href := safeURL(d.URL)
	if d.Text == "" || href == "" {
		return "", nil
	}

	switch d.Variant {
	case "secondary", "outline", "ghost":
	default:
		d.Variant = "primary"
	}
	switch d.Size {
	case "sm", "lg":
	default:
		d.Size = "md"
	}

	var b strings.Builder
	b.WriteString(`<div class="block-button"><a class="btn btn-` + d.Variant + ` btn-` + d.Size + `" href="`)
	b.WriteString(template.HTMLEscapeString(href))
	b.WriteString(`"`)
	if d.OpenInNewTab {
		b.WriteString(` target="_blank" rel="noopener noreferrer"`)
	}
	b.WriteString(`>`)
	b.WriteString(template.HTMLEscapeString(d.Text))
	b.WriteString(`</a></div>`)
	return template.HTML(b.String()), nil
}
