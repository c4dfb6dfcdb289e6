package blocks

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// richTextPolicy admits exactly the markup the rich text renderer emits.
// Anything smuggled through TipTap text nodes gets stripped here.
var richTextPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "strong", "em", "u", "s", "a",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"blockquote", "code", "pre", "hr", "div", "span",
	)
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("href", "title", "target", "rel").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(false)
	return p
}()

// textPolicy strips every tag; used on CMS text fields that are rendered
// as plain prose.
var textPolicy = bluemonday.StrictPolicy()

func sanitizeRichText(html string) string { return richTextPolicy.Sanitize(html) }

func sanitizeText(s string) string { return textPolicy.Sanitize(s) }

// safeURL admits http(s), mailto, and site-relative URLs. Everything else
// (javascript:, data:, ...) renders as empty.
func safeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "http", "https", "mailto":
		return raw
	case "":
		if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "#") {
			return raw
		}
	}
	return ""
}
