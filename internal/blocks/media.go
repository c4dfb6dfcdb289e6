package blocks

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/rushcms/rush-web/internal/xerrors"
)

type imageRenderer struct{}

func (imageRenderer) Type() string { return "image" }

func (imageRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		Image struct {
			URL string `json:"url"`
			Alt string `json:"alt,omitempty"`
		} `json:"image"`
		Alt       string `json:"alt,omitempty"`
		Caption   string `json:"caption,omitempty"`
		Alignment string `json:"alignment,omitempty"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "image data")
	}
	src := safeURL(d.Image.URL)
	if src == "" {
		return "", nil
	}

	switch d.Alignment {
	case "left", "right":
	default:
		d.Alignment = "center"
	}
	alt := d.Alt
	if alt == "" {
		alt = d.Image.Alt
	}
	if alt == "" {
		alt = d.Caption
	}
	if alt == "" {
		alt = "Image"
	}

	var b strings.Builder
	b.WriteString(`<figure class="block-image block-image-` + d.Alignment + `"><img src="`)
	b.WriteString(template.HTMLEscapeString(src))
	b.WriteString(`" alt="`)
	b.WriteString(template.HTMLEscapeString(alt))
	b.WriteString(`" loading="lazy">`)
	writeCaption(&b, d.Caption)
	b.WriteString(`</figure>`)
	return template.HTML(b.String()), nil
}

type galleryImage struct {
	ID    int    `json:"id,omitempty"`
	URL   string `json:"url"`
	Thumb string `json:"thumb,omitempty"`
	Alt   string `json:"alt,omitempty"`
}

type galleryRenderer struct{}

func (galleryRenderer) Type() string { return "gallery" }

// NextIndex advances cyclically through n gallery images.
func NextIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	return (i + 1) % n
}

// PrevIndex steps back cyclically through n gallery images.
func PrevIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	if i == 0 {
		return n - 1
	}
	return i - 1
}

func (galleryRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		Images []galleryImage `json:"images"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "gallery data")
	}

	imgs := d.Images[:0]
	for _, im := range d.Images {
		if safeURL(im.URL) != "" {
			imgs = append(imgs, im)
		}
	}
	if len(imgs) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(`<div class="block-gallery"><div class="block-gallery-grid">`)
	for i, im := range imgs {
		thumb := im.Thumb
		if safeURL(thumb) == "" {
			thumb = im.URL
		}
		alt := im.Alt
		if alt == "" {
			alt = fmt.Sprintf("Gallery image %d", i+1)
		}
		fmt.Fprintf(&b, `<a class="block-gallery-item" href="#gallery-%d"><img src="%s" alt="%s" loading="lazy"></a>`,
			i,
			template.HTMLEscapeString(thumb),
			template.HTMLEscapeString(alt))
	}
	b.WriteString(`</div>`)

	// CSS :target lightbox; prev/next wrap around the set
	n := len(imgs)
	for i, im := range imgs {
		alt := im.Alt
		if alt == "" {
			alt = fmt.Sprintf("Image %d", i+1)
		}
		fmt.Fprintf(&b, `<div class="block-gallery-lightbox" id="gallery-%d">`, i)
		fmt.Fprintf(&b, `<a class="block-gallery-close" href="#" aria-label="Close">&times;</a>`)
		fmt.Fprintf(&b, `<a class="block-gallery-prev" href="#gallery-%d" aria-label="Previous">&lsaquo;</a>`, PrevIndex(i, n))
		fmt.Fprintf(&b, `<img src="%s" alt="%s">`,
			template.HTMLEscapeString(im.URL), template.HTMLEscapeString(alt))
		fmt.Fprintf(&b, `<a class="block-gallery-next" href="#gallery-%d" aria-label="Next">&rsaquo;</a>`, NextIndex(i, n))
		fmt.Fprintf(&b, `<span class="block-gallery-counter">%d / %d</span></div>`, i+1, n)
	}
	b.WriteString(`</div>`)
	return template.HTML(b.String()), nil
}

type videoRenderer struct{}

func (videoRenderer) Type() string { return "video" }

func (videoRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		URL     string `json:"url"`
		Poster  string `json:"poster,omitempty"`
		Caption string `json:"caption,omitempty"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "video data")
	}
	src := safeURL(d.URL)
	if src == "" {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(`<figure class="block-video"><video src="`)
	b.WriteString(template.HTMLEscapeString(src))
	b.WriteString(`" controls preload="metadata"`)
	if poster := safeURL(d.Poster); poster != "" {
		b.WriteString(` poster="` + template.HTMLEscapeString(poster) + `"`)
	}
	b.WriteString(`></video>`)
	writeCaption(&b, d.Caption)
	b.WriteString(`</figure>`)
	return template.HTML(b.String()), nil
}

type youtubeRenderer struct{}

func (youtubeRenderer) Type() string { return "youtube" }

// youtubeEmbedURL extracts the 11-character video id from watch and short
// link forms. Anything else renders nothing.
func youtubeEmbedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	var id string
	switch {
	case u.Hostname() == "youtu.be":
		id = strings.TrimPrefix(u.Path, "/")
	case strings.Contains(u.Hostname(), "youtube.com"):
		id = u.Query().Get("v")
	}
	if !validYouTubeID(id) {
		return ""
	}
	return "https://www.youtube.com/embed/" + id
}

func validYouTubeID(id string) bool {
	if len(id) != 11 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func (youtubeRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		URL     string `json:"url"`
		Title   string `json:"title,omitempty"`
		Caption string `json:"caption,omitempty"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "youtube data")
	}
	embed := youtubeEmbedURL(d.URL)
	if embed == "" {
		return "", nil
	}
	title := d.Title
	if title == "" {
		title = "YouTube video"
	}

	var b strings.Builder
	b.WriteString(`<figure class="block-youtube"><div class="block-embed-frame block-embed-16x9"><iframe src="`)
	b.WriteString(template.HTMLEscapeString(embed))
	b.WriteString(`" title="`)
	b.WriteString(template.HTMLEscapeString(title))
	b.WriteString(`" allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture" allowfullscreen></iframe></div>`)
	writeCaption(&b, d.Caption)
	b.WriteString(`</figure>`)
	return template.HTML(b.String()), nil
}

type embedRenderer struct{}

func (embedRenderer) Type() string { return "embed" }

func (embedRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		URL         string `json:"url"`
		Title       string `json:"title,omitempty"`
		Caption     string `json:"caption,omitempty"`
		AspectRatio string `json:"aspectRatio,omitempty"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "embed data")
	}
	src := safeURL(d.URL)
	if src == "" {
		return "", nil
	}

	ratio := "16x9"
	if d.AspectRatio == "4/3" {
		ratio = "4x3"
	}
	title := d.Title
	if title == "" {
		title = "Embedded content"
	}

	var b strings.Builder
	b.WriteString(`<figure class="block-embed"><div class="block-embed-frame block-embed-` + ratio + `"><iframe src="`)
	b.WriteString(template.HTMLEscapeString(src))
	b.WriteString(`" title="`)
	b.WriteString(template.HTMLEscapeString(title))
	b.WriteString(`" allowfullscreen></iframe></div>`)
	writeCaption(&b, d.Caption)
	b.WriteString(`</figure>`)
	return template.HTML(b.String()), nil
}

type bookmarkRenderer struct{}

func (bookmarkRenderer) Type() string { return "bookmark" }

// bookmarkDomain shows the link target's host without a leading www.
func bookmarkDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func (bookmarkRenderer) Render(_ context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		URL         string `json:"url"`
		Title       string `json:"title,omitempty"`
		Description string `json:"description,omitempty"`
		Image       string `json:"image,omitempty"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "bookmark data")
	}
	href := safeURL(d.URL)
	if href == "" {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(`<a class="block-bookmark" href="`)
	b.WriteString(template.HTMLEscapeString(href))
	b.WriteString(`" target="_blank" rel="noopener noreferrer"><span class="block-bookmark-body">`)
	if d.Title != "" {
		b.WriteString(`<span class="block-bookmark-title">` + template.HTMLEscapeString(d.Title) + `</span>`)
	}
	if d.Description != "" {
		b.WriteString(`<span class="block-bookmark-desc">` + template.HTMLEscapeString(d.Description) + `</span>`)
	}
	b.WriteString(`<span class="block-bookmark-domain">` + template.HTMLEscapeString(bookmarkDomain(d.URL)) + `</span></span>`)
	if img := safeURL(d.Image); img != "" {
		b.WriteString(`<span class="block-bookmark-thumb"><img src="` + template.HTMLEscapeString(img) + `" alt="" loading="lazy"></span>`)
	}
	b.WriteString(`</a>`)
	return template.HTML(b.String()), nil
}

func writeCaption(b *strings.Builder, caption string) {
	if caption == "" {
		return
	}
	b.WriteString(`<figcaption>` + template.HTMLEscapeString(caption) + `</figcaption>`)
}
