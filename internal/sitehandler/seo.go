package sitehandler

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/rushcms/rush-web/internal/cms"
)

func (h *Handler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", h.opts.OtherCacheControl)

	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Allow: /")
	fmt.Fprintln(w, "Disallow: /api/")
	if h.opts.PublicBaseURL != "" {
		fmt.Fprintf(w, "Sitemap: %s/sitemap.xml\n", h.opts.PublicBaseURL)
	}
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Sitemap lists the home page, every collection, and every published
// entry. Listings that fail upstream are simply left out; a partial
// sitemap beats none.
func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	if h.opts.PublicBaseURL == "" {
		h.renderNotFound(w, r)
		return
	}

	ctx := cms.WithPagePath(r.Context(), r.URL.Path)
	base := h.opts.PublicBaseURL

	set := sitemapURLSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  []sitemapURL{{Loc: base + "/"}},
	}

	cols, err := h.client.Collections(ctx)
	if err != nil {
		h.logger.Warn(ctx, "sitemap: collections unavailable", "reason", err.Error())
	}
	for _, col := range cols {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + "/" + col.Slug})

		entries, err := h.client.Entries(ctx, col.ID, cms.EntryParams{
			Status:  "published",
			PerPage: 100,
			Sort:    "published_at",
			Order:   "desc",
		})
		if err != nil {
			h.logger.Warn(ctx, "sitemap: entries unavailable", "collection", col.Slug, "reason", err.Error())
			continue
		}
		for _, e := range entries {
			u := sitemapURL{Loc: base + "/" + col.Slug + "/" + e.Slug}
			if e.UpdatedAt != "" {
				u.LastMod = e.UpdatedAt
			} else if e.PublishedAt != "" {
				u.LastMod = e.PublishedAt
			}
			set.URLs = append(set.URLs, u)
		}
	}
	set.URLs = append(set.URLs, sitemapURL{Loc: base + "/contact"})

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		h.logger.Error(ctx, err, "sitemap: encoding failed")
		h.renderNotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", h.opts.OtherCacheControl)
	fmt.Fprint(w, xml.Header)
	_, _ = w.Write(out)
	fmt.Fprintln(w)
}
