// Package sitehandler renders the public website from CMS content. Every
// upstream read runs through the shared response cache under the request
// path, so the revalidation webhook can drop exactly the responses that
// built a page. Upstream failures degrade to a themed 404, an empty
// state, or the maintenance page; page handlers never answer 5xx for a
// read miss.
package sitehandler

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rushcms/rush-web/internal/blocks"
	"github.com/rushcms/rush-web/internal/cms"
	"github.com/rushcms/rush-web/internal/log"
	"github.com/rushcms/rush-web/internal/xerrors"
)

// pages rendered through the base layout, one parsed template set each
var pageTemplates = []string{
	"home", "collection", "entry", "tag", "links", "contact", "404",
}

type Handler struct {
	logger log.Logger
	client *cms.Client
	blocks *blocks.Registry
	opts   Options

	templates map[string]*template.Template
	static    http.Handler
}

func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	h := &Handler{
		logger:    opts.Logger,
		client:    opts.Client,
		blocks:    opts.Blocks,
		opts:      opts,
		templates: make(map[string]*template.Template),
	}

	for _, name := range pageTemplates {
		t, err := template.ParseFS(opts.TemplatesFS, "base.html", name+".html")
		if err != nil {
			return nil, xerrors.Wrapf(err, "sitehandler: parsing template %q", name)
		}
		h.templates[name] = t
	}

	h.static = http.StripPrefix("/static/", h.cacheControlled(
		http.FileServerFS(opts.StaticFS), opts.AssetCacheControl))
	return h, nil
}

// Routes mounts every public page route. GET/HEAD only; chi answers
// other methods through MethodNotAllowed.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/robots.txt", h.Robots)
	r.Get("/sitemap.xml", h.Sitemap)
	r.Get("/static/*", h.Static)
	r.Get("/links", h.Links)
	r.Get("/links/{key}", h.Links)
	r.Get("/l/{key}", h.LinkRedirect)
	r.Get("/contact", h.Contact)
	r.Get("/blog/tag/{slug}", h.Tag)
	r.Get("/{collection}", h.Collection)
	r.Get("/{collection}/{entry}", h.Entry)
}

func (h *Handler) Static(w http.ResponseWriter, r *http.Request) {
	h.static.ServeHTTP(w, r)
}

// NotFound is the catch-all for unmatched routes, also used by page
// handlers when a lookup misses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderNotFound(w, r)
}

// MethodNotAllowed hardens the page surface: everything here is GET/HEAD.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

// render executes one page template. A template failure at this point is
// a programming error, but the visitor still gets a page, not a blank 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := h.templates[page]
	if !ok {
		h.logger.Error(r.Context(), xerrors.Newf("no template %q", page), "page template missing")
		h.renderNotFound(w, r)
		return
	}

	// Render to a buffer first so a mid-render failure never leaks half a
	// page with a 200 status.
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error(r.Context(), err, "page render failed", "page", page)
		h.serveFallback(w, r, h.opts.Fallback404File, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", h.opts.HTMLCacheControl)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) renderNotFound(w http.ResponseWriter, r *http.Request) {
	if t, ok := h.templates["404"]; ok {
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, "base", notFoundPage{basePage: h.basePage(r, pageMeta{
			Title: "Page not found",
			Type:  "website",
		})}); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Cache-Control", h.opts.HTMLCacheControl)
			w.WriteHeader(http.StatusNotFound)
			_, _ = buf.WriteTo(w)
			return
		}
	}
	h.serveFallback(w, r, h.opts.Fallback404File, http.StatusNotFound)
}

// serveMaintenance answers 503 from the embedded maintenance page. Used
// when the CMS is unreachable and nothing is cached.
func (h *Handler) serveMaintenance(w http.ResponseWriter, r *http.Request) {
	h.serveFallback(w, r, h.opts.MaintenanceFile, http.StatusServiceUnavailable)
}

func (h *Handler) serveFallback(w http.ResponseWriter, r *http.Request, name string, status int) {
	if _, err := fs.Stat(h.opts.FallbackFS, name); err != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	serveFileWithStatus(w, r, h.opts.FallbackFS, name, status)
}

// statusOverrideWriter forces a fixed status code on whatever the inner
// handler writes. http.ServeFileFS always answers 200 for a file it can
// open; fallback pages need their real status (404, 503).
type statusOverrideWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusOverrideWriter) WriteHeader(int) {
	if w.wrote {
		return
	}
	w.wrote = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *statusOverrideWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(0)
	}
	return w.ResponseWriter.Write(b)
}

func serveFileWithStatus(w http.ResponseWriter, r *http.Request, fsys fs.FS, name string, status int) {
	// Strip conditional headers so ServeFileFS cannot answer 304 for an
	// error page.
	r2 := r.Clone(r.Context())
	r2.Header.Del("If-Modified-Since")
	r2.Header.Del("If-None-Match")
	r2.Header.Del("Range")
	http.ServeFileFS(&statusOverrideWriter{ResponseWriter: w, status: status}, r2, fsys, name)
}

func (h *Handler) cacheControlled(next http.Handler, policy string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", policy)
		next.ServeHTTP(w, r)
	})
}

// basePage fills the layout data shared by every page.
func (h *Handler) basePage(r *http.Request, meta pageMeta) basePage {
	if meta.Type == "" {
		meta.Type = "website"
	}
	if meta.Canonical == "" && h.opts.PublicBaseURL != "" {
		meta.Canonical = h.opts.PublicBaseURL + r.URL.Path
	}
	return basePage{
		SiteName: h.siteName(r),
		Meta:     meta,
		Nav:      h.nav(r),
		Year:     time.Now().Year(),
	}
}

func (h *Handler) siteName(r *http.Request) string {
	return h.client.SiteName(r.Context(), h.opts.SiteName)
}

// nav prefers a CMS navigation placed in the header; without one it
// falls back to the collection listing plus the contact page.
func (h *Handler) nav(r *http.Request) []navLink {
	ctx := r.Context()

	navs, err := h.client.Navigations(ctx)
	if err == nil {
		for _, n := range navs {
			if n.Location != "header" {
				continue
			}
			items := n.Items
			if len(items) == 0 {
				items, _ = h.client.NavigationItems(ctx, n.ID)
			}
			if len(items) > 0 {
				links := make([]navLink, 0, len(items))
				for _, it := range items {
					links = append(links, navLink{Title: it.Title, URL: it.URL, Target: it.Target})
				}
				return links
			}
		}
	}

	links := []navLink{}
	if cols, err := h.client.Collections(ctx); err == nil {
		for _, c := range cols {
			links = append(links, navLink{Title: c.Name, URL: "/" + c.Slug})
		}
	}
	links = append(links, navLink{Title: "Contact", URL: "/contact"})
	return links
}
