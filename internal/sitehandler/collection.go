package sitehandler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rushcms/rush-web/internal/cms"
)

const defaultPerPage = 10

func (h *Handler) Collection(w http.ResponseWriter, r *http.Request) {
	ctx := cms.WithPagePath(r.Context(), r.URL.Path)
	r = r.WithContext(ctx)

	slug := chi.URLParam(r, "collection")

	col, err := h.client.Collection(ctx, slug)
	if err != nil {
		h.renderNotFound(w, r)
		return
	}

	q := r.URL.Query()
	pageNum := 1
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 1 {
		pageNum = n
	}
	perPage := col.ItemsPerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	params := cms.EntryParams{
		Status:   "published",
		PerPage:  perPage,
		Page:     pageNum,
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Search:   q.Get("q"),
		Sort:     "published_at",
		Order:    "desc",
	}

	// A failed listing is an empty page, not an error page.
	entries, err := h.client.Entries(ctx, col.ID, params)
	if err != nil {
		h.logger.Warn(ctx, "collection listing unavailable", "collection", slug, "reason", err.Error())
		entries = nil
	}

	basePath := "/" + col.Slug
	page := collectionPage{
		basePage: h.basePage(r, pageMeta{
			Title:       col.Name,
			Description: col.Description,
		}),
		Collection: col,
		BasePath:   basePath,
		Entries:    entryViews(entries, basePath),
		Query:      params.Search,
		Category:   params.Category,
	}

	if pageNum > 1 {
		page.PrevURL = listingURL(basePath, params, pageNum-1)
	}
	if len(entries) == perPage {
		page.NextURL = listingURL(basePath, params, pageNum+1)
	}

	h.render(w, r, http.StatusOK, "collection", page)
}

// listingURL rebuilds a listing link for another page number, keeping
// the active filters.
func listingURL(basePath string, params cms.EntryParams, pageNum int) string {
	q := url.Values{}
	if pageNum > 1 {
		q.Set("page", strconv.Itoa(pageNum))
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.Tag != "" {
		q.Set("tag", params.Tag)
	}
	if params.Search != "" {
		q.Set("q", params.Search)
	}
	if enc := q.Encode(); enc != "" {
		return basePath + "?" + enc
	}
	return basePath
}
