package sitehandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rushcms/rush-web/internal/cms"
)

func (h *Handler) Tag(w http.ResponseWriter, r *http.Request) {
	ctx := cms.WithPagePath(r.Context(), r.URL.Path)
	r = r.WithContext(ctx)

	slug := chi.URLParam(r, "slug")

	// Display name from the tag listing; the slug works as a fallback so
	// the page renders even when the listing is unavailable.
	name := slug
	if tags, err := h.client.Tags(ctx); err == nil {
		for _, t := range tags {
			if t.Slug == slug {
				name = t.Name
				break
			}
		}
	}

	entries, err := h.client.EntriesByTag(ctx, slug)
	if err != nil {
		h.logger.Warn(ctx, "tag listing unavailable", "tag", slug, "reason", err.Error())
		entries = nil
	}

	// Entry URLs need the collection path; tag listings are site-wide so
	// default everything into the blog.
	page := tagPage{
		basePage: h.basePage(r, pageMeta{Title: "Tagged " + name}),
		TagName:  name,
		Entries:  entryViews(entries, "/blog"),
	}

	h.render(w, r, http.StatusOK, "tag", page)
}
