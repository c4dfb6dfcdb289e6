package sitehandler

import (
	"net/http"

	"github.com/rushcms/rush-web/internal/cms"
)

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := cms.WithPagePath(r.Context(), r.URL.Path)
	r = r.WithContext(ctx)

	cols, err := h.client.Collections(ctx)
	if err != nil {
		// No collection listing means no site to render. The maintenance
		// page is the honest answer until the CMS comes back.
		if cms.IsUnauthorized(err) {
			h.logger.Error(ctx, err, "home: cms rejected the api token")
		} else {
			h.logger.Warn(ctx, "home: collections unavailable", "reason", err.Error())
		}
		h.serveMaintenance(w, r)
		return
	}

	page := homePage{
		basePage:    h.basePage(r, pageMeta{}),
		Collections: cols,
	}
	page.Meta.Title = page.SiteName

	if col, ok := featuredCollection(cols); ok {
		entries, err := h.client.Entries(ctx, col.ID, cms.EntryParams{
			Status:  "published",
			PerPage: 5,
			Sort:    "published_at",
			Order:   "desc",
		})
		if err != nil {
			h.logger.Debug(ctx, "home: recent entries unavailable", "collection", col.Slug)
		} else {
			page.Recent = entryViews(entries, "/"+col.Slug)
		}
	}

	h.render(w, r, http.StatusOK, "home", page)
}

// featuredCollection picks where the home page's "Latest" strip comes
// from: the blog when there is one, the first collection otherwise.
func featuredCollection(cols []cms.Collection) (cms.Collection, bool) {
	for _, c := range cols {
		if c.Slug == "blog" {
			return c, true
		}
	}
	if len(cols) > 0 {
		return cols[0], true
	}
	return cms.Collection{}, false
}
