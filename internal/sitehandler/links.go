package sitehandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rushcms/rush-web/internal/cms"
)

// defaultLinkPageKey serves /links without a key segment.
const defaultLinkPageKey = "default"

func (h *Handler) Links(w http.ResponseWriter, r *http.Request) {
	ctx := cms.WithPagePath(r.Context(), r.URL.Path)
	r = r.WithContext(ctx)

	key := chi.URLParam(r, "key")
	if key == "" {
		key = defaultLinkPageKey
	}

	lp, err := h.client.LinkPage(ctx, key)
	if err != nil {
		h.renderNotFound(w, r)
		return
	}

	page := linksPage{
		basePage: h.basePage(r, pageMeta{
			Title:       lp.Title,
			Description: lp.Description,
			Image:       lp.Avatar,
		}),
		Page:            lp,
		Theme:           stringOr(lp.Settings.Theme, "light"),
		ButtonStyle:     stringOr(lp.Settings.ButtonStyle, "rounded"),
		ShowAvatar:      boolOr(lp.Settings.ShowAvatar, true),
		ShowDescription: boolOr(lp.Settings.ShowDescription, true),
	}

	h.render(w, r, http.StatusOK, "links", page)
}

// LinkRedirect sends the short form /l/{key} to the canonical page.
func (h *Handler) LinkRedirect(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		h.renderNotFound(w, r)
		return
	}
	http.Redirect(w, r, "/links/"+key, http.StatusFound)
}

func stringOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
