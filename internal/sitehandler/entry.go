package sitehandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rushcms/rush-web/internal/cms"
)

func (h *Handler) Entry(w http.ResponseWriter, r *http.Request) {
	ctx := cms.WithPagePath(r.Context(), r.URL.Path)
	r = r.WithContext(ctx)

	colSlug := chi.URLParam(r, "collection")
	entrySlug := chi.URLParam(r, "entry")

	col, err := h.client.Collection(ctx, colSlug)
	if err != nil {
		h.renderNotFound(w, r)
		return
	}

	entry, err := h.client.EntryBySlug(ctx, entrySlug, colSlug)
	if err != nil {
		h.renderNotFound(w, r)
		return
	}
	// Drafts stay invisible on the public site. DevMode shows them so
	// editors can preview.
	if entry.Status != "" && entry.Status != "published" && !h.opts.DevMode {
		h.renderNotFound(w, r)
		return
	}

	var data cms.EntryData
	if len(entry.Data) > 0 {
		if err := json.Unmarshal(entry.Data, &data); err != nil {
			h.logger.Warn(ctx, "entry data undecodable, rendering without content",
				"entry", entrySlug, "reason", err.Error())
		}
	}

	meta := pageMeta{
		Title:       entry.Title,
		Description: entry.Excerpt,
		Type:        "article",
	}
	if entry.FeaturedImage != nil {
		meta.Image = entry.FeaturedImage.URL
	}
	if entry.Meta != nil {
		if entry.Meta.SEOTitle != "" {
			meta.Title = entry.Meta.SEOTitle
		}
		if entry.Meta.SEODescription != "" {
			meta.Description = entry.Meta.SEODescription
		}
		if entry.Meta.OGImage != "" {
			meta.Image = entry.Meta.OGImage
		}
	}

	page := entryPage{
		basePage:         h.basePage(r, meta),
		Collection:       col,
		Entry:            entry,
		Author:           entry.Author,
		FeaturedImage:    entry.FeaturedImage,
		Content:          h.blocks.RenderAll(ctx, data.Content),
		Tags:             entry.Tags,
		PublishedAt:      entry.PublishedAt,
		PublishedDisplay: formatDate(entry.PublishedAt),
		ReadingTime:      data.ReadingTime,
	}
	if h.opts.PublicBaseURL != "" {
		page.ShareURL = h.opts.PublicBaseURL + r.URL.Path
	}

	h.render(w, r, http.StatusOK, "entry", page)
}
