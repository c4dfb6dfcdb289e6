package sitehandler

import (
	"net/http"

	"github.com/rushcms/rush-web/internal/cms"
)

// contactFormKey is the form the contact page renders.
const contactFormKey = "contact"

func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	ctx := cms.WithPagePath(r.Context(), r.URL.Path)
	r = r.WithContext(ctx)

	page := contactPage{
		basePage: h.basePage(r, pageMeta{Title: "Contact"}),
		SiteSlug: h.client.SiteSlug(),
	}

	// The page renders either way; without a usable form definition the
	// visitor gets an inline notice instead of an error page.
	form, err := h.client.Form(ctx, contactFormKey)
	switch {
	case err != nil:
		h.logger.Warn(ctx, "contact form unavailable", "reason", err.Error())
	case !form.IsActive:
		h.logger.Debug(ctx, "contact form inactive")
	case len(form.Fields) == 0:
		h.logger.Warn(ctx, "contact form has no fields")
	default:
		page.FormAvailable = true
		page.Form = form
	}

	h.render(w, r, http.StatusOK, "contact", page)
}
