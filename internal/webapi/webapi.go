// Package webapi is the JSON surface under /api/: the revalidation
// webhook, the form submission proxy, and the web vitals beacon sink.
// These are the only state-changing routes on the public listener.
package webapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rushcms/rush-web/internal/cms"
	"github.com/rushcms/rush-web/internal/log"
)

// Observer counts API outcomes. *metrics.ServerMetrics satisfies it.
type Observer interface {
	IncFormSubmission(status int)
	IncWebVital(name, rating string)
}

type Options struct {
	Logger log.Logger
	// Client proxies form submissions upstream.
	Client *cms.Client
	// Revalidate is the cache invalidation webhook (it answers its own
	// 405s). Nil leaves the route unmounted.
	Revalidate http.Handler
	Metrics    Observer
}

type Handler struct {
	logger  log.Logger
	client  *cms.Client
	reval   http.Handler
	metrics Observer
}

func New(opts Options) *Handler {
	lg := opts.Logger
	if lg == nil {
		lg = log.Nop()
	}
	return &Handler{
		logger:  lg,
		client:  opts.Client,
		reval:   opts.Revalidate,
		metrics: opts.Metrics,
	}
}

func (h *Handler) Routes(r chi.Router) {
	if h.reval != nil {
		r.Handle("/api/revalidate", h.reval)
	}
	if h.client != nil {
		r.Post("/api/forms/{site}/{form}/submit", h.SubmitForm)
	}
	r.Post("/api/web-vitals", h.WebVitals)
}

type formResponse struct {
	Success      bool                `json:"success"`
	Message      string              `json:"message"`
	SubmissionID int                 `json:"submission_id,omitempty"`
	Errors       map[string][]string `json:"errors,omitempty"`
}

// SubmitForm forwards a submission to the CMS and mirrors its verdict.
// The proxy stamps the request referrer and user agent into the
// submission metadata so upstream sees where it came from.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	site := chi.URLParam(r, "site")
	form := chi.URLParam(r, "form")

	var sub cms.FormSubmission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&sub); err != nil {
		h.observeForm(http.StatusBadRequest)
		writeJSON(w, http.StatusBadRequest, formResponse{
			Success: false,
			Message: "Invalid JSON body",
		})
		return
	}
	if len(sub.Data) == 0 {
		h.observeForm(http.StatusBadRequest)
		writeJSON(w, http.StatusBadRequest, formResponse{
			Success: false,
			Message: "Missing form data",
		})
		return
	}

	if sub.Metadata == nil {
		sub.Metadata = make(map[string]any)
	}
	if ref := r.Referer(); ref != "" {
		sub.Metadata["referrer"] = ref
	}
	if ua := r.UserAgent(); ua != "" {
		sub.Metadata["user_agent"] = ua
	}

	result, status, err := h.client.SubmitForm(ctx, site, form, sub)
	if err != nil {
		var ae *cms.APIError
		if errors.As(err, &ae) && ae.Status > 0 {
			// Upstream rejected it (validation, unknown form, rate limit).
			// Its status and field errors go back to the browser verbatim.
			h.observeForm(ae.Status)
			writeJSON(w, ae.Status, formResponse{
				Success: false,
				Message: ae.Message,
				Errors:  ae.Errors,
			})
			return
		}
		h.logger.Error(ctx, err, "form submission proxy failed", "form", form)
		h.observeForm(http.StatusBadGateway)
		writeJSON(w, http.StatusBadGateway, formResponse{
			Success: false,
			Message: "Form submission failed, please try again later",
		})
		return
	}

	h.observeForm(status)
	writeJSON(w, status, formResponse{
		Success:      true,
		Message:      "Form submitted successfully",
		SubmissionID: result.SubmissionID,
	})
}

type webVitalReport struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Rating string  `json:"rating"`
}

var validRatings = map[string]struct{}{
	"good":              {},
	"needs-improvement": {},
	"poor":              {},
}

// WebVitals accepts browser performance beacons. Reports only feed logs
// and a counter, so anything malformed is a 400 and nothing more.
func (h *Handler) WebVitals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var report webVitalReport
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&report); err != nil || report.Name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	rating := report.Rating
	if _, ok := validRatings[rating]; !ok {
		rating = "unknown"
	}

	h.logger.Debug(ctx, "web vital report",
		"name", report.Name, "value", report.Value, "rating", rating)
	if h.metrics != nil {
		h.metrics.IncWebVital(report.Name, rating)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) observeForm(status int) {
	if h.metrics != nil {
		h.metrics.IncFormSubmission(status)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
