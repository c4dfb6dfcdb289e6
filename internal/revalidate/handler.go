// Package revalidate implements the cache invalidation webhook the CMS
// calls when content changes. It drops cached upstream responses by tag
// or by page path.
package revalidate

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rushcms/rush-web/internal/httpmw"
	"github.com/rushcms/rush-web/internal/log"
	"github.com/rushcms/rush-web/internal/tagcache"
)

const maxPathLen = 2048
const maxTagLen = 255

var tagPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Observer counts webhook outcomes. *metrics.ServerMetrics satisfies it.
type Observer interface {
	IncRevalidation(kind, outcome string)
}

type Options struct {
	// Secret is the already-resolved shared secret. Empty means the
	// webhook is unconfigured and every request gets 503.
	Secret  string
	Cache   *tagcache.Store
	Limiter *Limiter
	Logger  log.Logger
	Metrics Observer
}

type Handler struct {
	secretHash [32]byte
	configured bool
	cache      *tagcache.Store
	limiter    *Limiter
	logger     log.Logger
	metrics    Observer
	now        func() time.Time
}

func NewHandler(opts Options) *Handler {
	lg := opts.Logger
	if lg == nil {
		lg = log.Nop()
	}
	h := &Handler{
		configured: opts.Secret != "",
		cache:      opts.Cache,
		limiter:    opts.Limiter,
		logger:     lg,
		metrics:    opts.Metrics,
		now:        time.Now,
	}
	if h.configured {
		h.secretHash = sha256.Sum256([]byte(opts.Secret))
	}
	return h
}

type requestBody struct {
	Secret string `json:"secret"`
	Path   string `json:"path,omitempty"`
	Tag    string `json:"tag,omitempty"`
}

type response struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Revalidated *revalidated `json:"revalidated,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type revalidated struct {
	Path *string `json:"path"`
	Tag  *string `json:"tag"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, response{
			Success: false,
			Message: "Method not allowed. Use POST with JSON body.",
		})
		return
	}

	// rate limit runs before the secret check so a flood of bad secrets
	// cannot grind through constant-time compares unmetered
	ip := httpmw.ClientIPFromContext(ctx)
	if h.limiter != nil && !h.limiter.Allow(ip) {
		h.observe("none", "rate_limited")
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, response{
			Success: false,
			Message: "Too many requests",
		})
		return
	}

	if !h.configured {
		h.observe("none", "unconfigured")
		writeJSON(w, http.StatusServiceUnavailable, response{
			Success: false,
			Message: "Revalidation is not configured",
		})
		return
	}

	var body requestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		h.observe("none", "bad_request")
		writeJSON(w, http.StatusBadRequest, response{
			Success: false,
			Message: "Invalid JSON body",
		})
		return
	}

	if !h.secretMatches(body.Secret) {
		h.logger.Warn(ctx, "revalidation request with invalid secret", "client_ip", ip)
		h.observe("none", "unauthorized")
		writeJSON(w, http.StatusUnauthorized, response{
			Success: false,
			Message: "Invalid secret",
		})
		return
	}

	if body.Path == "" && body.Tag == "" {
		h.observe("none", "bad_request")
		writeJSON(w, http.StatusBadRequest, response{
			Success: false,
			Message: "Missing path or tag parameter",
		})
		return
	}

	if body.Path != "" && !validPath(body.Path) {
		h.observe("path", "bad_request")
		writeJSON(w, http.StatusBadRequest, response{
			Success: false,
			Message: "Invalid path parameter",
		})
		return
	}
	if body.Tag != "" && !validTag(body.Tag) {
		h.observe("tag", "bad_request")
		writeJSON(w, http.StatusBadRequest, response{
			Success: false,
			Message: "Invalid tag parameter",
		})
		return
	}

	rev := &revalidated{}
	if body.Path != "" {
		n := 0
		if h.cache != nil {
			n = h.cache.InvalidatePath(body.Path)
		}
		h.logger.Info(ctx, "revalidated path", "path", body.Path, "dropped_keys", n)
		h.observe("path", "ok")
		rev.Path = &body.Path
	}
	if body.Tag != "" {
		n := 0
		if h.cache != nil {
			n = h.cache.InvalidateTag(body.Tag)
		}
		h.logger.Info(ctx, "revalidated tag", "tag", body.Tag, "dropped_keys", n)
		h.observe("tag", "ok")
		rev.Tag = &body.Tag
	}

	writeJSON(w, http.StatusOK, response{
		Success:     true,
		Message:     "Revalidation triggered successfully",
		Revalidated: rev,
		Timestamp:   h.now().UTC().Format(time.RFC3339),
	})
}

// secretMatches hashes both sides so the comparison is constant time
// regardless of length.
func (h *Handler) secretMatches(candidate string) bool {
	got := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(got[:], h.secretHash[:]) == 1
}

func validPath(p string) bool {
	return strings.HasPrefix(p, "/") && len(p) <= maxPathLen
}

func validTag(t string) bool {
	return len(t) <= maxTagLen && tagPattern.MatchString(t)
}

func (h *Handler) observe(kind, outcome string) {
	if h.metrics != nil {
		h.metrics.IncRevalidation(kind, outcome)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
