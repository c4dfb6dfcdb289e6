// Package cms is the typed client for the upstream content API. Every read
// goes through a tag-indexed response cache so the revalidation webhook can
// drop entries by tag or by page path without restarting the server.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rushcms/rush-web/internal/log"
	"github.com/rushcms/rush-web/internal/tagcache"
	"github.com/rushcms/rush-web/internal/xerrors"
)

const maxResponseBytes = 10 << 20

// Observer receives upstream instrumentation. *metrics.ServerMetrics
// satisfies it.
type Observer interface {
	ObserveUpstream(endpoint string, status int, dur time.Duration)
	IncCacheHit(endpoint string)
	IncCacheMiss(endpoint string)
}

type Options struct {
	// BaseURL is the CMS origin, no trailing slash ("https://cms.example.com").
	BaseURL string
	// Token is the already-resolved API bearer token.
	Token string
	// SiteID goes out as the X-Site-ID header.
	SiteID string
	// SiteSlug is the tenant path segment in most endpoints.
	SiteSlug string

	HTTPClient *http.Client
	Cache      *tagcache.Store
	// DefaultTTL applies to reads that do not set their own TTL.
	DefaultTTL time.Duration
	Logger     log.Logger
	Metrics    Observer
}

type Client struct {
	baseURL    string
	token      string
	siteID     string
	siteSlug   string
	http       *http.Client
	cache      *tagcache.Store
	defaultTTL time.Duration
	logger     log.Logger
	metrics    Observer
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, xerrors.New("cms: BaseURL is required")
	}
	if opts.Token == "" {
		return nil, xerrors.New("cms: Token is required")
	}
	if opts.SiteSlug == "" {
		return nil, xerrors.New("cms: SiteSlug is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	lg := opts.Logger
	if lg == nil {
		lg = log.Nop()
	}
	return &Client{
		baseURL:    opts.BaseURL,
		token:      opts.Token,
		siteID:     opts.SiteID,
		siteSlug:   opts.SiteSlug,
		http:       hc,
		cache:      opts.Cache,
		defaultTTL: ttl,
		logger:     lg,
		metrics:    opts.Metrics,
	}, nil
}

// SiteSlug returns the configured tenant slug.
func (c *Client) SiteSlug() string { return c.siteSlug }

// Cache exposes the shared response cache so page handlers can attach
// request paths to the keys they read.
func (c *Client) Cache() *tagcache.Store { return c.cache }

// HTTPClient exposes the underlying transport (tests hook it).
func (c *Client) HTTPClient() *http.Client { return c.http }

// FetchOptions tunes one read.
type FetchOptions struct {
	// TTL overrides the client default when > 0.
	TTL time.Duration
	// Tags register the cached response for webhook invalidation.
	Tags []string
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

type errorEnvelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// get performs one cached GET. class is the low-cardinality metrics label
// for the endpoint family. The raw response body is what gets cached, so
// every caller decodes a fresh copy.
func (c *Client) get(ctx context.Context, endpoint, class string, out any, opt FetchOptions) error {
	if c.cache != nil {
		if v, ok := c.cache.Get(endpoint); ok {
			if c.metrics != nil {
				c.metrics.IncCacheHit(class)
			}
			c.attachPage(ctx, endpoint)
			return decodeEnvelope(v.([]byte), endpoint, out)
		}
		if c.metrics != nil {
			c.metrics.IncCacheMiss(class)
		}
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, class, nil)
	if err != nil {
		return err
	}
	if err := decodeEnvelope(body, endpoint, out); err != nil {
		return err
	}

	if c.cache != nil {
		ttl := opt.TTL
		if ttl <= 0 {
			ttl = c.defaultTTL
		}
		c.cache.Set(endpoint, body, ttl, opt.Tags...)
		c.attachPage(ctx, endpoint)
	}
	return nil
}

// attachPage binds the cache key to the page path carried by ctx, if any.
// Hits bind too: a key cached while building one page may also serve
// another, and both need to drop on a path revalidation.
func (c *Client) attachPage(ctx context.Context, endpoint string) {
	if c.cache == nil {
		return
	}
	if p := pagePathFromContext(ctx); p != "" {
		c.cache.AttachPath(p, endpoint)
	}
}

// do performs one round trip and maps every failure to *APIError.
func (c *Client) do(ctx context.Context, method, endpoint, class string, payload []byte) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, rd)
	if err != nil {
		return nil, &APIError{Message: err.Error(), Endpoint: endpoint}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.siteID != "" {
		req.Header.Set("X-Site-ID", c.siteID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveUpstream(class, 0, time.Since(start))
		}
		return nil, &APIError{Message: "network error: " + err.Error(), Endpoint: endpoint}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if c.metrics != nil {
		c.metrics.ObserveUpstream(class, resp.StatusCode, time.Since(start))
	}
	if err != nil {
		return nil, &APIError{Message: "reading response: " + err.Error(), Status: resp.StatusCode, Endpoint: endpoint}
	}

	if resp.StatusCode >= 400 {
		ae := &APIError{
			Message:  "API error: " + resp.Status,
			Status:   resp.StatusCode,
			Endpoint: endpoint,
		}
		var ee errorEnvelope
		if json.Unmarshal(body, &ee) == nil && ee.Message != "" {
			ae.Message = ee.Message
			ae.Errors = ee.Errors
		}
		c.logger.Warn(ctx, "upstream cms error",
			"endpoint", endpoint, "status", resp.StatusCode, "message", ae.Message)
		return nil, ae
	}
	return body, nil
}

func decodeEnvelope(body []byte, endpoint string, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &APIError{Message: "decoding response: " + err.Error(), Endpoint: endpoint}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &APIError{Message: "decoding response data: " + err.Error(), Endpoint: endpoint}
	}
	return nil
}

// Teams lists the sites visible to the configured token.
func (c *Client) Teams(ctx context.Context) ([]Site, error) {
	var out []Site
	err := c.get(ctx, "/api/v1/teams", "teams", &out, FetchOptions{Tags: []string{"teams"}})
	return out, err
}

// SiteName resolves the display name of the configured site, falling back
// when the teams listing is unavailable.
func (c *Client) SiteName(ctx context.Context, fallback string) string {
	teams, err := c.Teams(ctx)
	if err != nil {
		c.logger.Debug(ctx, "site name lookup failed, using fallback", "fallback", fallback)
		return fallback
	}
	for _, t := range teams {
		if t.Slug == c.siteSlug {
			return t.Name
		}
	}
	return fallback
}

func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var out []Collection
	endpoint := fmt.Sprintf("/api/v1/%s/collections", c.siteSlug)
	err := c.get(ctx, endpoint, "collections", &out, FetchOptions{
		TTL:  time.Hour,
		Tags: []string{"collections"},
	})
	return out, err
}

func (c *Client) Collection(ctx context.Context, slug string) (Collection, error) {
	var out Collection
	endpoint := fmt.Sprintf("/api/v1/%s/collections/%s", c.siteSlug, url.PathEscape(slug))
	err := c.get(ctx, endpoint, "collection", &out, FetchOptions{
		TTL:  time.Hour,
		Tags: []string{"collection-" + slug},
	})
	return out, err
}

func (c *Client) Entries(ctx context.Context, collectionID int, params EntryParams) ([]Entry, error) {
	q := url.Values{}
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	if params.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(params.PerPage))
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.Tag != "" {
		q.Set("tag", params.Tag)
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.Sort != "" {
		q.Set("sort", params.Sort)
	}
	if params.Order != "" {
		q.Set("order", params.Order)
	}

	endpoint := fmt.Sprintf("/api/v1/%s/collections/%d/entries", c.siteSlug, collectionID)
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}

	var out []Entry
	err := c.get(ctx, endpoint, "entries", &out, FetchOptions{
		Tags: []string{"entries-list", fmt.Sprintf("collection-%d-entries", collectionID)},
	})
	return out, err
}

// EntryBySlug fetches one entry. collection narrows the lookup when the
// same slug exists in more than one collection; empty means site-wide.
func (c *Client) EntryBySlug(ctx context.Context, entrySlug, collection string) (Entry, error) {
	endpoint := fmt.Sprintf("/api/v1/%s/entries/slug/%s", c.siteSlug, url.PathEscape(entrySlug))
	if collection != "" {
		endpoint += "?collection=" + url.QueryEscape(collection)
	}
	var out Entry
	err := c.get(ctx, endpoint, "entry", &out, FetchOptions{
		Tags: []string{"entry-" + entrySlug},
	})
	return out, err
}

func (c *Client) Navigations(ctx context.Context) ([]Navigation, error) {
	var out []Navigation
	endpoint := fmt.Sprintf("/api/v1/%s/navigations", c.siteSlug)
	err := c.get(ctx, endpoint, "navigations", &out, FetchOptions{
		TTL:  time.Hour,
		Tags: []string{"navigations"},
	})
	return out, err
}

func (c *Client) NavigationItems(ctx context.Context, navigationID int) ([]NavigationItem, error) {
	var out []NavigationItem
	endpoint := fmt.Sprintf("/api/v1/%s/navigations/%d/items", c.siteSlug, navigationID)
	err := c.get(ctx, endpoint, "navigation-items", &out, FetchOptions{
		TTL:  time.Hour,
		Tags: []string{fmt.Sprintf("navigation-%d-items", navigationID)},
	})
	return out, err
}

func (c *Client) Forms(ctx context.Context) ([]Form, error) {
	var out []Form
	endpoint := fmt.Sprintf("/api/v1/%s/forms", c.siteSlug)
	err := c.get(ctx, endpoint, "forms", &out, FetchOptions{
		TTL:  time.Hour,
		Tags: []string{"forms"},
	})
	return out, err
}

func (c *Client) Form(ctx context.Context, formKey string) (Form, error) {
	var out Form
	endpoint := fmt.Sprintf("/api/v1/%s/forms/%s", c.siteSlug, url.PathEscape(formKey))
	err := c.get(ctx, endpoint, "form", &out, FetchOptions{
		TTL:  time.Hour,
		Tags: []string{"form-" + formKey},
	})
	return out, err
}

// SubmitForm forwards a submission. Never cached. siteSlug may differ from
// the configured one because the public proxy route carries it in the path.
func (c *Client) SubmitForm(ctx context.Context, siteSlug, formKey string, sub FormSubmission) (FormSubmissionResult, int, error) {
	if siteSlug == "" {
		siteSlug = c.siteSlug
	}
	endpoint := fmt.Sprintf("/api/v1/%s/forms/%s/submit", url.PathEscape(siteSlug), url.PathEscape(formKey))

	payload, err := json.Marshal(sub)
	if err != nil {
		return FormSubmissionResult{}, 0, xerrors.Wrap(err, "cms: encoding form submission")
	}

	body, err := c.do(ctx, http.MethodPost, endpoint, "form-submit", payload)
	if err != nil {
		var ae *APIError
		status := 0
		if errors.As(err, &ae) {
			status = ae.Status
		}
		return FormSubmissionResult{}, status, err
	}

	var out FormSubmissionResult
	if err := decodeEnvelope(body, endpoint, &out); err != nil {
		return FormSubmissionResult{}, http.StatusCreated, err
	}
	return out, http.StatusCreated, nil
}

func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	var out []Tag
	endpoint := fmt.Sprintf("/api/v1/%s/tags", c.siteSlug)
	err := c.get(ctx, endpoint, "tags", &out, FetchOptions{
		TTL:  time.Hour,
		Tags: []string{"tags"},
	})
	return out, err
}

// EntriesByTag lists published entries carrying the tag, site-wide.
func (c *Client) EntriesByTag(ctx context.Context, tagSlug string) ([]Entry, error) {
	var out []Entry
	endpoint := fmt.Sprintf("/api/v1/%s/entries?tag=%s&status=published", c.siteSlug, url.QueryEscape(tagSlug))
	err := c.get(ctx, endpoint, "entries", &out, FetchOptions{
		Tags: []string{"entries-list", "tag-" + tagSlug},
	})
	return out, err
}

func (c *Client) LinkPages(ctx context.Context) ([]LinkPage, error) {
	var out []LinkPage
	endpoint := fmt.Sprintf("/api/v1/%s/link-pages", c.siteSlug)
	err := c.get(ctx, endpoint, "link-page", &out, FetchOptions{
		TTL:  time.Hour,
		Tags: []string{"linkpages"},
	})
	return out, err
}

func (c *Client) LinkPage(ctx context.Context, key string) (LinkPage, error) {
	var out LinkPage
	endpoint := fmt.Sprintf("/api/v1/%s/link-pages/%s", c.siteSlug, url.PathEscape(key))
	err := c.get(ctx, endpoint, "link-page", &out, FetchOptions{
		TTL:  time.Hour,
		Tags: []string{"linkpage-" + key},
	})
	return out, err
}
