package sitehandler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jarcoal/httpmock"

	"github.com/rushcms/rush-web/internal/blocks"
	"github.com/rushcms/rush-web/internal/cms"
	"github.com/rushcms/rush-web/internal/tagcache"
)

const testBase = "https://cms.test"

func newTestSite(t *testing.T) (http.Handler, *tagcache.Store) {
	t.Helper()

	cache := tagcache.New(time.Minute)
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	client, err := cms.New(cms.Options{
		BaseURL:    testBase,
		Token:      "test-token",
		SiteID:     "1",
		SiteSlug:   "acme",
		HTTPClient: hc,
		Cache:      cache,
	})
	if err != nil {
		t.Fatalf("cms.New: %v", err)
	}

	h, err := New(Options{
		Client:        client,
		Blocks:        blocks.NewRegistry(blocks.Options{}),
		SiteName:      "Acme Site",
		PublicBaseURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := chi.NewRouter()
	h.Routes(r)
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)
	return r, cache
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", path, http.NoBody))
	return rec
}

func mockCollections(body string) {
	httpmock.RegisterResponder("GET", testBase+"/api/v1/acme/collections",
		httpmock.NewStringResponder(200, body))
}

func TestHome_RendersCollectionsAndRecent(t *testing.T) {
	h, _ := newTestSite(t)

	mockCollections(`{"data": [{"id": 1, "name": "Blog", "slug": "blog", "description": "Writing"}]}`)
	httpmock.RegisterResponder("GET", `=~^https://cms\.test/api/v1/acme/collections/1/entries`,
		httpmock.NewStringResponder(200, `{"data": [
			{"id": 10, "title": "First Post", "slug": "first-post", "excerpt": "Hi", "published_at": "2025-06-01T10:00:00Z"}
		]}`))

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Blog") {
		t.Error("home is missing the collection card")
	}
	if !strings.Contains(body, "First Post") || !strings.Contains(body, "/blog/first-post") {
		t.Error("home is missing the recent entry link")
	}
	if !strings.Contains(body, "June 1, 2025") {
		t.Error("home is missing the formatted publish date")
	}
}

func TestHome_CMSDownServesMaintenance(t *testing.T) {
	h, _ := newTestSite(t)
	// no responders: every upstream call fails

	rec := get(t, h, "/")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(strings.ToLower(rec.Body.String()), "maintenance") {
		t.Error("expected the maintenance page body")
	}
}

func TestCollection_ListsEntriesWithPagination(t *testing.T) {
	h, _ := newTestSite(t)

	mockCollections(`{"data": [{"id": 1, "name": "Blog", "slug": "blog"}]}`)
	httpmock.RegisterResponder("GET", testBase+"/api/v1/acme/collections/blog",
		httpmock.NewStringResponder(200, `{"data": {"id": 1, "name": "Blog", "slug": "blog", "items_per_page": 2}}`))
	httpmock.RegisterResponder("GET", `=~^https://cms\.test/api/v1/acme/collections/1/entries`,
		httpmock.NewStringResponder(200, `{"data": [
			{"id": 10, "title": "One", "slug": "one"},
			{"id": 11, "title": "Two", "slug": "two"}
		]}`))

	rec := get(t, h, "/blog")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "/blog/one") || !strings.Contains(body, "/blog/two") {
		t.Error("listing is missing entry links")
	}
	// Full page means there may be older entries.
	if !strings.Contains(body, "/blog?page=2") {
		t.Error("listing is missing the next page link")
	}
}

func TestCollection_UnknownIs404(t *testing.T) {
	h, _ := newTestSite(t)

	httpmock.RegisterResponder("GET", testBase+"/api/v1/acme/collections/nope",
		httpmock.NewStringResponder(404, `{"success": false, "message": "Collection not found"}`))

	rec := get(t, h, "/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Page not found") {
		t.Error("expected the themed 404 page")
	}
}

func TestCollection_ListingErrorRendersEmptyState(t *testing.T) {
	h, _ := newTestSite(t)

	httpmock.RegisterResponder("GET", testBase+"/api/v1/acme/collections/blog",
		httpmock.NewStringResponder(200, `{"data": {"id": 1, "name": "Blog", "slug": "blog"}}`))
	// entries listing has no responder and fails

	rec := get(t, h, "/blog")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (empty state, not an error page)", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Nothing here yet") {
		t.Error("expected the empty state copy")
	}
}

func TestEntry_RendersBlocksAndMeta(t *testing.T) {
	h, _ := newTestSite(t)

	httpmock.RegisterResponder("GET", testBase+"/api/v1/acme/collections/blog",
		httpmock.NewStringResponder(200, `{"data": {"id": 1, "name": "Blog", "slug": "blog"}}`))
	httpmock.RegisterResponder("GET", `=~^https://cms\.test/api/v1/acme/entries/slug/hello`,
		httpmock.NewStringResponder(200, `{"data": {
			"id": 10, "title": "Hello", "slug": "hello", "status": "published",
			"excerpt": "A greeting",
			"published_at": "2025-06-01T10:00:00Z",
			"tags": [{"id": 1, "name": "Go", "slug": "go"}],
			"meta": {"seo_title": "Hello SEO"},
			"data": {"content": [
				{"type": "paragraph", "data": {"content": "Block body here"}}
			], "reading_time": 3}
		}}`))

	rec := get(t, h, "/blog/hello")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Block body here") {
		t.Error("entry content blocks did not render")
	}
	if !strings.Contains(body, "<title>Hello SEO</title>") {
		t.Error("SEO title override not applied")
	}
	if !strings.Contains(body, `href="https://example.com/blog/hello"`) {
		t.Error("canonical URL missing")
	}
	if !strings.Contains(body, "/blog/tag/go") {
		t.Error("tag link missing")
	}
	if !strings.Contains(body, "3 min read") {
		t.Error("reading time missing")
	}
}

func TestEntry_DraftIs404(t *testing.T) {
	h, _ := newTestSite(t)

	httpmock.RegisterResponder("GET", testBase+"/api/v1/acme/collections/blog",
		httpmock.NewStringResponder(200, `{"data": {"id": 1, "name": "Blog", "slug": "blog"}}`))
	httpmock.RegisterResponder("GET", `=~^https://cms\.test/api/v1/acme/entries/slug/wip`,
		httpmock.NewStringResponder(200, `{"data": {"id": 11, "title": "WIP", "slug": "wip", "status": "draft"}}`))

	rec := get(t, h, "/blog/wip")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestEntry_MissingIs404NotError(t *testing.T) {
	h, _ := newTestSite(t)

	httpmock.RegisterResponder("GET", testBase+"/api/v1/acme/collections/blog",
		httpmock.NewStringResponder(200, `{"data": {"id": 1, "name": "Blog", "slug": "blog"}}`))
	httpmock.RegisterResponder("GET", `=~^https://cms\.test/api/v1/acme/entries/slug/gone`,
		httpmock.NewStringResponder(500, `{"success": false, "message": "boom"}`))

	rec := get(t, h, "/blog/gone")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (upstream 500 must not surface)", rec.Code)
	}
}

func TestTag_EmptyState(t *testing.T) {
	h, _ := newTestSite(t)

	httpmock.RegisterResponder("GET", testBase+"/api/v1/acme/tags",
		httpmock.NewStringResponder(200, `{"data": [{"id": 1, "name": "Go", "slug": "go"}]}`))
	httpmock.RegisterResponder("GET", `=~^https://cms\.test/api/v1/acme/entries\?`,
		httpmock.NewStringResponder(200, `{"data": []}`))

	rec := get(t, h, "/blog/tag/go")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Tagged") || !strings.Contains(body, "Go") {
		t.Error("tag page is missing the tag name")
	}
	if !strings.Contains(body, "No entries carry this tag") {
		t.Error("expected the tag empty state")
	}
}

func TestLinks_RendersLinkPage(t *testing.T) {
	h, _ := newTestSite(t)

	httpmock.RegisterResponder("GET", testBase+"/api/v1/acme/link-pages/default",
		httpmock.NewStringResponder(200, `{"data": {
			"id": 1, "key": "default", "title": "My Links",
			"links": [{"title": "Homepage", "url": "https://example.com", "display_mode": "text_only"}],
			"social_links": [{"platform": "github", "url": "https://github.com/acme"}],
			"settings": {"theme": "dark", "button_style": "rounded"}
		}}`))

	rec := get(t, h, "/links")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "My Links") || !strings.Contains(body, "Homepage") {
		t.Error("link page content missing")
	}
	if !strings.Contains(body, "linkpage-dark") {
		t.Error("theme class missing")
	}
	if !strings.Contains(body, "https://github.com/acme") {
		t.Error("social link missing")
	}
}

func TestLinkRedirect(t *testing.T) {
	h, _ := newTestSite(t)

	rec := get(t, h, "/l/me")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/links/me" {
		t.Fatalf("Location = %q, want /links/me", loc)
	}
}

func TestContact_RendersForm(t *testing.T) {
	h, _ := newTestSite(t)

	httpmock.RegisterResponder("GET", testBase+"/api/v1/acme/forms/contact",
		httpmock.NewStringResponder(200, `{"data": {
			"id": 1, "name": "Contact", "key": "contact", "is_active": true,
			"fields": [
				{"type": "text", "config": {"name": "name", "label": "Your name"}, "validation": {"is_required": true}},
				{"type": "email", "config": {"name": "email", "label": "Email"}, "validation": {"is_required": true}},
				{"type": "textarea", "config": {"name": "message", "label": "Message"}, "validation": {"max_length": 2000}}
			]
		}}`))

	rec := get(t, h, "/contact")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `action="/api/forms/acme/contact/submit"`) {
		t.Error("form action missing")
	}
	if !strings.Contains(body, `name="email"`) || !strings.Contains(body, "<textarea") {
		t.Error("form fields missing")
	}
	if !strings.Contains(body, "required") {
		t.Error("required attribute missing")
	}
}

func TestContact_FormUnavailableStillRenders(t *testing.T) {
	h, _ := newTestSite(t)
	// form endpoint has no responder and fails

	rec := get(t, h, "/contact")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unavailable") {
		t.Error("expected the form-unavailable notice")
	}
}

func TestRobots(t *testing.T) {
	h, _ := newTestSite(t)

	rec := get(t, h, "/robots.txt")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "User-agent: *") {
		t.Error("robots.txt missing user-agent line")
	}
	if !strings.Contains(body, "Sitemap: https://example.com/sitemap.xml") {
		t.Error("robots.txt missing sitemap line")
	}
	if !strings.Contains(body, "Disallow: /api/") {
		t.Error("robots.txt should keep crawlers off the API surface")
	}
}

func TestSitemap(t *testing.T) {
	h, _ := newTestSite(t)

	mockCollections(`{"data": [{"id": 1, "name": "Blog", "slug": "blog"}]}`)
	httpmock.RegisterResponder("GET", `=~^https://cms\.test/api/v1/acme/collections/1/entries`,
		httpmock.NewStringResponder(200, `{"data": [
			{"id": 10, "title": "One", "slug": "one", "updated_at": "2025-06-02T00:00:00Z"}
		]}`))

	rec := get(t, h, "/sitemap.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "xml") {
		t.Fatalf("Content-Type = %q, want xml", ct)
	}
	body := rec.Body.String()
	for _, loc := range []string{
		"<loc>https://example.com/</loc>",
		"<loc>https://example.com/blog</loc>",
		"<loc>https://example.com/blog/one</loc>",
	} {
		if !strings.Contains(body, loc) {
			t.Errorf("sitemap missing %s", loc)
		}
	}
	if !strings.Contains(body, "<lastmod>2025-06-02T00:00:00Z</lastmod>") {
		t.Error("sitemap missing lastmod")
	}
}

func TestStatic_ServedWithLongCache(t *testing.T) {
	h, _ := newTestSite(t)

	rec := get(t, h, "/static/site.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Fatalf("Cache-Control = %q, want immutable asset policy", cc)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestSite(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/", strings.NewReader("x")))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); !strings.Contains(allow, "GET") {
		t.Fatalf("Allow = %q, want GET, HEAD", allow)
	}
}

func TestUnknownRoute_Themed404(t *testing.T) {
	h, _ := newTestSite(t)

	rec := get(t, h, "/no/such/page/here")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Page not found") {
		t.Error("expected the themed 404 page")
	}
}

func TestPageReads_AttachToPathForRevalidation(t *testing.T) {
	h, cache := newTestSite(t)

	httpmock.RegisterResponder("GET", testBase+"/api/v1/acme/collections/blog",
		httpmock.NewStringResponder(200, `{"data": {"id": 1, "name": "Blog", "slug": "blog"}}`))
	httpmock.RegisterResponder("GET", `=~^https://cms\.test/api/v1/acme/collections/1/entries`,
		httpmock.NewStringResponder(200, `{"data": []}`))

	rec := get(t, h, "/blog")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// The webhook's path verb must drop the responses that built /blog.
	if n := cache.InvalidatePath("/blog"); n == 0 {
		t.Fatal("InvalidatePath(/blog) dropped nothing; page reads are not attached to the path")
	}
}
