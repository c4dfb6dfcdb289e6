package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// VersionInfo provides build version information for headers
type VersionInfo interface {
	AppVersion() string
	AppCommit() string
}

// VersionHeaders middleware adds X-App-Version and X-App-Commit headers to all
// responses when build information is available. Helps correlate cached pages
// and client bug reports with a specific deploy.
func VersionHeaders(info VersionInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if info != nil {
				v := info.AppVersion()
				c := info.AppCommit()
				if v != "" {
					w.Header().Set("X-App-Version", v)
				}
				if c != "" {
					// Use short hash for header (first 12 chars)
					headerCommit := c
					if len(headerCommit) > 12 {
						headerCommit = headerCommit[:12]
					}
					w.Header().Set("X-App-Commit", headerCommit)
				}
				// Enrich the current trace span with build info
				if span := trace.SpanFromContext(r.Context()); span != nil && span.IsRecording() {
					if v != "" {
						span.SetAttributes(attribute.String("app.version", v))
					}
					if c != "" {
						span.SetAttributes(attribute.String("app.commit", c))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
