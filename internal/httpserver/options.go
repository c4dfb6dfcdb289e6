package httpserver

import (
	"net/http"

	"github.com/rushcms/rush-web/internal/health"
	"github.com/rushcms/rush-web/internal/httpmw"
	"github.com/rushcms/rush-web/internal/log"
	"github.com/rushcms/rush-web/internal/sitehandler"
	"github.com/rushcms/rush-web/internal/webapi"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	// OnPanic runs on every recovered handler panic (metrics hook).
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions
	// VersionInfo feeds the X-App-Version/X-App-Commit response headers.
	VersionInfo httpmw.VersionInfo

	// Site renders every page route and owns the catch-all 404.
	Site *sitehandler.Handler
	// API mounts the JSON routes under /api/.
	API *webapi.Handler

	// Optional probes for load balancer checks on the public port. The
	// admin listener carries its own copies.
	Health    health.Probe
	Readiness health.Probe
}
