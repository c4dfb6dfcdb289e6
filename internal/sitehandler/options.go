package sitehandler

import (
	"fmt"
	"io/fs"

	"github.com/rushcms/rush-web/internal/blocks"
	"github.com/rushcms/rush-web/internal/cms"
	"github.com/rushcms/rush-web/internal/log"
	"github.com/rushcms/rush-web/internal/webassets"
	"github.com/rushcms/rush-web/internal/xerrors"
)

var ErrInvalidOptions = xerrors.New("sitehandler: invalid options")

type Options struct {
	Logger log.Logger
	// Client is the upstream content source.
	Client *cms.Client
	// Blocks renders entry content.
	Blocks *blocks.Registry

	// FS roots; all default to the embedded webassets.
	TemplatesFS fs.FS
	StaticFS    fs.FS
	FallbackFS  fs.FS

	// SiteName is the display name used when the CMS site lookup fails.
	SiteName string
	// PublicBaseURL is the absolute origin for canonical URLs and the
	// sitemap, no trailing slash. Empty disables both.
	PublicBaseURL string
	// DevMode relaxes entry status filtering and renders placeholders
	// for unknown content.
	DevMode bool

	// file names inside FallbackFS (relative path)
	MaintenanceFile string // default: "maintenance.html"
	Fallback404File string // default: "404.html"

	// Cache policies applied by response kind.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=31536000, immutable"
	OtherCacheControl string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.TemplatesFS == nil {
		o.TemplatesFS = webassets.TemplatesFS()
	}
	if o.StaticFS == nil {
		o.StaticFS = webassets.StaticFS()
	}
	if o.FallbackFS == nil {
		o.FallbackFS = webassets.FallbackFS()
	}
	if o.SiteName == "" {
		o.SiteName = "Rush Site"
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.Fallback404File == "" {
		o.Fallback404File = "404.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=31536000, immutable"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.Client == nil {
		return fmt.Errorf("%w: Client is nil", ErrInvalidOptions)
	}
	if o.Blocks == nil {
		return fmt.Errorf("%w: Blocks is nil", ErrInvalidOptions)
	}
	// Ensure maintenance exists (fail fast on boot if mispackaged).
	if _, err := fs.Stat(o.FallbackFS, o.MaintenanceFile); err != nil {
		return fmt.Errorf("%w: missing %q in fallback FS: %v", ErrInvalidOptions, o.MaintenanceFile, err)
	}
	// Fallback 404 is optional; we degrade to plain text if missing.
	return nil
}
