// Package webassets embeds the page templates, static assets, and the
// fallback pages served when the CMS is unreachable or a page is missing.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

// templates/, static/, and fallback/ must exist and have at least one
// file each to satisfy go:embed
//
//go:embed templates static fallback
var embedded embed.FS

func sub(dir string) fs.FS {
	s, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(fmt.Errorf("webassets: %s subfs: %w", dir, err))
	}
	return s
}

// TemplatesFS is the html/template source tree (base layout + pages).
func TemplatesFS() fs.FS { return sub("templates") }

// StaticFS holds css/js served under /static/.
func StaticFS() fs.FS { return sub("static") }

// FallbackFS holds standalone pages (maintenance, plain 404) that render
// without templates or upstream data.
func FallbackFS() fs.FS { return sub("fallback") }
