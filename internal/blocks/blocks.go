// Package blocks renders CMS content blocks to HTML. Each block type has
// one Renderer; the Registry dispatches on Block.Type and skips anything
// it does not recognize so a new upstream block type never breaks a page.
package blocks

import (
	"context"
	"encoding/json"
	"html/template"
	"strings"
	"sync"

	"github.com/rushcms/rush-web/internal/cms"
	"github.com/rushcms/rush-web/internal/log"
)

// Renderer turns one block's raw data into HTML. Malformed or empty data
// renders nothing, never an error page.
type Renderer interface {
	Type() string
	Render(ctx context.Context, data json.RawMessage) (template.HTML, error)
}

// UnknownObserver counts skipped block types. *metrics.ServerMetrics
// satisfies it.
type UnknownObserver interface {
	IncUnknownBlock(blockType string)
}

type Options struct {
	// DevMode renders a visible placeholder for unknown block types
	// instead of dropping them silently.
	DevMode bool
	Logger  log.Logger
	Metrics UnknownObserver
}

type Registry struct {
	renderers map[string]Renderer
	devMode   bool
	logger    log.Logger
	metrics   UnknownObserver

	warnMu   sync.Mutex
	warnOnce map[string]struct{}
}

// NewRegistry returns a registry with every built-in renderer installed.
func NewRegistry(opts Options) *Registry {
	lg := opts.Logger
	if lg == nil {
		lg = log.Nop()
	}
	r := &Registry{
		renderers: make(map[string]Renderer),
		devMode:   opts.DevMode,
		logger:    lg,
		metrics:   opts.Metrics,
		warnOnce:  make(map[string]struct{}),
	}

	r.Register(richTextRenderer{})
	r.Register(paragraphRenderer{})
	r.Register(quoteRenderer{})
	r.Register(calloutRenderer{})
	r.Register(alertRenderer{})
	r.Register(toggleRenderer{})
	r.Register(imageRenderer{})
	r.Register(galleryRenderer{})
	r.Register(videoRenderer{})
	r.Register(youtubeRenderer{})
	r.Register(embedRenderer{})
	r.Register(bookmarkRenderer{})
	r.Register(dividerRenderer{})
	r.Register(codeRenderer{})
	r.Register(buttonRenderer{})
	r.Register(columnsRenderer{registry: r})
	return r
}

// Register installs (or replaces) the renderer for its block type.
func (r *Registry) Register(rd Renderer) {
	r.renderers[rd.Type()] = rd
}

// Lookup returns the renderer for a block type, if any.
func (r *Registry) Lookup(blockType string) (Renderer, bool) {
	rd, ok := r.renderers[blockType]
	return rd, ok
}

// RenderAll renders blocks in order. Invalid entries (no type, no data)
// and unknown types are skipped; one bad block never suppresses the rest.
func (r *Registry) RenderAll(ctx context.Context, blocks []cms.Block) template.HTML {
	if len(blocks) == 0 {
		return ""
	}

	var b strings.Builder
	for _, blk := range blocks {
		if blk.Type == "" || len(blk.Data) == 0 {
			continue
		}
		rd, ok := r.Lookup(blk.Type)
		if !ok {
			b.WriteString(string(r.renderUnknown(ctx, blk)))
			continue
		}
		out, err := rd.Render(ctx, blk.Data)
		if err != nil {
			r.logger.Debug(ctx, "block render failed", "type", blk.Type, "reason", err.Error())
			continue
		}
		b.WriteString(string(out))
	}
	return template.HTML(b.String())
}

func (r *Registry) renderUnknown(ctx context.Context, blk cms.Block) template.HTML {
	r.warnMu.Lock()
	_, warned := r.warnOnce[blk.Type]
	if !warned {
		r.warnOnce[blk.Type] = struct{}{}
	}
	r.warnMu.Unlock()

	if !warned {
		r.logger.Warn(ctx, "unknown block type, add a renderer for it", "type", blk.Type)
	}
	if r.metrics != nil {
		r.metrics.IncUnknownBlock(blk.Type)
	}

	if !r.devMode {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<div class="block-unknown"><p class="block-unknown-title">Unknown block type</p><p>Type: <code>`)
	b.WriteString(template.HTMLEscapeString(blk.Type))
	b.WriteString(`</code></p><details><summary>View data</summary><pre>`)
	b.WriteString(template.HTMLEscapeString(string(blk.Data)))
	b.WriteString(`</pre></details></div>`)
	return template.HTML(b.String())
}
