package blocks

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/rushcms/rush-web/internal/cms"
	"github.com/rushcms/rush-web/internal/xerrors"
)

// columnsRenderer lays out nested blocks side by side and dispatches each
// child back through the registry, so columns can hold any block type,
// including further columns.
type columnsRenderer struct {
	registry *Registry
}

func (columnsRenderer) Type() string { return "columns" }

func (r columnsRenderer) Render(ctx context.Context, data json.RawMessage) (template.HTML, error) {
	var d struct {
		Columns []struct {
			Content []cms.Block `json:"content"`
		} `json:"columns"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", xerrors.Wrap(err, "columns data")
	}
	if len(d.Columns) == 0 {
		return "", nil
	}

	count := len(d.Columns)
	if count < 2 || count > 4 {
		count = 2
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="block-columns block-columns-%d">`, count)
	for _, col := range d.Columns {
		b.WriteString(`<div class="block-column">`)
		b.WriteString(string(r.registry.RenderAll(ctx, col.Content)))
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	return template.HTML(b.String()), nil
}
