package cms

import "context"

type pagePathKey struct{}

// WithPagePath marks ctx so every read performed under it attaches its
// cache key to path in the shared cache. A later InvalidatePath(path)
// then drops exactly the responses that built that page.
func WithPagePath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, pagePathKey{}, path)
}

func pagePathFromContext(ctx context.Context) string {
	v, _ := ctx.Value(pagePathKey{}).(string)
	return v
}
