package httpmw

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rushcms/rush-web/internal/log"
)

// Recover converts handler panics into 500 responses. The panic value is
// logged with a stack trace and onPanic (if non-nil) is invoked, which the
// server uses to bump the panic counter metric.
func Recover(logger log.Logger, onPanic func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				// http.ErrAbortHandler is the sanctioned way to abort a
				// response; re-panic so the server handles it normally.
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}

				if onPanic != nil {
					onPanic()
				}

				logger.With(
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
					"stack", string(debug.Stack()),
				).Error(r.Context(), err, "httpserver panic recovered")

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
