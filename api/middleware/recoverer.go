package middleware

import (
	"fmt"
	"net/http"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/api/responses"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/logger"
)

// Recoverer turns a handler panic into an INTERNAL_ERROR response. http.ErrAbortHandler
// is re-raised so net/http can abort the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"panic":  fmt.Sprint(rec),
						"method": r.Method,
						"path":   r.URL.Path,
					})
				}
				err := pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("panic: %v", rec), "handler panicked")
				responses.WriteError(ctx, logg, w, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
