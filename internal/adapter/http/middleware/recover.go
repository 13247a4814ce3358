package middleware

import (
	"fmt"
	"net/http"

	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
)

func (app *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				ctx := wrap.WithAction(r.Context(), "recover")
				app.log.Error(ctx, "panic while serving request", fmt.Errorf("%v", p), "method", r.Method, "path", r.URL.Path)

				w.Header().Set("Connection", "close")
				reject(w, r, http.StatusInternalServerError, msgInternal)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
