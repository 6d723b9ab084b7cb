package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/princekumarofficial/imgbed/internal/utils/response"
)

// Recover turns a handler panic into a JSON 500.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rv := recover()
			if rv == nil {
				return
			}
			if rv == http.ErrAbortHandler {
				panic(rv)
			}

			slog.Error("panic serving request",
				slog.Any("panic", rv),
				slog.String("path", r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("stack", string(debug.Stack())))
			response.WriteJSON(w, http.StatusInternalServerError, response.Error("internal server error"))
		}()

		next.ServeHTTP(w, r)
	})
}
