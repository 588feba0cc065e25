package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/souqline/souqline-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID echoes or mints a request id and threads it through the logger
// context so every entry for the request carries it.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
