package middleware

import (
	"net/http"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
)

// RequireRole rejects requests whose principal is not one of the allowed roles.
func RequireRole(logg *logger.Logger, allowed ...enums.ActorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			for _, candidate := range allowed {
				if string(candidate) == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted"))
		})
	}
}
