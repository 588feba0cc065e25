package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/pkg/config"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
)

const readyCheckTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Souqline-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when every backing dependency answers.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache pinger) http.HandlerFunc {
	checks := map[string]pinger{
		"database": database,
		"redis":    cache,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Souqline-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency unavailable").
						WithDetails(map[string]any{"dependency": name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
