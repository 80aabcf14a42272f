package controllers

import (
	"context"
	"net/http"

	"github.com/apprl/dashboard-backend/api/responses"
	"github.com/apprl/dashboard-backend/pkg/config"
	pkgerrors "github.com/apprl/dashboard-backend/pkg/errors"
	"github.com/apprl/dashboard-backend/pkg/logger"
)

// Pinger is the health check surface of a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Apprl-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Apprl-Env", cfg.App.Env)

		checks := map[string]Pinger{"db": db, "redis": redis}
		for name, pinger := range checks {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" not ready"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
