package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/luvwish-checkout/api/responses"
	"github.com/angelmondragon/luvwish-checkout/pkg/config"
	pkgerrors "github.com/angelmondragon/luvwish-checkout/pkg/errors"
	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
)

// Pinger is satisfied by the optional Redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Luvwish-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once every configured dependency answers. A nil
// redis means Redis is not in use.
func HealthReady(cfg *config.Config, logg *logger.Logger, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Luvwish-Env", cfg.App.Env)
		if redis != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redis.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
