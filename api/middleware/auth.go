package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/luvwish-checkout/pkg/auth"
	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
)

// Authenticator resolves a bearer token; *auth.Authenticator satisfies it.
type Authenticator interface {
	Authenticate(token string) (auth.Actor, error)
}

// Auth resolves the bearer token into an actor. Missing or rejected tokens
// leave the request anonymous; checkout operations turn anonymous actors away
// with a login redirect.
func Auth(authn Authenticator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := auth.Anonymous()

			token := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}

			ctx := r.Context()
			if token != "" && authn != nil {
				resolved, err := authn.Authenticate(token)
				if err != nil {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "reason", err.Error()), "auth.token_rejected")
					}
				} else {
					actor = resolved
					if logg != nil {
						ctx = logg.WithUserID(ctx, actor.UserID())
					}
				}
			}

			next.ServeHTTP(w, r.WithContext(WithActor(ctx, actor)))
		})
	}
}
