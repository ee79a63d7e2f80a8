package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/luvwish-checkout/api/middleware"
	"github.com/angelmondragon/luvwish-checkout/api/responses"
	"github.com/angelmondragon/luvwish-checkout/internal/notifications"
	pkgerrors "github.com/angelmondragon/luvwish-checkout/pkg/errors"
	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
)

// ListNotices returns the caller's live notices, oldest first.
func ListNotices(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !actor.IsAuthenticated() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Please log in to continue"))
			return
		}
		notices, err := svc.List(r.Context(), actor.UserID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notices)
	}
}

func DismissNotice(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		if !actor.IsAuthenticated() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Please log in to continue"))
			return
		}
		if err := svc.Dismiss(r.Context(), actor.UserID(), chi.URLParam(r, "noticeId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
