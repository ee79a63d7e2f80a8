package controllers

import (
	"net/http"

	"github.com/angelmondragon/luvwish-checkout/api/middleware"
	"github.com/angelmondragon/luvwish-checkout/api/responses"
	"github.com/angelmondragon/luvwish-checkout/internal/checkout"
	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
)

// PaymentEnter returns the order intent for the payment stage.
func PaymentEnter(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.EnterPayment(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
