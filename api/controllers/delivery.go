package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/luvwish-checkout/api/middleware"
	"github.com/angelmondragon/luvwish-checkout/api/responses"
	"github.com/angelmondragon/luvwish-checkout/api/validators"
	"github.com/angelmondragon/luvwish-checkout/internal/checkout"
	"github.com/angelmondragon/luvwish-checkout/internal/pricing"
	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
)

type selectDeliveryRequest struct {
	Delivery string `json:"delivery" validate:"required"`
}

type selectAddressRequest struct {
	AddressID string `json:"addressId" validate:"required"`
}

type addressFieldRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

func DeliveryEnter(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.EnterDelivery(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func DeliverySelectMethod(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectDeliveryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.SelectDelivery(r.Context(), middleware.ActorFromContext(r.Context()), pricing.DeliveryType(req.Delivery))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func DeliverySelectAddress(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectAddressRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressID := validators.SanitizeString(req.AddressID, maxIdentifierLen)
		view, err := svc.SelectAddress(r.Context(), middleware.ActorFromContext(r.Context()), addressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// DeliveryUpdateField validates a single form input as the user types.
func DeliveryUpdateField(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addressFieldRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := svc.UpdateAddressField(r.Context(), middleware.ActorFromContext(r.Context()), req.Field, req.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, form)
	}
}

func DeliverySubmitAddress(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.SubmitNewAddress(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func DeliverySaveCandidate(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addressID := chi.URLParam(r, "addressId")
		view, err := svc.SaveCandidate(r.Context(), middleware.ActorFromContext(r.Context()), addressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func DeliveryProceed(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transition, err := svc.ProceedToPayment(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transition)
	}
}
