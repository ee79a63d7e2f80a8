package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/luvwish-checkout/api/middleware"
	"github.com/angelmondragon/luvwish-checkout/api/responses"
	"github.com/angelmondragon/luvwish-checkout/api/validators"
	"github.com/angelmondragon/luvwish-checkout/internal/checkout"
	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
)

const maxIdentifierLen = 128

type addToCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

// CartEnter renders the cart stage.
func CartEnter(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.EnterCart(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartAddItem(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addToCartRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID := validators.SanitizeString(req.ProductID, maxIdentifierLen)
		view, err := svc.AddToCart(r.Context(), middleware.ActorFromContext(r.Context()), productID, req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// CartChangeQuantity applies a +/- step to one line.
func CartChangeQuantity(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changeQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID := chi.URLParam(r, "lineId")
		view, err := svc.ChangeQuantity(r.Context(), middleware.ActorFromContext(r.Context()), lineID, req.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartRemoveItem(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID := chi.URLParam(r, "lineId")
		view, err := svc.RemoveLine(r.Context(), middleware.ActorFromContext(r.Context()), lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartApplyCoupon leaves blank-code handling to the service so the storefront
// message is returned.
func CartApplyCoupon(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req applyCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code := validators.SanitizeString(req.Code, maxIdentifierLen)
		view, err := svc.ApplyCoupon(r.Context(), middleware.ActorFromContext(r.Context()), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartBuyNow(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transition, err := svc.BuyNow(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transition)
	}
}
