package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/luvwish-checkout/internal/failure"
	"github.com/angelmondragon/luvwish-checkout/pkg/config"
)

// CouponGateway applies discount codes against a cart.
type CouponGateway struct {
	client *client
}

func NewCouponGateway(cfg config.GatewayConfig, deps Deps) (*CouponGateway, error) {
	c, err := newClient("coupon", cfg.CouponURL(), cfg, deps)
	if err != nil {
		return nil, err
	}
	return &CouponGateway{client: c}, nil
}

// CouponResult is what the coupon service reports after applying a code.
type CouponResult struct {
	Message     string
	Discount    decimal.Decimal
	TotalAmount *decimal.Decimal
}

type applyCouponBody struct {
	CartID     string `json:"cartId"`
	CouponName string `json:"couponName"`
}

type wireCouponTotals struct {
	Discount       *decimal.Decimal `json:"discount"`
	DiscountAmount *decimal.Decimal `json:"discountAmount"`
	TotalAmount    *decimal.Decimal `json:"totalAmount"`
}

// ApplyCoupon validates code against the cart. A missing credential is a
// precondition failure and no request is made.
func (g *CouponGateway) ApplyCoupon(ctx context.Context, credential, cartID, code string) Result[CouponResult] {
	if strings.TrimSpace(credential) == "" {
		return failed[CouponResult](failure.Auth(""))
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return failed[CouponResult](failure.Validation("please enter a coupon code"))
	}
	if strings.TrimSpace(cartID) == "" {
		return failed[CouponResult](failure.Validation("cart is empty"))
	}

	resp, f := g.client.do(ctx, "apply", request{
		method:     http.MethodPost,
		path:       []string{"coupons"},
		body:       applyCouponBody{CartID: cartID, CouponName: code},
		credential: credential,
	})
	if f != nil {
		return failed[CouponResult](f)
	}
	env, f := decodeEnvelope(resp)
	if f != nil {
		return failed[CouponResult](f)
	}

	result := CouponResult{Message: strings.TrimSpace(env.Message)}
	if hasData(env.Data) {
		var totals wireCouponTotals
		if err := json.Unmarshal(env.Data, &totals); err != nil {
			return failed[CouponResult](failure.Classify(fmt.Errorf("decode coupon totals: %w", err)))
		}
		switch {
		case totals.Discount != nil:
			result.Discount = *totals.Discount
		case totals.DiscountAmount != nil:
			result.Discount = *totals.DiscountAmount
		}
		result.TotalAmount = totals.TotalAmount
	}
	return ok(result)
}
