package checkout

import (
	"github.com/angelmondragon/luvwish-checkout/internal/addressform"
	"github.com/angelmondragon/luvwish-checkout/internal/failure"
	"github.com/angelmondragon/luvwish-checkout/internal/pricing"
	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

// Problem is a classified failure shown next to the last known state.
type Problem struct {
	Category  failure.Category `json:"category"`
	Message   string           `json:"message"`
	Retryable bool             `json:"retryable"`
}

func problemFrom(f *failure.Classified) *Problem {
	if f == nil {
		return nil
	}
	return &Problem{Category: f.Category, Message: f.Message, Retryable: f.Retryable()}
}

// CartView is the cart stage as shown to the user. BusyLines lists lines with
// a mutation in flight, whose controls are disabled; Busy is set when the
// requested mutation was dropped for that reason.
type CartView struct {
	Stage     Stage              `json:"stage"`
	Cart      types.CartSnapshot `json:"cart"`
	Totals    pricing.Totals     `json:"totals"`
	Display   pricing.Display    `json:"display"`
	BusyLines []string           `json:"busyLines"`
	Busy      bool               `json:"busy"`
	Coupon    *CouponApplication `json:"coupon,omitempty"`
	Problem   *Problem           `json:"problem,omitempty"`
}

// DeliveryView is the delivery stage as shown to the user.
type DeliveryView struct {
	Stage             Stage                `json:"stage"`
	Cart              types.CartSnapshot   `json:"cart"`
	Totals            pricing.Totals       `json:"totals"`
	Display           pricing.Display      `json:"display"`
	Delivery          pricing.DeliveryType `json:"delivery"`
	Candidates        []Candidate          `json:"candidates"`
	SelectedAddressID string               `json:"selectedAddressId,omitempty"`
	Form              FormView             `json:"form"`
	Problem           *Problem             `json:"problem,omitempty"`
}

// FormView is the new-address form with its whole-form gate.
type FormView struct {
	addressform.Form
	Valid bool `json:"valid"`
}

func formView(f addressform.Form) FormView {
	return FormView{Form: f, Valid: f.Valid()}
}

// PaymentView is the payment stage: the order intent ready to submit.
type PaymentView struct {
	Stage   Stage       `json:"stage"`
	Intent  OrderIntent `json:"intent"`
	Problem *Problem    `json:"problem,omitempty"`
}

// Transition reports a stage change.
type Transition struct {
	From Stage `json:"from"`
	To   Stage `json:"to"`
}

func cartView(sess Session, snapshot types.CartSnapshot, fees pricing.Fees, busy []string) CartView {
	totals := pricing.Compute(snapshot, pricing.DeliveryStandard, fees)
	if busy == nil {
		busy = []string{}
	}
	return CartView{
		Stage:     sess.Stage,
		Cart:      snapshot,
		Totals:    totals,
		Display:   totals.Display(),
		BusyLines: busy,
		Coupon:    sess.Coupon,
	}
}

func deliveryView(sess Session, fees pricing.Fees) DeliveryView {
	totals := pricing.Compute(sess.Displayed, sess.Delivery, fees)
	candidates := sess.Candidates
	if candidates == nil {
		candidates = []Candidate{}
	}
	return DeliveryView{
		Stage:             sess.Stage,
		Cart:              sess.Displayed,
		Totals:            totals,
		Display:           totals.Display(),
		Delivery:          sess.Delivery,
		Candidates:        candidates,
		SelectedAddressID: sess.SelectedAddressID,
		Form:              formView(sess.Form),
	}
}
