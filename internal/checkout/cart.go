package checkout

import (
	"context"
	"strings"

	"github.com/angelmondragon/luvwish-checkout/internal/failure"
	"github.com/angelmondragon/luvwish-checkout/internal/gateway"
	"github.com/angelmondragon/luvwish-checkout/internal/notifications"
	"github.com/angelmondragon/luvwish-checkout/pkg/auth"
	pkgerrors "github.com/angelmondragon/luvwish-checkout/pkg/errors"
	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

func emptySnapshot() types.CartSnapshot {
	return types.CartSnapshot{Lines: []types.CartLine{}}
}

// fetch returns the current cart, or an empty snapshot with the failure.
func (s *service) fetch(ctx context.Context, actor auth.Actor) (types.CartSnapshot, *failure.Classified) {
	res := s.cart.FetchCart(ctx, actor.Credential())
	if !res.OK() {
		return emptySnapshot(), res.Failure()
	}
	snapshot := res.Value()
	if snapshot.Lines == nil {
		snapshot.Lines = []types.CartLine{}
	}
	return snapshot, nil
}

func (s *service) EnterCart(ctx context.Context, actor auth.Actor) (CartView, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return CartView{}, err
	}
	ctx = s.logg.WithStage(ctx, string(StageCart))
	return s.showCart(ctx, actor, func(sess *Session) { sess.Stage = StageCart })
}

// showCart re-fetches the cart, records it as displayed and renders it.
func (s *service) showCart(ctx context.Context, actor auth.Actor, mutate func(*Session)) (CartView, error) {
	snapshot, f := s.fetch(ctx, actor)
	var problem *Problem
	if f != nil {
		if f.Category == failure.CategoryAuth {
			return CartView{}, s.fail(ctx, actor, f)
		}
		problem = s.surface(ctx, actor, f)
	}

	sess, err := s.update(ctx, actor.UserID(), func(sess *Session) error {
		if mutate != nil {
			mutate(sess)
		}
		sess.Displayed = snapshot
		return nil
	})
	if err != nil {
		return CartView{}, err
	}
	view := cartView(sess, snapshot, s.fees, s.busyLines(ctx, actor.UserID()))
	view.Problem = problem
	return view, nil
}

// showDisplayed renders the last displayed snapshot without contacting the
// cart service.
func (s *service) showDisplayed(ctx context.Context, actor auth.Actor, problem *Problem) (CartView, error) {
	sess, err := s.loadSession(ctx, actor.UserID())
	if err != nil {
		return CartView{}, err
	}
	view := cartView(sess, sess.Displayed, s.fees, s.busyLines(ctx, actor.UserID()))
	view.Problem = problem
	return view, nil
}

func (s *service) ChangeQuantity(ctx context.Context, actor auth.Actor, lineID string, delta int) (CartView, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return CartView{}, err
	}
	if delta == 0 {
		return CartView{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity change must not be zero")
	}
	sess, err := s.loadSession(ctx, actor.UserID())
	if err != nil {
		return CartView{}, err
	}
	line, ok := sess.Displayed.Line(lineID)
	if !ok {
		return CartView{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}

	target := line.Quantity + delta
	if target < 1 {
		// Quantity never drops below one; removal is a separate action.
		return cartView(sess, sess.Displayed, s.fees, s.busyLines(ctx, actor.UserID())), nil
	}
	return s.mutateLine(ctx, actor, lineID, func() gateway.Result[gateway.Empty] {
		return s.cart.UpdateLine(ctx, actor.Credential(), line, target)
	})
}

func (s *service) RemoveLine(ctx context.Context, actor auth.Actor, lineID string) (CartView, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return CartView{}, err
	}
	sess, err := s.loadSession(ctx, actor.UserID())
	if err != nil {
		return CartView{}, err
	}
	if _, ok := sess.Displayed.Line(lineID); !ok {
		return CartView{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return s.mutateLine(ctx, actor, lineID, func() gateway.Result[gateway.Empty] {
		return s.cart.RemoveLine(ctx, actor.Credential(), lineID)
	})
}

// mutateLine runs call under the line guard. A rejected guard is reported as
// busy, not as an error. The guard is released before the cart is re-fetched.
func (s *service) mutateLine(ctx context.Context, actor auth.Actor, lineID string, call func() gateway.Result[gateway.Empty]) (CartView, error) {
	scope := actor.UserID()
	ctx = s.logg.WithField(ctx, "line_id", lineID)

	acquired, err := s.guard.Begin(ctx, scope, lineID)
	if err != nil {
		return CartView{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "line guard unavailable")
	}
	if !acquired {
		s.metrics.IncGuardRejected(string(s.guard.Policy()))
		s.logg.Debug(ctx, "checkout.line.busy")
		view, err := s.showDisplayed(ctx, actor, nil)
		view.Busy = true
		return view, err
	}

	res := func() gateway.Result[gateway.Empty] {
		defer func() {
			if err := s.guard.End(context.WithoutCancel(ctx), scope, lineID); err != nil {
				s.logg.Error(ctx, "checkout.guard.release_failed", err)
			}
		}()
		return call()
	}()

	if !res.OK() {
		if res.Failure().Category == failure.CategoryAuth {
			return CartView{}, s.fail(ctx, actor, res.Failure())
		}
		return s.showDisplayed(ctx, actor, s.surface(ctx, actor, res.Failure()))
	}
	s.logg.Info(ctx, "checkout.line.mutated")
	return s.showCart(ctx, actor, nil)
}

func (s *service) AddToCart(ctx context.Context, actor auth.Actor, productID string, quantity int) (CartView, error) {
	ctx, err := s.authorize(ctx, actor, msgLoginAddCart)
	if err != nil {
		return CartView{}, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return CartView{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		return CartView{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	res := s.cart.AddLine(ctx, actor.Credential(), productID, quantity)
	if !res.OK() {
		if res.Failure().Category == failure.CategoryAuth {
			return CartView{}, s.fail(ctx, actor, res.Failure())
		}
		return s.showDisplayed(ctx, actor, s.surface(ctx, actor, res.Failure()))
	}
	s.publish(ctx, notifications.Transient(actor.UserID(), notifications.KindSuccess, "Added to cart"))
	return s.showCart(ctx, actor, nil)
}

// ApplyCoupon asks the coupon service to apply code to the cart. The
// discount is never computed here: the re-fetched cart total reflects it.
// A response arriving after the session left the cart stage is discarded.
func (s *service) ApplyCoupon(ctx context.Context, actor auth.Actor, code string) (CartView, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return CartView{}, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return CartView{}, pkgerrors.New(pkgerrors.CodeValidation, msgEmptyCoupon)
	}
	sess, err := s.loadSession(ctx, actor.UserID())
	if err != nil {
		return CartView{}, err
	}
	if err := requireStage(&sess, StageCart, "coupon application"); err != nil {
		return CartView{}, err
	}
	cartID := sess.Displayed.ResolvedCartID()
	if cartID == "" {
		return CartView{}, pkgerrors.New(pkgerrors.CodeStateConflict, msgEmptyCart)
	}

	ctx = s.logg.WithField(ctx, "coupon_code", code)
	res := s.coupons.ApplyCoupon(ctx, actor.Credential(), cartID, code)
	if !res.OK() {
		if res.Failure().Category == failure.CategoryAuth {
			return CartView{}, s.fail(ctx, actor, res.Failure())
		}
		return s.showDisplayed(ctx, actor, s.surface(ctx, actor, res.Failure()))
	}

	snapshot, f := s.fetch(ctx, actor)
	var problem *Problem
	if f != nil {
		if f.Category == failure.CategoryAuth {
			return CartView{}, s.fail(ctx, actor, f)
		}
		problem = s.surface(ctx, actor, f)
	}

	applied := CouponApplication{
		Code:              code,
		CartID:            cartID,
		ResultingDiscount: res.Value().Discount,
		Message:           res.Value().Message,
		AppliedAt:         s.now().UTC(),
	}
	stale := false
	sess, err = s.update(ctx, actor.UserID(), func(cur *Session) error {
		if f == nil {
			cur.Displayed = snapshot
		}
		if cur.Stage != StageCart {
			stale = true
			return nil
		}
		cur.Coupon = &applied
		return nil
	})
	if err != nil {
		return CartView{}, err
	}

	if stale {
		s.logg.Debug(ctx, "checkout.coupon.stale_discarded")
	} else {
		s.logg.Info(ctx, "checkout.coupon.applied")
		message := applied.Message
		if message == "" {
			message = "Coupon applied"
		}
		s.publish(ctx, notifications.Transient(actor.UserID(), notifications.KindSuccess, message))
	}

	view := cartView(sess, sess.Displayed, s.fees, s.busyLines(ctx, actor.UserID()))
	view.Problem = problem
	return view, nil
}

// BuyNow moves a non-empty cart to the delivery stage. Line availability is
// not re-checked here; the cart service validates stock at order submission.
func (s *service) BuyNow(ctx context.Context, actor auth.Actor) (Transition, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return Transition{}, err
	}
	snapshot, f := s.fetch(ctx, actor)
	if f != nil {
		err := s.fail(ctx, actor, f)
		if f.Category != failure.CategoryAuth {
			s.surface(ctx, actor, f)
		}
		s.transition(ctx, StageCart, StageDelivery, err)
		return Transition{}, err
	}

	_, err = s.update(ctx, actor.UserID(), func(cur *Session) error {
		cur.Displayed = snapshot
		if err := requireStage(cur, StageCart, "buy now"); err != nil {
			return err
		}
		if snapshot.IsEmpty() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, msgEmptyCart)
		}
		cur.Stage = StageDelivery
		cur.Delivery = defaultDelivery
		return nil
	})
	s.transition(ctx, StageCart, StageDelivery, err)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) && snapshot.IsEmpty() {
			s.publish(ctx, notifications.Transient(actor.UserID(), notifications.KindWarning, msgEmptyCart))
		}
		return Transition{}, err
	}
	return Transition{From: StageCart, To: StageDelivery}, nil
}
