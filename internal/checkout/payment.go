package checkout

import (
	"context"

	"github.com/angelmondragon/luvwish-checkout/internal/failure"
	"github.com/angelmondragon/luvwish-checkout/internal/pricing"
	"github.com/angelmondragon/luvwish-checkout/pkg/auth"
	pkgerrors "github.com/angelmondragon/luvwish-checkout/pkg/errors"
)

// EnterPayment re-fetches the cart and assembles the order intent. The
// subtotal already reflects any coupon; it is not re-applied here.
func (s *service) EnterPayment(ctx context.Context, actor auth.Actor) (PaymentView, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return PaymentView{}, err
	}
	ctx = s.logg.WithStage(ctx, string(StagePayment))

	sess, err := s.loadSession(ctx, actor.UserID())
	if err != nil {
		return PaymentView{}, err
	}
	if sess.Stage != StagePayment {
		return PaymentView{}, pkgerrors.New(pkgerrors.CodeStateConflict, "choose a delivery address first").
			WithDetails(map[string]any{"stage": sess.Stage})
	}

	snapshot, f := s.fetch(ctx, actor)
	var problem *Problem
	if f != nil {
		if f.Category == failure.CategoryAuth {
			return PaymentView{}, s.fail(ctx, actor, f)
		}
		problem = s.surface(ctx, actor, f)
	}

	sess, err = s.update(ctx, actor.UserID(), func(cur *Session) error {
		if err := requireStage(cur, StagePayment, "payment"); err != nil {
			return err
		}
		cur.Displayed = snapshot
		return nil
	})
	if err != nil {
		return PaymentView{}, err
	}

	totals := pricing.Compute(snapshot, sess.Delivery, s.fees)
	intent := OrderIntent{
		CartID:   snapshot.ResolvedCartID(),
		Lines:    snapshot.Lines,
		Delivery: sess.Delivery,
		Totals:   totals,
		Display:  totals.Display(),
	}
	selected, hasAddress := sess.Selected()
	if hasAddress {
		intent.Address = selected.Address()
		intent.AddressSummary = selected.Address().Summary()
		intent.AddressDurable = selected.IsDurable()
	}
	if sess.Coupon != nil && sess.Coupon.CartID == intent.CartID {
		intent.CouponCode = sess.Coupon.Code
	}
	intent.Ready = hasAddress && f == nil && !snapshot.IsEmpty()

	s.logg.Info(s.logg.WithField(ctx, "ready", intent.Ready), "checkout.payment.intent_ready")
	return PaymentView{Stage: sess.Stage, Intent: intent, Problem: problem}, nil
}
