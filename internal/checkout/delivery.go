package checkout

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/luvwish-checkout/internal/addressform"
	"github.com/angelmondragon/luvwish-checkout/internal/failure"
	"github.com/angelmondragon/luvwish-checkout/internal/gateway"
	"github.com/angelmondragon/luvwish-checkout/internal/notifications"
	"github.com/angelmondragon/luvwish-checkout/internal/pricing"
	"github.com/angelmondragon/luvwish-checkout/pkg/auth"
	pkgerrors "github.com/angelmondragon/luvwish-checkout/pkg/errors"
	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

const (
	defaultDelivery = pricing.DeliveryStandard

	// needAddressNotice is how long the missing-address notice stays up.
	needAddressNotice = 2 * time.Second
)

// authOnly lets an auth failure cancel sibling requests; other failures are
// handled once every request has finished.
func authOnly(f *failure.Classified) error {
	if f != nil && f.Category == failure.CategoryAuth {
		return f
	}
	return nil
}

// EnterDelivery loads the cart and the saved addresses concurrently, resets
// the delivery method and merges saved addresses with pending ones. Results
// that land after the session went back to the cart are discarded.
func (s *service) EnterDelivery(ctx context.Context, actor auth.Actor) (DeliveryView, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return DeliveryView{}, err
	}
	ctx = s.logg.WithStage(ctx, string(StageDelivery))

	sess, err := s.loadSession(ctx, actor.UserID())
	if err != nil {
		return DeliveryView{}, err
	}
	if sess.Stage == StageCart {
		return DeliveryView{}, pkgerrors.New(pkgerrors.CodeStateConflict, "start checkout from the cart")
	}

	var (
		cartRes gateway.Result[types.CartSnapshot]
		addrRes gateway.Result[[]types.Address]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cartRes = s.cart.FetchCart(gctx, actor.Credential())
		return authOnly(cartRes.Failure())
	})
	g.Go(func() error {
		addrRes = s.addresses.ListAddresses(gctx, actor.Credential())
		return authOnly(addrRes.Failure())
	})
	if err := g.Wait(); err != nil {
		var f *failure.Classified
		if errors.As(err, &f) {
			return DeliveryView{}, s.fail(ctx, actor, f)
		}
		return DeliveryView{}, err
	}

	var problem *Problem
	snapshot := emptySnapshot()
	if cartRes.OK() {
		snapshot = cartRes.Value()
		if snapshot.Lines == nil {
			snapshot.Lines = []types.CartLine{}
		}
	} else {
		problem = s.surface(ctx, actor, cartRes.Failure())
	}
	if !addrRes.OK() {
		p := s.surface(ctx, actor, addrRes.Failure())
		if problem == nil {
			problem = p
		}
	}

	stale := false
	sess, err = s.update(ctx, actor.UserID(), func(cur *Session) error {
		if cur.Stage == StageCart {
			stale = true
			return pkgerrors.New(pkgerrors.CodeStateConflict, "start checkout from the cart")
		}
		cur.Stage = StageDelivery
		cur.Delivery = defaultDelivery
		cur.Displayed = snapshot
		if addrRes.OK() {
			cur.mergeCandidates(addrRes.Value())
		} else {
			cur.reselect()
		}
		return nil
	})
	if err != nil {
		if stale {
			s.logg.Debug(ctx, "checkout.delivery.stale_discarded")
		}
		return DeliveryView{}, err
	}
	view := deliveryView(sess, s.fees)
	view.Problem = problem
	return view, nil
}

func (s *service) SelectDelivery(ctx context.Context, actor auth.Actor, delivery pricing.DeliveryType) (DeliveryView, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return DeliveryView{}, err
	}
	parsed, err := pricing.ParseDeliveryType(string(delivery))
	if err != nil {
		return DeliveryView{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown delivery type")
	}
	sess, err := s.update(ctx, actor.UserID(), func(cur *Session) error {
		if err := requireStage(cur, StageDelivery, "delivery selection"); err != nil {
			return err
		}
		cur.Delivery = parsed
		return nil
	})
	if err != nil {
		return DeliveryView{}, err
	}
	return deliveryView(sess, s.fees), nil
}

func (s *service) SelectAddress(ctx context.Context, actor auth.Actor, addressID string) (DeliveryView, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return DeliveryView{}, err
	}
	sess, err := s.update(ctx, actor.UserID(), func(cur *Session) error {
		if err := requireStage(cur, StageDelivery, "address selection"); err != nil {
			return err
		}
		if _, ok := cur.Candidate(addressID); !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		cur.SelectedAddressID = addressID
		return nil
	})
	if err != nil {
		return DeliveryView{}, err
	}
	return deliveryView(sess, s.fees), nil
}

func (s *service) UpdateAddressField(ctx context.Context, actor auth.Actor, field, value string) (FormView, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return FormView{}, err
	}
	parsed, err := addressform.ParseField(field)
	if err != nil {
		return FormView{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown address field")
	}
	sess, err := s.update(ctx, actor.UserID(), func(cur *Session) error {
		if err := requireStage(cur, StageDelivery, "address entry"); err != nil {
			return err
		}
		return cur.Form.SetField(parsed, value)
	})
	if err != nil {
		return FormView{}, err
	}
	return formView(sess.Form), nil
}

// SubmitNewAddress adds the form's address as a pending candidate and selects
// it. An invalid form leaves the candidate set untouched.
func (s *service) SubmitNewAddress(ctx context.Context, actor auth.Actor) (DeliveryView, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return DeliveryView{}, err
	}
	var invalid map[addressform.Field]string
	sess, err := s.update(ctx, actor.UserID(), func(cur *Session) error {
		if err := requireStage(cur, StageDelivery, "address entry"); err != nil {
			return err
		}
		addr, errs := cur.Form.Submit()
		if len(errs) > 0 {
			invalid = errs
			return nil
		}
		cur.Candidates = append(cur.Candidates, Pending(addr))
		cur.SelectedAddressID = addr.ID
		return nil
	})
	if err != nil {
		return DeliveryView{}, err
	}
	if len(invalid) > 0 {
		return DeliveryView{}, pkgerrors.New(pkgerrors.CodeValidation, "address is incomplete").
			WithDetails(addressform.Messages(invalid))
	}
	s.logg.Info(s.logg.WithField(ctx, "address_id", sess.SelectedAddressID), "checkout.address.pending_added")
	return deliveryView(sess, s.fees), nil
}

// SaveCandidate persists a pending candidate through the address service and
// swaps it for the saved address.
func (s *service) SaveCandidate(ctx context.Context, actor auth.Actor, addressID string) (DeliveryView, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return DeliveryView{}, err
	}
	sess, err := s.loadSession(ctx, actor.UserID())
	if err != nil {
		return DeliveryView{}, err
	}
	if err := requireStage(&sess, StageDelivery, "address saving"); err != nil {
		return DeliveryView{}, err
	}
	candidate, ok := sess.Candidate(addressID)
	if !ok {
		return DeliveryView{}, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	if candidate.IsDurable() {
		return deliveryView(sess, s.fees), nil
	}

	res := s.addresses.CreateAddress(ctx, actor.Credential(), candidate.Address().Input())
	if !res.OK() {
		if res.Failure().Category == failure.CategoryAuth {
			return DeliveryView{}, s.fail(ctx, actor, res.Failure())
		}
		view := deliveryView(sess, s.fees)
		view.Problem = s.surface(ctx, actor, res.Failure())
		return view, nil
	}
	saved := res.Value()

	replaced := false
	sess, err = s.update(ctx, actor.UserID(), func(cur *Session) error {
		for i, c := range cur.Candidates {
			if c.ID() == addressID && c.IsPending() {
				cur.Candidates[i] = Persisted(saved)
				replaced = true
				break
			}
		}
		if replaced && cur.SelectedAddressID == addressID {
			cur.SelectedAddressID = saved.ID
		}
		return nil
	})
	if err != nil {
		return DeliveryView{}, err
	}
	if !replaced {
		s.logg.Debug(ctx, "checkout.address.save_stale")
	}
	s.publish(ctx, notifications.Transient(actor.UserID(), notifications.KindSuccess, "Address saved"))
	return deliveryView(sess, s.fees), nil
}

// ProceedToPayment moves to the payment stage once an address is selected.
// Without one the move is blocked and a dismissible notice is posted.
func (s *service) ProceedToPayment(ctx context.Context, actor auth.Actor) (Transition, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return Transition{}, err
	}
	missingAddress := false
	_, err = s.update(ctx, actor.UserID(), func(cur *Session) error {
		if err := requireStage(cur, StageDelivery, "proceed to payment"); err != nil {
			return err
		}
		if _, ok := cur.Selected(); !ok {
			missingAddress = true
			return pkgerrors.New(pkgerrors.CodeStateConflict, msgNeedAddress)
		}
		cur.Stage = StagePayment
		return nil
	})
	s.transition(ctx, StageDelivery, StagePayment, err)
	if missingAddress {
		notice := notifications.Transient(actor.UserID(), notifications.KindWarning, msgNeedAddress)
		notice.Duration = needAddressNotice
		s.publish(ctx, notice)
	}
	if err != nil {
		return Transition{}, err
	}
	return Transition{From: StageDelivery, To: StagePayment}, nil
}
