package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/luvwish-checkout/internal/failure"
	"github.com/angelmondragon/luvwish-checkout/internal/gateway"
	"github.com/angelmondragon/luvwish-checkout/internal/guard"
	"github.com/angelmondragon/luvwish-checkout/internal/notifications"
	"github.com/angelmondragon/luvwish-checkout/internal/pricing"
	"github.com/angelmondragon/luvwish-checkout/pkg/auth"
	pkgerrors "github.com/angelmondragon/luvwish-checkout/pkg/errors"
	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
	"github.com/angelmondragon/luvwish-checkout/pkg/metrics"
	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

const (
	msgLogin        = "Please log in to continue"
	msgLoginAddCart = "Please log in to add item to cart"
	msgNeedAddress  = "Please add a delivery address"
	msgEmptyCart    = "Your cart is empty"
	msgEmptyCoupon  = "Please enter a coupon code"
)

type cartGateway interface {
	FetchCart(ctx context.Context, credential string) gateway.Result[types.CartSnapshot]
	AddLine(ctx context.Context, credential, productID string, quantity int) gateway.Result[gateway.Empty]
	UpdateLine(ctx context.Context, credential string, line types.CartLine, quantity int) gateway.Result[gateway.Empty]
	RemoveLine(ctx context.Context, credential, lineID string) gateway.Result[gateway.Empty]
}

type addressGateway interface {
	ListAddresses(ctx context.Context, credential string) gateway.Result[[]types.Address]
	CreateAddress(ctx context.Context, credential string, input types.AddressInput) gateway.Result[types.Address]
	UpdateAddress(ctx context.Context, credential, id string, patch types.AddressPatch) gateway.Result[types.Address]
	DeleteAddress(ctx context.Context, credential, id string) gateway.Result[gateway.Empty]
}

type couponGateway interface {
	ApplyCoupon(ctx context.Context, credential, cartID, code string) gateway.Result[gateway.CouponResult]
}

// Service is the checkout flow controller. Every operation takes the calling
// actor; anonymous actors are turned away before any stage is entered.
type Service interface {
	EnterCart(ctx context.Context, actor auth.Actor) (CartView, error)
	ChangeQuantity(ctx context.Context, actor auth.Actor, lineID string, delta int) (CartView, error)
	RemoveLine(ctx context.Context, actor auth.Actor, lineID string) (CartView, error)
	AddToCart(ctx context.Context, actor auth.Actor, productID string, quantity int) (CartView, error)
	ApplyCoupon(ctx context.Context, actor auth.Actor, code string) (CartView, error)
	BuyNow(ctx context.Context, actor auth.Actor) (Transition, error)

	EnterDelivery(ctx context.Context, actor auth.Actor) (DeliveryView, error)
	SelectDelivery(ctx context.Context, actor auth.Actor, delivery pricing.DeliveryType) (DeliveryView, error)
	SelectAddress(ctx context.Context, actor auth.Actor, addressID string) (DeliveryView, error)
	UpdateAddressField(ctx context.Context, actor auth.Actor, field, value string) (FormView, error)
	SubmitNewAddress(ctx context.Context, actor auth.Actor) (DeliveryView, error)
	SaveCandidate(ctx context.Context, actor auth.Actor, addressID string) (DeliveryView, error)
	ProceedToPayment(ctx context.Context, actor auth.Actor) (Transition, error)

	EnterPayment(ctx context.Context, actor auth.Actor) (PaymentView, error)

	ListAddresses(ctx context.Context, actor auth.Actor) ([]types.Address, error)
	CreateAddress(ctx context.Context, actor auth.Actor, input types.AddressInput) (types.Address, error)
	UpdateAddress(ctx context.Context, actor auth.Actor, addressID string, patch types.AddressPatch) (types.Address, error)
	DeleteAddress(ctx context.Context, actor auth.Actor, addressID string) error
}

// Deps wires the controller's collaborators.
type Deps struct {
	Cart       cartGateway
	Addresses  addressGateway
	Coupons    couponGateway
	Guard      guard.Guard
	Store      Store
	Notices    notifications.Publisher
	Fees       pricing.Fees
	EntryPoint string
	Metrics    *metrics.CheckoutMetrics
	Logger     *logger.Logger
}

type service struct {
	cart       cartGateway
	addresses  addressGateway
	coupons    couponGateway
	guard      guard.Guard
	store      Store
	notices    notifications.Publisher
	fees       pricing.Fees
	entryPoint string
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the checkout controller.
func NewService(deps Deps) (Service, error) {
	if deps.Cart == nil {
		return nil, fmt.Errorf("cart gateway required")
	}
	if deps.Addresses == nil {
		return nil, fmt.Errorf("address gateway required")
	}
	if deps.Coupons == nil {
		return nil, fmt.Errorf("coupon gateway required")
	}
	if deps.Guard == nil {
		return nil, fmt.Errorf("line guard required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if deps.Notices == nil {
		return nil, fmt.Errorf("notice publisher required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	entry := strings.TrimSpace(deps.EntryPoint)
	if entry == "" {
		entry = "/"
	}
	return &service{
		cart:       deps.Cart,
		addresses:  deps.Addresses,
		coupons:    deps.Coupons,
		guard:      deps.Guard,
		store:      deps.Store,
		notices:    deps.Notices,
		fees:       deps.Fees,
		entryPoint: entry,
		metrics:    deps.Metrics,
		logg:       deps.Logger,
		now:        time.Now,
	}, nil
}

// authorize is the entry guard shared by every operation.
func (s *service) authorize(ctx context.Context, actor auth.Actor, message string) (context.Context, error) {
	if !actor.IsAuthenticated() {
		return ctx, s.authError(message)
	}
	return s.logg.WithUserID(ctx, actor.UserID()), nil
}

func (s *service) authError(message string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, message).WithDetails(map[string]any{
		"redirect": s.entryPoint,
		"notice":   message,
	})
}

// fail converts a gateway failure into the error returned to the caller.
// Auth failures also post a blocking notice.
func (s *service) fail(ctx context.Context, actor auth.Actor, f *failure.Classified) error {
	if f.Category == failure.CategoryAuth {
		s.publish(ctx, notifications.ForFailure(actor.UserID(), f, s.entryPoint))
		return s.authError(f.Message)
	}
	return f.AsError()
}

// surface posts the notice for a non-auth failure and returns the problem
// shown alongside the last known state.
func (s *service) surface(ctx context.Context, actor auth.Actor, f *failure.Classified) *Problem {
	s.publish(ctx, notifications.ForFailure(actor.UserID(), f, s.entryPoint))
	return problemFrom(f)
}

func (s *service) publish(ctx context.Context, notice notifications.Notice) {
	if err := s.notices.Publish(ctx, notice); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "notice_message", notice.Message), "checkout.notice.dropped")
	}
}

func (s *service) loadSession(ctx context.Context, userID string) (Session, error) {
	sess, err := s.store.Load(ctx, userID)
	if err != nil {
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	return sess, nil
}

// update runs fn atomically against the session. Errors returned by fn are
// passed through unchanged; store failures become dependency errors.
func (s *service) update(ctx context.Context, userID string, fn func(*Session) error) (Session, error) {
	sess, err := s.store.Update(ctx, userID, fn)
	if err == nil {
		return sess, nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return Session{}, typed
	}
	return Session{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update checkout session")
}

func requireStage(sess *Session, want Stage, action string) error {
	if sess.Stage != want {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%s is only available on the %s stage", action, want)).
			WithDetails(map[string]any{"stage": sess.Stage})
	}
	return nil
}

func (s *service) busyLines(ctx context.Context, scope string) []string {
	busy, err := s.guard.InFlight(ctx, scope)
	if err != nil {
		s.logg.Warn(ctx, "checkout.guard.inflight_failed")
		return []string{}
	}
	return busy
}

func (s *service) transition(ctx context.Context, from, to Stage, err error) {
	outcome := "allowed"
	if err != nil {
		outcome = "blocked"
	}
	s.metrics.IncTransition(string(from), string(to), outcome)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"from":    string(from),
		"to":      string(to),
		"outcome": outcome,
	})
	s.logg.Info(logCtx, "checkout.transition")
}
