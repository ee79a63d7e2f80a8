package checkout

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/luvwish-checkout/internal/failure"
	"github.com/angelmondragon/luvwish-checkout/internal/gateway"
	"github.com/angelmondragon/luvwish-checkout/internal/guard"
	"github.com/angelmondragon/luvwish-checkout/internal/notifications"
	"github.com/angelmondragon/luvwish-checkout/internal/pricing"
	"github.com/angelmondragon/luvwish-checkout/pkg/auth"
	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

type fakeCart struct {
	mu            sync.Mutex
	snapshot      types.CartSnapshot
	fetchFailure  *failure.Classified
	mutateFailure *failure.Classified
	fetchCalls    int
	updates       []int
	removed       []string
	added         []string

	// entered and release, when set, park UpdateLine until release closes.
	entered chan struct{}
	release chan struct{}
	// onFetch runs inside FetchCart before the snapshot is returned.
	onFetch func()
}

func (f *fakeCart) FetchCart(context.Context, string) gateway.Result[types.CartSnapshot] {
	f.mu.Lock()
	onFetch := f.onFetch
	f.mu.Unlock()
	if onFetch != nil {
		onFetch()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchFailure != nil {
		return gateway.Failed[types.CartSnapshot](f.fetchFailure)
	}
	out := f.snapshot
	out.Lines = append([]types.CartLine(nil), f.snapshot.Lines...)
	return gateway.Succeeded(out)
}

func (f *fakeCart) AddLine(_ context.Context, _ string, productID string, quantity int) gateway.Result[gateway.Empty] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateFailure != nil {
		return gateway.Failed[gateway.Empty](f.mutateFailure)
	}
	f.added = append(f.added, productID)
	f.snapshot.Lines = append(f.snapshot.Lines, types.CartLine{
		LineID:    "line-" + productID,
		CartID:    f.snapshot.CartID,
		ProductID: productID,
		Quantity:  quantity,
	})
	return gateway.Succeeded(gateway.Empty{})
}

func (f *fakeCart) UpdateLine(_ context.Context, _ string, line types.CartLine, quantity int) gateway.Result[gateway.Empty] {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, quantity)
	if f.mutateFailure != nil {
		return gateway.Failed[gateway.Empty](f.mutateFailure)
	}
	for i := range f.snapshot.Lines {
		if f.snapshot.Lines[i].LineID == line.LineID {
			f.snapshot.Lines[i].Quantity = quantity
		}
	}
	return gateway.Succeeded(gateway.Empty{})
}

func (f *fakeCart) RemoveLine(_ context.Context, _ string, lineID string) gateway.Result[gateway.Empty] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateFailure != nil {
		return gateway.Failed[gateway.Empty](f.mutateFailure)
	}
	f.removed = append(f.removed, lineID)
	kept := f.snapshot.Lines[:0]
	for _, line := range f.snapshot.Lines {
		if line.LineID != lineID {
			kept = append(kept, line)
		}
	}
	f.snapshot.Lines = kept
	return gateway.Succeeded(gateway.Empty{})
}

func (f *fakeCart) setTotal(amount decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot.TotalAmount = &amount
}

func (f *fakeCart) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

type fakeAddresses struct {
	mu          sync.Mutex
	list        []types.Address
	listFailure *failure.Classified
	created     []types.AddressInput
	patched     map[string]types.AddressPatch
	deleted     []string
}

func (f *fakeAddresses) ListAddresses(context.Context, string) gateway.Result[[]types.Address] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listFailure != nil {
		return gateway.Failed[[]types.Address](f.listFailure)
	}
	return gateway.Succeeded(append([]types.Address(nil), f.list...))
}

func (f *fakeAddresses) CreateAddress(_ context.Context, _ string, input types.AddressInput) gateway.Result[types.Address] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, input)
	addr := types.Address{
		ID:         "saved-" + input.Name,
		Name:       input.Name,
		Address:    input.Address,
		City:       input.City,
		State:      input.State,
		Country:    input.Country,
		PostalCode: input.PostalCode,
		Phone:      input.Phone,
	}
	f.list = append(f.list, addr)
	return gateway.Succeeded(addr)
}

func (f *fakeAddresses) UpdateAddress(_ context.Context, _ string, id string, patch types.AddressPatch) gateway.Result[types.Address] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patched == nil {
		f.patched = map[string]types.AddressPatch{}
	}
	f.patched[id] = patch
	for i := range f.list {
		if f.list[i].ID != id {
			continue
		}
		if patch.City != nil {
			f.list[i].City = *patch.City
		}
		return gateway.Succeeded(f.list[i])
	}
	return gateway.Failed[types.Address](failure.FromResponse(404, []byte(`{"message":"Address not found"}`)))
}

func (f *fakeAddresses) DeleteAddress(_ context.Context, _ string, id string) gateway.Result[gateway.Empty] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return gateway.Succeeded(gateway.Empty{})
}

type fakeCoupons struct {
	mu      sync.Mutex
	calls   int
	result  gateway.CouponResult
	failure *failure.Classified
	// during runs inside the gateway call, before it returns.
	during func()
}

func (f *fakeCoupons) ApplyCoupon(_ context.Context, _ string, _ string, _ string) gateway.Result[gateway.CouponResult] {
	f.mu.Lock()
	f.calls++
	during := f.during
	f.mu.Unlock()
	if during != nil {
		during()
	}
	if f.failure != nil {
		return gateway.Failed[gateway.CouponResult](f.failure)
	}
	return gateway.Succeeded(f.result)
}

type recordingPublisher struct {
	mu      sync.Mutex
	notices []notifications.Notice
}

func (p *recordingPublisher) Publish(_ context.Context, notice notifications.Notice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, notice)
	return nil
}

func (p *recordingPublisher) last() (notifications.Notice, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.notices) == 0 {
		return notifications.Notice{}, false
	}
	return p.notices[len(p.notices)-1], true
}

type harness struct {
	svc       *service
	cart      *fakeCart
	addresses *fakeAddresses
	coupons   *fakeCoupons
	notices   *recordingPublisher
	store     Store
}

var testActor = auth.NewActor("user-1", "token-1")

func newHarness(t *testing.T, snapshot types.CartSnapshot) *harness {
	t.Helper()
	h := &harness{
		cart:      &fakeCart{snapshot: snapshot},
		addresses: &fakeAddresses{},
		coupons:   &fakeCoupons{},
		notices:   &recordingPublisher{},
		store:     NewMemoryStore(0),
	}
	svc, err := NewService(Deps{
		Cart:       h.cart,
		Addresses:  h.addresses,
		Coupons:    h.coupons,
		Guard:      guard.NewMemory(guard.PolicyPerLine),
		Store:      h.store,
		Notices:    h.notices,
		Fees:       pricing.Fees{Express: pricing.DefaultExpressFee},
		EntryPoint: "/login",
		Logger:     logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc.(*service)
	return h
}

func (h *harness) session(t *testing.T) Session {
	t.Helper()
	sess, err := h.store.Load(context.Background(), testActor.UserID())
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return sess
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func singleLineCart() types.CartSnapshot {
	return types.CartSnapshot{
		CartID: "cart-1",
		Lines: []types.CartLine{{
			LineID:    "line-1",
			CartID:    "cart-1",
			ProductID: "prod-1",
			Quantity:  1,
			Product: &types.Product{
				ID:              "prod-1",
				Name:            "Silk Scarf",
				ActualPrice:     dec("999"),
				DiscountedPrice: dec("899"),
			},
		}},
	}
}

func homeAddress() types.Address {
	return types.Address{
		ID:         "addr-1",
		Name:       "Asha",
		Address:    "12 Lake Road",
		City:       "Pune",
		State:      "MH",
		Country:    "India",
		PostalCode: "411001",
		Phone:      "9876543210",
		IsDefault:  true,
	}
}
