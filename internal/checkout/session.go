package checkout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/luvwish-checkout/internal/addressform"
	"github.com/angelmondragon/luvwish-checkout/internal/pricing"
	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

// Stage is a step of the linear checkout flow.
type Stage string

const (
	StageCart     Stage = "cart"
	StageDelivery Stage = "delivery"
	StagePayment  Stage = "payment"
)

type candidateKind uint8

const (
	kindPersisted candidateKind = iota + 1
	kindPending
)

// Candidate is a delivery address offered at checkout. It is either persisted
// by the address service or pending, entered during this session and not yet
// saved. Only Persisted candidates are durable.
type Candidate struct {
	kind    candidateKind
	address types.Address
}

func Persisted(addr types.Address) Candidate {
	return Candidate{kind: kindPersisted, address: addr}
}

func Pending(addr types.Address) Candidate {
	return Candidate{kind: kindPending, address: addr}
}

func (c Candidate) Address() types.Address {
	return c.address
}

func (c Candidate) ID() string {
	return c.address.ID
}

// IsDurable reports whether the address exists on the address service.
func (c Candidate) IsDurable() bool {
	return c.kind == kindPersisted
}

func (c Candidate) IsPending() bool {
	return c.kind == kindPending
}

type candidateJSON struct {
	Kind    string        `json:"kind"`
	Durable bool          `json:"durable"`
	Address types.Address `json:"address"`
}

func (c Candidate) MarshalJSON() ([]byte, error) {
	kind := "persisted"
	switch c.kind {
	case kindPersisted:
	case kindPending:
		kind = "pending"
	default:
		return nil, fmt.Errorf("address candidate has no kind")
	}
	return json.Marshal(candidateJSON{Kind: kind, Durable: c.IsDurable(), Address: c.address})
}

func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw candidateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case "persisted":
		*c = Persisted(raw.Address)
	case "pending":
		*c = Pending(raw.Address)
	default:
		return fmt.Errorf("unknown address candidate kind %q", raw.Kind)
	}
	return nil
}

// CouponApplication is the last coupon the cart service accepted for the cart.
type CouponApplication struct {
	Code              string          `json:"code"`
	CartID            string          `json:"cartId"`
	ResultingDiscount decimal.Decimal `json:"resultingDiscount"`
	Message           string          `json:"message,omitempty"`
	AppliedAt         time.Time       `json:"appliedAt"`
}

// Session is the per-user checkout state kept between requests. Displayed is
// the snapshot last shown to the user; it is never used for pricing on stage
// entry, which always re-fetches.
type Session struct {
	UserID            string               `json:"userId"`
	Stage             Stage                `json:"stage"`
	Delivery          pricing.DeliveryType `json:"delivery"`
	Displayed         types.CartSnapshot   `json:"displayed"`
	Coupon            *CouponApplication   `json:"coupon,omitempty"`
	Candidates        []Candidate          `json:"candidates"`
	SelectedAddressID string               `json:"selectedAddressId,omitempty"`
	Form              addressform.Form     `json:"form"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

func newSession(userID string) Session {
	return Session{
		UserID:     userID,
		Stage:      StageCart,
		Delivery:   pricing.DeliveryStandard,
		Displayed:  types.CartSnapshot{Lines: []types.CartLine{}},
		Candidates: []Candidate{},
		Form:       addressform.New(),
	}
}

// Candidate looks up a candidate by id.
func (s Session) Candidate(id string) (Candidate, bool) {
	for _, c := range s.Candidates {
		if c.ID() == id {
			return c, true
		}
	}
	return Candidate{}, false
}

// Selected returns the candidate chosen for delivery.
func (s Session) Selected() (Candidate, bool) {
	if s.SelectedAddressID == "" {
		return Candidate{}, false
	}
	return s.Candidate(s.SelectedAddressID)
}

// mergeCandidates replaces the persisted candidates with persisted and keeps
// every pending one.
func (s *Session) mergeCandidates(persisted []types.Address) {
	merged := make([]Candidate, 0, len(persisted)+len(s.Candidates))
	for _, addr := range persisted {
		merged = append(merged, Persisted(addr))
	}
	for _, c := range s.Candidates {
		if c.IsPending() {
			merged = append(merged, c)
		}
	}
	s.Candidates = merged
	s.reselect()
}

// reselect keeps a still-present selection, else picks the default
// candidate, else the first.
func (s *Session) reselect() {
	if _, ok := s.Selected(); ok {
		return
	}
	s.SelectedAddressID = ""
	for _, c := range s.Candidates {
		if c.Address().IsDefault {
			s.SelectedAddressID = c.ID()
			return
		}
	}
	if len(s.Candidates) > 0 {
		s.SelectedAddressID = s.Candidates[0].ID()
	}
}

func (s *Session) removeCandidate(id string) {
	kept := s.Candidates[:0]
	for _, c := range s.Candidates {
		if c.ID() != id {
			kept = append(kept, c)
		}
	}
	s.Candidates = kept
	s.reselect()
}

// OrderIntent is everything needed to submit the order once payment details
// are captured.
type OrderIntent struct {
	CartID         string               `json:"cartId"`
	Lines          []types.CartLine     `json:"lines"`
	Address        types.Address        `json:"address"`
	AddressSummary string               `json:"addressSummary"`
	AddressDurable bool                 `json:"addressDurable"`
	Delivery       pricing.DeliveryType `json:"delivery"`
	CouponCode     string               `json:"couponCode,omitempty"`
	Totals         pricing.Totals       `json:"totals"`
	Display        pricing.Display      `json:"display"`
	Ready          bool                 `json:"ready"`
}
