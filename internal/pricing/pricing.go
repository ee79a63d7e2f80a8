package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

// DeliveryType is the delivery method chosen on the delivery stage.
type DeliveryType string

const (
	DeliveryStandard DeliveryType = "standard"
	DeliveryExpress  DeliveryType = "express"
)

// ParseDeliveryType accepts the storefront spelling of a delivery method.
func ParseDeliveryType(value string) (DeliveryType, error) {
	switch DeliveryType(strings.ToLower(strings.TrimSpace(value))) {
	case DeliveryStandard:
		return DeliveryStandard, nil
	case DeliveryExpress:
		return DeliveryExpress, nil
	default:
		return "", fmt.Errorf("unknown delivery type %q", value)
	}
}

// Mode records where the subtotal came from.
type Mode string

const (
	// ModeAuthoritative uses the subtotal reported by the cart service.
	ModeAuthoritative Mode = "authoritative"
	// ModeFallback sums discounted line prices because no total was reported.
	ModeFallback Mode = "fallback"
)

// Fees holds the configured delivery surcharges.
type Fees struct {
	Express decimal.Decimal
}

// DefaultExpressFee is the storefront express surcharge.
var DefaultExpressFee = decimal.NewFromInt(99)

// ParseFees builds Fees from a configured express surcharge.
func ParseFees(express string) (Fees, error) {
	if strings.TrimSpace(express) == "" {
		return Fees{Express: DefaultExpressFee}, nil
	}
	fee, err := decimal.NewFromString(strings.TrimSpace(express))
	if err != nil {
		return Fees{}, fmt.Errorf("parse express fee: %w", err)
	}
	if fee.IsNegative() {
		return Fees{}, fmt.Errorf("express fee must not be negative")
	}
	return Fees{Express: fee}, nil
}

// Fee returns the surcharge for a delivery type.
func (f Fees) Fee(delivery DeliveryType) decimal.Decimal {
	if delivery == DeliveryExpress {
		return f.Express
	}
	return decimal.Zero
}

// Totals are the derived amounts shown on every stage.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	TotalSavings decimal.Decimal `json:"totalSavings"`
	DeliveryFee  decimal.Decimal `json:"deliveryFee"`
	GrandTotal   decimal.Decimal `json:"grandTotal"`
	Mode         Mode            `json:"mode"`
	ItemCount    int             `json:"itemCount"`
}

// Compute derives totals from a cart snapshot and a delivery selection.
// A reported TotalAmount is the subtotal of record and already reflects any
// coupon; no discount is derived here.
func Compute(snapshot types.CartSnapshot, delivery DeliveryType, fees Fees) Totals {
	totals := Totals{
		Subtotal:     decimal.Zero,
		TotalSavings: decimal.Zero,
		DeliveryFee:  fees.Fee(delivery),
		Mode:         ModeAuthoritative,
		ItemCount:    len(snapshot.Lines),
	}

	fallback := decimal.Zero
	for _, line := range snapshot.Lines {
		if line.Product == nil {
			continue
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		fallback = fallback.Add(line.Product.DiscountedPrice.Mul(qty))
		totals.TotalSavings = totals.TotalSavings.Add(
			line.Product.ActualPrice.Sub(line.Product.DiscountedPrice).Mul(qty),
		)
	}

	if snapshot.TotalAmount != nil {
		totals.Subtotal = *snapshot.TotalAmount
	} else {
		totals.Subtotal = fallback
		totals.Mode = ModeFallback
	}
	totals.GrandTotal = totals.Subtotal.Add(totals.DeliveryFee)
	return totals
}

// Display is Totals rounded for presentation.
type Display struct {
	Subtotal     string `json:"subtotal"`
	TotalSavings string `json:"totalSavings"`
	DeliveryFee  string `json:"deliveryFee"`
	GrandTotal   string `json:"grandTotal"`
	Mode         Mode   `json:"mode"`
	ItemCount    int    `json:"itemCount"`
}

// Display formats every amount with two fractional digits.
func (t Totals) Display() Display {
	return Display{
		Subtotal:     t.Subtotal.StringFixed(2),
		TotalSavings: t.TotalSavings.StringFixed(2),
		DeliveryFee:  t.DeliveryFee.StringFixed(2),
		GrandTotal:   t.GrandTotal.StringFixed(2),
		Mode:         t.Mode,
		ItemCount:    t.ItemCount,
	}
}
