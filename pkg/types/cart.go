package types

import "github.com/shopspring/decimal"

// Product is the product reference embedded in a cart line.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	MainImage       string          `json:"mainImage,omitempty"`
	ActualPrice     decimal.Decimal `json:"actualPrice"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
}

// CartLine is one product entry in the remote cart.
type CartLine struct {
	LineID    string   `json:"id"`
	CartID    string   `json:"cartId,omitempty"`
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	Product   *Product `json:"product"`
}

// CartSnapshot is a point-in-time copy of the remote cart. TotalAmount is nil
// when the cart service did not report a subtotal.
type CartSnapshot struct {
	CartID      string           `json:"cartId,omitempty"`
	Lines       []CartLine       `json:"items"`
	TotalAmount *decimal.Decimal `json:"totalAmount,omitempty"`
}

func (s CartSnapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Line looks up a line by id.
func (s CartSnapshot) Line(lineID string) (CartLine, bool) {
	for _, line := range s.Lines {
		if line.LineID == lineID {
			return line, true
		}
	}
	return CartLine{}, false
}

// ResolvedCartID prefers the snapshot id and falls back to the id carried by
// the lines, which older cart service versions only report there.
func (s CartSnapshot) ResolvedCartID() string {
	if s.CartID != "" {
		return s.CartID
	}
	for _, line := range s.Lines {
		if line.CartID != "" {
			return line.CartID
		}
	}
	return ""
}
