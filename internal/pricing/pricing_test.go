package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func line(id, actual, discounted string, qty int) types.CartLine {
	return types.CartLine{
		LineID:   id,
		Quantity: qty,
		Product: &types.Product{
			ID:              "p-" + id,
			ActualPrice:     dec(actual),
			DiscountedPrice: dec(discounted),
		},
	}
}

func assertDec(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s got %s", field, want, got)
	}
}

var fees = Fees{Express: dec("99")}

func TestComputeSavingsAndStandardDelivery(t *testing.T) {
	snap := types.CartSnapshot{Lines: []types.CartLine{
		line("a", "100", "80", 2),
		line("b", "50", "50", 1),
	}}
	totals := Compute(snap, DeliveryStandard, fees)

	assertDec(t, "savings", totals.TotalSavings, "40")
	assertDec(t, "fee", totals.DeliveryFee, "0")
	assertDec(t, "subtotal", totals.Subtotal, "210")
	assertDec(t, "grand total", totals.GrandTotal, "210")
	if totals.Mode != ModeFallback {
		t.Fatalf("expected fallback mode without a server total, got %s", totals.Mode)
	}
	if totals.ItemCount != 2 {
		t.Fatalf("expected 2 items got %d", totals.ItemCount)
	}
}

func TestExpressFeeAddedOnceRegardlessOfCartSize(t *testing.T) {
	small := types.CartSnapshot{Lines: []types.CartLine{line("a", "100", "80", 1)}}
	large := types.CartSnapshot{Lines: []types.CartLine{
		line("a", "100", "80", 5),
		line("b", "50", "40", 3),
		line("c", "10", "10", 9),
	}}
	for name, snap := range map[string]types.CartSnapshot{"small": small, "large": large} {
		standard := Compute(snap, DeliveryStandard, fees)
		express := Compute(snap, DeliveryExpress, fees)
		if diff := express.GrandTotal.Sub(standard.GrandTotal); !diff.Equal(dec("99")) {
			t.Fatalf("%s: expected express to add 99 once, added %s", name, diff)
		}
	}
}

func TestServerTotalIsAuthoritative(t *testing.T) {
	total := dec("150")
	snap := types.CartSnapshot{
		Lines:       []types.CartLine{line("a", "100", "80", 2)},
		TotalAmount: &total,
	}
	totals := Compute(snap, DeliveryStandard, fees)
	assertDec(t, "subtotal", totals.Subtotal, "150")
	assertDec(t, "savings", totals.TotalSavings, "40")
	if totals.Mode != ModeAuthoritative {
		t.Fatalf("expected authoritative mode got %s", totals.Mode)
	}
}

func TestMissingProductContributesNothing(t *testing.T) {
	snap := types.CartSnapshot{Lines: []types.CartLine{
		line("a", "100", "80", 1),
		{LineID: "ghost", ProductID: "gone", Quantity: 4},
	}}
	totals := Compute(snap, DeliveryStandard, fees)
	assertDec(t, "savings", totals.TotalSavings, "20")
	assertDec(t, "subtotal", totals.Subtotal, "80")
	if totals.ItemCount != 2 {
		t.Fatalf("expected ghost line to be counted, got %d", totals.ItemCount)
	}
}

func TestEmptyCart(t *testing.T) {
	totals := Compute(types.CartSnapshot{}, DeliveryExpress, fees)
	assertDec(t, "subtotal", totals.Subtotal, "0")
	assertDec(t, "savings", totals.TotalSavings, "0")
	assertDec(t, "fee", totals.DeliveryFee, "99")
	assertDec(t, "grand total", totals.GrandTotal, "99")
}

func TestSingleLineExpressScenario(t *testing.T) {
	total := dec("899")
	snap := types.CartSnapshot{
		Lines:       []types.CartLine{line("a", "999", "899", 1)},
		TotalAmount: &total,
	}
	totals := Compute(snap, DeliveryExpress, fees)
	assertDec(t, "subtotal", totals.Subtotal, "899")
	assertDec(t, "savings", totals.TotalSavings, "100")
	assertDec(t, "fee", totals.DeliveryFee, "99")
	assertDec(t, "grand total", totals.GrandTotal, "998")
}

func TestDecimalArithmeticIsExact(t *testing.T) {
	snap := types.CartSnapshot{Lines: []types.CartLine{
		line("a", "0.3", "0.1", 3),
		line("b", "0.2", "0.2", 1),
	}}
	totals := Compute(snap, DeliveryStandard, fees)
	assertDec(t, "subtotal", totals.Subtotal, "0.5")
	assertDec(t, "savings", totals.TotalSavings, "0.6")

	display := totals.Display()
	if display.Subtotal != "0.50" || display.GrandTotal != "0.50" || display.TotalSavings != "0.60" {
		t.Fatalf("unexpected display %+v", display)
	}
}

func TestParseFeesAndDeliveryType(t *testing.T) {
	f, err := ParseFees("")
	if err != nil || !f.Express.Equal(DefaultExpressFee) {
		t.Fatalf("expected default fee, got %s err=%v", f.Express, err)
	}
	if _, err := ParseFees("-1"); err == nil {
		t.Fatal("expected negative fee to be rejected")
	}
	if _, err := ParseFees("abc"); err == nil {
		t.Fatal("expected malformed fee to be rejected")
	}
	if d, err := ParseDeliveryType("Express"); err != nil || d != DeliveryExpress {
		t.Fatalf("expected express, got %q err=%v", d, err)
	}
	if _, err := ParseDeliveryType("overnight"); err == nil {
		t.Fatal("expected unknown delivery type to fail")
	}
}
