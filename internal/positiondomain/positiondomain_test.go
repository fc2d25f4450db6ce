package positiondomain

import (
	"testing"

	"github.com/shopspring/decimal"

	"exchangesim/internal/domain"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestIsOrderAgainstPosition(t *testing.T) {
	if !IsOrderAgainstPosition(domain.OrderSideBuy, domain.PositionSideShort) {
		t.Fatal("BUY should be against SHORT")
	}
	if IsOrderAgainstPosition(domain.OrderSideBuy, domain.PositionSideLong) {
		t.Fatal("BUY should not be against LONG")
	}
	if !IsOrderAgainstPosition(domain.OrderSideSell, domain.PositionSideLong) {
		t.Fatal("SELL should be against LONG")
	}
	if IsOrderAgainstPosition(domain.OrderSideSell, domain.PositionSideShort) {
		t.Fatal("SELL should not be against SHORT")
	}
}

func TestLqdPriceCalc(t *testing.T) {
	entry, leverage := d("1000"), d("2")
	long := LqdPriceCalc(entry, leverage, domain.PositionSideLong)
	if !long.Equal(d("500")) {
		t.Fatalf("long lqd price = %s, want 500", long)
	}
	short := LqdPriceCalc(entry, leverage, domain.PositionSideShort)
	if !short.Equal(d("1500")) {
		t.Fatalf("short lqd price = %s, want 1500", short)
	}
}

func TestMarginCalc(t *testing.T) {
	got := MarginCalc(d("0.5"), d("2"), d("1000"))
	if !got.Equal(d("250")) {
		t.Fatalf("margin = %s, want 250", got)
	}
}

func TestWeightedAverageEntryPriceCommutative(t *testing.T) {
	// merging A then B into an empty position should equal merging B then A,
	// since the result only depends on size-weighted sums.
	aSize, aPrice := d("0.5"), d("1000")
	bSize, bPrice := d("0.25"), d("1100")

	ab := WeightedAverageEntryPrice(aSize, aPrice, bSize, bPrice)
	ba := WeightedAverageEntryPrice(bSize, bPrice, aSize, aPrice)

	if !ab.Equal(ba) {
		t.Fatalf("merge order matters: A-then-B=%s, B-then-A=%s", ab, ba)
	}
}

func TestPnLValue(t *testing.T) {
	longPnl := PnLValue(d("1000"), d("1100"), d("0.25"), domain.PositionSideLong)
	if !longPnl.Equal(d("25")) {
		t.Fatalf("long pnl = %s, want 25", longPnl)
	}
	shortPnl := PnLValue(d("1000"), d("1100"), d("0.25"), domain.PositionSideShort)
	if !shortPnl.Equal(d("-25")) {
		t.Fatalf("short pnl = %s, want -25", shortPnl)
	}
}

func TestLiquidationTriggeredBoundaryInclusive(t *testing.T) {
	lqd := d("500")
	if !LiquidationTriggered(domain.PositionSideLong, lqd, d("500")) {
		t.Fatal("LONG should liquidate when last == lqd_price (inclusive)")
	}
	if LiquidationTriggered(domain.PositionSideLong, lqd, d("500.01")) {
		t.Fatal("LONG should not liquidate when last is above lqd_price")
	}
	if !LiquidationTriggered(domain.PositionSideShort, lqd, d("500")) {
		t.Fatal("SHORT should liquidate when last == lqd_price (inclusive)")
	}
	if LiquidationTriggered(domain.PositionSideShort, lqd, d("499.99")) {
		t.Fatal("SHORT should not liquidate when last is below lqd_price")
	}
}
