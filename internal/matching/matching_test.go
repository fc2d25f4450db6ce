package matching

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"exchangesim/internal/domain"
	"exchangesim/internal/ledger"
	"exchangesim/internal/logger"
	"exchangesim/internal/model"
	"exchangesim/internal/oracle"
	"exchangesim/internal/store"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newTestEngine(t *testing.T) (*Engine, store.Store, *oracle.Fake, string) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemory()
	l := ledger.New(s)
	fakeOracle := oracle.NewFake()
	log := logger.New("error")
	e := New(s, l, fakeOracle, log)

	p, err := s.CreatePortfolio(ctx, &model.Portfolio{
		Name:         "trader",
		SpotMakerFee: d("0.001"),
		SpotTakerFee: d("0.002"),
		PerpMakerFee: d("0.0005"),
		PerpTakerFee: d("0.001"),
	})
	if err != nil {
		t.Fatalf("create portfolio: %v", err)
	}
	if _, err := l.CreateByQty(ctx, p.ID, domain.AssetUSD, d("100000")); err != nil {
		t.Fatalf("fund USD: %v", err)
	}
	if _, err := l.CreateByQty(ctx, p.ID, domain.AssetBTC, d("10")); err != nil {
		t.Fatalf("fund BTC: %v", err)
	}
	return e, s, fakeOracle, p.ID
}

// A resting spot LIMIT BUY fills once the oracle's last trade crosses it.
func TestSpotLimitBuyFillsOnSweep(t *testing.T) {
	ctx := context.Background()
	e, s, fakeOracle, portfolioID := newTestEngine(t)

	order, err := e.CreateOrder(ctx, portfolioID, domain.MarketBTCUSD, d("30000"), d("1"), domain.OrderSideBuy, domain.OrderTypeLimit)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != domain.OrderStatusActive {
		t.Fatalf("status = %s, want ACTIVE", order.Status)
	}

	usdBalance, _ := s.GetPortfolioAsset(ctx, portfolioID, domain.AssetUSD)
	if !usdBalance.Frozen.Equal(d("30000")) {
		t.Fatalf("frozen USD = %s, want 30000", usdBalance.Frozen)
	}

	fakeOracle.Set(string(domain.MarketBTCUSD), 29500)
	open, err := s.GetActiveOrders(ctx)
	if err != nil {
		t.Fatalf("get active orders: %v", err)
	}
	if err := e.MatchOpenOrders(ctx, open); err != nil {
		t.Fatalf("match open orders: %v", err)
	}

	filled, err := s.GetOrderByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if filled.Status != domain.OrderStatusFilled {
		t.Fatalf("status = %s, want FILLED", filled.Status)
	}

	usdBalance, _ = s.GetPortfolioAsset(ctx, portfolioID, domain.AssetUSD)
	if !usdBalance.Frozen.IsZero() {
		t.Fatalf("frozen USD after fill = %s, want 0", usdBalance.Frozen)
	}
	if !usdBalance.Quantity.Equal(d("70000")) {
		t.Fatalf("USD quantity after fill = %s, want 70000", usdBalance.Quantity)
	}

	btcBalance, _ := s.GetPortfolioAsset(ctx, portfolioID, domain.AssetBTC)
	wantBTCFee := d("1").Mul(d("0.001"))
	wantBTC := d("10").Add(d("1")).Sub(wantBTCFee)
	if !btcBalance.Quantity.Equal(wantBTC) {
		t.Fatalf("BTC quantity after fill = %s, want %s", btcBalance.Quantity, wantBTC)
	}
}

// A resting perp LIMIT order locks (price*size)/leverage, pays fee in USD
// on fill, and leaves the full notional unlocked (no spot-style unlock of
// the payment asset into quantity — margin stays frozen for the position).
func TestPerpLimitOrderFillsAndPaysFee(t *testing.T) {
	ctx := context.Background()
	e, s, fakeOracle, portfolioID := newTestEngine(t)

	if _, err := s.UpsertLeverage(ctx, &model.Leverage{
		PortfolioID: portfolioID,
		Market:      domain.MarketBTCUSDPerp,
		Leverage:    d("10"),
	}); err != nil {
		t.Fatalf("set leverage: %v", err)
	}

	order, err := e.CreateOrder(ctx, portfolioID, domain.MarketBTCUSDPerp, d("30000"), d("1"), domain.OrderSideBuy, domain.OrderTypeLimit)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	usdBalance, _ := s.GetPortfolioAsset(ctx, portfolioID, domain.AssetUSD)
	if !usdBalance.Frozen.Equal(d("3000")) {
		t.Fatalf("frozen USD margin = %s, want 3000", usdBalance.Frozen)
	}

	fakeOracle.Set(string(domain.MarketBTCUSDPerp), 29500)
	open, err := s.GetActiveOrders(ctx)
	if err != nil {
		t.Fatalf("get active orders: %v", err)
	}
	if err := e.MatchOpenOrders(ctx, open); err != nil {
		t.Fatalf("match open orders: %v", err)
	}

	filled, err := s.GetOrderByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if filled.Status != domain.OrderStatusFilled {
		t.Fatalf("status = %s, want FILLED", filled.Status)
	}

	// margin stays frozen, fee comes out of available (here: negative fee
	// paid pulls quantity/available down by the fee amount only).
	usdBalance, _ = s.GetPortfolioAsset(ctx, portfolioID, domain.AssetUSD)
	if !usdBalance.Frozen.Equal(d("3000")) {
		t.Fatalf("frozen USD after perp fill = %s, want 3000 (margin untouched)", usdBalance.Frozen)
	}
	wantFee := d("30000").Mul(d("1")).Mul(d("0.0005"))
	if !usdBalance.FeePaid.Equal(wantFee) {
		t.Fatalf("fee paid = %s, want %s", usdBalance.FeePaid, wantFee)
	}
}

// FillOrder is idempotent: calling it again on an already-FILLED or
// CANCELED order returns the order unchanged, with no further ledger
// mutation.
func TestFillOrderIdempotentOnNonActive(t *testing.T) {
	ctx := context.Background()
	e, s, fakeOracle, portfolioID := newTestEngine(t)

	order, err := e.CreateOrder(ctx, portfolioID, domain.MarketBTCUSD, d("30000"), d("1"), domain.OrderSideBuy, domain.OrderTypeLimit)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	fakeOracle.Set(string(domain.MarketBTCUSD), 29000)
	if err := e.MatchOpenOrders(ctx, []*model.Order{order}); err != nil {
		t.Fatalf("first sweep: %v", err)
	}

	filledFirst, err := s.GetOrderByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if filledFirst.Status != domain.OrderStatusFilled {
		t.Fatalf("status = %s, want FILLED", filledFirst.Status)
	}

	usdBeforeSecondFill, _ := s.GetPortfolioAsset(ctx, portfolioID, domain.AssetUSD)

	second, err := e.FillOrder(ctx, filledFirst)
	if err != nil {
		t.Fatalf("second fill: %v", err)
	}
	if second.Status != domain.OrderStatusFilled {
		t.Fatalf("second fill status = %s, want FILLED (unchanged)", second.Status)
	}

	usdAfterSecondFill, _ := s.GetPortfolioAsset(ctx, portfolioID, domain.AssetUSD)
	if !usdAfterSecondFill.Quantity.Equal(usdBeforeSecondFill.Quantity) {
		t.Fatalf("second fill mutated balance: before %s, after %s", usdBeforeSecondFill.Quantity, usdAfterSecondFill.Quantity)
	}
}

// Canceling an ACTIVE order restores the locked funds to available and
// marks the order CANCELED; canceling twice fails the second time.
func TestCancelOrderRestoresLock(t *testing.T) {
	ctx := context.Background()
	e, s, _, portfolioID := newTestEngine(t)

	order, err := e.CreateOrder(ctx, portfolioID, domain.MarketBTCUSD, d("30000"), d("1"), domain.OrderSideBuy, domain.OrderTypeLimit)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	usdBalance, _ := s.GetPortfolioAsset(ctx, portfolioID, domain.AssetUSD)
	if !usdBalance.Frozen.Equal(d("30000")) {
		t.Fatalf("frozen USD before cancel = %s, want 30000", usdBalance.Frozen)
	}

	canceled, err := e.CancelOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != domain.OrderStatusCanceled {
		t.Fatalf("status = %s, want CANCELED", canceled.Status)
	}

	usdBalance, _ = s.GetPortfolioAsset(ctx, portfolioID, domain.AssetUSD)
	if !usdBalance.Frozen.IsZero() {
		t.Fatalf("frozen USD after cancel = %s, want 0", usdBalance.Frozen)
	}
	if !usdBalance.Available.Equal(d("100000")) {
		t.Fatalf("available USD after cancel = %s, want 100000", usdBalance.Available)
	}

	if _, err := e.CancelOrder(ctx, order.ID); err == nil {
		t.Fatalf("second cancel: want error, got nil")
	}
}

// A MARKET order fills synchronously on admission, at the oracle's last
// trade price rather than the caller-supplied price.
func TestMarketOrderFillsOnAdmission(t *testing.T) {
	ctx := context.Background()
	e, _, fakeOracle, portfolioID := newTestEngine(t)
	fakeOracle.Set(string(domain.MarketBTCUSD), 31000)

	order, err := e.CreateOrder(ctx, portfolioID, domain.MarketBTCUSD, decimal.Zero, d("1"), domain.OrderSideBuy, domain.OrderTypeMarket)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != domain.OrderStatusFilled {
		t.Fatalf("status = %s, want FILLED", order.Status)
	}
	if !order.Price.Equal(d("31000")) {
		t.Fatalf("fill price = %s, want 31000 (oracle last trade)", order.Price)
	}
}
