package positions

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

func newTestEngine(t *testing.T) (*Engine, store.Store, *ledger.Ledger, *oracle.Fake, string) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemory()
	l := ledger.New(s)
	fakeOracle := oracle.NewFake()
	log := logger.New("error")
	e := New(s, l, fakeOracle, log)

	p, err := s.CreatePortfolio(ctx, &model.Portfolio{Name: "trader"})
	if err != nil {
		t.Fatalf("create portfolio: %v", err)
	}
	if _, err := l.CreateByQty(ctx, p.ID, domain.AssetUSD, d("100000")); err != nil {
		t.Fatalf("fund USD: %v", err)
	}
	if _, err := l.LockBalance(ctx, p.ID, domain.AssetUSD, d("3000")); err != nil {
		t.Fatalf("pre-lock margin: %v", err)
	}
	return e, s, l, fakeOracle, p.ID
}

func filledOrder(portfolioID string, side domain.OrderSide, price, size string) *model.Order {
	return &model.Order{
		PortfolioID: portfolioID,
		Market:      domain.MarketBTCUSDPerp,
		Price:       d(price),
		Size:        d(size),
		Side:        side,
		Type:        domain.OrderTypeLimit,
		Status:      domain.OrderStatusFilled,
	}
}

// A filled BUY order against no existing position opens a new LONG
// position at the order's price and leverage.
func TestCreatePositionByOrderOpensLong(t *testing.T) {
	ctx := context.Background()
	e, s, _, _, portfolioID := newTestEngine(t)

	if _, err := s.UpsertLeverage(ctx, &model.Leverage{
		PortfolioID: portfolioID,
		Market:      domain.MarketBTCUSDPerp,
		Leverage:    d("10"),
	}); err != nil {
		t.Fatalf("set leverage: %v", err)
	}

	order, err := s.CreateOrder(ctx, filledOrder(portfolioID, domain.OrderSideBuy, "30000", "1"))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	position, err := e.CreatePositionByOrder(ctx, order)
	if err != nil {
		t.Fatalf("create position: %v", err)
	}
	if position.Side != domain.PositionSideLong {
		t.Fatalf("side = %s, want LONG", position.Side)
	}
	if !position.EntryPrice.Equal(d("30000")) {
		t.Fatalf("entry price = %s, want 30000", position.EntryPrice)
	}
	if !position.Margin.Equal(d("3000")) {
		t.Fatalf("margin = %s, want 3000", position.Margin)
	}
	wantLqd := d("30000").Sub(d("30000").Div(d("10")))
	if !position.LqdPrice.Equal(wantLqd) {
		t.Fatalf("lqd price = %s, want %s", position.LqdPrice, wantLqd)
	}

	reloaded, err := s.GetOrderByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.PositionID != position.ID {
		t.Fatalf("order.PositionID = %s, want %s", reloaded.PositionID, position.ID)
	}
}

// A SELL order smaller than an open LONG position partially closes it:
// position size is untouched, closed_size accumulates, margin shrinks, and
// the freed margin difference is unlocked while realized PnL is credited.
func TestClosePartiallyPositionUnlocksMarginAndCreditsPnL(t *testing.T) {
	ctx := context.Background()
	e, s, _, _, portfolioID := newTestEngine(t)

	position, err := s.CreatePosition(ctx, &model.Position{
		PortfolioID: portfolioID,
		Market:      domain.MarketBTCUSDPerp,
		Leverage:    d("10"),
		EntryPrice:  d("30000"),
		LqdPrice:    d("27000"),
		Size:        d("2"),
		Margin:      d("6000"),
		Status:      domain.PositionStatusOpen,
		Side:        domain.PositionSideLong,
	})
	if err != nil {
		t.Fatalf("seed position: %v", err)
	}
	if _, err := e.ledger.LockBalance(ctx, portfolioID, domain.AssetUSD, d("3000")); err != nil {
		t.Fatalf("lock remaining margin: %v", err)
	}

	closeOrder, err := s.CreateOrder(ctx, filledOrder(portfolioID, domain.OrderSideSell, "31000", "1"))
	if err != nil {
		t.Fatalf("create close order: %v", err)
	}

	if err := e.ClosePartiallyPosition(ctx, closeOrder, position); err != nil {
		t.Fatalf("close partially: %v", err)
	}

	if !position.Size.Equal(d("2")) {
		t.Fatalf("size = %s, want 2 (unchanged)", position.Size)
	}
	if !position.ClosedSize.Equal(d("1")) {
		t.Fatalf("closed size = %s, want 1", position.ClosedSize)
	}
	wantMargin := d("1").Mul(d("30000")).Div(d("10"))
	if !position.Margin.Equal(wantMargin) {
		t.Fatalf("margin after partial close = %s, want %s", position.Margin, wantMargin)
	}
	wantPnL := d("1").Mul(d("31000").Sub(d("30000")))
	if !position.PnL.Equal(wantPnL) {
		t.Fatalf("pnl = %s, want %s", position.PnL, wantPnL)
	}

	usdBalance, err := s.GetPortfolioAsset(ctx, portfolioID, domain.AssetUSD)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	// 6000 locked total, 3000 remains frozen after the partial close
	if !usdBalance.Frozen.Equal(d("3000")) {
		t.Fatalf("frozen after partial close = %s, want 3000", usdBalance.Frozen)
	}
}

// A SELL order at least as large as an open LONG fully closes it: the
// whole margin unlocks, PnL is credited, and status becomes CLOSE.
func TestClosePositionFully(t *testing.T) {
	ctx := context.Background()
	e, s, _, _, portfolioID := newTestEngine(t)

	position, err := s.CreatePosition(ctx, &model.Position{
		PortfolioID: portfolioID,
		Market:      domain.MarketBTCUSDPerp,
		Leverage:    d("10"),
		EntryPrice:  d("30000"),
		LqdPrice:    d("27000"),
		Size:        d("1"),
		Margin:      d("3000"),
		Status:      domain.PositionStatusOpen,
		Side:        domain.PositionSideLong,
	})
	if err != nil {
		t.Fatalf("seed position: %v", err)
	}

	closeOrder, err := s.CreateOrder(ctx, filledOrder(portfolioID, domain.OrderSideSell, "28000", "1"))
	if err != nil {
		t.Fatalf("create close order: %v", err)
	}

	if err := e.ClosePosition(ctx, closeOrder, position); err != nil {
		t.Fatalf("close position: %v", err)
	}

	if position.Status != domain.PositionStatusClose {
		t.Fatalf("status = %s, want CLOSE", position.Status)
	}
	if !position.ClosedSize.Equal(d("1")) {
		t.Fatalf("closed size = %s, want 1", position.ClosedSize)
	}
	wantPnL := d("1").Mul(d("28000").Sub(d("30000")))
	if !position.PnL.Equal(wantPnL) {
		t.Fatalf("pnl = %s, want %s", position.PnL, wantPnL)
	}

	usdBalance, err := s.GetPortfolioAsset(ctx, portfolioID, domain.AssetUSD)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !usdBalance.Frozen.IsZero() {
		t.Fatalf("frozen after full close = %s, want 0", usdBalance.Frozen)
	}
}

// Liquidation burns the locked margin and marks the position LIQUID with
// PnL = -margin.
func TestLiquidPositionBurnsMargin(t *testing.T) {
	ctx := context.Background()
	e, s, _, fakeOracle, portfolioID := newTestEngine(t)

	position, err := s.CreatePosition(ctx, &model.Position{
		PortfolioID: portfolioID,
		Market:      domain.MarketBTCUSDPerp,
		Leverage:    d("10"),
		EntryPrice:  d("30000"),
		LqdPrice:    d("27000"),
		Size:        d("1"),
		Margin:      d("3000"),
		Status:      domain.PositionStatusOpen,
		Side:        domain.PositionSideLong,
	})
	if err != nil {
		t.Fatalf("seed position: %v", err)
	}
	fakeOracle.Set(string(domain.MarketBTCUSDPerp), 26000)

	if err := e.LiquidPosition(ctx, position); err != nil {
		t.Fatalf("liquidate: %v", err)
	}

	if position.Status != domain.PositionStatusLiquid {
		t.Fatalf("status = %s, want LIQUID", position.Status)
	}
	if !position.PnL.Equal(d("-3000")) {
		t.Fatalf("pnl = %s, want -3000", position.PnL)
	}

	usdBalance, err := s.GetPortfolioAsset(ctx, portfolioID, domain.AssetUSD)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !usdBalance.Frozen.IsZero() {
		t.Fatalf("frozen after liquidation = %s, want 0", usdBalance.Frozen)
	}
	if !usdBalance.Burned.Equal(d("3000")) {
		t.Fatalf("burned = %s, want 3000", usdBalance.Burned)
	}
}
