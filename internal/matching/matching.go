// Package matching implements the Matching Engine: order admission with
// balance locking and position-netting, the background sweep that fills
// resting LIMIT orders against the oracle's last trade, and cancel.
//
// Grounded on the teacher repo's internal/broker/paper.go (PlaceOrder /
// executeMarketOrder / CancelOrder shape: validate, lock/debit funds,
// persist, log) and internal/engine/engine.go (Run's ctx-cancellable loop
// over a tick), transformed from a single in-memory account to the
// row-locked Store + Ledger pair and from market-order-only execution to
// the full LIMIT/MARKET, spot/perp admission rules in spec.md.
package matching

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"exchangesim/internal/apperr"
	"exchangesim/internal/domain"
	"exchangesim/internal/ledger"
	"exchangesim/internal/logger"
	"exchangesim/internal/metrics"
	"exchangesim/internal/model"
	"exchangesim/internal/oracle"
	"exchangesim/internal/orderdomain"
	"exchangesim/internal/positiondomain"
	"exchangesim/internal/store"
	ws "exchangesim/internal/websocket"
)

// tickInterval is how often MatchOpenOrders is invoked by Run; the
// cooperative-yield equivalent of the source's no-op spin on an empty book.
const tickInterval = 500 * time.Millisecond

// Engine is the Matching Engine. It holds references to the entity store,
// the balance ledger, and the price oracle, per spec.md §4.4.
type Engine struct {
	store  store.Store
	ledger *ledger.Ledger
	oracle oracle.Oracle
	log    logger.Logger
	hub    *ws.Hub
}

// New builds a Matching Engine.
func New(s store.Store, l *ledger.Ledger, o oracle.Oracle, log logger.Logger) *Engine {
	return &Engine{store: s, ledger: l, oracle: o, log: log}
}

// SetHub attaches a websocket hub so fills reached asynchronously (the
// background sweep, as opposed to a synchronous MARKET-order fill
// returned straight to the API caller) are still broadcast.
func (e *Engine) SetHub(hub *ws.Hub) { e.hub = hub }

func (e *Engine) notifyOrder(eventType ws.EventType, order *model.Order) {
	if e.hub != nil {
		e.hub.BroadcastOrder(eventType, order)
	}
}

// Run polls MatchOpenOrders on tickInterval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("matching engine stopped")
			return
		case <-ticker.C:
			if err := e.matchOpenOrdersTick(ctx); err != nil {
				e.log.Error("match_open_orders tick failed", "error", err)
			}
		}
	}
}

func (e *Engine) matchOpenOrdersTick(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer func() { metrics.GetCollector().RecordTick("matching", timer.Elapsed()) }()

	open, err := e.store.GetActiveOrders(ctx)
	if err != nil {
		return err
	}
	return e.MatchOpenOrders(ctx, open)
}

// CreateOrder implements spec.md §4.4.1.
func (e *Engine) CreateOrder(ctx context.Context, portfolioID string, market domain.Market, price decimal.Decimal, size decimal.Decimal, side domain.OrderSide, orderType domain.OrderType) (*model.Order, error) {
	portfolio, err := e.store.GetPortfolioByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if portfolio == nil {
		return nil, apperr.NewInvalidOrder("unknown portfolio " + portfolioID)
	}

	if orderType == domain.OrderTypeMarket {
		last, err := e.oracle.GetLastTradeOf(ctx, string(market))
		if err != nil {
			return nil, apperr.NewAPIError("fetch last trade for "+string(market), err)
		}
		price = decimal.NewFromFloat(last)
	}

	paymentAsset := orderdomain.PaymentAsset(market, side)

	leverage := decimal.NewFromInt(1)
	var nettingClosing bool
	if market.IsPerpetual() {
		lev, err := e.store.GetLeverage(ctx, portfolioID, market)
		if err != nil {
			return nil, err
		}
		if lev != nil {
			leverage = lev.Leverage
		}

		existing, err := e.store.GetOpenPositionByPortfolioAndMarket(ctx, portfolioID, market)
		if err != nil {
			return nil, err
		}
		if existing != nil && positiondomain.IsOrderAgainstPosition(side, existing.Side) {
			switch {
			case existing.Size.GreaterThanOrEqual(size):
				nettingClosing = true
			default:
				return nil, apperr.NewInvalidOrder("order size must be <= position size")
			}
		}
	}

	paymentTotal := orderdomain.PaymentTotal(market, price, size, side, leverage)

	fees := orderdomain.Fees{
		SpotMakerFee: portfolio.SpotMakerFee,
		SpotTakerFee: portfolio.SpotTakerFee,
		PerpMakerFee: portfolio.PerpMakerFee,
		PerpTakerFee: portfolio.PerpTakerFee,
	}
	fee := orderdomain.FeeCalc(market, price, size, side, orderType, fees)
	status := domain.OrderStatusActive

	var order *model.Order
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		if !nettingClosing {
			ok, err := e.ledger.CheckAvailableQty(ctx, portfolioID, paymentAsset, paymentTotal)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.NewNotEnoughBalance("insufficient " + string(paymentAsset) + " to lock " + paymentTotal.String())
			}
			if _, err := e.ledger.LockBalance(ctx, portfolioID, paymentAsset, paymentTotal); err != nil {
				return err
			}
		}

		created, err := e.store.CreateOrder(ctx, &model.Order{
			PortfolioID: portfolioID,
			Market:      market,
			Fee:         fee,
			Price:       price,
			Size:        size,
			Status:      status,
			Type:        orderType,
			Side:        side,
		})
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.GetCollector().OrdersTotal.WithLabelValues(string(market), string(side), string(orderType)).Inc()

	if orderType == domain.OrderTypeMarket {
		return e.FillOrder(ctx, order)
	}
	return order, nil
}

// CancelOrder implements spec.md §4.4.2.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var order *model.Order
	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		fresh, err := e.store.GetOrderByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return apperr.NewNotFoundOrder("order not found: " + orderID)
		}
		if fresh.Status != domain.OrderStatusActive {
			return apperr.NewInvalidOrder("order " + orderID + " is not ACTIVE")
		}

		fresh.Status = domain.OrderStatusCanceled

		paymentAsset := orderdomain.PaymentAsset(fresh.Market, fresh.Side)
		leverage := decimal.NewFromInt(1)
		if fresh.Market.IsPerpetual() {
			lev, err := e.store.GetLeverage(ctx, fresh.PortfolioID, fresh.Market)
			if err != nil {
				return err
			}
			if lev != nil {
				leverage = lev.Leverage
			}
		}
		paymentTotal := orderdomain.PaymentTotal(fresh.Market, fresh.Price, fresh.Size, fresh.Side, leverage)
		if _, err := e.ledger.UnlockBalance(ctx, fresh.PortfolioID, paymentAsset, paymentTotal); err != nil {
			return err
		}

		if err := e.store.UpdateOrder(ctx, fresh); err != nil {
			return err
		}
		order = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// FillOrder implements spec.md §4.4.3. Idempotent: a non-ACTIVE order is
// returned unchanged. The ledger mutations and the order's status flip
// commit together under WithTx; if ctx already carries a transaction (the
// MatchOpenOrders sweep pairs this with its own GetOrderByIDForUpdate read)
// that transaction is reused rather than nested.
func (e *Engine) FillOrder(ctx context.Context, order *model.Order) (*model.Order, error) {
	if order.Status != domain.OrderStatusActive {
		return order, nil
	}

	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		order.Status = domain.OrderStatusFilled

		paymentAsset := orderdomain.PaymentAsset(order.Market, order.Side)
		receivedAsset := orderdomain.ReceivedAsset(order.Market, order.Side)

		leverage := decimal.NewFromInt(1)
		if order.Market.IsPerpetual() {
			lev, err := e.store.GetLeverage(ctx, order.PortfolioID, order.Market)
			if err != nil {
				return err
			}
			if lev != nil {
				leverage = lev.Leverage
			}
		}
		paymentTotal := orderdomain.PaymentTotal(order.Market, order.Price, order.Size, order.Side, leverage)
		receivedTotal := orderdomain.ReceivedTotal(order.Market, order.Price, order.Size, order.Side)

		if order.Market.IsPerpetual() {
			if _, err := e.ledger.PayFee(ctx, order.PortfolioID, receivedAsset, order.Fee); err != nil {
				return err
			}
		} else {
			if _, err := e.ledger.UnlockBalance(ctx, order.PortfolioID, paymentAsset, paymentTotal); err != nil {
				return err
			}
			if _, err := e.ledger.PayBalance(ctx, order.PortfolioID, paymentAsset, paymentTotal); err != nil {
				return err
			}
			if _, err := e.ledger.AddBalance(ctx, order.PortfolioID, receivedAsset, receivedTotal); err != nil {
				return err
			}
			if _, err := e.ledger.PayFee(ctx, order.PortfolioID, receivedAsset, order.Fee); err != nil {
				return err
			}
		}

		return e.store.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	metrics.GetCollector().FillsTotal.WithLabelValues(string(order.Market)).Inc()
	return order, nil
}

// MatchOpenOrders implements spec.md §4.4.4: sweep resting orders against
// the oracle's last trade, filling LIMIT orders whose price crosses it.
// MARKET orders are skipped — they fill synchronously on admission.
func (e *Engine) MatchOpenOrders(ctx context.Context, openOrders []*model.Order) error {
	lastTrades, err := e.oracle.GetAllLastTrades(ctx)
	if err != nil {
		e.log.Error("match_open_orders: oracle fetch failed", "error", err)
		return nil
	}

	for _, order := range openOrders {
		if order.Type == domain.OrderTypeMarket {
			continue
		}
		last, ok := lastTrades[string(order.Market)]
		if !ok {
			continue
		}
		lastDec := decimal.NewFromFloat(last)

		var shouldFill bool
		switch order.Side {
		case domain.OrderSideBuy:
			shouldFill = order.Price.GreaterThanOrEqual(lastDec)
		case domain.OrderSideSell:
			shouldFill = order.Price.LessThanOrEqual(lastDec)
		}
		if !shouldFill {
			continue
		}

		var filled *model.Order
		err := e.store.WithTx(ctx, func(ctx context.Context) error {
			fresh, err := e.store.GetOrderByIDForUpdate(ctx, order.ID)
			if err != nil {
				return err
			}
			if fresh == nil {
				return nil
			}
			filled, err = e.FillOrder(ctx, fresh)
			return err
		})
		if err != nil {
			e.log.Error("match_open_orders: fill failed", "order_id", order.ID, "error", err)
			continue
		}
		if filled == nil {
			continue
		}
		e.notifyOrder(ws.EventTypeOrderFilled, filled)
	}
	return nil
}
