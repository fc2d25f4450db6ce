// Package positions implements the Positions Orchestration Engine: a
// watermark-driven feed of newly-filled perpetual orders applied to
// positions (open/merge/partial-close/full-close), plus a liquidation
// monitor over every OPEN position.
//
// Grounded on original_source's
// src/engines/positions_orchestration_engine.py (the exact
// watermark + processed-orders loop shape, and each of the six
// transition methods) in the teacher's idiom: a context-cancellable
// Engine.Run loop in the style of internal/engine/engine.go, and
// row-locked ledger/store mutations in the style of
// internal/broker/paper.go's balance bookkeeping.
package positions

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"exchangesim/internal/domain"
	"exchangesim/internal/ledger"
	"exchangesim/internal/logger"
	"exchangesim/internal/metrics"
	"exchangesim/internal/model"
	"exchangesim/internal/oracle"
	"exchangesim/internal/positiondomain"
	"exchangesim/internal/store"
	ws "exchangesim/internal/websocket"
)

const (
	tickInterval = 500 * time.Millisecond
	// processedWindow bounds how long an order id is kept in the
	// in-memory de-dup set; get_filled_perp_orders is watermark-driven,
	// so only orders within this window of "now" need de-duping.
	processedWindow = 10 * time.Minute
)

type processedEntry struct {
	seenAt time.Time
}

// Engine is the Positions Orchestration Engine.
type Engine struct {
	store  store.Store
	ledger *ledger.Ledger
	oracle oracle.Oracle
	log    logger.Logger

	lastUpdate time.Time
	processed  map[string]processedEntry

	hub *ws.Hub
}

// SetHub attaches a websocket hub so position transitions (all of which
// happen on this engine's background tick, never synchronously from an
// API call) are broadcast to clients.
func (e *Engine) SetHub(hub *ws.Hub) { e.hub = hub }

func (e *Engine) notifyPosition(eventType ws.EventType, position *model.Position) {
	if e.hub != nil {
		e.hub.BroadcastPosition(eventType, position)
	}
}

// New builds a Positions Orchestration Engine. The watermark is
// initialized to construction time, per spec.md §4.5.
func New(s store.Store, l *ledger.Ledger, o oracle.Oracle, log logger.Logger) *Engine {
	return &Engine{
		store:      s,
		ledger:     l,
		oracle:     o,
		log:        log,
		lastUpdate: time.Now(),
		processed:  make(map[string]processedEntry),
	}
}

// Run ticks the main loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("positions engine stopped")
			return
		case <-ticker.C:
			if err := e.tick(ctx); err != nil {
				e.log.Error("positions engine tick failed", "error", err)
			}
		}
	}
}

// tick implements spec.md §4.5.1.
func (e *Engine) tick(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer func() { metrics.GetCollector().RecordTick("positions", timer.Elapsed()) }()

	checkTime := time.Now()
	e.evictProcessed(checkTime)

	filled, err := e.store.GetFilledPerpOrders(ctx, e.lastUpdate)
	if err != nil {
		return err
	}
	if len(filled) > 0 {
		e.lastUpdate = checkTime
	}

	openPositions, err := e.store.GetOpenPositionsHashMap(ctx)
	if err != nil {
		return err
	}
	metrics.GetCollector().OpenPositions.Set(float64(len(openPositions)))

	for _, order := range filled {
		if _, seen := e.processed[order.ID]; seen {
			continue
		}
		key := store.PositionKey(order.Market, order.PortfolioID)
		if position, ok := openPositions[key]; ok {
			if err := e.ApplyOrderToPosition(ctx, order, position); err != nil {
				e.log.Error("apply_order_to_position failed", "order_id", order.ID, "error", err)
				continue
			}
		} else {
			if _, err := e.CreatePositionByOrder(ctx, order); err != nil {
				e.log.Error("create_position_by_order failed", "order_id", order.ID, "error", err)
				continue
			}
		}
		e.processed[order.ID] = processedEntry{seenAt: checkTime}
	}

	for _, position := range openPositions {
		last, err := e.oracle.GetLastTradeOf(ctx, string(position.Market))
		if err != nil {
			e.log.Error("liquidation scan: oracle fetch failed", "market", position.Market, "error", err)
			continue
		}
		if positiondomain.LiquidationTriggered(position.Side, position.LqdPrice, decimal.NewFromFloat(last)) {
			if err := e.LiquidPosition(ctx, position); err != nil {
				e.log.Error("liquid_position failed", "position_id", position.ID, "error", err)
			}
		}
	}
	return nil
}

func (e *Engine) evictProcessed(now time.Time) {
	cutoff := now.Add(-processedWindow)
	for id, entry := range e.processed {
		if entry.seenAt.Before(cutoff) {
			delete(e.processed, id)
		}
	}
}

// ApplyOrderToPosition implements spec.md §4.5.2.
func (e *Engine) ApplyOrderToPosition(ctx context.Context, order *model.Order, position *model.Position) error {
	if positiondomain.IsOrderAgainstPosition(order.Side, position.Side) {
		if order.Size.GreaterThanOrEqual(position.Size) {
			return e.ClosePosition(ctx, order, position)
		}
		return e.ClosePartiallyPosition(ctx, order, position)
	}
	return e.MergeOrderWithPosition(ctx, order, position)
}

// MergeOrderWithPosition implements spec.md §4.5.3.
func (e *Engine) MergeOrderWithPosition(ctx context.Context, order *model.Order, position *model.Position) error {
	position.EntryPrice = positiondomain.WeightedAverageEntryPrice(position.Size, position.EntryPrice, order.Size, order.Price)
	position.LqdPrice = positiondomain.LqdPriceCalc(position.EntryPrice, position.Leverage, position.Side)
	position.Size = position.Size.Add(order.Size)
	position.Margin = positiondomain.MarginCalc(position.Size, position.Leverage, position.EntryPrice)

	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		if err := e.store.UpdatePosition(ctx, position); err != nil {
			return err
		}
		order.PositionID = position.ID
		return e.store.UpdateOrder(ctx, order)
	})
	if err != nil {
		return err
	}
	e.notifyPosition(ws.EventTypePositionUpdated, position)
	return nil
}

// ClosePartiallyPosition implements spec.md §4.5.4. Mirrors the original
// source's close_partially_position: the margin unlock and the PnL credit
// must both actually land before the position/order are persisted, so
// either reporting ok=false aborts the whole transition as a no-op.
func (e *Engine) ClosePartiallyPosition(ctx context.Context, order *model.Order, position *model.Position) error {
	position.ClosePrice = order.Price
	position.PnL = position.PnL.Add(positiondomain.PnLValue(position.EntryPrice, order.Price, order.Size, position.Side))

	oldMargin := position.Margin
	position.ClosedSize = position.ClosedSize.Add(order.Size)
	position.Margin = positiondomain.MarginCalc(position.Size.Sub(position.ClosedSize), position.Leverage, position.EntryPrice)

	applied := false
	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		unlocked, err := e.ledger.UnlockBalance(ctx, position.PortfolioID, domain.AssetUSD, oldMargin.Sub(position.Margin))
		if err != nil {
			return err
		}
		if !unlocked {
			return nil
		}
		realized, err := e.ledger.AddBalance(ctx, position.PortfolioID, domain.AssetUSD, position.PnL)
		if err != nil {
			return err
		}
		if !realized {
			return nil
		}

		if err := e.store.UpdatePosition(ctx, position); err != nil {
			return err
		}
		order.PositionID = position.ID
		if err := e.store.UpdateOrder(ctx, order); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	e.notifyPosition(ws.EventTypePositionUpdated, position)
	return nil
}

// ClosePosition implements spec.md §4.5.5. Same ok-gating as
// ClosePartiallyPosition: the position only moves to CLOSE if the margin
// unlock and the PnL credit both actually take effect.
func (e *Engine) ClosePosition(ctx context.Context, order *model.Order, position *model.Position) error {
	position.ClosePrice = order.Price
	position.PnL = position.PnL.Add(positiondomain.PnLValue(position.EntryPrice, order.Price, order.Size, position.Side))
	position.Status = domain.PositionStatusClose
	position.ClosedSize = position.Size

	applied := false
	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		unlocked, err := e.ledger.UnlockBalance(ctx, position.PortfolioID, domain.AssetUSD, position.Margin)
		if err != nil {
			return err
		}
		if !unlocked {
			return nil
		}
		realized, err := e.ledger.AddBalance(ctx, position.PortfolioID, domain.AssetUSD, position.PnL)
		if err != nil {
			return err
		}
		if !realized {
			return nil
		}

		if err := e.store.UpdatePosition(ctx, position); err != nil {
			return err
		}
		order.PositionID = position.ID
		if err := e.store.UpdateOrder(ctx, order); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	e.notifyPosition(ws.EventTypePositionClosed, position)
	return nil
}

// CreatePositionByOrder implements spec.md §4.5.6. The margin was already
// frozen at order admission; no balance mutation happens here.
func (e *Engine) CreatePositionByOrder(ctx context.Context, order *model.Order) (*model.Position, error) {
	side := positiondomain.PositionSideWithOrder(order.Side)

	leverage := decimal.NewFromInt(1)
	lev, err := e.store.GetLeverage(ctx, order.PortfolioID, order.Market)
	if err != nil {
		return nil, err
	}
	if lev != nil {
		leverage = lev.Leverage
	}

	lqdPrice := positiondomain.LqdPriceCalc(order.Price, leverage, side)
	margin := positiondomain.MarginCalc(order.Size, leverage, order.Price)

	var position *model.Position
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		created, err := e.store.CreatePosition(ctx, &model.Position{
			PortfolioID: order.PortfolioID,
			Market:      order.Market,
			Leverage:    leverage,
			EntryPrice:  order.Price,
			LqdPrice:    lqdPrice,
			Size:        order.Size,
			Margin:      margin,
			Status:      domain.PositionStatusOpen,
			Side:        side,
		})
		if err != nil {
			return err
		}
		position = created

		order.PositionID = position.ID
		return e.store.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	e.notifyPosition(ws.EventTypePositionOpened, position)
	return position, nil
}

// LiquidPosition implements spec.md §4.5.7.
func (e *Engine) LiquidPosition(ctx context.Context, position *model.Position) error {
	applied := false
	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		ok, err := e.ledger.BurnBalance(ctx, position.PortfolioID, domain.AssetUSD, position.Margin)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		position.PnL = position.Margin.Neg()
		position.Status = domain.PositionStatusLiquid
		if err := e.store.UpdatePosition(ctx, position); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	metrics.GetCollector().Liquidations.WithLabelValues(string(position.Market)).Inc()
	e.notifyPosition(ws.EventTypeLiquidation, position)
	return nil
}
