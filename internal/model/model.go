// Package model defines the persisted entities of the exchange simulator:
// portfolios, balances, leverages, orders, and positions. Every entity
// carries an opaque ID and created/updated timestamps set by the store.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"exchangesim/internal/domain"
)

// Portfolio is the aggregate root owning balances, orders, positions, and
// leverages for one trading account. Fees default from configuration at
// creation and are updatable afterwards.
type Portfolio struct {
	ID            string
	Name          string
	SpotMakerFee  decimal.Decimal
	SpotTakerFee  decimal.Decimal
	PerpMakerFee  decimal.Decimal
	PerpTakerFee  decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Balance is a per-(portfolio, asset) account with five buckets:
// quantity, available, frozen, burned, fee_paid. Every internal/ledger
// operation keeps quantity == available + frozen. Non-negativity of the
// buckets is checked only by LockBalance and UnlockBalance; PayBalance,
// PayFee and BurnBalance subtract without a check, so the in-memory store
// accepts a negative bucket while the Postgres schema's CHECK (>= 0)
// constraints reject the write.
type Balance struct {
	ID         string
	PortfolioID string
	Asset      domain.Asset
	Quantity   decimal.Decimal
	Available  decimal.Decimal
	Frozen     decimal.Decimal
	Burned     decimal.Decimal
	FeePaid    decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Leverage records the per-(portfolio, market) leverage multiplier. A
// missing row means leverage = 1.
type Leverage struct {
	ID          string
	PortfolioID string
	Market      domain.Market
	Leverage    decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Order is a single buy/sell instruction against a market.
type Order struct {
	ID          string
	PortfolioID string
	Market      domain.Market
	Fee         decimal.Decimal
	Price       decimal.Decimal
	Size        decimal.Decimal
	Status      domain.OrderStatus
	Type        domain.OrderType
	Side        domain.OrderSide
	PositionID  string // empty until applied to a position
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Position is an open, closed, or liquidated perpetual position. At most
// one OPEN position may exist per (portfolio_id, market).
type Position struct {
	ID          string
	PortfolioID string
	Market      domain.Market
	Leverage    decimal.Decimal
	EntryPrice  decimal.Decimal
	ClosePrice  decimal.Decimal
	LqdPrice    decimal.Decimal
	PnL         decimal.Decimal
	Size        decimal.Decimal
	ClosedSize  decimal.Decimal
	Margin      decimal.Decimal
	Status      domain.PositionStatus
	Side        domain.PositionSide
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
