// Package store defines the Store contract shared by the Matching Engine,
// the Positions Orchestration Engine, and the (out of scope) HTTP surface:
// CRUD plus row-locked reads and entity-specific finders, per spec.md §6.
//
// Two implementations are provided: Postgres (internal/store/postgres.go),
// grounded on the teacher repo's internal/store/postgres.go, and Memory
// (internal/store/memory.go), an in-process map store used by engine tests
// and as the default store when no database is configured.
package store

import (
	"context"
	"time"

	"exchangesim/internal/domain"
	"exchangesim/internal/model"
)

// Store is the full entity-store contract the engines depend on.
type Store interface {
	// WithTx runs fn in a single transaction: calls made with the context fn
	// receives see each other's uncommitted writes and the row locks taken
	// by a *ForUpdate read inside fn hold until fn returns. For Postgres,
	// fn's error rolls the transaction back. Memory's implementation holds
	// its store mutex for fn's duration instead, giving the same
	// read-then-write isolation without a real database underneath, but it
	// does not undo writes fn made before returning an error.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Portfolios
	CreatePortfolio(ctx context.Context, p *model.Portfolio) (*model.Portfolio, error)
	GetPortfolioByID(ctx context.Context, id string) (*model.Portfolio, error)
	UpdatePortfolio(ctx context.Context, p *model.Portfolio) error

	// Balances
	CreateBalance(ctx context.Context, b *model.Balance) (*model.Balance, error)
	GetPortfolioAsset(ctx context.Context, portfolioID string, asset domain.Asset) (*model.Balance, error)
	GetPortfolioAssetForUpdate(ctx context.Context, portfolioID string, asset domain.Asset) (*model.Balance, error)
	GetBalancesByPortfolioID(ctx context.Context, portfolioID string) ([]*model.Balance, error)
	UpdateBalance(ctx context.Context, b *model.Balance) error

	// Leverages
	GetLeverage(ctx context.Context, portfolioID string, market domain.Market) (*model.Leverage, error)
	UpsertLeverage(ctx context.Context, l *model.Leverage) (*model.Leverage, error)

	// Orders
	CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error)
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
	GetOrderByIDForUpdate(ctx context.Context, id string) (*model.Order, error)
	UpdateOrder(ctx context.Context, o *model.Order) error
	GetActiveOrders(ctx context.Context) ([]*model.Order, error)
	GetFilledPerpOrders(ctx context.Context, fromUpdateTime time.Time) ([]*model.Order, error)

	// Positions
	CreatePosition(ctx context.Context, p *model.Position) (*model.Position, error)
	GetPositionByID(ctx context.Context, id string) (*model.Position, error)
	UpdatePosition(ctx context.Context, p *model.Position) error
	GetOpenPositionByPortfolioAndMarket(ctx context.Context, portfolioID string, market domain.Market) (*model.Position, error)
	GetOpenPositionsHashMap(ctx context.Context) (map[string]*model.Position, error)
	GetAllPositions(ctx context.Context, portfolioID string, market domain.Market, status domain.PositionStatus, side domain.PositionSide) ([]*model.Position, error)
}

// PositionKey is the hashmap key the Positions Engine uses to look up an
// open position by market and portfolio: "{market}_{portfolio_id}".
func PositionKey(market domain.Market, portfolioID string) string {
	return string(market) + "_" + portfolioID
}
