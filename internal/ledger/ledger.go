// Package ledger implements the balance ledger: the invariant-preserving
// five-bucket account (quantity/available/frozen/burned/fee_paid) that both
// engines mutate under a row lock. Every mutating operation here is a
// (portfolio_id, asset) -> bool call: it returns false and makes no change
// when the row is absent, and it never creates a row — that is the job of
// CreateByQty, invoked only on the deposit path.
//
// Grounded on the balance-mutation code in the teacher repo's
// internal/broker/paper.go (PlaceOrder/executeMarketOrder debiting and
// crediting b.account.Balance under a single mutex), generalized here to
// the five-bucket model and to per-row locking via the Store interface
// instead of one whole-account mutex.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"exchangesim/internal/domain"
	"exchangesim/internal/model"
)

// Store is the subset of the entity store the ledger needs: a row-locked
// read and an update, both expected to run inside the caller's transaction.
type Store interface {
	GetPortfolioAssetForUpdate(ctx context.Context, portfolioID string, asset domain.Asset) (*model.Balance, error)
	UpdateBalance(ctx context.Context, balance *model.Balance) error
	CreateBalance(ctx context.Context, balance *model.Balance) (*model.Balance, error)
}

// Ledger mutates Balance rows through a Store under row locks.
type Ledger struct {
	store Store
}

// New builds a Ledger backed by store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) load(ctx context.Context, portfolioID string, asset domain.Asset) (*model.Balance, bool, error) {
	b, err := l.store.GetPortfolioAssetForUpdate(ctx, portfolioID, asset)
	if err != nil {
		return nil, false, err
	}
	if b == nil {
		return nil, false, nil
	}
	return b, true, nil
}

// AddBalance increases quantity and available by qty. Returns false if the
// row does not exist.
func (l *Ledger) AddBalance(ctx context.Context, portfolioID string, asset domain.Asset, qty decimal.Decimal) (bool, error) {
	b, ok, err := l.load(ctx, portfolioID, asset)
	if err != nil || !ok {
		return false, err
	}
	b.Quantity = b.Quantity.Add(qty)
	b.Available = b.Available.Add(qty)
	return true, l.store.UpdateBalance(ctx, b)
}

// LockBalance moves qty from available to frozen. Requires available >= qty.
func (l *Ledger) LockBalance(ctx context.Context, portfolioID string, asset domain.Asset, qty decimal.Decimal) (bool, error) {
	b, ok, err := l.load(ctx, portfolioID, asset)
	if err != nil || !ok {
		return false, err
	}
	if b.Available.LessThan(qty) {
		return false, fmt.Errorf("ledger: lock %s %s: available %s < %s", portfolioID, asset, b.Available, qty)
	}
	b.Available = b.Available.Sub(qty)
	b.Frozen = b.Frozen.Add(qty)
	return true, l.store.UpdateBalance(ctx, b)
}

// UnlockBalance moves qty from frozen back to available. Requires frozen >= qty.
func (l *Ledger) UnlockBalance(ctx context.Context, portfolioID string, asset domain.Asset, qty decimal.Decimal) (bool, error) {
	b, ok, err := l.load(ctx, portfolioID, asset)
	if err != nil || !ok {
		return false, err
	}
	if b.Frozen.LessThan(qty) {
		return false, fmt.Errorf("ledger: unlock %s %s: frozen %s < %s", portfolioID, asset, b.Frozen, qty)
	}
	b.Frozen = b.Frozen.Sub(qty)
	b.Available = b.Available.Add(qty)
	return true, l.store.UpdateBalance(ctx, b)
}

// PayBalance is a direct outflow of unlocked funds: available and quantity
// both drop by qty.
func (l *Ledger) PayBalance(ctx context.Context, portfolioID string, asset domain.Asset, qty decimal.Decimal) (bool, error) {
	b, ok, err := l.load(ctx, portfolioID, asset)
	if err != nil || !ok {
		return false, err
	}
	b.Available = b.Available.Sub(qty)
	b.Quantity = b.Quantity.Sub(qty)
	return true, l.store.UpdateBalance(ctx, b)
}

// PayFee is PayBalance plus a cumulative fee_paid counter.
func (l *Ledger) PayFee(ctx context.Context, portfolioID string, asset domain.Asset, qty decimal.Decimal) (bool, error) {
	b, ok, err := l.load(ctx, portfolioID, asset)
	if err != nil || !ok {
		return false, err
	}
	b.Available = b.Available.Sub(qty)
	b.Quantity = b.Quantity.Sub(qty)
	b.FeePaid = b.FeePaid.Add(qty)
	return true, l.store.UpdateBalance(ctx, b)
}

// BurnBalance wipes qty out of frozen funds on liquidation: frozen and
// quantity drop by qty, burned accumulates it.
func (l *Ledger) BurnBalance(ctx context.Context, portfolioID string, asset domain.Asset, qty decimal.Decimal) (bool, error) {
	b, ok, err := l.load(ctx, portfolioID, asset)
	if err != nil || !ok {
		return false, err
	}
	b.Frozen = b.Frozen.Sub(qty)
	b.Quantity = b.Quantity.Sub(qty)
	b.Burned = b.Burned.Add(qty)
	return true, l.store.UpdateBalance(ctx, b)
}

// CheckAvailableQty is a pure read: does available >= qty? Returns false
// (not an error) if the row is absent, matching the Python source's
// check_available_qty semantics of "no row means nothing is available".
func (l *Ledger) CheckAvailableQty(ctx context.Context, portfolioID string, asset domain.Asset, qty decimal.Decimal) (bool, error) {
	b, ok, err := l.load(ctx, portfolioID, asset)
	if err != nil || !ok {
		return false, err
	}
	return b.Available.GreaterThanOrEqual(qty), nil
}

// CreateByQty creates a fresh Balance row with quantity = available = qty
// and the other buckets zero. This is the only constructor used outside
// tests, invoked on the deposit path when no row exists yet.
func (l *Ledger) CreateByQty(ctx context.Context, portfolioID string, asset domain.Asset, qty decimal.Decimal) (*model.Balance, error) {
	return l.store.CreateBalance(ctx, &model.Balance{
		PortfolioID: portfolioID,
		Asset:       asset,
		Quantity:    qty,
		Available:   qty,
		Frozen:      decimal.Zero,
		Burned:      decimal.Zero,
		FeePaid:     decimal.Zero,
	})
}
