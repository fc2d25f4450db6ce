package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"exchangesim/internal/domain"
	"exchangesim/internal/model"
)

// Memory is an in-process Store backed by maps guarded by a single mutex.
// It stands in for the relational persistence layer spec.md treats as an
// external collaborator — used by engine unit tests and as the default
// store for local/dev runs where no database is configured, the same role
// the teacher repo's FileStore plays relative to PostgresStore.
type Memory struct {
	mu sync.Mutex

	portfolios map[string]*model.Portfolio
	balances   map[string]*model.Balance // keyed by id
	leverages  map[string]*model.Leverage
	orders     map[string]*model.Order
	positions  map[string]*model.Position
}

type memTxKey struct{}

// WithTx holds the store's mutex for the duration of fn, so a
// GetPortfolioAssetForUpdate/GetOrderByIDForUpdate read and the write that
// follows it observe no interleaving from another caller — the in-memory
// equivalent of a Postgres transaction wrapping a SELECT ... FOR UPDATE. If
// ctx is already inside a WithTx call the mutex is already held, so fn runs
// directly rather than re-locking (which would deadlock).
func (m *Memory) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, true))
}

// lock acquires the store mutex unless ctx was produced by WithTx, in which
// case the mutex is already held by the enclosing transaction and a second
// Lock from the same goroutine would deadlock.
func (m *Memory) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		portfolios: make(map[string]*model.Portfolio),
		balances:   make(map[string]*model.Balance),
		leverages:  make(map[string]*model.Leverage),
		orders:     make(map[string]*model.Order),
		positions:  make(map[string]*model.Position),
	}
}

func newID() string { return uuid.New().String() }

func touch(createdAt, updatedAt *time.Time) {
	now := time.Now()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

// --- Portfolios ---

func (m *Memory) CreatePortfolio(ctx context.Context, p *model.Portfolio) (*model.Portfolio, error) {
	defer m.lock(ctx)()
	cp := *p
	cp.ID = newID()
	touch(&cp.CreatedAt, &cp.UpdatedAt)
	m.portfolios[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *Memory) GetPortfolioByID(ctx context.Context, id string) (*model.Portfolio, error) {
	defer m.lock(ctx)()
	p, ok := m.portfolios[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (m *Memory) UpdatePortfolio(ctx context.Context, p *model.Portfolio) error {
	defer m.lock(ctx)()
	if _, ok := m.portfolios[p.ID]; !ok {
		return nil
	}
	cp := *p
	cp.UpdatedAt = time.Now()
	m.portfolios[cp.ID] = &cp
	return nil
}

// --- Balances ---

func (m *Memory) CreateBalance(ctx context.Context, b *model.Balance) (*model.Balance, error) {
	defer m.lock(ctx)()
	cp := *b
	cp.ID = newID()
	touch(&cp.CreatedAt, &cp.UpdatedAt)
	m.balances[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *Memory) findBalance(portfolioID string, asset domain.Asset) *model.Balance {
	for _, b := range m.balances {
		if b.PortfolioID == portfolioID && b.Asset == asset {
			return b
		}
	}
	return nil
}

func (m *Memory) GetPortfolioAsset(ctx context.Context, portfolioID string, asset domain.Asset) (*model.Balance, error) {
	defer m.lock(ctx)()
	b := m.findBalance(portfolioID, asset)
	if b == nil {
		return nil, nil
	}
	out := *b
	return &out, nil
}

// GetPortfolioAssetForUpdate is identical to GetPortfolioAsset for the
// in-memory store: the single mutex held for the duration of the caller's
// read-modify-write stands in for a row lock.
func (m *Memory) GetPortfolioAssetForUpdate(ctx context.Context, portfolioID string, asset domain.Asset) (*model.Balance, error) {
	defer m.lock(ctx)()
	b := m.findBalance(portfolioID, asset)
	if b == nil {
		return nil, nil
	}
	out := *b
	return &out, nil
}

func (m *Memory) GetBalancesByPortfolioID(ctx context.Context, portfolioID string) ([]*model.Balance, error) {
	defer m.lock(ctx)()
	var out []*model.Balance
	for _, b := range m.balances {
		if b.PortfolioID == portfolioID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) UpdateBalance(ctx context.Context, b *model.Balance) error {
	defer m.lock(ctx)()
	if _, ok := m.balances[b.ID]; !ok {
		return nil
	}
	cp := *b
	cp.UpdatedAt = time.Now()
	m.balances[cp.ID] = &cp
	return nil
}

// --- Leverages ---

func (m *Memory) GetLeverage(ctx context.Context, portfolioID string, market domain.Market) (*model.Leverage, error) {
	defer m.lock(ctx)()
	for _, l := range m.leverages {
		if l.PortfolioID == portfolioID && l.Market == market {
			out := *l
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) UpsertLeverage(ctx context.Context, l *model.Leverage) (*model.Leverage, error) {
	defer m.lock(ctx)()
	for _, existing := range m.leverages {
		if existing.PortfolioID == l.PortfolioID && existing.Market == l.Market {
			existing.Leverage = l.Leverage
			existing.UpdatedAt = time.Now()
			out := *existing
			return &out, nil
		}
	}
	cp := *l
	cp.ID = newID()
	touch(&cp.CreatedAt, &cp.UpdatedAt)
	m.leverages[cp.ID] = &cp
	out := cp
	return &out, nil
}

// --- Orders ---

func (m *Memory) CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error) {
	defer m.lock(ctx)()
	cp := *o
	cp.ID = newID()
	touch(&cp.CreatedAt, &cp.UpdatedAt)
	m.orders[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *Memory) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	defer m.lock(ctx)()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	out := *o
	return &out, nil
}

func (m *Memory) GetOrderByIDForUpdate(ctx context.Context, id string) (*model.Order, error) {
	return m.GetOrderByID(ctx, id)
}

func (m *Memory) UpdateOrder(ctx context.Context, o *model.Order) error {
	defer m.lock(ctx)()
	if _, ok := m.orders[o.ID]; !ok {
		return nil
	}
	cp := *o
	cp.UpdatedAt = time.Now()
	m.orders[cp.ID] = &cp
	return nil
}

func (m *Memory) GetActiveOrders(ctx context.Context) ([]*model.Order, error) {
	defer m.lock(ctx)()
	var out []*model.Order
	for _, o := range m.orders {
		if o.Status == domain.OrderStatusActive {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) GetFilledPerpOrders(ctx context.Context, fromUpdateTime time.Time) ([]*model.Order, error) {
	defer m.lock(ctx)()
	var out []*model.Order
	for _, o := range m.orders {
		if o.Status != domain.OrderStatusFilled || !o.Market.IsPerpetual() {
			continue
		}
		if !fromUpdateTime.IsZero() && o.UpdatedAt.Before(fromUpdateTime) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

// --- Positions ---

func (m *Memory) CreatePosition(ctx context.Context, p *model.Position) (*model.Position, error) {
	defer m.lock(ctx)()
	cp := *p
	cp.ID = newID()
	touch(&cp.CreatedAt, &cp.UpdatedAt)
	m.positions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *Memory) GetPositionByID(ctx context.Context, id string) (*model.Position, error) {
	defer m.lock(ctx)()
	p, ok := m.positions[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (m *Memory) UpdatePosition(ctx context.Context, p *model.Position) error {
	defer m.lock(ctx)()
	if _, ok := m.positions[p.ID]; !ok {
		return nil
	}
	cp := *p
	cp.UpdatedAt = time.Now()
	m.positions[cp.ID] = &cp
	return nil
}

func (m *Memory) GetOpenPositionByPortfolioAndMarket(ctx context.Context, portfolioID string, market domain.Market) (*model.Position, error) {
	defer m.lock(ctx)()
	for _, p := range m.positions {
		if p.PortfolioID == portfolioID && p.Market == market && p.Status == domain.PositionStatusOpen {
			out := *p
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetOpenPositionsHashMap(ctx context.Context) (map[string]*model.Position, error) {
	defer m.lock(ctx)()
	out := make(map[string]*model.Position)
	for _, p := range m.positions {
		if p.Status != domain.PositionStatusOpen {
			continue
		}
		cp := *p
		out[PositionKey(p.Market, p.PortfolioID)] = &cp
	}
	return out, nil
}

func (m *Memory) GetAllPositions(ctx context.Context, portfolioID string, market domain.Market, status domain.PositionStatus, side domain.PositionSide) ([]*model.Position, error) {
	defer m.lock(ctx)()
	var out []*model.Position
	for _, p := range m.positions {
		if portfolioID != "" && p.PortfolioID != portfolioID {
			continue
		}
		if market != "" && p.Market != market {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		if side != "" && p.Side != side {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}
