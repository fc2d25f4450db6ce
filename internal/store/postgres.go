package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"exchangesim/internal/domain"
	"exchangesim/internal/model"
)

// Postgres implements Store on top of database/sql + lib/pq. Grounded on
// the teacher repo's internal/store/postgres.go: same connection-pool
// tuning and Initialize-creates-schema-if-absent shape, generalized from
// one account/position/order/trade schema to the five exchange-simulator
// tables, and from whole-row overwrites to per-row SELECT ... FOR UPDATE
// locking inside the caller's own transaction.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool against connectionString and verifies
// it with a bounded ping, mirroring the teacher's NewPostgresStore.
func NewPostgres(connectionString string) (*Postgres, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{db: db}, nil
}

// Close releases the connection pool.
func (s *Postgres) Close() error { return s.db.Close() }

// querier is satisfied by both *sql.DB and *sql.Tx, so store methods can run
// unchanged whether or not they're inside a WithTx transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type txKey struct{}

// q returns the *sql.Tx stashed in ctx by WithTx, or the store's pool if ctx
// carries none, so every query below runs against whichever is live.
func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// WithTx runs fn inside a database transaction: a GetPortfolioAssetForUpdate
// or GetOrderByIDForUpdate call made with the context WithTx passes to fn
// holds its row lock until fn returns, and the writes fn makes through that
// same context commit atomically with it. fn's error rolls the transaction
// back; a nil return commits it. If ctx already carries a transaction (an
// engine operation that itself calls a helper that opens WithTx), fn runs
// against that same transaction instead of starting a nested one, since a
// second BeginTx from the pool would block on the lock the outer
// transaction already holds. Grounded on the teacher's SaveState, which
// opens the same db.BeginTx/tx.Commit pair around a multi-statement write.
func (s *Postgres) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// Initialize creates the schema (portfolios, balances, leverages, orders,
// positions) if it does not already exist.
func (s *Postgres) Initialize(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS portfolios (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(128) NOT NULL UNIQUE,
			spot_maker_fee NUMERIC(20,10) NOT NULL,
			spot_taker_fee NUMERIC(20,10) NOT NULL,
			perp_maker_fee NUMERIC(20,10) NOT NULL,
			perp_taker_fee NUMERIC(20,10) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS balances (
			id VARCHAR(64) PRIMARY KEY,
			portfolio_id VARCHAR(64) NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
			asset VARCHAR(16) NOT NULL,
			quantity NUMERIC(38,18) NOT NULL CHECK (quantity >= 0),
			available NUMERIC(38,18) NOT NULL CHECK (available >= 0),
			frozen NUMERIC(38,18) NOT NULL CHECK (frozen >= 0),
			burned NUMERIC(38,18) NOT NULL CHECK (burned >= 0),
			fee_paid NUMERIC(38,18) NOT NULL CHECK (fee_paid >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(portfolio_id, asset)
		);

		CREATE TABLE IF NOT EXISTS leverages (
			id VARCHAR(64) PRIMARY KEY,
			portfolio_id VARCHAR(64) NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
			market VARCHAR(32) NOT NULL,
			leverage NUMERIC(20,10) NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(portfolio_id, market)
		);

		CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			portfolio_id VARCHAR(64) NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
			market VARCHAR(32) NOT NULL,
			fee NUMERIC(38,18) NOT NULL,
			price NUMERIC(38,18) NOT NULL,
			size NUMERIC(38,18) NOT NULL,
			status VARCHAR(16) NOT NULL,
			type VARCHAR(16) NOT NULL,
			side VARCHAR(8) NOT NULL,
			position_id VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS positions (
			id VARCHAR(64) PRIMARY KEY,
			portfolio_id VARCHAR(64) NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
			market VARCHAR(32) NOT NULL,
			leverage NUMERIC(20,10) NOT NULL,
			entry_price NUMERIC(38,18) NOT NULL,
			close_price NUMERIC(38,18) NOT NULL DEFAULT 0,
			lqd_price NUMERIC(38,18) NOT NULL,
			pnl NUMERIC(38,18) NOT NULL DEFAULT 0,
			size NUMERIC(38,18) NOT NULL,
			closed_size NUMERIC(38,18) NOT NULL DEFAULT 0,
			margin NUMERIC(38,18) NOT NULL,
			status VARCHAR(16) NOT NULL,
			side VARCHAR(8) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_balances_portfolio ON balances(portfolio_id);
		CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
		CREATE INDEX IF NOT EXISTS idx_orders_market ON orders(market);
		CREATE INDEX IF NOT EXISTS idx_orders_updated_at ON orders(updated_at);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_open_unique
			ON positions(portfolio_id, market) WHERE status = 'OPEN';
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// --- Portfolios ---

func (s *Postgres) CreatePortfolio(ctx context.Context, p *model.Portfolio) (*model.Portfolio, error) {
	id := newID()
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO portfolios (id, name, spot_maker_fee, spot_taker_fee, perp_maker_fee, perp_taker_fee)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, spot_maker_fee, spot_taker_fee, perp_maker_fee, perp_taker_fee, created_at, updated_at
	`, id, p.Name, p.SpotMakerFee, p.SpotTakerFee, p.PerpMakerFee, p.PerpTakerFee)
	return scanPortfolio(row)
}

func (s *Postgres) GetPortfolioByID(ctx context.Context, id string) (*model.Portfolio, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, name, spot_maker_fee, spot_taker_fee, perp_maker_fee, perp_taker_fee, created_at, updated_at
		FROM portfolios WHERE id = $1
	`, id)
	p, err := scanPortfolio(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *Postgres) UpdatePortfolio(ctx context.Context, p *model.Portfolio) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE portfolios SET name=$1, spot_maker_fee=$2, spot_taker_fee=$3,
			perp_maker_fee=$4, perp_taker_fee=$5, updated_at=NOW()
		WHERE id=$6
	`, p.Name, p.SpotMakerFee, p.SpotTakerFee, p.PerpMakerFee, p.PerpTakerFee, p.ID)
	return err
}

func scanPortfolio(row *sql.Row) (*model.Portfolio, error) {
	p := &model.Portfolio{}
	err := row.Scan(&p.ID, &p.Name, &p.SpotMakerFee, &p.SpotTakerFee, &p.PerpMakerFee, &p.PerpTakerFee, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// --- Balances ---

func (s *Postgres) CreateBalance(ctx context.Context, b *model.Balance) (*model.Balance, error) {
	id := newID()
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO balances (id, portfolio_id, asset, quantity, available, frozen, burned, fee_paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, portfolio_id, asset, quantity, available, frozen, burned, fee_paid, created_at, updated_at
	`, id, b.PortfolioID, b.Asset, b.Quantity, b.Available, b.Frozen, b.Burned, b.FeePaid)
	return scanBalance(row)
}

func (s *Postgres) getPortfolioAsset(ctx context.Context, portfolioID string, asset domain.Asset, forUpdate bool) (*model.Balance, error) {
	q := `
		SELECT id, portfolio_id, asset, quantity, available, frozen, burned, fee_paid, created_at, updated_at
		FROM balances WHERE portfolio_id = $1 AND asset = $2
	`
	if forUpdate {
		q += " FOR UPDATE"
	}
	row := s.q(ctx).QueryRowContext(ctx, q, portfolioID, asset)
	b, err := scanBalance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (s *Postgres) GetPortfolioAsset(ctx context.Context, portfolioID string, asset domain.Asset) (*model.Balance, error) {
	return s.getPortfolioAsset(ctx, portfolioID, asset, false)
}

// GetPortfolioAssetForUpdate locks the balance row for the remainder of the
// caller's transaction. Callers must invoke this with the context WithTx
// passes to fn for the lock to hold across the matching write; the matching
// and positions engines always pair this with an UpdateBalance call inside
// the same WithTx before it commits.
func (s *Postgres) GetPortfolioAssetForUpdate(ctx context.Context, portfolioID string, asset domain.Asset) (*model.Balance, error) {
	return s.getPortfolioAsset(ctx, portfolioID, asset, true)
}

func (s *Postgres) GetBalancesByPortfolioID(ctx context.Context, portfolioID string) ([]*model.Balance, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, portfolio_id, asset, quantity, available, frozen, burned, fee_paid, created_at, updated_at
		FROM balances WHERE portfolio_id = $1
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("store: query balances: %w", err)
	}
	defer rows.Close()

	var out []*model.Balance
	for rows.Next() {
		b := &model.Balance{}
		if err := rows.Scan(&b.ID, &b.PortfolioID, &b.Asset, &b.Quantity, &b.Available, &b.Frozen, &b.Burned, &b.FeePaid, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateBalance(ctx context.Context, b *model.Balance) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE balances SET quantity=$1, available=$2, frozen=$3, burned=$4, fee_paid=$5, updated_at=NOW()
		WHERE id=$6
	`, b.Quantity, b.Available, b.Frozen, b.Burned, b.FeePaid, b.ID)
	return err
}

func scanBalance(row *sql.Row) (*model.Balance, error) {
	b := &model.Balance{}
	err := row.Scan(&b.ID, &b.PortfolioID, &b.Asset, &b.Quantity, &b.Available, &b.Frozen, &b.Burned, &b.FeePaid, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// --- Leverages ---

func (s *Postgres) GetLeverage(ctx context.Context, portfolioID string, market domain.Market) (*model.Leverage, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, portfolio_id, market, leverage, created_at, updated_at
		FROM leverages WHERE portfolio_id = $1 AND market = $2
	`, portfolioID, market)
	l := &model.Leverage{}
	err := row.Scan(&l.ID, &l.PortfolioID, &l.Market, &l.Leverage, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan leverage: %w", err)
	}
	return l, nil
}

func (s *Postgres) UpsertLeverage(ctx context.Context, l *model.Leverage) (*model.Leverage, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO leverages (id, portfolio_id, market, leverage)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (portfolio_id, market) DO UPDATE SET leverage = EXCLUDED.leverage, updated_at = NOW()
		RETURNING id, portfolio_id, market, leverage, created_at, updated_at
	`, newID(), l.PortfolioID, l.Market, l.Leverage)
	out := &model.Leverage{}
	err := row.Scan(&out.ID, &out.PortfolioID, &out.Market, &out.Leverage, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: upsert leverage: %w", err)
	}
	return out, nil
}

// --- Orders ---

func (s *Postgres) CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO orders (id, portfolio_id, market, fee, price, size, status, type, side, position_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
		RETURNING id, portfolio_id, market, fee, price, size, status, type, side, COALESCE(position_id, ''), created_at, updated_at
	`, newID(), o.PortfolioID, o.Market, o.Fee, o.Price, o.Size, o.Status, o.Type, o.Side, o.PositionID)
	return scanOrder(row)
}

func (s *Postgres) getOrderByID(ctx context.Context, id string, forUpdate bool) (*model.Order, error) {
	q := `
		SELECT id, portfolio_id, market, fee, price, size, status, type, side, COALESCE(position_id, ''), created_at, updated_at
		FROM orders WHERE id = $1
	`
	if forUpdate {
		q += " FOR UPDATE"
	}
	row := s.q(ctx).QueryRowContext(ctx, q, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

func (s *Postgres) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	return s.getOrderByID(ctx, id, false)
}

func (s *Postgres) GetOrderByIDForUpdate(ctx context.Context, id string) (*model.Order, error) {
	return s.getOrderByID(ctx, id, true)
}

func (s *Postgres) UpdateOrder(ctx context.Context, o *model.Order) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE orders SET fee=$1, price=$2, size=$3, status=$4, position_id=NULLIF($5, ''), updated_at=NOW()
		WHERE id=$6
	`, o.Fee, o.Price, o.Size, o.Status, o.PositionID, o.ID)
	return err
}

func (s *Postgres) GetActiveOrders(ctx context.Context) ([]*model.Order, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, portfolio_id, market, fee, price, size, status, type, side, COALESCE(position_id, ''), created_at, updated_at
		FROM orders WHERE status = $1
	`, domain.OrderStatusActive)
	if err != nil {
		return nil, fmt.Errorf("store: query active orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (s *Postgres) GetFilledPerpOrders(ctx context.Context, fromUpdateTime time.Time) ([]*model.Order, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, portfolio_id, market, fee, price, size, status, type, side, COALESCE(position_id, ''), created_at, updated_at
		FROM orders
		WHERE status = $1 AND market ILIKE '%perp%' AND updated_at >= $2
		ORDER BY updated_at ASC
	`, domain.OrderStatusFilled, fromUpdateTime)
	if err != nil {
		return nil, fmt.Errorf("store: query filled perp orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func scanOrder(row *sql.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(&o.ID, &o.PortfolioID, &o.Market, &o.Fee, &o.Price, &o.Size, &o.Status, &o.Type, &o.Side, &o.PositionID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func scanOrders(rows *sql.Rows) ([]*model.Order, error) {
	var out []*model.Order
	for rows.Next() {
		o := &model.Order{}
		if err := rows.Scan(&o.ID, &o.PortfolioID, &o.Market, &o.Fee, &o.Price, &o.Size, &o.Status, &o.Type, &o.Side, &o.PositionID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// --- Positions ---

func (s *Postgres) CreatePosition(ctx context.Context, p *model.Position) (*model.Position, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO positions (id, portfolio_id, market, leverage, entry_price, close_price, lqd_price, pnl, size, closed_size, margin, status, side)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, portfolio_id, market, leverage, entry_price, close_price, lqd_price, pnl, size, closed_size, margin, status, side, created_at, updated_at
	`, newID(), p.PortfolioID, p.Market, p.Leverage, p.EntryPrice, p.ClosePrice, p.LqdPrice, p.PnL, p.Size, p.ClosedSize, p.Margin, p.Status, p.Side)
	return scanPosition(row)
}

func (s *Postgres) GetPositionByID(ctx context.Context, id string) (*model.Position, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, portfolio_id, market, leverage, entry_price, close_price, lqd_price, pnl, size, closed_size, margin, status, side, created_at, updated_at
		FROM positions WHERE id = $1
	`, id)
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *Postgres) UpdatePosition(ctx context.Context, p *model.Position) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE positions SET leverage=$1, entry_price=$2, close_price=$3, lqd_price=$4, pnl=$5,
			size=$6, closed_size=$7, margin=$8, status=$9, updated_at=NOW()
		WHERE id=$10
	`, p.Leverage, p.EntryPrice, p.ClosePrice, p.LqdPrice, p.PnL, p.Size, p.ClosedSize, p.Margin, p.Status, p.ID)
	return err
}

func (s *Postgres) GetOpenPositionByPortfolioAndMarket(ctx context.Context, portfolioID string, market domain.Market) (*model.Position, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, portfolio_id, market, leverage, entry_price, close_price, lqd_price, pnl, size, closed_size, margin, status, side, created_at, updated_at
		FROM positions WHERE portfolio_id = $1 AND market = $2 AND status = $3
	`, portfolioID, market, domain.PositionStatusOpen)
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *Postgres) GetOpenPositionsHashMap(ctx context.Context) (map[string]*model.Position, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, portfolio_id, market, leverage, entry_price, close_price, lqd_price, pnl, size, closed_size, margin, status, side, created_at, updated_at
		FROM positions WHERE status = $1
	`, domain.PositionStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("store: query open positions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*model.Position)
	for rows.Next() {
		p, err := scanPositionRows(rows)
		if err != nil {
			return nil, err
		}
		out[PositionKey(p.Market, p.PortfolioID)] = p
	}
	return out, rows.Err()
}

func (s *Postgres) GetAllPositions(ctx context.Context, portfolioID string, market domain.Market, status domain.PositionStatus, side domain.PositionSide) ([]*model.Position, error) {
	q := `
		SELECT id, portfolio_id, market, leverage, entry_price, close_price, lqd_price, pnl, size, closed_size, margin, status, side, created_at, updated_at
		FROM positions WHERE 1=1
	`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if portfolioID != "" {
		q += " AND portfolio_id = " + arg(portfolioID)
	}
	if market != "" {
		q += " AND market = " + arg(market)
	}
	if status != "" {
		q += " AND status = " + arg(status)
	}
	if side != "" {
		q += " AND side = " + arg(side)
	}

	rows, err := s.q(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query positions: %w", err)
	}
	defer rows.Close()

	var out []*model.Position
	for rows.Next() {
		p, err := scanPositionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPosition(row *sql.Row) (*model.Position, error) {
	p := &model.Position{}
	err := row.Scan(&p.ID, &p.PortfolioID, &p.Market, &p.Leverage, &p.EntryPrice, &p.ClosePrice, &p.LqdPrice, &p.PnL, &p.Size, &p.ClosedSize, &p.Margin, &p.Status, &p.Side, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanPositionRows(rows *sql.Rows) (*model.Position, error) {
	p := &model.Position{}
	err := rows.Scan(&p.ID, &p.PortfolioID, &p.Market, &p.Leverage, &p.EntryPrice, &p.ClosePrice, &p.LqdPrice, &p.PnL, &p.Size, &p.ClosedSize, &p.Margin, &p.Status, &p.Side, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: scan position: %w", err)
	}
	return p, nil
}
