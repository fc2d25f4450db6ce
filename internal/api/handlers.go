package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"exchangesim/internal/apperr"
	"exchangesim/internal/domain"
	"exchangesim/internal/model"
	ws "exchangesim/internal/websocket"
)

// writeErr maps an engine/ledger error to an HTTP status: apperr.InvalidOrder
// and its subtypes map to 400 (spec.md §7), apperr.APIError (a failed oracle
// call) to 502, everything else to 500.
func writeErr(c *gin.Context, err error) {
	if apperr.IsInvalidOrder(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var apiErr *apperr.APIError
	if errors.As(err, &apiErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

type createPortfolioRequest struct {
	Name         string  `json:"name" binding:"required"`
	SpotMakerFee float64 `json:"spot_maker_fee"`
	SpotTakerFee float64 `json:"spot_taker_fee"`
	PerpMakerFee float64 `json:"perp_maker_fee"`
	PerpTakerFee float64 `json:"perp_taker_fee"`
}

func (s *Server) createPortfolio(c *gin.Context) {
	var req createPortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	portfolio, err := s.store.CreatePortfolio(c.Request.Context(), &model.Portfolio{
		Name:         req.Name,
		SpotMakerFee: decimal.NewFromFloat(req.SpotMakerFee),
		SpotTakerFee: decimal.NewFromFloat(req.SpotTakerFee),
		PerpMakerFee: decimal.NewFromFloat(req.PerpMakerFee),
		PerpTakerFee: decimal.NewFromFloat(req.PerpTakerFee),
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, portfolio)
}

func (s *Server) getPortfolio(c *gin.Context) {
	portfolio, err := s.store.GetPortfolioByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	if portfolio == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "portfolio not found"})
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

type depositRequest struct {
	Asset  string  `json:"asset" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
}

// deposit credits (or creates) a portfolio's balance row for an asset. It
// is the only caller of ledger.CreateByQty; AddBalance is otherwise called
// on spot fills and on position closes (PnL credit).
func (s *Server) deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	ctx := c.Request.Context()
	portfolioID := c.Param("id")
	asset := domain.Asset(req.Asset)
	amount := decimal.NewFromFloat(req.Amount)

	existing, err := s.store.GetPortfolioAsset(ctx, portfolioID, asset)
	if err != nil {
		writeErr(c, err)
		return
	}
	if existing == nil {
		balance, err := s.ledger.CreateByQty(ctx, portfolioID, asset, amount)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, balance)
		return
	}

	if _, err := s.ledger.AddBalance(ctx, portfolioID, asset, amount); err != nil {
		writeErr(c, err)
		return
	}
	balance, err := s.store.GetPortfolioAsset(ctx, portfolioID, asset)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (s *Server) listBalances(c *gin.Context) {
	balances, err := s.store.GetBalancesByPortfolioID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

type setLeverageRequest struct {
	Leverage float64 `json:"leverage" binding:"required"`
}

func (s *Server) setLeverage(c *gin.Context) {
	var req setLeverageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Leverage < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "leverage must be >= 1"})
		return
	}

	market := domain.Market(c.Param("market"))
	if !market.IsPerpetual() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "leverage only applies to perpetual markets"})
		return
	}

	lev, err := s.store.UpsertLeverage(c.Request.Context(), &model.Leverage{
		PortfolioID: c.Param("id"),
		Market:      market,
		Leverage:    decimal.NewFromFloat(req.Leverage),
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, lev)
}

type createOrderRequest struct {
	PortfolioID string  `json:"portfolio_id" binding:"required"`
	Market      string  `json:"market" binding:"required"`
	Side        string  `json:"side" binding:"required"`
	Type        string  `json:"type" binding:"required"`
	Price       float64 `json:"price"`
	Size        float64 `json:"size" binding:"required"`
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side := domain.OrderSide(req.Side)
	orderType := domain.OrderType(req.Type)
	if side != domain.OrderSideBuy && side != domain.OrderSideSell {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be BUY or SELL"})
		return
	}
	if orderType != domain.OrderTypeLimit && orderType != domain.OrderTypeMarket {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be LIMIT or MARKET"})
		return
	}

	order, err := s.matcher.CreateOrder(
		c.Request.Context(),
		req.PortfolioID,
		domain.Market(req.Market),
		decimal.NewFromFloat(req.Price),
		decimal.NewFromFloat(req.Size),
		side,
		orderType,
	)
	if err != nil {
		writeErr(c, err)
		return
	}

	s.hub.BroadcastOrder(orderEventType(order), order)
	c.JSON(http.StatusCreated, order)
}

func (s *Server) cancelOrder(c *gin.Context) {
	order, err := s.matcher.CancelOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	s.hub.BroadcastOrder(orderEventTypeFromStatus(order.Status), order)
	c.JSON(http.StatusOK, order)
}

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.store.GetOrderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) listPositions(c *gin.Context) {
	ctx := c.Request.Context()
	portfolioID := c.Param("id")

	var market domain.Market
	if m := c.Query("market"); m != "" {
		market = domain.Market(m)
	}
	var status domain.PositionStatus
	if st := c.Query("status"); st != "" {
		status = domain.PositionStatus(st)
	}
	var side domain.PositionSide
	if sd := c.Query("side"); sd != "" {
		side = domain.PositionSide(sd)
	}

	positions, err := s.store.GetAllPositions(ctx, portfolioID, market, status, side)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func orderEventTypeFromStatus(status domain.OrderStatus) ws.EventType {
	switch status {
	case domain.OrderStatusFilled:
		return ws.EventTypeOrderFilled
	case domain.OrderStatusCanceled:
		return ws.EventTypeOrderCanceled
	default:
		return ws.EventTypeOrderCreated
	}
}

func orderEventType(order *model.Order) ws.EventType {
	return orderEventTypeFromStatus(order.Status)
}
