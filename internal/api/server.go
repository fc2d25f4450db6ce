// Package api exposes the exchange simulator over REST and WebSocket:
// portfolio/balance/leverage administration and order placement sit on
// top of the Matching Engine and entity store; fills and position
// transitions are pushed out over the websocket hub.
//
// Grounded on the teacher's internal/api/server.go (gin.Engine wiring,
// CORS middleware, route grouping under /api/v1) and
// internal/api/bot_controller.go (WebSocket upgrade + hub registration),
// generalized from bot control to order/position administration.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"exchangesim/internal/ledger"
	"exchangesim/internal/logger"
	"exchangesim/internal/matching"
	"exchangesim/internal/metrics"
	"exchangesim/internal/store"
	ws "exchangesim/internal/websocket"
)

// Server is the REST + WebSocket front door onto the matching engine and
// entity store.
type Server struct {
	router *gin.Engine
	hub    *ws.Hub
	log    logger.Logger

	store   store.Store
	ledger  *ledger.Ledger
	matcher *matching.Engine
}

// NewServer wires a Server over the given store, ledger, and matching
// engine, mounted at basePath (e.g. "/api/v1").
func NewServer(basePath string, s store.Store, l *ledger.Ledger, matcher *matching.Engine, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.Use(corsMiddleware())

	hub := ws.NewHub()
	go hub.Run()

	srv := &Server{
		router:  router,
		hub:     hub,
		log:     log,
		store:   s,
		ledger:  l,
		matcher: matcher,
	}

	srv.setupRoutes(basePath)
	return srv
}

// Hub exposes the websocket hub so the supervisor (or a thin adapter) can
// push engine events out to clients.
func (s *Server) Hub() *ws.Hub { return s.hub }

func (s *Server) setupRoutes(basePath string) {
	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	group := s.router.Group(basePath)
	{
		group.GET("/health", s.healthCheck)

		group.POST("/portfolios", s.createPortfolio)
		group.GET("/portfolios/:id", s.getPortfolio)

		group.POST("/portfolios/:id/deposits", s.deposit)
		group.GET("/portfolios/:id/balances", s.listBalances)

		group.PUT("/portfolios/:id/leverage/:market", s.setLeverage)

		group.POST("/orders", s.createOrder)
		group.POST("/orders/:id/cancel", s.cancelOrder)
		group.GET("/orders/:id", s.getOrder)

		group.GET("/portfolios/:id/positions", s.listPositions)
	}
}

// Run starts the HTTP server on addr (e.g. ":8080").
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

var upgrader = gorillaws.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(s.hub, conn)
	s.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
