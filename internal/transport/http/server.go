// Package adminhttp exposes the operator API: positions, active and
// archived orders, the risk report and the panic stop.
package adminhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/berinsbackup-web/AITradingBot/internal/execution"
	"github.com/berinsbackup-web/AITradingBot/internal/logger"
	"github.com/berinsbackup-web/AITradingBot/internal/risk"
	"github.com/berinsbackup-web/AITradingBot/internal/store/sqlite"
)

type Server struct {
	addr    string
	manager *execution.Manager
	gate    *risk.Gate
	perf    *risk.PerformanceTracker
	archive *sqlite.Store
	srv     *http.Server
}

func NewServer(addr string, manager *execution.Manager, gate *risk.Gate, perf *risk.PerformanceTracker, archive *sqlite.Store) *Server {
	return &Server{
		addr:    addr,
		manager: manager,
		gate:    gate,
		perf:    perf,
		archive: archive,
	}
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/positions", s.handlePositions)
		api.GET("/orders/active", s.handleActiveOrders)
		api.GET("/orders/archive", s.handleArchive)
		api.GET("/orders/unreconciled", s.handleUnreconciled)
		api.POST("/orders", s.handlePlaceOrder)
		api.POST("/orders/sweep", s.handleSweep)
		api.GET("/risk/report", s.handleRiskReport)
		api.POST("/risk/panic", s.handlePanic)
		api.DELETE("/risk/panic", s.handleClearPanic)
		api.POST("/risk/equity", s.handleEquity)
		api.POST("/risk/returns", s.handleReturn)
	}
	return r
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("http: admin API listening on %s", s.addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"panic":   s.gate.PanicActive(),
		"latency": s.manager.Latency().Average().String(),
	})
}

func (s *Server) handlePositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.manager.Positions()})
}

func (s *Server) handleActiveOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"orders": s.manager.ActiveOrders()})
}

func (s *Server) handleArchive(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "order archive not configured"})
		return
	}
	rows, err := s.archive.Recent(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

// handleUnreconciled lists archived orders stuck in UNKNOWN, awaiting
// manual reconciliation against the venue.
func (s *Server) handleUnreconciled(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "order archive not configured"})
		return
	}
	rows, err := s.archive.Unreconciled(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

type placeOrderRequest struct {
	Symbol string  `json:"symbol" binding:"required"`
	Qty    float64 `json:"qty" binding:"required,gt=0"`
	Side   string  `json:"side" binding:"required,oneof=BUY SELL"`
	Type   string  `json:"type" binding:"required,oneof=MARKET LIMIT STOP"`
	Price  float64 `json:"price"`
}

func (s *Server) handlePlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order := execution.NewOrder(req.Symbol, req.Qty,
		execution.Side(req.Side), execution.OrderType(req.Type), req.Price)
	placed := s.manager.PlaceOrder(c.Request.Context(), order)
	c.JSON(http.StatusOK, gin.H{"order": placed})
}

func (s *Server) handleSweep(c *gin.Context) {
	n := s.manager.SweepStaleOrders(c.Request.Context(), 0)
	c.JSON(http.StatusOK, gin.H{"cancelled": n})
}

func (s *Server) handleRiskReport(c *gin.Context) {
	report := s.gate.Analytics().Report(s.gate.PanicActive(), s.gate.CurrentLimits(), s.perf)
	c.JSON(http.StatusOK, report)
}

type panicRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handlePanic(c *gin.Context) {
	var req panicRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "manual trigger via admin API"
	}
	s.gate.TriggerPanic(req.Reason)
	c.JSON(http.StatusOK, gin.H{"panic": true})
}

func (s *Server) handleClearPanic(c *gin.Context) {
	s.gate.ClearPanic()
	c.JSON(http.StatusOK, gin.H{"panic": false})
}

type equityRequest struct {
	Value float64 `json:"value" binding:"required,gt=0"`
}

// handleEquity appends one equity observation; breaching the
// configured drawdown limit engages the panic stop.
func (s *Server) handleEquity(c *gin.Context) {
	var req equityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a := s.gate.Analytics()
	a.UpdateEquity(time.Now(), req.Value)
	if a.DrawdownExceeded() && !s.gate.PanicActive() {
		s.gate.TriggerPanic(fmt.Sprintf("max drawdown limit exceeded (drawdown=%.4f)", a.MaxDrawdown()))
	}
	c.JSON(http.StatusOK, gin.H{
		"current_value": a.LastEquity(),
		"max_drawdown":  a.MaxDrawdown(),
		"panic":         s.gate.PanicActive(),
	})
}

type returnRequest struct {
	Value float64 `json:"value"`
}

func (s *Server) handleReturn(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.gate.Analytics().AddReturn(req.Value)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
