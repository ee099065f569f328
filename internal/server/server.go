// Package server exposes the daemon's health and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linotify/internal/relay"
	logx "linotify/pkg/logx"
)

// Health reports the last poll cycle. *relay.Relay satisfies it.
type Health interface {
	LastResult() (relay.Result, bool)
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	health Health
	log    logx.Logger
}

type healthResponse struct {
	Status  string         `json:"status"`
	LastRun *relay.Summary `json:"last_run,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// New builds the router. metrics may be nil to disable /metrics.
func New(addr string, health Health, metrics http.Handler, log logx.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router: router,
		health: health,
		log:    log.With(logx.String("comp", "http")),
	}
	router.Use(s.requestLog())

	router.GET("/healthz", s.handleHealth)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http listening", logx.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(sctx); err != nil {
			return err
		}
		return nil
	}
}

// handleHealth answers 200 while the last run succeeded (or none ran yet)
// and 503 after a failed run.
func (s *Server) handleHealth(c *gin.Context) {
	res, ok := s.health.LastResult()
	if !ok {
		c.JSON(http.StatusOK, healthResponse{Status: "starting"})
		return
	}
	resp := healthResponse{Status: "ok", LastRun: &res.Summary}
	if res.Err != nil {
		resp.Status = "error"
		resp.Error = res.Err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.FullPath()),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("took", time.Since(start)),
		)
	}
}
