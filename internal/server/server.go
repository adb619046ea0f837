package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	ModeDev  = "dev"
	ModeProd = "prod"

	MetricsPath = "/metrics"
)

type Config struct {
	// Addr is the listen address; ":0" picks a free port.
	Addr string
	Mode string
}

type Server struct {
	srv      *http.Server
	listener net.Listener
	baseURL  string
}

// NewServer binds the listener and builds the router. registerHandlerFn
// receives the root group, after the logging, recovery and metrics middleware.
func NewServer(cfg Config, registerHandlerFn func(router *gin.RouterGroup), middlewares ...gin.HandlerFunc) (*Server, error) {
	if cfg.Mode == ModeProd {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", cfg.Addr, err)
	}

	logger := zap.L().Named("http")

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(logger, time.RFC3339, true),
		ginzap.RecoveryWithZap(logger, true),
		RequestMetrics(),
	)
	engine.GET(MetricsPath, gin.WrapH(promhttp.Handler()))

	router := engine.Group("/", middlewares...)
	registerHandlerFn(router)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return &Server{
		srv:      &http.Server{Handler: engine, ReadHeaderTimeout: 10 * time.Second},
		listener: listener,
		baseURL:  "http://" + listener.Addr().String(),
	}, nil
}

// URL returns the base URL of the bound listener.
func (s *Server) URL() string {
	return s.baseURL
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until Stop is called. It returns nil on a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	zap.S().Named("server").Infow("mock control plane listening", "url", s.baseURL)
	if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop waits for in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
