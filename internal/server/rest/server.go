// Package rest exposes the account, token and desktop login operations over
// HTTP using gin.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/logging"
	"github.com/dmitrijs2005/lingokeeper/internal/server/metrics"
	"github.com/dmitrijs2005/lingokeeper/internal/server/models"
	"github.com/dmitrijs2005/lingokeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

// UserService is the subset of services.UserService used by the handlers.
type UserService interface {
	Register(ctx context.Context, email, username, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (int64, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	Deactivate(ctx context.Context, userID int64, password string) error
}

// DesktopService is the subset of services.DesktopAuthService used by the handlers.
type DesktopService interface {
	IssueCode(ctx context.Context, userID int64, redirectURI, state string) (*services.DesktopCode, error)
	ExchangeCode(ctx context.Context, rawCode string) (*services.TokenPair, error)
}

// RateLimiter reports whether another request for key is allowed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// HealthCheck reports whether the server's dependencies are reachable.
type HealthCheck func(ctx context.Context) error

const defaultShutdownTimeout = 10 * time.Second

type HTTPServer struct {
	address         string
	users           UserService
	desktop         DesktopService
	limiter         RateLimiter
	metrics         *metrics.Metrics
	health          HealthCheck
	logger          logging.Logger
	shutdownTimeout time.Duration
	engine          *gin.Engine
}

// Option customises an HTTPServer.
type Option func(*HTTPServer)

// WithRateLimiter enables rate limiting of the login and desktop token
// endpoints.
func WithRateLimiter(l RateLimiter) Option {
	return func(s *HTTPServer) { s.limiter = l }
}

// WithMetrics records request and auth metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *HTTPServer) { s.metrics = m }
}

// WithHealthCheck makes /healthz report failures of check.
func WithHealthCheck(check HealthCheck) Option {
	return func(s *HTTPServer) { s.health = check }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(s *HTTPServer) { s.shutdownTimeout = d }
}

func NewHTTPServer(a string, l logging.Logger, us UserService, ds DesktopService, opts ...Option) *HTTPServer {
	s := &HTTPServer{
		address:         a,
		users:           us,
		desktop:         ds,
		logger:          l.With("module", "http_server"),
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the configured gin engine.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on listen until ctx is cancelled, then shuts down gracefully,
// letting in-flight requests finish within the shutdown timeout.
func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}

func (s *HTTPServer) routes() *gin.Engine {
	r := gin.New()
	// Rate limit keys use the peer address; forwarded headers are not trusted.
	_ = r.SetTrustedProxies(nil)
	r.Use(gin.Recovery(), s.observe(), limitBody())

	r.GET("/healthz", s.healthz)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", s.register)
		authGroup.POST("/login", s.rateLimit("login"), s.login)
		authGroup.POST("/refresh", s.refresh)
		authGroup.POST("/desktop/code", s.requireBearer(), s.issueDesktopCode)
		authGroup.POST("/desktop/token", s.rateLimit("desktop"), s.exchangeDesktopCode)

		me := api.Group("/users/me", s.requireBearer())
		me.GET("", s.me)
		me.POST("/password", s.changePassword)
		me.POST("/deactivate", s.deactivate)
	}
	return r
}
