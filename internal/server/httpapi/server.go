// Package httpapi exposes the authentication service over HTTP. Every
// response, success or failure, is wrapped in the respond envelope.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/tileschb/larang-api/internal/apperrors"
	"github.com/tileschb/larang-api/internal/logging"
	"github.com/tileschb/larang-api/internal/respond"
	"github.com/tileschb/larang-api/internal/server/config"
	"github.com/tileschb/larang-api/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// Server wires the HTTP routes to the user and token services.
type Server struct {
	cfg       *config.Config
	logger    logging.Logger
	formatter *respond.Formatter
	users     *services.UserService
	tokens    *services.TokenService
}

func NewServer(cfg *config.Config, logger logging.Logger, formatter *respond.Formatter,
	users *services.UserService, tokens *services.TokenService) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		formatter: formatter,
		users:     users,
		tokens:    tokens,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestid.New(), s.requestLogger())

	r.NoRoute(func(c *gin.Context) {
		e := apperrors.RouteNotFound()
		c.JSON(e.Code.Status(), s.formatter.Error(e.Message, string(e.Code), e.Details))
	})

	v1 := r.Group("/v1")
	v1.POST("/register", s.register)

	ag := v1.Group("/auth")
	ag.POST("/login", s.login)
	ag.POST("/refresh", s.authenticate("auth.token-refresh"), s.refresh)
	ag.GET("/me", s.authenticate("auth.who-am-i"), s.me)
	ag.POST("/logout", s.authenticate("auth.logout"), s.logout)
	ag.POST("/logout-others", s.authenticate("auth.logout-others"), s.logoutOthers)
	ag.POST("/logout-all", s.authenticate("auth.logout-all"), s.logoutAll)

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.EndpointAddr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server starting", "addr", s.cfg.EndpointAddr, "env", s.cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(context.Background(), "http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// fail writes an error envelope for err. Coded errors keep their status and
// payload; everything else becomes UNEXPECTED_ERROR, with the underlying
// detail exposed only outside production.
func (s *Server) fail(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
	// An entity miss here means the credential no longer identifies a live
	// principal (e.g. the user row was deleted after the token was issued),
	// so it collapses into the same failure as a bad token.
	case errors.Is(err, apperrors.ErrInvalidToken), errors.Is(err, apperrors.ErrNotFound):
		appErr = apperrors.Unauthenticated()
	default:
		s.logger.Error(c.Request.Context(), "unexpected error", "error", err)
		appErr = apperrors.Unexpected(err)
		if !s.cfg.IsProduction() {
			appErr = appErr.WithDetails(map[string]any{"error": err.Error()})
		}
	}

	c.AbortWithStatusJSON(appErr.Code.Status(), s.formatter.Error(appErr.Message, string(appErr.Code), appErr.Details))
}
