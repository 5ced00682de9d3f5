package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tileschb/larang-api/internal/apperrors"
	"github.com/tileschb/larang-api/internal/server/services"
)

// register creates a new user account.
func (s *Server) register(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBindJSON(&form); err != nil {
		s.fail(c, validationError(err))
		return
	}

	user, err := s.users.Register(c.Request.Context(), form.Name, form.Email, form.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, s.formatter.Success(user.Profile(), nil))
}

// login verifies credentials and issues a fresh token pair.
func (s *Server) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		s.fail(c, validationError(err))
		return
	}

	ctx := c.Request.Context()
	user, err := s.users.Login(ctx, form.Email, form.Password)
	if err != nil {
		s.logger.Warn(ctx, "invalid login attempt", "email", form.Email, "ip", c.ClientIP())
		s.fail(c, err)
		return
	}

	pair, err := s.tokens.IssuePair(ctx, user.ID, nil)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, s.formatter.Success(tokenResponse(pair), nil))
}

// refresh rotates the presented pair. The middleware has already verified the
// bearer is a live refresh token; a concurrent rotation of the same token is
// detected inside RefreshPair's transaction and fails this attempt.
func (s *Server) refresh(c *gin.Context) {
	pair, err := s.tokens.RefreshPair(c.Request.Context(), currentBearer(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.formatter.Success(tokenResponse(pair), nil))
}

// me returns the authenticated user's profile.
func (s *Server) me(c *gin.Context) {
	rec := currentToken(c)
	user, err := s.users.GetByID(c.Request.Context(), rec.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.formatter.Success(user.Profile(), nil))
}

// logout revokes the presented pair.
func (s *Server) logout(c *gin.Context) {
	if err := s.tokens.RevokePair(c.Request.Context(), currentBearer(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.formatter.Success(nil, nil))
}

// logoutOthers revokes every pair of the user except the presented one.
func (s *Server) logoutOthers(c *gin.Context) {
	if err := s.tokens.RevokeOthers(c.Request.Context(), currentBearer(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.formatter.Success(nil, nil))
}

// logoutAll revokes every pair of the user, the presented one included.
func (s *Server) logoutAll(c *gin.Context) {
	rec := currentToken(c)
	if err := s.tokens.RevokeAll(c.Request.Context(), rec.UserID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.formatter.Success(nil, nil))
}

// tokenResponse builds the token payload shared by login and refresh. Keys
// are snake_case here; the envelope transform camelizes them on the way out.
func tokenResponse(pair *services.TokenPair) map[string]any {
	return map[string]any{
		"access_token":  pair.AccessToken,
		"token_type":    "Bearer",
		"expires_in":    time.Until(pair.AccessExpiresAt).Milliseconds(),
		"refresh_token": pair.RefreshToken,
	}
}

// unauthenticated aborts the request with the single collapsed auth failure.
func (s *Server) unauthenticated(c *gin.Context) {
	e := apperrors.Unauthenticated()
	c.AbortWithStatusJSON(e.Code.Status(), s.formatter.Error(e.Message, string(e.Code), e.Details))
}
