package rest

import (
	"net/http"

	"github.com/dmitrijs2005/lingokeeper/internal/common"
	"github.com/dmitrijs2005/lingokeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrorBadRequest)
		return
	}

	user, err := s.users.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	s.metrics.RecordAuth("register", err)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newUserResponse(user))
}

func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrorBadRequest)
		return
	}

	pair, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	s.metrics.RecordAuth("login", err)
	if err != nil {
		s.writeError(c, err)
		return
	}

	writeTokens(c, pair)
}

func (s *HTTPServer) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrorBadRequest)
		return
	}

	pair, err := s.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	s.metrics.RecordAuth("refresh", err)
	if err != nil {
		s.writeError(c, err)
		return
	}

	writeTokens(c, pair)
}

func (s *HTTPServer) issueDesktopCode(c *gin.Context) {
	var req desktopCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrorBadRequest)
		return
	}

	code, err := s.desktop.IssueCode(c.Request.Context(), currentUserID(c), req.RedirectURI, req.State)
	s.metrics.RecordAuth("desktop_issue", err)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, desktopCodeResponse{
		Code:        code.Code,
		RedirectURL: code.RedirectURL,
		State:       code.State,
		ExpiresAt:   code.ExpiresAt,
	})
}

func (s *HTTPServer) exchangeDesktopCode(c *gin.Context) {
	var req desktopTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrorBadRequest)
		return
	}

	pair, err := s.desktop.ExchangeCode(c.Request.Context(), req.Code)
	s.metrics.RecordAuth("desktop_exchange", err)
	if err != nil {
		s.writeError(c, err)
		return
	}

	writeTokens(c, pair)
}

func (s *HTTPServer) me(c *gin.Context) {
	user, err := s.users.Me(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

func (s *HTTPServer) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrorBadRequest)
		return
	}

	err := s.users.ChangePassword(c.Request.Context(), currentUserID(c), req.CurrentPassword, req.NewPassword)
	s.metrics.RecordAuth("change_password", err)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) deactivate(c *gin.Context) {
	var req deactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrorBadRequest)
		return
	}

	err := s.users.Deactivate(c.Request.Context(), currentUserID(c), req.Password)
	s.metrics.RecordAuth("deactivate", err)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// writeTokens sends a token pair. Responses carrying credentials must not be cached.
func writeTokens(c *gin.Context, pair *services.TokenPair) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (s *HTTPServer) healthz(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			s.logger.Warn(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
