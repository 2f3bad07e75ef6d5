package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modulrent/site-backend/internal/middleware"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/modulrent/site-backend/internal/response"
	"github.com/modulrent/site-backend/internal/service"
	"github.com/modulrent/site-backend/internal/validator"
	"github.com/rs/zerolog"
)

const maxUserAgentLen = 512

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService  *service.AuthService
	adminService *service.AdminUserService
	cookie       CookieConfig
	log          zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	adminService *service.AdminUserService,
	cookie CookieConfig,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		adminService: adminService,
		cookie:       cookie,
		log:          log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Validates email + password, opens a session and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, service.SessionMeta{
		IPAddress: c.ClientIP(),
		UserAgent: truncate(c.Request.UserAgent(), maxUserAgentLen),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookie(c, res.Token, h.authService.SessionTTL())
	response.Success(c, http.StatusOK, gin.H{
		"user":       res.User,
		"token":      res.Token,
		"expires_at": res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Deletes the current session, if any, and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.ExtractToken(c, h.cookie.Name)

	// The cookie goes regardless of whether the row could be deleted.
	h.clearSessionCookie(c)

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Verify godoc
// GET /api/v1/auth/verify
// Returns the admin behind the current session cookie or bearer token.
func (h *AuthHandler) Verify(c *gin.Context) {
	token := middleware.ExtractToken(c, h.cookie.Name)
	if token == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	p, err := h.authService.Verify(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": p})
}

// Setup godoc
// POST /api/v1/auth/setup
// Creates the first super admin. Closed once any admin exists.
func (h *AuthHandler) Setup(c *gin.Context) {
	var req model.AdminSetupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.adminService.Setup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSetupClosed):
			response.Fail(c, http.StatusConflict, response.ErrSetupClosed)
		case errors.Is(err, service.ErrWeakPassword):
			response.Fail(c, http.StatusBadRequest, response.ErrWeakPassword)
		case errors.Is(err, service.ErrPasswordTooLong):
			response.Fail(c, http.StatusBadRequest, response.ErrPasswordTooLong)
		default:
			h.fail(c, err)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": admin.Principal()})
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	status, code := middleware.AuthErrorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Auth request failed")
	}
	response.Fail(c, status, code)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(ttl.Seconds()), "/", h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
