package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modulrent/site-backend/internal/middleware"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/modulrent/site-backend/internal/response"
	"github.com/modulrent/site-backend/internal/service"
	"github.com/modulrent/site-backend/internal/validator"
	"github.com/rs/zerolog"
)

// AdminUserHandler handles admin account management endpoints. Every route
// sits behind the route gate, so a principal is always present.
type AdminUserHandler struct {
	service *service.AdminUserService
	auth    *AuthHandler
	log     zerolog.Logger
}

// NewAdminUserHandler creates a new AdminUserHandler. The auth handler is
// used to clear the session cookie after a password change.
func NewAdminUserHandler(svc *service.AdminUserService, auth *AuthHandler, log zerolog.Logger) *AdminUserHandler {
	return &AdminUserHandler{
		service: svc,
		auth:    auth,
		log:     log.With().Str("component", "admin_user_handler").Logger(),
	}
}

// Me godoc
// GET /api/v1/admin/me
func (h *AdminUserHandler) Me(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": actor})
}

// ListAdmins godoc
// GET /api/v1/admin/users
func (h *AdminUserHandler) ListAdmins(c *gin.Context) {
	admins, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": admins})
}

// GetRoles godoc
// GET /api/v1/admin/roles
// Lists the assignable roles, lowest first, for the user form.
func (h *AdminUserHandler) GetRoles(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"roles": model.AllRoles})
}

// CreateAdmin godoc
// POST /api/v1/admin/users
func (h *AdminUserHandler) CreateAdmin(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req model.CreateAdminRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.service.Create(c.Request.Context(), *actor, req.Email, req.Password, model.Role(req.Role))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"user": admin})
}

// UpdateRole godoc
// PUT /api/v1/admin/users/:id/role
func (h *AdminUserHandler) UpdateRole(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req model.UpdateRoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.service.ChangeRole(c.Request.Context(), *actor, c.Param("id"), model.Role(req.Role))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": admin})
}

// UpdateActive godoc
// PUT /api/v1/admin/users/:id/active
func (h *AdminUserHandler) UpdateActive(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req model.UpdateActiveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.service.SetActive(c.Request.Context(), *actor, c.Param("id"), *req.IsActive)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": admin})
}

// RevokeSessions godoc
// DELETE /api/v1/admin/users/:id/sessions
func (h *AdminUserHandler) RevokeSessions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	n, err := h.service.RevokeSessions(c.Request.Context(), *actor, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": n})
}

// ChangePassword godoc
// PUT /api/v1/admin/me/password
// Replaces the caller's password and signs them out everywhere.
func (h *AdminUserHandler) ChangePassword(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req model.ChangePasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), *actor, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}

	h.auth.clearSessionCookie(c)
	response.Success(c, http.StatusOK, gin.H{})
}

func (h *AdminUserHandler) actor(c *gin.Context) (*model.Principal, bool) {
	p := middleware.GetPrincipal(c)
	if p == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	return p, true
}

func (h *AdminUserHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAdminNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrEmailTaken):
		response.Fail(c, http.StatusConflict, response.ErrEmailTaken)
	case errors.Is(err, service.ErrWeakPassword):
		response.Fail(c, http.StatusBadRequest, response.ErrWeakPassword)
	case errors.Is(err, service.ErrPasswordTooLong):
		response.Fail(c, http.StatusBadRequest, response.ErrPasswordTooLong)
	case errors.Is(err, service.ErrInvalidRole):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRole)
	case errors.Is(err, service.ErrSelfAdminChange):
		response.Fail(c, http.StatusConflict, response.ErrSelfAdminEdit)
	default:
		status, code := middleware.AuthErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Admin request failed")
		}
		response.Fail(c, status, code)
	}
}
