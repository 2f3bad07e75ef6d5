package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/modulrent/site-backend/internal/config"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/modulrent/site-backend/internal/response"
	"github.com/modulrent/site-backend/internal/service"
	"github.com/rs/zerolog"
)

const (
	// ContextKeyPrincipal is the Gin context key for the verified admin.
	ContextKeyPrincipal = "principal"
	// ContextKeyToken is the Gin context key for the raw session token.
	ContextKeyToken = "session_token"
)

// Verifier resolves a session token to an admin.
type Verifier interface {
	Verify(ctx context.Context, token string) (*model.Principal, error)
}

// RouteClass is how the gate treats a request path.
type RouteClass int

const (
	RouteOther RouteClass = iota
	RoutePublic
	RouteAdmin
)

func (c RouteClass) String() string {
	switch c {
	case RoutePublic:
		return "public"
	case RouteAdmin:
		return "admin"
	default:
		return "other"
	}
}

// RouteGate authenticates requests to admin-protected paths before any
// handler runs.
type RouteGate struct {
	verifier   Verifier
	policy     config.RoutePolicy
	minRole    model.Role
	cookieName string
	log        zerolog.Logger
}

// NewRouteGate builds a gate. An unknown minimum role is a configuration
// error rather than a silent default.
func NewRouteGate(verifier Verifier, policy config.RoutePolicy, cookieName string, log zerolog.Logger) (*RouteGate, error) {
	minRole, err := model.ParseRole(policy.MinRole)
	if err != nil {
		return nil, fmt.Errorf("route policy min_role: %w", err)
	}
	if cookieName == "" {
		return nil, errors.New("session cookie name is empty")
	}
	return &RouteGate{
		verifier:   verifier,
		policy:     policy,
		minRole:    minRole,
		cookieName: cookieName,
		log:        log.With().Str("component", "route_gate").Logger(),
	}, nil
}

// Classify returns the class of a request path. Public prefixes take
// precedence over admin prefixes.
func (g *RouteGate) Classify(p string) RouteClass {
	p = cleanPath(p)
	if matchAny(p, g.policy.Public) {
		return RoutePublic
	}
	if matchAny(p, g.policy.Admin) {
		return RouteAdmin
	}
	return RouteOther
}

// Middleware returns the Gin middleware enforcing the gate.
func (g *RouteGate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path

		switch g.Classify(p) {
		case RoutePublic:
			c.Next()
			return
		case RouteOther:
			g.log.Debug().Str("path", p).Msg("Ungated path")
			c.Next()
			return
		}

		if g.verifier == nil {
			g.deny(c, http.StatusInternalServerError, response.ErrBackendUnavailable, "no verifier configured", "")
			return
		}

		token := ExtractToken(c, g.cookieName)
		if token == "" {
			g.deny(c, http.StatusUnauthorized, response.ErrTokenRequired, "missing token", "")
			return
		}

		principal, err := g.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			status, code := AuthErrorStatus(err)
			g.deny(c, status, code, err.Error(), token)
			return
		}

		if !model.RoleSatisfies(g.minRole, principal.Role) {
			g.deny(c, http.StatusForbidden, response.ErrForbidden, "role "+string(principal.Role), token)
			return
		}

		c.Set(ContextKeyPrincipal, principal)
		c.Set(ContextKeyToken, token)
		c.Next()
	}
}

func (g *RouteGate) deny(c *gin.Context, status int, code response.ErrCode, reason, token string) {
	p := c.Request.URL.Path
	evt := g.log.Warn()
	if status >= http.StatusInternalServerError {
		evt = g.log.Error()
	}
	evt.Str("path", p).
		Int("status", status).
		Str("reason", reason).
		Str("session", service.TokenFingerprint(token)).
		Str("request_id", response.RequestID(c)).
		Msg("Request denied")

	if status == http.StatusUnauthorized && isPageRequest(c) && g.policy.LoginPath != "" {
		target := g.policy.LoginPath + "?next=" + url.QueryEscape(p)
		c.Redirect(http.StatusFound, target)
		c.Abort()
		return
	}
	response.AbortFail(c, status, code)
}

// ExtractToken returns the bearer token from the Authorization header, or
// failing that the session cookie's value.
func ExtractToken(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if tok := strings.TrimSpace(parts[1]); tok != "" {
				return tok
			}
		}
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// AuthErrorStatus maps an authority error to its HTTP status and error code.
func AuthErrorStatus(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrBackendUnavailable):
		return http.StatusInternalServerError, response.ErrBackendUnavailable
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, response.ErrTokenInvalid
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, response.ErrSessionInvalid
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.ErrInvalidCredentials
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, response.ErrForbidden
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// GetPrincipal retrieves the verified admin from the Gin context.
func GetPrincipal(c *gin.Context) *model.Principal {
	val, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return nil
	}
	p, ok := val.(*model.Principal)
	if !ok {
		return nil
	}
	return p
}

// isPageRequest reports whether a failed request should be redirected to the
// login page instead of receiving JSON.
func isPageRequest(c *gin.Context) bool {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		return false
	}
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return false
	}
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// matchAny reports whether p equals a prefix or lies beneath it on a path
// segment boundary, so "/admin" covers "/admin/x" but not "/administrator".
func matchAny(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix == "/" || p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
