package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/modulrent/site-backend/internal/config"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/modulrent/site-backend/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	principal *model.Principal
	err       error
	calls     int
	lastToken string
}

func (v *stubVerifier) Verify(_ context.Context, token string) (*model.Principal, error) {
	v.calls++
	v.lastToken = token
	return v.principal, v.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func gatedEngine(t *testing.T, v Verifier) *gin.Engine {
	t.Helper()
	gate, err := NewRouteGate(v, config.DefaultRoutePolicy(), "admin_session", zerolog.Nop())
	require.NoError(t, err)

	r := gin.New()
	r.Use(gate.Middleware())
	ok := func(c *gin.Context) {
		if p := GetPrincipal(c); p != nil {
			c.String(http.StatusOK, p.Email)
			return
		}
		c.String(http.StatusOK, "anon")
	}
	r.GET("/health", ok)
	r.GET("/api/v1/auth/verify", ok)
	r.GET("/api/v1/admin/things", ok)
	r.GET("/admin/panel", ok)
	r.GET("/blog", ok)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestClassify(t *testing.T) {
	gate, err := NewRouteGate(nil, config.DefaultRoutePolicy(), "admin_session", zerolog.Nop())
	require.NoError(t, err)

	tests := []struct {
		path string
		want RouteClass
	}{
		{"/health", RoutePublic},
		{"/api/v1/auth/login", RoutePublic},
		{"/admin/login", RoutePublic},
		{"/admin", RouteAdmin},
		{"/admin/", RouteAdmin},
		{"/admin/users/1", RouteAdmin},
		{"/api/v1/admin/users", RouteAdmin},
		{"/api/v1/admin/../admin/users", RouteAdmin},
		{"/api/v1/auth/../admin/users", RouteAdmin},
		{"/administrator", RouteOther},
		{"/admin-login", RouteOther},
		{"/", RouteOther},
		{"", RouteOther},
		{"/blog/post", RouteOther},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Classify(tt.path))
		})
	}
}

func TestNewRouteGateRejectsBadConfig(t *testing.T) {
	policy := config.DefaultRoutePolicy()
	policy.MinRole = "root"
	_, err := NewRouteGate(nil, policy, "admin_session", zerolog.Nop())
	assert.Error(t, err)

	_, err = NewRouteGate(nil, config.DefaultRoutePolicy(), "", zerolog.Nop())
	assert.Error(t, err)
}

func TestGatePublicSkipsVerifier(t *testing.T) {
	v := &stubVerifier{err: service.ErrInvalidToken}
	r := gatedEngine(t, v)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec := serve(r, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, v.calls)
}

func TestGateOtherPassesThrough(t *testing.T) {
	v := &stubVerifier{}
	rec := serve(gatedEngine(t, v), httptest.NewRequest(http.MethodGet, "/blog", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anon", rec.Body.String())
	assert.Zero(t, v.calls)
}

func TestGateStatuses(t *testing.T) {
	tests := []struct {
		name   string
		v      *stubVerifier
		want   int
		header string
	}{
		{"valid admin", &stubVerifier{principal: &model.Principal{Email: "a@b.com", Role: model.RoleAdmin}}, http.StatusOK, "Bearer tok"},
		{"super admin", &stubVerifier{principal: &model.Principal{Email: "a@b.com", Role: model.RoleSuperAdmin}}, http.StatusOK, "Bearer tok"},
		{"editor", &stubVerifier{principal: &model.Principal{Role: model.RoleEditor}}, http.StatusForbidden, "Bearer tok"},
		{"missing token", &stubVerifier{}, http.StatusUnauthorized, ""},
		{"wrong scheme", &stubVerifier{}, http.StatusUnauthorized, "Basic dXNlcg=="},
		{"invalid token", &stubVerifier{err: service.ErrInvalidToken}, http.StatusUnauthorized, "Bearer tok"},
		{"no session", &stubVerifier{err: service.ErrUnauthorized}, http.StatusUnauthorized, "Bearer tok"},
		{"backend down", &stubVerifier{err: fmt.Errorf("%w: boom", service.ErrBackendUnavailable)}, http.StatusInternalServerError, "Bearer tok"},
		{"unknown error", &stubVerifier{err: errors.New("surprise")}, http.StatusInternalServerError, "Bearer tok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/things", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(gatedEngine(t, tt.v), req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want != http.StatusOK {
				assert.NotEqual(t, "anon", rec.Body.String())
			}
		})
	}
}

func TestGateWithoutVerifierIsServerError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/things", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := serve(gatedEngine(t, nil), req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGateCookieFallback(t *testing.T) {
	v := &stubVerifier{principal: &model.Principal{Email: "a@b.com", Role: model.RoleAdmin}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/things", nil)
	req.AddCookie(&http.Cookie{Name: "admin_session", Value: "from-cookie"})
	rec := serve(gatedEngine(t, v), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-cookie", v.lastToken)
}

func TestGateHeaderBeatsCookie(t *testing.T) {
	v := &stubVerifier{principal: &model.Principal{Role: model.RoleAdmin}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/things", nil)
	req.Header.Set("Authorization", "bearer from-header")
	req.AddCookie(&http.Cookie{Name: "admin_session", Value: "from-cookie"})
	serve(gatedEngine(t, v), req)

	assert.Equal(t, "from-header", v.lastToken)
}

func TestGateRedirectsPagesOnlyForUnauthorized(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/panel", nil)
	req.Header.Set("Accept", "text/html")
	rec := serve(gatedEngine(t, &stubVerifier{err: service.ErrUnauthorized}), req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login?next=%2Fadmin%2Fpanel", rec.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/admin/panel", nil)
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Authorization", "Bearer tok")
	rec = serve(gatedEngine(t, &stubVerifier{principal: &model.Principal{Role: model.RoleViewer}}), req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
