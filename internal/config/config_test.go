package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SESSION_TTL_HOURS", "")
	t.Setenv("SESSION_COOKIE_NAME", "")
	t.Setenv("BCRYPT_COST", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "admin_session", cfg.SessionCookieName)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("LOGIN_RATE_LIMIT", "many")
	assert.Equal(t, 10, Load().LoginRateLimit)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://x", SessionTTL: time.Hour}
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg.JWTSecret = "short"
	assert.NoError(t, cfg.Validate())

	cfg.Environment = EnvProduction
	assert.ErrorContains(t, cfg.Validate(), "32 bytes")

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.SessionTTL = 0
	assert.ErrorContains(t, cfg.Validate(), "SESSION_TTL_HOURS")
}

func TestLoadRoutePolicyDefault(t *testing.T) {
	p, err := LoadRoutePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRoutePolicy(), p)
}

func TestLoadRoutePolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
public:
  - /health
  - api/v1/auth/
admin:
  - /api/v1/admin/
  - /backoffice
min_role: editor
`), 0o600))

	p, err := LoadRoutePolicy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/health", "/api/v1/auth"}, p.Public)
	assert.Equal(t, []string{"/api/v1/admin", "/backoffice"}, p.Admin)
	assert.Equal(t, "editor", p.MinRole)
	assert.Equal(t, "/admin/login", p.LoginPath)
}

func TestLoadRoutePolicyEnvOverride(t *testing.T) {
	t.Setenv("ROUTES_MIN_ROLE", "super_admin")
	p, err := LoadRoutePolicy("")
	require.NoError(t, err)
	assert.Equal(t, "super_admin", p.MinRole)
}

func TestLoadRoutePolicyMissingFile(t *testing.T) {
	_, err := LoadRoutePolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoginAttemptsKey(t *testing.T) {
	w := time.Unix(1700000000, 0)
	assert.Equal(t, "auth:attempts:10.0.0.1:1700000000", CacheKey.LoginAttemptsKey("10.0.0.1", w))
}
