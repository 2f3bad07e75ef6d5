package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// RoutePolicy lists the path prefixes the route gate classifies requests by.
// Public wins over Admin when both match.
type RoutePolicy struct {
	Public    []string `mapstructure:"public"`
	Admin     []string `mapstructure:"admin"`
	MinRole   string   `mapstructure:"min_role"`
	LoginPath string   `mapstructure:"login_path"`
}

// DefaultRoutePolicy is used when no policy file is configured.
func DefaultRoutePolicy() RoutePolicy {
	return RoutePolicy{
		Public: []string{
			"/health",
			"/api/v1/auth",
			"/admin/login",
		},
		Admin: []string{
			"/api/v1/admin",
			"/admin",
		},
		MinRole:   "admin",
		LoginPath: "/admin/login",
	}
}

// LoadRoutePolicy reads the policy from a YAML/JSON/TOML file when path is
// set, falling back to DefaultRoutePolicy for any key the file omits.
// ROUTES_MIN_ROLE and ROUTES_LOGIN_PATH override the file.
func LoadRoutePolicy(path string) (RoutePolicy, error) {
	def := DefaultRoutePolicy()

	v := viper.New()
	v.SetDefault("public", def.Public)
	v.SetDefault("admin", def.Admin)
	v.SetDefault("min_role", def.MinRole)
	v.SetDefault("login_path", def.LoginPath)
	v.SetEnvPrefix("ROUTES")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return RoutePolicy{}, fmt.Errorf("read route policy %s: %w", path, err)
		}
	}

	var p RoutePolicy
	if err := v.Unmarshal(&p); err != nil {
		return RoutePolicy{}, fmt.Errorf("decode route policy: %w", err)
	}
	p.Public = normalizePrefixes(p.Public)
	p.Admin = normalizePrefixes(p.Admin)
	return p, nil
}

func normalizePrefixes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		if p = strings.TrimRight(p, "/"); p == "" {
			p = "/"
		}
		out = append(out, p)
	}
	return out
}
