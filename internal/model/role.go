package model

import (
	"fmt"
	"strings"
)

// Role is an admin permission level. Roles are ordered; a higher role can do
// everything a lower one can.
type Role string

const (
	RoleUser       Role = "user"
	RoleViewer     Role = "viewer"
	RoleEditor     Role = "editor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// roleRank orders the hierarchy. Unknown roles rank below RoleUser.
var roleRank = map[Role]int{
	RoleUser:       1,
	RoleViewer:     2,
	RoleEditor:     3,
	RoleAdmin:      4,
	RoleSuperAdmin: 5,
}

// AllRoles lists every role from lowest to highest.
var AllRoles = []Role{RoleUser, RoleViewer, RoleEditor, RoleAdmin, RoleSuperAdmin}

// ParseRole converts a stored or submitted role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// RoleSatisfies reports whether actual is at or above required in the role
// hierarchy. An unknown role never satisfies and is never satisfied.
func RoleSatisfies(required, actual Role) bool {
	req, ok := roleRank[required]
	if !ok {
		return false
	}
	act, ok := roleRank[actual]
	if !ok {
		return false
	}
	return act >= req
}
