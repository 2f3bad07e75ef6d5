package model

import "time"

// AdminUser is a person allowed into the admin panel.
type AdminUser struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Principal is the identity a verified session resolves to.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Principal returns the public identity of the admin.
func (a *AdminUser) Principal() Principal {
	return Principal{ID: a.ID, Email: a.Email, Role: a.Role}
}

// AdminLoginRequest is the payload for admin authentication.
// Only presence is checked here: a malformed or oversized value is just
// another credential that does not match.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminSetupRequest creates the first super admin.
type AdminSetupRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// CreateAdminRequest is the payload for adding an admin from the panel.
type CreateAdminRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"required,role"`
}

// UpdateRoleRequest changes an admin's role.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

// UpdateActiveRequest activates or deactivates an admin.
type UpdateActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ChangePasswordRequest is the self-service password change payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,max=128"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}
