package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/modulrent/site-backend/internal/repository"
	"github.com/rs/zerolog"
)

// Password length bounds enforced whenever a password is set. The upper
// bound is bcrypt's input limit in bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// Admin management errors.
var (
	ErrSetupClosed     = errors.New("an admin already exists")
	ErrEmailTaken      = errors.New("email already registered")
	ErrAdminNotFound   = errors.New("admin not found")
	ErrWeakPassword    = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong = fmt.Errorf("password must be at most %d bytes", MaxPasswordLength)
	ErrInvalidRole     = errors.New("invalid role")
	ErrSelfAdminChange = errors.New("admins cannot change their own role or active state")
)

// AdminDirectory is the full credential store used for admin management.
type AdminDirectory interface {
	AdminStore
	GetByID(ctx context.Context, id string) (*model.AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	List(ctx context.Context) ([]model.AdminUser, error)
	Create(ctx context.Context, a *model.AdminUser) error
	CreateIfNone(ctx context.Context, a *model.AdminUser) (bool, error)
	UpdateRole(ctx context.Context, id string, role model.Role) error
	SetActive(ctx context.Context, id string, active bool) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// AdminUserService manages the lifecycle of admin accounts.
type AdminUserService struct {
	admins AdminDirectory
	auth   *AuthService
	log    zerolog.Logger
}

// NewAdminUserService creates a new AdminUserService.
func NewAdminUserService(admins AdminDirectory, auth *AuthService, log zerolog.Logger) *AdminUserService {
	return &AdminUserService{
		admins: admins,
		auth:   auth,
		log:    log.With().Str("component", "admin_users").Logger(),
	}
}

// Setup creates the first super admin. It fails with ErrSetupClosed once any
// admin exists.
func (s *AdminUserService) Setup(ctx context.Context, email, password string) (*model.AdminUser, error) {
	admin, err := s.newAdmin(email, password, model.RoleSuperAdmin)
	if err != nil {
		return nil, err
	}

	created, err := s.admins.CreateIfNone(ctx, admin)
	if err != nil {
		return nil, fmt.Errorf("%w: create admin: %w", ErrBackendUnavailable, err)
	}
	if !created {
		return nil, ErrSetupClosed
	}

	s.log.Info().Str("admin_id", admin.ID).Msg("Initial super admin created")
	return admin, nil
}

// Create adds an admin on behalf of actor, who must be an admin and may not
// grant a role above their own.
func (s *AdminUserService) Create(ctx context.Context, actor model.Principal, email, password string, role model.Role) (*model.AdminUser, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := requireCeiling(actor, role); err != nil {
		return nil, err
	}

	admin, err := s.newAdmin(email, password, role)
	if err != nil {
		return nil, err
	}

	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: create admin: %w", ErrBackendUnavailable, err)
	}

	s.log.Info().
		Str("admin_id", admin.ID).
		Str("role", string(role)).
		Str("by", actor.ID).
		Msg("Admin created")
	return admin, nil
}

// List returns every admin account.
func (s *AdminUserService) List(ctx context.Context) ([]model.AdminUser, error) {
	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list admins: %w", ErrBackendUnavailable, err)
	}
	return admins, nil
}

// ChangeRole sets the role of another admin. Both the target's current role
// and the new role must be at or below the actor's.
func (s *AdminUserService) ChangeRole(ctx context.Context, actor model.Principal, id string, role model.Role) (*model.AdminUser, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	target, err := s.targetOf(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := requireCeiling(actor, role); err != nil {
		return nil, err
	}

	if err := s.admins.UpdateRole(ctx, target.ID, role); err != nil {
		return nil, s.mapWriteErr(err)
	}
	target.Role = role

	s.log.Info().Str("admin_id", target.ID).Str("role", string(role)).Str("by", actor.ID).Msg("Admin role changed")
	return target, nil
}

// SetActive soft-activates or deactivates another admin. A deactivated
// admin's sessions stop verifying immediately.
func (s *AdminUserService) SetActive(ctx context.Context, actor model.Principal, id string, active bool) (*model.AdminUser, error) {
	target, err := s.targetOf(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := s.admins.SetActive(ctx, target.ID, active); err != nil {
		return nil, s.mapWriteErr(err)
	}
	target.IsActive = active

	s.log.Info().Str("admin_id", target.ID).Bool("active", active).Str("by", actor.ID).Msg("Admin active state changed")
	return target, nil
}

// RevokeSessions logs an admin out everywhere. Actors may always revoke their
// own sessions.
func (s *AdminUserService) RevokeSessions(ctx context.Context, actor model.Principal, id string) (int64, error) {
	if id != actor.ID {
		if _, err := s.targetOf(ctx, actor, id); err != nil {
			return 0, err
		}
	}
	return s.auth.RevokeAll(ctx, id)
}

// ChangePassword replaces the actor's own password and revokes all of the
// actor's sessions, including the current one.
func (s *AdminUserService) ChangePassword(ctx context.Context, actor model.Principal, current, next string) error {
	if err := CheckPasswordLength(next); err != nil {
		return err
	}
	admin, err := s.lookup(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := s.auth.CheckPassword(admin.PasswordHash, current); err != nil {
		return err
	}

	hash, err := s.auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.admins.UpdatePasswordHash(ctx, admin.ID, hash); err != nil {
		return s.mapWriteErr(err)
	}
	if _, err := s.auth.RevokeAll(ctx, admin.ID); err != nil {
		return err
	}

	s.log.Info().Str("admin_id", admin.ID).Msg("Admin password changed")
	return nil
}

// GetByEmail looks up an admin for operator tooling.
func (s *AdminUserService) GetByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	admin, err := s.admins.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("%w: lookup admin: %w", ErrBackendUnavailable, err)
	}
	return admin, nil
}

// SetActiveByEmail changes an admin's active state without an acting admin.
// Only operator tooling with database access calls it.
func (s *AdminUserService) SetActiveByEmail(ctx context.Context, email string, active bool) (*model.AdminUser, error) {
	admin, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.admins.SetActive(ctx, admin.ID, active); err != nil {
		return nil, s.mapWriteErr(err)
	}
	admin.IsActive = active

	s.log.Info().Str("admin_id", admin.ID).Bool("active", active).Str("by", "operator").Msg("Admin active state changed")
	return admin, nil
}

// RevokeSessionsByEmail logs an admin out everywhere on behalf of an operator.
func (s *AdminUserService) RevokeSessionsByEmail(ctx context.Context, email string) (int64, error) {
	admin, err := s.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	return s.auth.RevokeAll(ctx, admin.ID)
}

func (s *AdminUserService) newAdmin(email, password string, role model.Role) (*model.AdminUser, error) {
	if err := CheckPasswordLength(password); err != nil {
		return nil, err
	}
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &model.AdminUser{
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}, nil
}

// targetOf loads another admin and checks actor may manage them.
func (s *AdminUserService) targetOf(ctx context.Context, actor model.Principal, id string) (*model.AdminUser, error) {
	if id == actor.ID {
		return nil, ErrSelfAdminChange
	}
	target, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireCeiling(actor, target.Role); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *AdminUserService) lookup(ctx context.Context, id string) (*model.AdminUser, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrAdminNotFound
	}
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("%w: lookup admin: %w", ErrBackendUnavailable, err)
	}
	return admin, nil
}

func (s *AdminUserService) mapWriteErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAdminNotFound
	}
	return fmt.Errorf("%w: update admin: %w", ErrBackendUnavailable, err)
}

// requireCeiling checks that actor is an admin whose role covers role.
func requireCeiling(actor model.Principal, role model.Role) error {
	if !model.RoleSatisfies(model.RoleAdmin, actor.Role) || !model.RoleSatisfies(role, actor.Role) {
		return ErrForbidden
	}
	return nil
}

// CheckPasswordLength reports whether password fits the bounds a new
// password must meet.
func CheckPasswordLength(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrWeakPassword
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}
