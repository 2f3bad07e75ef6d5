package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modulrent/site-backend/internal/model"
)

const adminColumns = `id::text, email, password_hash, role, is_active, last_login, created_at, updated_at`

// AdminRepository handles admin_users data access.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func scanAdmin(row pgx.Row) (*model.AdminUser, error) {
	a := &model.AdminUser{}
	var role string
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &a.IsActive, &a.LastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	a.Role = model.Role(role)
	return a, nil
}

// GetByID retrieves an admin by ID regardless of active state.
func (r *AdminRepository) GetByID(ctx context.Context, id string) (*model.AdminUser, error) {
	return scanAdmin(r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admin_users WHERE id = $1::uuid`, id))
}

// GetByEmail retrieves an admin by email regardless of active state.
// The email must already be lowercased.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	return scanAdmin(r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admin_users WHERE email = $1`, email))
}

// GetActiveByEmail retrieves an active admin by email. Inactive admins are
// reported as ErrNotFound.
func (r *AdminRepository) GetActiveByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	return scanAdmin(r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admin_users WHERE email = $1 AND is_active`, email))
}

// List returns every admin, newest first.
func (r *AdminRepository) List(ctx context.Context) ([]model.AdminUser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+adminColumns+` FROM admin_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := []model.AdminUser{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, *a)
	}
	return admins, rows.Err()
}

// Count returns the number of admins, active or not.
func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n)
	return n, err
}

// Create inserts a new admin.
func (r *AdminRepository) Create(ctx context.Context, a *model.AdminUser) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO admin_users (email, password_hash, role, is_active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id::text, created_at, updated_at`,
		a.Email, a.PasswordHash, string(a.Role), a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// setupLockKey is the advisory lock that serialises first-admin creation.
const setupLockKey int64 = 0x61646d696e // "admin"

// CreateIfNone inserts a only when the table is empty. The emptiness check
// and insert run under a transaction-scoped advisory lock, so concurrent
// callers see each other's committed row. It reports whether the row was
// inserted.
func (r *AdminRepository) CreateIfNone(ctx context.Context, a *model.AdminUser) (bool, error) {
	created := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, setupLockKey); err != nil {
			return err
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admin_users)`).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO admin_users (email, password_hash, role, is_active)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id::text, created_at, updated_at`,
			a.Email, a.PasswordHash, string(a.Role), a.IsActive,
		).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return created, nil
}

// UpdateLastLogin stamps a successful login.
func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx,
		`UPDATE admin_users SET last_login = $2 WHERE id = $1::uuid`, id, at)
}

// UpdateRole changes an admin's role.
func (r *AdminRepository) UpdateRole(ctx context.Context, id string, role model.Role) error {
	return r.execOne(ctx,
		`UPDATE admin_users SET role = $2, updated_at = NOW() WHERE id = $1::uuid`, id, string(role))
}

// SetActive flips the soft-deactivation flag.
func (r *AdminRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.execOne(ctx,
		`UPDATE admin_users SET is_active = $2, updated_at = NOW() WHERE id = $1::uuid`, id, active)
}

// UpdatePasswordHash stores a new bcrypt hash.
func (r *AdminRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx,
		`UPDATE admin_users SET password_hash = $2, updated_at = NOW() WHERE id = $1::uuid`, id, hash)
}

func (r *AdminRepository) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
