package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modulrent/site-backend/internal/model"
)

// SessionRepository handles admin_sessions data access.
// Rows are keyed by the SHA-256 of the bearer token.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, s *model.AdminSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO admin_sessions (session_token, admin_user_id, expires_at, last_accessed, ip_address, user_agent)
		 VALUES ($1, $2::uuid, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		 RETURNING created_at`,
		s.TokenHash, s.AdminUserID, s.ExpiresAt, s.LastAccessed, s.IPAddress, s.UserAgent,
	).Scan(&s.CreatedAt)
}

// GetActive resolves a session to its owner. The row must be unexpired at now
// and the owner active; anything else is ErrNotFound.
func (r *SessionRepository) GetActive(ctx context.Context, tokenHash string, now time.Time) (*model.Principal, error) {
	p := &model.Principal{}
	var role string
	err := r.pool.QueryRow(ctx,
		`SELECT u.id::text, u.email, u.role
		 FROM admin_sessions s
		 JOIN admin_users u ON u.id = s.admin_user_id
		 WHERE s.session_token = $1
		   AND s.expires_at > $2
		   AND u.is_active`,
		tokenHash, now,
	).Scan(&p.ID, &p.Email, &role)
	if err != nil {
		return nil, mapNoRows(err)
	}
	p.Role = model.Role(role)
	return p, nil
}

// Touch advances last_accessed. Older timestamps never overwrite newer ones,
// so queued touches can be applied out of order.
func (r *SessionRepository) Touch(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE admin_sessions SET last_accessed = GREATEST(last_accessed, $2)
		 WHERE session_token = $1`,
		tokenHash, at)
	return err
}

// TouchBatch applies several touches in one round trip.
func (r *SessionRepository) TouchBatch(ctx context.Context, touches []model.SessionTouch) error {
	if len(touches) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range touches {
		batch.Queue(
			`UPDATE admin_sessions SET last_accessed = GREATEST(last_accessed, $2)
			 WHERE session_token = $1`,
			t.TokenHash, t.At)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// Delete removes one session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM admin_sessions WHERE session_token = $1`, tokenHash)
	return err
}

// DeleteByUser removes every session owned by an admin.
func (r *SessionRepository) DeleteByUser(ctx context.Context, adminID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM admin_sessions WHERE admin_user_id = $1::uuid`, adminID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeExpired deletes sessions that expired before cutoff.
func (r *SessionRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM admin_sessions WHERE expires_at <= $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
