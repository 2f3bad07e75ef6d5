package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/modulrent/site-backend/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Auth errors. Handlers map each to exactly one HTTP status.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthorized       = errors.New("no valid session")
	ErrForbidden          = errors.New("insufficient role")
	ErrBackendUnavailable = errors.New("auth backend unavailable")
)

const touchTimeout = 2 * time.Second

// AdminStore is the credential store the authority reads from.
type AdminStore interface {
	GetActiveByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionStore is the session table. Implementations must treat Delete of a
// missing row as success.
type SessionStore interface {
	Create(ctx context.Context, s *model.AdminSession) error
	GetActive(ctx context.Context, tokenHash string, now time.Time) (*model.Principal, error)
	Touch(ctx context.Context, tokenHash string, at time.Time) error
	Delete(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, adminID string) (int64, error)
}

// Toucher records that a session was used. Errors are logged, never returned
// to the caller of Verify.
type Toucher interface {
	Touch(ctx context.Context, tokenHash string, at time.Time) error
}

// Claims is the signed payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
	AdminID string `json:"admin_id"`
	Email   string `json:"email"`
}

// AuthConfig carries the authority's secrets and limits.
type AuthConfig struct {
	Secret     string
	SessionTTL time.Duration
	BcryptCost int
}

// SessionMeta is request metadata stored alongside a new session.
type SessionMeta struct {
	IPAddress string
	UserAgent string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      model.Principal
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithToucher routes last_accessed updates through t instead of the session store.
func WithToucher(t Toucher) AuthOption {
	return func(s *AuthService) { s.toucher = t }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// AuthService is the admin session authority: it checks credentials, issues
// and verifies session tokens, and revokes sessions.
type AuthService struct {
	admins   AdminStore
	sessions SessionStore
	toucher  Toucher
	secret   []byte
	ttl      time.Duration
	cost     int
	now      func() time.Time
	log      zerolog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(admins AdminStore, sessions SessionStore, cfg AuthConfig, log zerolog.Logger, opts ...AuthOption) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost < bcrypt.MinCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	s := &AuthService{
		admins:   admins,
		sessions: sessions,
		toucher:  sessions,
		secret:   []byte(cfg.Secret),
		ttl:      cfg.SessionTTL,
		cost:     cfg.BcryptCost,
		now:      time.Now,
		log:      log.With().Str("component", "auth").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionTTL is the lifetime of tokens and session rows issued by Login.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

// Login checks an email/password pair and opens a new session.
// Unknown email, inactive admin and wrong password all yield
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string, meta SessionMeta) (*LoginResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)

	admin, err := s.admins.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.burnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: lookup admin: %w", ErrBackendUnavailable, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	token, expiresAt, err := s.issueToken(admin, now)
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %w", ErrBackendUnavailable, err)
	}

	session := &model.AdminSession{
		TokenHash:    HashToken(token),
		AdminUserID:  admin.ID,
		ExpiresAt:    expiresAt,
		LastAccessed: now,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: store session: %w", ErrBackendUnavailable, err)
	}

	if err := s.admins.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		s.log.Warn().Err(err).Str("admin_id", admin.ID).Msg("Failed to record last login")
	}

	s.log.Info().
		Str("admin_id", admin.ID).
		Str("session", TokenFingerprint(token)).
		Msg("Admin logged in")

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: admin.Principal()}, nil
}

// Logout deletes the session behind token. An empty, unknown or already
// revoked token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, HashToken(token)); err != nil {
		return fmt.Errorf("%w: delete session: %w", ErrBackendUnavailable, err)
	}
	s.log.Info().Str("session", TokenFingerprint(token)).Msg("Admin logged out")
	return nil
}

// Verify resolves a bearer token to the admin it was issued to.
// A token that fails signature or expiry checks is ErrInvalidToken; a
// well-formed token without a live session for an active admin is
// ErrUnauthorized.
func (s *AuthService) Verify(ctx context.Context, token string) (*model.Principal, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	now := s.now()

	claims, err := s.parseToken(token, now)
	if err != nil {
		return nil, err
	}

	tokenHash := HashToken(token)
	principal, err := s.sessions.GetActive(ctx, tokenHash, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: lookup session: %w", ErrBackendUnavailable, err)
	}
	if principal.ID != claims.AdminID {
		s.log.Warn().Str("session", TokenFingerprint(token)).Msg("Session owner does not match token subject")
		return nil, ErrUnauthorized
	}

	s.touch(ctx, tokenHash, now)
	return principal, nil
}

// RevokeAll deletes every session of an admin and returns how many were removed.
func (s *AuthService) RevokeAll(ctx context.Context, adminID string) (int64, error) {
	n, err := s.sessions.DeleteByUser(ctx, adminID)
	if err != nil {
		return 0, fmt.Errorf("%w: revoke sessions: %w", ErrBackendUnavailable, err)
	}
	s.log.Info().Str("admin_id", adminID).Int64("sessions", n).Msg("Sessions revoked")
	return n, nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	return string(hash), err
}

func (s *AuthService) ready() error {
	if len(s.secret) == 0 {
		return fmt.Errorf("%w: signing secret not configured", ErrBackendUnavailable)
	}
	if s.admins == nil || s.sessions == nil {
		return fmt.Errorf("%w: stores not configured", ErrBackendUnavailable)
	}
	return nil
}

func (s *AuthService) issueToken(admin *model.AdminUser, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AdminID: admin.ID,
		Email:   admin.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) parseToken(tokenStr string, now time.Time) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !token.Valid || claims.AdminID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) touch(ctx context.Context, tokenHash string, at time.Time) {
	if s.toucher == nil {
		return
	}
	touchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), touchTimeout)
	defer cancel()
	if err := s.toucher.Touch(touchCtx, tokenHash, at); err != nil {
		s.log.Warn().Err(err).Msg("Failed to update session last_accessed")
	}
}

// burnPasswordCheck runs a bcrypt comparison against a throwaway hash so an
// unknown email costs about as much time as a wrong password.
func (s *AuthService) burnPasswordCheck(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

// NormalizeEmail lowercases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashToken returns the hex SHA-256 of a bearer token, the session table key.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenFingerprint is a short, non-reversible token label for logs.
func TokenFingerprint(token string) string {
	if token == "" {
		return ""
	}
	return HashToken(token)[:12]
}
