package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/repository"
	"franklink-backend/pkg/auth"
	appErrors "franklink-backend/pkg/errors"
)

// LocalAuth is a repository.Authenticator over the accounts table. It signs
// HS256 session tokens with the same secret the API verifies.
type LocalAuth struct {
	db        *sql.DB
	generator *auth.JWTGenerator
	validator *auth.JWTValidator
	ttl       time.Duration
}

var _ repository.Authenticator = (*LocalAuth)(nil)

// NewLocalAuth creates an authenticator issuing tokens valid for ttl.
func NewLocalAuth(store *Store, cfg auth.JWTConfig, ttl time.Duration) (*LocalAuth, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	gen, err := auth.NewJWTGenerator(cfg.SecretKey, cfg.Issuer, cfg.Audience, ttl)
	if err != nil {
		return nil, err
	}
	val, err := auth.NewJWTValidator(cfg)
	if err != nil {
		return nil, err
	}
	return &LocalAuth{db: store.db, generator: gen, validator: val, ttl: ttl}, nil
}

// CreateAccount stores bcrypt-hashed credentials for userID.
func (a *LocalAuth) CreateAccount(ctx context.Context, email, password, userID string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = a.db.ExecContext(ctx, `INSERT INTO accounts (email, user_id, password_hash) VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET user_id = excluded.user_id, password_hash = excluded.password_hash`,
		strings.ToLower(email), userID, string(hash))
	if err != nil {
		return fmt.Errorf("insert accounts: %w", err)
	}
	return nil
}

func (a *LocalAuth) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.ToLower(email)
	var userID, hash string
	err := a.db.QueryRowContext(ctx,
		`SELECT user_id, password_hash FROM accounts WHERE email = ?`, email).Scan(&userID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewUnauthorized("Invalid login credentials", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, appErrors.NewUnauthorized("Invalid login credentials", nil)
	}

	token, err := a.generator.GenerateToken(userID, email)
	if err != nil {
		return nil, appErrors.NewInternal("failed to issue session", err)
	}
	return &domain.Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(a.ttl / time.Second),
		UserID:      userID,
	}, nil
}

func (a *LocalAuth) UserFromToken(ctx context.Context, token string) (string, error) {
	claims, err := a.validator.ValidateToken(token)
	if err != nil {
		return "", appErrors.NewUnauthorized("invalid session", err)
	}
	return claims.UserID, nil
}

func (a *LocalAuth) UpdatePassword(ctx context.Context, token, password string) error {
	userID, err := a.UserFromToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := a.db.ExecContext(ctx, `UPDATE accounts SET password_hash = ? WHERE user_id = ?`, string(hash), userID)
	if err != nil {
		return fmt.Errorf("update accounts: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewNotFound("account not found")
	}
	return nil
}
