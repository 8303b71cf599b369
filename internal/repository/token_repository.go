package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"booklibrary/internal/model"
)

// TokenRepository persists the refresh token blacklist.
type TokenRepository interface {
	Create(ctx context.Context, token *model.BlacklistedToken) error
	Exists(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new token repository.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Create blacklists a token. Blacklisting the same jti twice is not an error.
func (r *tokenRepository) Create(ctx context.Context, token *model.BlacklistedToken) error {
	err := translate(r.db.WithContext(ctx).Create(token).Error)
	if err == ErrDuplicate {
		return nil
	}
	return err
}

// Exists reports whether the jti is blacklisted.
func (r *tokenRepository) Exists(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.BlacklistedToken{}).Where("jti = ?", jti).Count(&count).Error
	return count > 0, err
}

// DeleteExpired removes blacklist entries whose token has expired anyway.
func (r *tokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.BlacklistedToken{})
	return res.RowsAffected, res.Error
}
