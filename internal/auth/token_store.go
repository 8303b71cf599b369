package auth

import (
	"context"
	"fmt"
	"time"

	"booklibrary/internal/cache"
	"booklibrary/internal/model"
	"booklibrary/internal/repository"
)

const refreshBlacklistKeyPrefix = "blacklist:refresh_token:"

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	Blacklist(ctx context.Context, tokenID string, userID uint, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore keeps revoked refresh token ids in the database, with redis as
// a fast path for lookups.
type TokenStore struct {
	tokens repository.TokenRepository
	cache  *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(tokens repository.TokenRepository, cache *cache.Client) *TokenStore {
	return &TokenStore{tokens: tokens, cache: cache}
}

// Blacklist revokes a refresh token until it expires.
func (s *TokenStore) Blacklist(ctx context.Context, tokenID string, userID uint, expiresAt time.Time) error {
	if err := s.tokens.Create(ctx, &model.BlacklistedToken{
		JTI:       tokenID,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	if ttl := time.Until(expiresAt); ttl > 0 {
		_ = s.cache.Set(ctx, refreshBlacklistKeyPrefix+tokenID, []byte("1"), ttl)
	}
	return nil
}

// IsBlacklisted checks if a refresh token id has been revoked.
func (s *TokenStore) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	if data, _ := s.cache.Get(ctx, refreshBlacklistKeyPrefix+tokenID); data != nil {
		return true, nil
	}
	return s.tokens.Exists(ctx, tokenID)
}
