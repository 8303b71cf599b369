package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that can take part in one transaction.
type Store interface {
	Authors() AuthorRepository
	Books() BookRepository
	Loans() LoanRepository
	Users() UserRepository
	Tokens() TokenRepository
	// WithTransaction runs fn with a Store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore builds a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Authors() AuthorRepository { return NewAuthorRepository(s.db) }
func (s *gormStore) Books() BookRepository     { return NewBookRepository(s.db) }
func (s *gormStore) Loans() LoanRepository     { return NewLoanRepository(s.db) }
func (s *gormStore) Users() UserRepository     { return NewUserRepository(s.db) }
func (s *gormStore) Tokens() TokenRepository   { return NewTokenRepository(s.db) }

// WithTransaction executes a function within a database transaction.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx})
	})
}
