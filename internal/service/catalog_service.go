package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"booklibrary/internal/cache"
	apperrors "booklibrary/internal/errors"
	"booklibrary/internal/model"
	"booklibrary/internal/repository"
)

// CreateAuthorInput holds the fields of a new author.
type CreateAuthorInput struct {
	FirstName string
	LastName  string
	Avatar    string
}

// CreateBookInput holds the fields of a new book.
type CreateBookInput struct {
	Title     string
	AuthorID  uint
	ISBN      string
	PageCount int
}

// CatalogService handles staff maintenance of authors and books.
type CatalogService interface {
	CreateAuthor(ctx context.Context, in CreateAuthorInput) (*model.Author, error)
	ListAuthors(ctx context.Context) ([]model.Author, error)
	DeleteAuthor(ctx context.Context, id uint) error
	CreateBook(ctx context.Context, in CreateBookInput) (*model.Book, error)
	DeleteBook(ctx context.Context, id uint) error
}

type catalogService struct {
	store repository.Store
	cache *cache.Client
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store repository.Store, cache *cache.Client) CatalogService {
	return &catalogService{store: store, cache: cache}
}

func (s *catalogService) CreateAuthor(ctx context.Context, in CreateAuthorInput) (*model.Author, error) {
	author := &model.Author{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Avatar:    strings.TrimSpace(in.Avatar),
	}
	if err := s.store.Authors().Create(ctx, author); err != nil {
		return nil, fmt.Errorf("create author: %w", err)
	}
	return author, nil
}

func (s *catalogService) ListAuthors(ctx context.Context) ([]model.Author, error) {
	authors, err := s.store.Authors().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}

// DeleteAuthor deletes an author without books.
func (s *catalogService) DeleteAuthor(ctx context.Context, id uint) error {
	err := s.store.Authors().Delete(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.ErrAuthorNotFound
	case errors.Is(err, repository.ErrReferenced):
		return apperrors.ErrAuthorProtected
	case err != nil:
		return fmt.Errorf("delete author: %w", err)
	}
	slog.Info("author deleted", "author_id", id)
	return nil
}

// CreateBook adds a book to the catalog. New books have no loans, so they
// always start available.
func (s *catalogService) CreateBook(ctx context.Context, in CreateBookInput) (*model.Book, error) {
	isbn := strings.TrimSpace(in.ISBN)
	if utf8.RuneCountInString(isbn) != model.ISBNLength {
		return nil, apperrors.ErrInvalidISBN
	}

	if _, err := s.store.Authors().FindByID(ctx, in.AuthorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrUnknownAuthor
		}
		return nil, fmt.Errorf("find author: %w", err)
	}

	book := &model.Book{
		Title:       strings.TrimSpace(in.Title),
		AuthorID:    in.AuthorID,
		ISBN:        isbn,
		PageCount:   in.PageCount,
		IsAvailable: true,
	}
	if err := s.store.Books().Create(ctx, book); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.ErrDuplicateISBN
		case errors.Is(err, repository.ErrReferenced):
			return nil, apperrors.ErrUnknownAuthor
		}
		return nil, fmt.Errorf("create book: %w", err)
	}

	created, err := s.store.Books().FindByID(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("reload book: %w", err)
	}
	return created, nil
}

// DeleteBook deletes a book and its loans.
func (s *catalogService) DeleteBook(ctx context.Context, id uint) error {
	if err := s.store.Books().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrBookNotFound
		}
		return fmt.Errorf("delete book: %w", err)
	}
	_ = s.cache.Delete(ctx, bookCacheKey(id))
	slog.Info("book deleted", "book_id", id)
	return nil
}
