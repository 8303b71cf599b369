package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"booklibrary/internal/cache"
	apperrors "booklibrary/internal/errors"
	"booklibrary/internal/model"
	"booklibrary/internal/repository"
)

// BookPage is one page of a book listing.
type BookPage struct {
	Count       int64
	Page        int
	HasNext     bool
	HasPrevious bool
	Results     []model.Book
}

// BookService serves read-only book queries.
type BookService interface {
	ListBooks(ctx context.Context, filter repository.BookFilter, page int) (*BookPage, error)
	GetBook(ctx context.Context, id uint) (*model.Book, error)
}

// bookCache is the part of *cache.Client GetBook relies on.
type bookCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) bool
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type bookService struct {
	books    repository.BookRepository
	cache    bookCache
	pageSize int
}

// NewBookService creates a new book service.
func NewBookService(books repository.BookRepository, cache *cache.Client, pageSize int) BookService {
	if pageSize < 1 {
		pageSize = 10
	}
	return &bookService{books: books, cache: cache, pageSize: pageSize}
}

// ParseBookQuery converts raw query parameters into a filter and page number.
// An empty page means the first page.
func ParseBookQuery(isAvailable, search, page string) (repository.BookFilter, int, error) {
	filter := repository.BookFilter{Search: strings.TrimSpace(search)}
	if isAvailable != "" {
		v, err := strconv.ParseBool(isAvailable)
		if err != nil {
			return filter, 0, apperrors.ErrInvalidFilter
		}
		filter.IsAvailable = &v
	}

	pageNum := 1
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return filter, 0, apperrors.ErrInvalidPage
		}
		pageNum = n
	}
	return filter, pageNum, nil
}

// ListBooks returns the requested page of matching books ordered by title.
func (s *bookService) ListBooks(ctx context.Context, filter repository.BookFilter, page int) (*BookPage, error) {
	if page < 1 {
		return nil, apperrors.ErrInvalidPage
	}

	books, total, err := s.books.List(ctx, filter, (page-1)*s.pageSize, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	lastPage := int((total + int64(s.pageSize) - 1) / int64(s.pageSize))
	if lastPage < 1 {
		lastPage = 1
	}
	if page > lastPage {
		return nil, apperrors.ErrInvalidPage
	}

	return &BookPage{
		Count:       total,
		Page:        page,
		HasNext:     page < lastPage,
		HasPrevious: page > 1,
		Results:     books,
	}, nil
}

// GetBook returns a single book. A cached body is served with the
// availability flag read from the store.
func (s *bookService) GetBook(ctx context.Context, id uint) (*model.Book, error) {
	key := bookCacheKey(id)
	var cached model.Book
	if s.cache.GetJSON(ctx, key, &cached) {
		available, err := s.books.Availability(ctx, id)
		if err == nil {
			cached.IsAvailable = available
			return &cached, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.cache.Delete(ctx, key)
			return nil, apperrors.ErrBookNotFound
		}
		return nil, fmt.Errorf("read book availability: %w", err)
	}

	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrBookNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}

	_ = s.cache.SetJSON(ctx, key, book, bookCacheTTL)
	return book, nil
}
