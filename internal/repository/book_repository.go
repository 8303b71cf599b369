package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"booklibrary/internal/model"
)

// BookFilter narrows a book listing. Zero values match every book.
type BookFilter struct {
	IsAvailable *bool
	Search      string
}

// BookRepository defines book persistence operations.
type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	FindByID(ctx context.Context, id uint) (*model.Book, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Book, error)
	// Availability reads only the availability flag of a book.
	Availability(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter BookFilter, offset, limit int) ([]model.Book, int64, error)
	SetAvailability(ctx context.Context, id uint, available bool) error
	// Delete removes the book together with every loan that references it.
	Delete(ctx context.Context, id uint) error
}

type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository.
func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

// Create creates a new book.
func (r *bookRepository) Create(ctx context.Context, book *model.Book) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(book).Error)
}

// FindByID finds a book by ID with its author.
func (r *bookRepository) FindByID(ctx context.Context, id uint) (*model.Book, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).Preload("Author").First(&book, id).Error; err != nil {
		return nil, translate(err)
	}
	return &book, nil
}

// FindByIDForUpdate finds a book by ID with row-level lock for update.
func (r *bookRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Book, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, id).Error; err != nil {
		return nil, translate(err)
	}
	return &book, nil
}

// Availability returns the current availability flag of a book.
func (r *bookRepository) Availability(ctx context.Context, id uint) (bool, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).Select("id", "is_available").First(&book, id).Error; err != nil {
		return false, translate(err)
	}
	return book.IsAvailable, nil
}

// List returns one window of the filtered books ordered by title, and the
// total number of matching books.
func (r *bookRepository) List(ctx context.Context, filter BookFilter, offset, limit int) ([]model.Book, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Book{}).Scopes(filterBooks(filter)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []model.Book
	if err := r.db.WithContext(ctx).Scopes(filterBooks(filter)).Preload("Author").
		Order("title ASC").Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// SetAvailability updates the availability flag of a book.
func (r *bookRepository) SetAvailability(ctx context.Context, id uint, available bool) error {
	return r.db.WithContext(ctx).Model(&model.Book{}).Where("id = ?", id).Update("is_available", available).Error
}

// Delete deletes a book and its loans.
func (r *bookRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&model.Loan{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Book{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func filterBooks(filter BookFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.IsAvailable != nil {
			db = db.Where("is_available = ?", *filter.IsAvailable)
		}
		if filter.Search != "" {
			pattern := "%" + likeEscaper.Replace(strings.ToLower(filter.Search)) + "%"
			db = db.Where("LOWER(title) LIKE ? ESCAPE '!'", pattern)
		}
		return db
	}
}
