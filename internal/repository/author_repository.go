package repository

import (
	"context"

	"gorm.io/gorm"

	"booklibrary/internal/model"
)

// AuthorRepository defines author persistence operations.
type AuthorRepository interface {
	Create(ctx context.Context, author *model.Author) error
	FindByID(ctx context.Context, id uint) (*model.Author, error)
	List(ctx context.Context) ([]model.Author, error)
	// Delete removes the author, failing with ErrReferenced while any book points at it.
	Delete(ctx context.Context, id uint) error
}

type authorRepository struct {
	db *gorm.DB
}

// NewAuthorRepository creates a new author repository.
func NewAuthorRepository(db *gorm.DB) AuthorRepository {
	return &authorRepository{db: db}
}

// Create creates a new author.
func (r *authorRepository) Create(ctx context.Context, author *model.Author) error {
	return translate(r.db.WithContext(ctx).Create(author).Error)
}

// FindByID finds an author by ID.
func (r *authorRepository) FindByID(ctx context.Context, id uint) (*model.Author, error) {
	var author model.Author
	if err := r.db.WithContext(ctx).First(&author, id).Error; err != nil {
		return nil, translate(err)
	}
	return &author, nil
}

// List returns authors, newest first.
func (r *authorRepository) List(ctx context.Context) ([]model.Author, error) {
	var authors []model.Author
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&authors).Error; err != nil {
		return nil, err
	}
	return authors, nil
}

// Delete deletes an author that no book references.
func (r *authorRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var books int64
		if err := tx.Model(&model.Book{}).Where("author_id = ?", id).Count(&books).Error; err != nil {
			return err
		}
		if books > 0 {
			return ErrReferenced
		}
		res := tx.Delete(&model.Author{}, id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
