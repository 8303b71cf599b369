package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"booklibrary/internal/model"
)

// LoanFilter narrows a loan listing. BorrowerID zero matches every borrower.
// Today is the reference date for the overdue status.
type LoanFilter struct {
	BorrowerID uint
	Status     model.LoanStatus
	Today      time.Time
}

// LoanRepository defines loan persistence operations.
type LoanRepository interface {
	Create(ctx context.Context, loan *model.Loan) error
	FindByID(ctx context.Context, id uint) (*model.Loan, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Loan, error)
	ExistsActive(ctx context.Context, bookID, borrowerID uint) (bool, error)
	MarkReturned(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context, filter LoanFilter) ([]model.Loan, error)
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository.
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

// Create creates a new loan.
func (r *loanRepository) Create(ctx context.Context, loan *model.Loan) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(loan).Error)
}

// FindByID finds a loan by ID with its book, author and borrower.
func (r *loanRepository) FindByID(ctx context.Context, id uint) (*model.Loan, error) {
	var loan model.Loan
	if err := r.db.WithContext(ctx).Preload("Book.Author").Preload("Borrower").
		First(&loan, id).Error; err != nil {
		return nil, translate(err)
	}
	return &loan, nil
}

// FindByIDForUpdate finds a loan by ID with row-level lock for update.
func (r *loanRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Loan, error) {
	var loan model.Loan
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, id).Error; err != nil {
		return nil, translate(err)
	}
	return &loan, nil
}

// ExistsActive reports whether the borrower holds an unreturned loan on the book.
func (r *loanRepository) ExistsActive(ctx context.Context, bookID, borrowerID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Loan{}).
		Where("book_id = ? AND borrower_id = ? AND is_returned = ?", bookID, borrowerID, false).
		Count(&count).Error
	return count > 0, err
}

// MarkReturned closes a loan at the given instant.
func (r *loanRepository) MarkReturned(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Loan{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_returned": true, "returned_at": at}).Error
}

// List returns matching loans, most recent loan date first.
func (r *loanRepository) List(ctx context.Context, filter LoanFilter) ([]model.Loan, error) {
	q := r.db.WithContext(ctx).Preload("Book.Author").Preload("Borrower")
	if filter.BorrowerID != 0 {
		q = q.Where("borrower_id = ?", filter.BorrowerID)
	}
	switch filter.Status {
	case model.LoanStatusActive:
		q = q.Where("is_returned = ?", false)
	case model.LoanStatusReturned:
		q = q.Where("is_returned = ?", true)
	case model.LoanStatusOverdue:
		q = q.Where("is_returned = ? AND return_date IS NOT NULL AND return_date < ?", false, model.DateOf(filter.Today))
	}

	var loans []model.Loan
	if err := q.Order("loan_date DESC").Order("id DESC").Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}
