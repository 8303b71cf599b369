package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "booklibrary/internal/errors"
	"booklibrary/internal/model"
	"booklibrary/internal/repository"
)

// loanRequest is the state threaded through the create-loan checks.
type loanRequest struct {
	BookID     uint
	BorrowerID uint
	LoanDate   time.Time
	ReturnDate *time.Time

	book *model.Book
}

// loanCheck validates one rule of a loan request. Checks run inside the
// create-loan transaction and must not write.
type loanCheck func(ctx context.Context, tx repository.Store, req *loanRequest) error

// createLoanChecks are evaluated in order; the first failure wins.
var createLoanChecks = []loanCheck{
	checkBookExists,
	checkNotAlreadyLoaned,
	checkBookAvailable,
	checkReturnDate,
}

func validateLoan(ctx context.Context, tx repository.Store, req *loanRequest) error {
	for _, check := range createLoanChecks {
		if err := check(ctx, tx, req); err != nil {
			return err
		}
	}
	return nil
}

// checkBookExists loads and locks the book row.
func checkBookExists(ctx context.Context, tx repository.Store, req *loanRequest) error {
	book, err := tx.Books().FindByIDForUpdate(ctx, req.BookID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrBookNotFound
		}
		return fmt.Errorf("find book: %w", err)
	}
	req.book = book
	return nil
}

func checkNotAlreadyLoaned(ctx context.Context, tx repository.Store, req *loanRequest) error {
	exists, err := tx.Loans().ExistsActive(ctx, req.BookID, req.BorrowerID)
	if err != nil {
		return fmt.Errorf("check active loan: %w", err)
	}
	if exists {
		return apperrors.ErrAlreadyLoaned
	}
	return nil
}

func checkBookAvailable(_ context.Context, _ repository.Store, req *loanRequest) error {
	if !req.book.IsAvailable {
		return apperrors.ErrUnavailable
	}
	return nil
}

func checkReturnDate(_ context.Context, _ repository.Store, req *loanRequest) error {
	if req.ReturnDate != nil && model.DateOf(*req.ReturnDate).Before(req.LoanDate) {
		return apperrors.ErrInvalidReturnDate
	}
	return nil
}
