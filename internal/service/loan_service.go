package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"booklibrary/internal/cache"
	apperrors "booklibrary/internal/errors"
	"booklibrary/internal/metrics"
	"booklibrary/internal/model"
	"booklibrary/internal/repository"
)

// CreateLoanInput is a borrower's request for a book.
type CreateLoanInput struct {
	BookID     uint
	BorrowerID uint
	ReturnDate *time.Time
}

// LoanWithFine pairs a loan with the fine accrued so far.
type LoanWithFine struct {
	model.Loan
	Fine decimal.Decimal
}

// EndLoanFailure describes one loan a bulk end could not close.
type EndLoanFailure struct {
	ID    uint   `json:"id"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// EndLoansResult is the outcome of a bulk end.
type EndLoansResult struct {
	Ended  []uint           `json:"ended"`
	Failed []EndLoanFailure `json:"failed"`
}

// LoanService manages the loan lifecycle.
type LoanService interface {
	CreateLoan(ctx context.Context, in CreateLoanInput) (*model.Loan, error)
	EndLoan(ctx context.Context, loanID uint) error
	// EndLoans closes each loan in its own transaction and collects failures.
	EndLoans(ctx context.Context, loanIDs []uint) EndLoansResult
	ListLoans(ctx context.Context, borrowerID uint, status model.LoanStatus) ([]LoanWithFine, error)
}

type loanService struct {
	store    repository.Store
	cache    *cache.Client
	metrics  *metrics.Collector
	fineRate decimal.Decimal
	now      func() time.Time
}

// NewLoanService creates a new loan service. fineRate is charged per day overdue.
func NewLoanService(store repository.Store, cache *cache.Client, collector *metrics.Collector, fineRate decimal.Decimal) LoanService {
	return &loanService{
		store:    store,
		cache:    cache,
		metrics:  collector,
		fineRate: fineRate,
		now:      time.Now,
	}
}

// CreateLoan validates the request and records the loan, marking the book
// unavailable in the same transaction.
func (s *loanService) CreateLoan(ctx context.Context, in CreateLoanInput) (*model.Loan, error) {
	req := &loanRequest{
		BookID:     in.BookID,
		BorrowerID: in.BorrowerID,
		LoanDate:   model.DateOf(s.now()),
		ReturnDate: in.ReturnDate,
	}

	var loanID uint
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := validateLoan(ctx, tx, req); err != nil {
			return err
		}

		var returnDate *time.Time
		if req.ReturnDate != nil {
			d := model.DateOf(*req.ReturnDate)
			returnDate = &d
		}
		loan := &model.Loan{
			BookID:     req.BookID,
			BorrowerID: req.BorrowerID,
			LoanDate:   req.LoanDate,
			ReturnDate: returnDate,
		}
		if err := tx.Loans().Create(ctx, loan); err != nil {
			return fmt.Errorf("create loan: %w", err)
		}
		if err := tx.Books().SetAvailability(ctx, req.BookID, false); err != nil {
			return fmt.Errorf("mark book unavailable: %w", err)
		}
		loanID = loan.ID
		return nil
	})
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}

	s.metrics.LoanCreated()
	_ = s.cache.Delete(ctx, bookCacheKey(in.BookID))
	slog.Info("loan created", "loan_id", loanID, "book_id", in.BookID, "borrower_id", in.BorrowerID)

	loan, err := s.store.Loans().FindByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("reload loan: %w", err)
	}
	return loan, nil
}

// EndLoan ends a loan and makes its book available again.
func (s *loanService) EndLoan(ctx context.Context, loanID uint) error {
	bookID, err := s.endLoan(ctx, loanID)
	if err != nil {
		s.recordRejection(err)
		return err
	}
	s.metrics.LoanEnded()
	_ = s.cache.Delete(ctx, bookCacheKey(bookID))
	slog.Info("loan ended", "loan_id", loanID, "book_id", bookID)
	return nil
}

// EndLoans ends several loans. A failing loan does not affect the others.
func (s *loanService) EndLoans(ctx context.Context, loanIDs []uint) EndLoansResult {
	result := EndLoansResult{Ended: []uint{}, Failed: []EndLoanFailure{}}
	for _, id := range loanIDs {
		if err := s.EndLoan(ctx, id); err != nil {
			var domainErr *apperrors.DomainError
			if !errors.As(err, &domainErr) {
				slog.Error("bulk end loan failed", "loan_id", id, "error", err)
			}
			httpErr := apperrors.MapErrorToHTTP(err)
			result.Failed = append(result.Failed, EndLoanFailure{ID: id, Code: httpErr.Code, Error: httpErr.Message})
			continue
		}
		result.Ended = append(result.Ended, id)
	}
	return result
}

func (s *loanService) endLoan(ctx context.Context, loanID uint) (uint, error) {
	var bookID uint
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		loan, err := tx.Loans().FindByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.ErrLoanNotFound
			}
			return fmt.Errorf("find loan: %w", err)
		}
		if loan.IsReturned {
			return apperrors.ErrAlreadyReturned
		}

		if err := tx.Loans().MarkReturned(ctx, loan.ID, s.now()); err != nil {
			return fmt.Errorf("mark loan returned: %w", err)
		}
		if err := tx.Books().SetAvailability(ctx, loan.BookID, true); err != nil {
			return fmt.Errorf("mark book available: %w", err)
		}
		bookID = loan.BookID
		return nil
	})
	return bookID, err
}

// ListLoans lists a borrower's loans with their accrued fines. Borrower zero lists every loan.
func (s *loanService) ListLoans(ctx context.Context, borrowerID uint, status model.LoanStatus) ([]LoanWithFine, error) {
	if !status.Valid() {
		return nil, apperrors.ErrInvalidLoanStatus
	}
	today := s.now()
	loans, err := s.store.Loans().List(ctx, repository.LoanFilter{
		BorrowerID: borrowerID,
		Status:     status,
		Today:      today,
	})
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}

	out := make([]LoanWithFine, 0, len(loans))
	for _, l := range loans {
		out = append(out, LoanWithFine{Loan: l, Fine: s.fine(&l, today)})
	}
	return out, nil
}

func (s *loanService) fine(loan *model.Loan, today time.Time) decimal.Decimal {
	days := loan.DaysOverdue(today)
	if days == 0 {
		return decimal.Zero
	}
	return s.fineRate.Mul(decimal.NewFromInt(days)).Round(2)
}

func (s *loanService) recordRejection(err error) {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		s.metrics.LoanRejected(domainErr.Code)
	}
}
