package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"booklibrary/internal/errors"
	"booklibrary/internal/model"
	"booklibrary/internal/service"
)

const dateLayout = "2006-01-02"

// AuthorSummary is the author as embedded in a book.
type AuthorSummary struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// BookResponse is the public book envelope.
type BookResponse struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	Author      AuthorSummary `json:"author"`
	ISBN        string        `json:"isbn"`
	PageCount   int           `json:"page_count"`
	IsAvailable bool          `json:"is_available"`
}

// BorrowerSummary is the borrower as embedded in a loan.
type BorrowerSummary struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoanResponse is the public loan envelope.
type LoanResponse struct {
	ID         uint            `json:"id"`
	Book       BookResponse    `json:"book"`
	Borrower   BorrowerSummary `json:"borrower"`
	LoanDate   string          `json:"loan_date"`
	ReturnDate *string         `json:"return_date"`
	ReturnedAt *time.Time      `json:"returned_at"`
	IsReturned bool            `json:"is_returned"`
	Fine       string          `json:"fine"`
}

// DetailResponse carries a human readable confirmation.
type DetailResponse struct {
	Detail string `json:"detail"`
}

func newBookResponse(b *model.Book) BookResponse {
	return BookResponse{
		ID:    b.ID,
		Title: b.Title,
		Author: AuthorSummary{
			ID:        b.Author.ID,
			FirstName: b.Author.FirstName,
			LastName:  b.Author.LastName,
		},
		ISBN:        b.ISBN,
		PageCount:   b.PageCount,
		IsAvailable: b.IsAvailable,
	}
}

func newLoanResponse(l *model.Loan, fine string) LoanResponse {
	resp := LoanResponse{
		ID:   l.ID,
		Book: newBookResponse(&l.Book),
		Borrower: BorrowerSummary{
			ID:        l.Borrower.ID,
			Email:     l.Borrower.Email,
			FirstName: l.Borrower.FirstName,
			LastName:  l.Borrower.LastName,
		},
		LoanDate:   l.LoanDate.Format(dateLayout),
		ReturnedAt: l.ReturnedAt,
		IsReturned: l.IsReturned,
		Fine:       fine,
	}
	if l.ReturnDate != nil {
		d := l.ReturnDate.Format(dateLayout)
		resp.ReturnDate = &d
	}
	return resp
}

func newLoanWithFineResponse(l *service.LoanWithFine) LoanResponse {
	return newLoanResponse(&l.Loan, l.Fine.StringFixed(2))
}

// fail converts a service error into the JSON error response.
func fail(c echo.Context, err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func badRequest(message, code string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func invalidBody() error {
	return badRequest("invalid request body", "INVALID_REQUEST")
}

func validationFailed(err error) error {
	return badRequest(err.Error(), "VALIDATION_ERROR")
}

func parseID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
