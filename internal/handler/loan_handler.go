package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"booklibrary/internal/auth"
	"booklibrary/internal/errors"
	"booklibrary/internal/model"
	"booklibrary/internal/service"
)

// LoanHandler handles borrower loan endpoints.
type LoanHandler struct {
	loanService service.LoanService
}

// NewLoanHandler creates a new loan handler.
func NewLoanHandler(loanService service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// CreateLoanRequest represents a request to borrow a book.
type CreateLoanRequest struct {
	Book       uint   `json:"book" validate:"required"`
	ReturnDate string `json:"return_date" validate:"omitempty,datetime=2006-01-02"`
}

// CreateLoan godoc
// @Summary Borrow a book
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateLoanRequest true "Loan data"
// @Success 201 {object} LoanResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /books/loan [post]
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return fail(c, errors.ErrUnauthenticated)
	}

	var req CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(err)
	}

	input := service.CreateLoanInput{BookID: req.Book, BorrowerID: user.ID}
	if req.ReturnDate != "" {
		d, err := time.Parse(dateLayout, strings.TrimSpace(req.ReturnDate))
		if err != nil {
			return badRequest("return_date must be formatted YYYY-MM-DD", "VALIDATION_ERROR")
		}
		input.ReturnDate = &d
	}

	loan, err := h.loanService.CreateLoan(c.Request().Context(), input)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, newLoanResponse(loan, "0.00"))
}

// EndLoan godoc
// @Summary Return a borrowed book
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} DetailResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /books/end-loan/{id} [post]
func (h *LoanHandler) EndLoan(c echo.Context) error {
	if _, ok := auth.CurrentUser(c); !ok {
		return fail(c, errors.ErrUnauthenticated)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return fail(c, errors.ErrLoanNotFound)
	}

	if err := h.loanService.EndLoan(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, DetailResponse{Detail: "Loan ended successfully."})
}

// ListLoans godoc
// @Summary List the current user's loans
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "active, returned or overdue"
// @Success 200 {array} LoanResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /books/loans [get]
func (h *LoanHandler) ListLoans(c echo.Context) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return fail(c, errors.ErrUnauthenticated)
	}

	status := model.LoanStatus(strings.ToLower(c.QueryParam("status")))
	loans, err := h.loanService.ListLoans(c.Request().Context(), user.ID, status)
	if err != nil {
		return fail(c, err)
	}

	resp := make([]LoanResponse, 0, len(loans))
	for i := range loans {
		resp = append(resp, newLoanWithFineResponse(&loans[i]))
	}
	return c.JSON(http.StatusOK, resp)
}
