package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"booklibrary/internal/errors"
	"booklibrary/internal/model"
	"booklibrary/internal/service"
)

// AdminHandler handles staff-only catalog and loan maintenance.
type AdminHandler struct {
	catalogService service.CatalogService
	loanService    service.LoanService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(catalogService service.CatalogService, loanService service.LoanService) *AdminHandler {
	return &AdminHandler{catalogService: catalogService, loanService: loanService}
}

// CreateAuthorRequest represents a new author.
type CreateAuthorRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Avatar    string `json:"avatar" validate:"omitempty,max=255"`
}

// AuthorResponse is the admin author envelope.
type AuthorResponse struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

// CreateBookRequest represents a new book.
type CreateBookRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Author    uint   `json:"author" validate:"required"`
	ISBN      string `json:"isbn" validate:"required"`
	PageCount int    `json:"page_count" validate:"gte=0"`
}

// EndLoansRequest lists the loans to end.
type EndLoansRequest struct {
	LoanIDs []uint `json:"loan_ids" validate:"required,min=1,dive,required"`
}

func newAuthorResponse(a *model.Author) AuthorResponse {
	return AuthorResponse{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName, Avatar: a.Avatar}
}

// ListAuthors godoc
// @Summary List authors, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} AuthorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/authors [get]
func (h *AdminHandler) ListAuthors(c echo.Context) error {
	authors, err := h.catalogService.ListAuthors(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	resp := make([]AuthorResponse, 0, len(authors))
	for i := range authors {
		resp = append(resp, newAuthorResponse(&authors[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateAuthor godoc
// @Summary Create an author
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAuthorRequest true "Author data"
// @Success 201 {object} AuthorResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/authors [post]
func (h *AdminHandler) CreateAuthor(c echo.Context) error {
	var req CreateAuthorRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(err)
	}

	author, err := h.catalogService.CreateAuthor(c.Request().Context(), service.CreateAuthorInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, newAuthorResponse(author))
}

// DeleteAuthor godoc
// @Summary Delete an author without books
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Author ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/authors/{id} [delete]
func (h *AdminHandler) DeleteAuthor(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return fail(c, errors.ErrAuthorNotFound)
	}
	if err := h.catalogService.DeleteAuthor(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateBook godoc
// @Summary Create a book
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBookRequest true "Book data"
// @Success 201 {object} BookResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/books [post]
func (h *AdminHandler) CreateBook(c echo.Context) error {
	var req CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(err)
	}

	book, err := h.catalogService.CreateBook(c.Request().Context(), service.CreateBookInput{
		Title:     req.Title,
		AuthorID:  req.Author,
		ISBN:      req.ISBN,
		PageCount: req.PageCount,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, newBookResponse(book))
}

// DeleteBook godoc
// @Summary Delete a book and its loans
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/books/{id} [delete]
func (h *AdminHandler) DeleteBook(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return fail(c, errors.ErrBookNotFound)
	}
	if err := h.catalogService.DeleteBook(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// EndLoans godoc
// @Summary End several loans
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EndLoansRequest true "Loan IDs"
// @Success 200 {object} service.EndLoansResult
// @Failure 400 {object} errors.ErrorResponse
// @Router /admin/loans/end [post]
func (h *AdminHandler) EndLoans(c echo.Context) error {
	var req EndLoansRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(err)
	}
	return c.JSON(http.StatusOK, h.loanService.EndLoans(c.Request().Context(), req.LoanIDs))
}
