package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"booklibrary/internal/errors"
	"booklibrary/internal/service"
)

// BookHandler handles catalog browsing endpoints.
type BookHandler struct {
	bookService service.BookService
}

// NewBookHandler creates a new book handler.
func NewBookHandler(bookService service.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// BookListResponse is a page of books with links to its neighbours.
type BookListResponse struct {
	Count    int64          `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []BookResponse `json:"results"`
}

// ListBooks godoc
// @Summary List books
// @Tags books
// @Produce json
// @Param is_available query bool false "Filter by availability"
// @Param search query string false "Case-insensitive title search"
// @Param page query int false "Page number"
// @Success 200 {object} BookListResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /books [get]
func (h *BookHandler) ListBooks(c echo.Context) error {
	filter, page, err := service.ParseBookQuery(c.QueryParam("is_available"), c.QueryParam("search"), c.QueryParam("page"))
	if err != nil {
		return fail(c, err)
	}

	result, err := h.bookService.ListBooks(c.Request().Context(), filter, page)
	if err != nil {
		return fail(c, err)
	}

	resp := BookListResponse{
		Count:   result.Count,
		Results: make([]BookResponse, 0, len(result.Results)),
	}
	for i := range result.Results {
		resp.Results = append(resp.Results, newBookResponse(&result.Results[i]))
	}
	if result.HasNext {
		resp.Next = pageURL(c, result.Page+1)
	}
	if result.HasPrevious {
		resp.Previous = pageURL(c, result.Page-1)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetBook godoc
// @Summary Get a book
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} BookResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /books/{id} [get]
func (h *BookHandler) GetBook(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return fail(c, errors.ErrBookNotFound)
	}

	book, err := h.bookService.GetBook(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newBookResponse(book))
}

// pageURL returns the absolute URL of the current request pointing at page.
// The first page is addressed without a page parameter.
func pageURL(c echo.Context, page int) *string {
	req := c.Request()
	q := req.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{
		Scheme:   c.Scheme(),
		Host:     req.Host,
		Path:     req.URL.Path,
		RawQuery: q.Encode(),
	}
	s := u.String()
	return &s
}
