package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booklibrary/internal/auth"
	"booklibrary/internal/handler"
	"booklibrary/internal/metrics"
	"booklibrary/internal/repository/memory"
	"booklibrary/internal/router"
	"booklibrary/internal/service"
)

type testServer struct {
	t    *testing.T
	e    *echo.Echo
	auth service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	jwtService := auth.NewJWTService("test-secret", 15*time.Minute, time.Hour)
	tokenStore := auth.NewTokenStore(store.Tokens(), nil)
	collector := metrics.New()

	authService := service.NewAuthService(store.Users(), jwtService, tokenStore)
	bookService := service.NewBookService(store.Books(), nil, 2)
	loanService := service.NewLoanService(store, nil, collector, decimal.RequireFromString("0.5"))
	catalogService := service.NewCatalogService(store, nil)

	e := echo.New()
	router.Register(e, router.Deps{
		JWT:     jwtService,
		Users:   store.Users(),
		Metrics: collector,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Auth:    handler.NewAuthHandler(authService),
		Books:   handler.NewBookHandler(bookService),
		Loans:   handler.NewLoanHandler(loanService),
		Admin:   handler.NewAdminHandler(catalogService, loanService),
	})

	return &testServer{t: t, e: e, auth: authService}
}

func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["code"].(string)
}

// login registers a borrower (staff when asked) and returns its token pair.
func (s *testServer) login(email string, staff bool) handler.LoginResponse {
	s.t.Helper()
	_, err := s.auth.Register(context.Background(), service.RegisterInput{
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Password:  "s3cret-pass",
		Password2: "s3cret-pass",
		IsStaff:   staff,
	})
	require.NoError(s.t, err)

	rec := s.do(http.MethodPost, "/api/accounts/login", map[string]string{"email": email, "password": "s3cret-pass"}, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[handler.LoginResponse](s.t, rec)
}

func (s *testServer) seedBook(staffToken string, title, isbn string) handler.BookResponse {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/admin/authors", map[string]string{"first_name": "Ursula", "last_name": "Le Guin"}, staffToken)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	author := decode[handler.AuthorResponse](s.t, rec)

	rec = s.do(http.MethodPost, "/api/admin/books", map[string]any{
		"title": title, "author": author.ID, "isbn": isbn, "page_count": 300,
	}, staffToken)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.BookResponse](s.t, rec)
}

func TestAccounts(t *testing.T) {
	s := newTestServer(t)

	t.Run("register", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/accounts/register", map[string]string{
			"email": "Reader@Example.com", "first_name": "Ada", "last_name": "Byron",
			"password": "pw-123456", "password2": "pw-123456",
		}, "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		resp := decode[handler.RegisterResponse](t, rec)
		assert.Equal(t, "reader@example.com", resp.Email)
		assert.Equal(t, "Ada", resp.FirstName)
	})

	tests := []struct {
		name     string
		body     map[string]string
		status   int
		wantCode string
	}{
		{"duplicate email", map[string]string{"email": "READER@example.com", "password": "x", "password2": "x"}, http.StatusConflict, "USER_ALREADY_EXISTS"},
		{"password mismatch", map[string]string{"email": "new@example.com", "password": "a", "password2": "b"}, http.StatusBadRequest, "PASSWORD_MISMATCH"},
		{"missing password", map[string]string{"email": "new@example.com", "password": "a"}, http.StatusBadRequest, "PASSWORD_REQUIRED"},
		{"missing email", map[string]string{"password": "a", "password2": "a"}, http.StatusBadRequest, "EMAIL_REQUIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/accounts/register", tt.body, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}

	t.Run("login with wrong password", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/accounts/login", map[string]string{"email": "reader@example.com", "password": "nope"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rec))
	})

	t.Run("login with unknown email", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/accounts/login", map[string]string{"email": "ghost@example.com", "password": "nope"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("login and me", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/accounts/login", map[string]string{"email": "reader@example.com", "password": "pw-123456"}, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		tokens := decode[handler.LoginResponse](t, rec)
		assert.NotEmpty(t, tokens.Access)
		assert.NotEmpty(t, tokens.Refresh)
		assert.False(t, tokens.IsOnboarded)

		rec = s.do(http.MethodGet, "/api/accounts/me", nil, tokens.Access)
		require.Equal(t, http.StatusOK, rec.Code)
		me := decode[handler.UserResponse](t, rec)
		assert.Equal(t, "reader@example.com", me.Email)
		assert.False(t, me.IsStaff)
	})

	t.Run("me without token", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/accounts/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHENTICATED", errorCode(t, rec))
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		tokens := s.login("refresh@example.com", false)
		rec := s.do(http.MethodGet, "/api/accounts/me", nil, tokens.Refresh)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	s := newTestServer(t)
	tokens := s.login("leaving@example.com", false)

	rec := s.do(http.MethodPost, "/api/accounts/refresh-token", map[string]string{"refresh": tokens.Refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[handler.RefreshResponse](t, rec).Access)

	rec = s.do(http.MethodPost, "/api/accounts/logout", map[string]string{}, tokens.Access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REFRESH_REQUIRED", errorCode(t, rec))

	rec = s.do(http.MethodPost, "/api/accounts/logout", map[string]string{"refresh": tokens.Refresh}, tokens.Access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, handler.LogoutResponse{Success: true, Detail: "Token Blacklisted."}, decode[handler.LogoutResponse](t, rec))

	rec = s.do(http.MethodPost, "/api/accounts/refresh-token", map[string]string{"refresh": tokens.Refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", errorCode(t, rec))

	rec = s.do(http.MethodPost, "/api/accounts/logout", map[string]string{"refresh": tokens.Refresh}, tokens.Access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
}

func TestBookListing(t *testing.T) {
	s := newTestServer(t)
	staff := s.login("staff@example.com", true)
	for i := 1; i <= 5; i++ {
		s.seedBook(staff.Access, fmt.Sprintf("Earthsea %d", i), fmt.Sprintf("978000000000%d", i))
	}

	t.Run("first page", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/books", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[handler.BookListResponse](t, rec)
		assert.EqualValues(t, 5, page.Count)
		require.Len(t, page.Results, 2)
		assert.Equal(t, "Earthsea 1", page.Results[0].Title)
		assert.Equal(t, "Ursula", page.Results[0].Author.FirstName)
		require.NotNil(t, page.Next)
		assert.Equal(t, "http://example.com/api/books?page=2", *page.Next)
		assert.Nil(t, page.Previous)
	})

	t.Run("middle page keeps filters", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/books?search=earth&page=2", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[handler.BookListResponse](t, rec)
		require.NotNil(t, page.Previous)
		require.NotNil(t, page.Next)
		assert.Equal(t, "http://example.com/api/books?search=earth", *page.Previous)
		assert.Equal(t, "http://example.com/api/books?page=3&search=earth", *page.Next)
	})

	t.Run("last page", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/books?page=3", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[handler.BookListResponse](t, rec)
		assert.Len(t, page.Results, 1)
		assert.Nil(t, page.Next)
	})

	t.Run("page beyond the end", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/books?page=4", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "INVALID_PAGE", errorCode(t, rec))
	})

	t.Run("invalid availability filter", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/books?is_available=maybe", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_FILTER", errorCode(t, rec))
	})

	t.Run("unknown book", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/books/999", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "BOOK_NOT_FOUND", errorCode(t, rec))
	})
}

func TestLoanLifecycle(t *testing.T) {
	s := newTestServer(t)
	staff := s.login("staff@example.com", true)
	reader := s.login("reader@example.com", false)
	other := s.login("other@example.com", false)
	book := s.seedBook(staff.Access, "The Dispossessed", "9780061054884")
	assert.True(t, book.IsAvailable)

	returnDate := time.Now().UTC().AddDate(0, 0, 14).Format("2006-01-02")
	rec := s.do(http.MethodPost, "/api/books/loan", map[string]any{"book": book.ID, "return_date": returnDate}, reader.Access)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decode[handler.LoanResponse](t, rec)
	assert.Equal(t, book.ID, loan.Book.ID)
	assert.Equal(t, "reader@example.com", loan.Borrower.Email)
	require.NotNil(t, loan.ReturnDate)
	assert.Equal(t, returnDate, *loan.ReturnDate)
	assert.False(t, loan.IsReturned)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/books/%d", book.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[handler.BookResponse](t, rec).IsAvailable)

	rec = s.do(http.MethodPost, "/api/books/loan", map[string]any{"book": book.ID}, reader.Access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_LOANED", errorCode(t, rec))

	rec = s.do(http.MethodPost, "/api/books/loan", map[string]any{"book": book.ID}, other.Access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNAVAILABLE", errorCode(t, rec))

	rec = s.do(http.MethodPost, "/api/books/loan", map[string]any{"book": 999}, other.Access)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/books/loans?status=active", nil, reader.Access)
	require.Equal(t, http.StatusOK, rec.Code)
	active := decode[[]handler.LoanResponse](t, rec)
	require.Len(t, active, 1)
	assert.Equal(t, "0.00", active[0].Fine)

	rec = s.do(http.MethodGet, "/api/books/loans?status=lost", nil, reader.Access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATUS", errorCode(t, rec))

	rec = s.do(http.MethodPost, "/api/books/end-loan/999", nil, other.Access)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "LOAN_NOT_FOUND", errorCode(t, rec))

	// Any authenticated user may end an active loan, not only its borrower.
	endPath := fmt.Sprintf("/api/books/end-loan/%d", loan.ID)
	rec = s.do(http.MethodPost, endPath, nil, other.Access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Loan ended successfully.", decode[handler.DetailResponse](t, rec).Detail)

	rec = s.do(http.MethodPost, endPath, nil, reader.Access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_RETURNED", errorCode(t, rec))

	rec = s.do(http.MethodGet, "/api/books/loans?status=returned", nil, reader.Access)
	require.Equal(t, http.StatusOK, rec.Code)
	returned := decode[[]handler.LoanResponse](t, rec)
	require.Len(t, returned, 1)
	assert.True(t, returned[0].IsReturned)
	assert.NotNil(t, returned[0].ReturnedAt)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/books/%d", book.ID), nil, "")
	assert.True(t, decode[handler.BookResponse](t, rec).IsAvailable)

	rec = s.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "library_loans_created_total 1")
	assert.Contains(t, rec.Body.String(), "library_loans_ended_total 1")
}

func TestCreateLoanRejectsEarlyReturnDate(t *testing.T) {
	s := newTestServer(t)
	staff := s.login("staff@example.com", true)
	reader := s.login("reader@example.com", false)
	book := s.seedBook(staff.Access, "Lathe of Heaven", "9780060512750")

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	rec := s.do(http.MethodPost, "/api/books/loan", map[string]any{"book": book.ID, "return_date": yesterday}, reader.Access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_RETURN_DATE", errorCode(t, rec))

	rec = s.do(http.MethodPost, "/api/books/loan", map[string]any{"book": book.ID, "return_date": "next week"}, reader.Access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	staff := s.login("staff@example.com", true)
	reader := s.login("reader@example.com", false)

	t.Run("non staff is forbidden", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/admin/authors", map[string]string{"first_name": "A", "last_name": "B"}, reader.Access)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "STAFF_ONLY", errorCode(t, rec))
	})

	t.Run("anonymous is unauthenticated", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/admin/authors", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	book := s.seedBook(staff.Access, "The Word for World Is Forest", "9780765324641")

	t.Run("duplicate isbn", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/admin/books", map[string]any{
			"title": "Copy", "author": book.Author.ID, "isbn": book.ISBN,
		}, staff.Access)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "DUPLICATE_ISBN", errorCode(t, rec))
	})

	t.Run("short isbn", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/admin/books", map[string]any{
			"title": "Short", "author": book.Author.ID, "isbn": "123",
		}, staff.Access)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ISBN", errorCode(t, rec))
	})

	t.Run("unknown author", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/admin/books", map[string]any{
			"title": "Orphan", "author": 999, "isbn": "9780000000999",
		}, staff.Access)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "UNKNOWN_AUTHOR", errorCode(t, rec))
	})

	t.Run("list authors", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/admin/authors", nil, staff.Access)
		require.Equal(t, http.StatusOK, rec.Code)
		authors := decode[[]handler.AuthorResponse](t, rec)
		require.Len(t, authors, 1)
		assert.Equal(t, "Le Guin", authors[0].LastName)
	})

	t.Run("protected author", func(t *testing.T) {
		rec := s.do(http.MethodDelete, fmt.Sprintf("/api/admin/authors/%d", book.Author.ID), nil, staff.Access)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "AUTHOR_PROTECTED", errorCode(t, rec))
	})

	t.Run("bulk end loans", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/books/loan", map[string]any{"book": book.ID}, reader.Access)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		loan := decode[handler.LoanResponse](t, rec)

		rec = s.do(http.MethodPost, "/api/admin/loans/end", map[string]any{"loan_ids": []uint{loan.ID, 999}}, staff.Access)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		result := decode[service.EndLoansResult](t, rec)
		assert.Equal(t, []uint{loan.ID}, result.Ended)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, uint(999), result.Failed[0].ID)
		assert.Equal(t, "LOAN_NOT_FOUND", result.Failed[0].Code)
	})

	t.Run("delete book then author", func(t *testing.T) {
		rec := s.do(http.MethodDelete, fmt.Sprintf("/api/admin/books/%d", book.ID), nil, staff.Access)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = s.do(http.MethodGet, fmt.Sprintf("/api/books/%d", book.ID), nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = s.do(http.MethodGet, "/api/books/loans", nil, reader.Access)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[[]handler.LoanResponse](t, rec))

		rec = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/authors/%d", book.Author.ID), nil, staff.Access)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestHealthAndTrailingSlash(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(http.MethodGet, "/api/books/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", nil, "")
	assert.True(t, strings.Contains(rec.Body.String(), `library_http_requests_total{method="GET",route="/api/books",status="200"} 1`), rec.Body.String())
}
