package errors

import (
	"errors"
	"net/http"
)

// Kind classifies a domain error into the status category reported to clients.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
)

// DomainError is a business-rule failure with a stable machine-readable code.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// New creates a new domain error.
func New(kind Kind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

var (
	// ErrBookNotFound is returned when a book id does not resolve.
	ErrBookNotFound = New(KindNotFound, "BOOK_NOT_FOUND", "book not found")
	// ErrLoanNotFound is returned when a loan id does not resolve.
	ErrLoanNotFound = New(KindNotFound, "LOAN_NOT_FOUND", "loan not found")
	// ErrAuthorNotFound is returned when an author id does not resolve.
	ErrAuthorNotFound = New(KindNotFound, "AUTHOR_NOT_FOUND", "author not found")
	// ErrInvalidPage is returned when the requested page does not exist.
	ErrInvalidPage = New(KindNotFound, "INVALID_PAGE", "invalid page")

	// ErrAlreadyLoaned is returned when the borrower already holds an active loan on the book.
	ErrAlreadyLoaned = New(KindValidation, "ALREADY_LOANED", "you already have a loan for this book")
	// ErrUnavailable is returned when the book's availability flag is false.
	ErrUnavailable = New(KindValidation, "UNAVAILABLE", "book is not available")
	// ErrInvalidReturnDate is returned when the expected return date is before the loan date.
	ErrInvalidReturnDate = New(KindValidation, "INVALID_RETURN_DATE", "return date cannot be before the loan date")
	// ErrAlreadyReturned is returned when ending a loan that is already closed.
	ErrAlreadyReturned = New(KindValidation, "ALREADY_RETURNED", "loan already returned")
	// ErrInvalidFilter is returned for malformed list filters.
	ErrInvalidFilter = New(KindValidation, "INVALID_FILTER", "invalid filter value")
	// ErrInvalidLoanStatus is returned for an unknown loan status filter.
	ErrInvalidLoanStatus = New(KindValidation, "INVALID_STATUS", "status must be one of active, returned, overdue")
	// ErrInvalidISBN is returned when an isbn is not exactly 13 characters.
	ErrInvalidISBN = New(KindValidation, "INVALID_ISBN", "isbn must be exactly 13 characters")
	// ErrUnknownAuthor is returned when a new book references a missing author.
	ErrUnknownAuthor = New(KindValidation, "UNKNOWN_AUTHOR", "author does not exist")

	// ErrEmailRequired is returned when registering without an email.
	ErrEmailRequired = New(KindValidation, "EMAIL_REQUIRED", "email is required")
	// ErrPasswordRequired is returned when either password field is empty.
	ErrPasswordRequired = New(KindValidation, "PASSWORD_REQUIRED", "password is required")
	// ErrPasswordMismatch is returned when password and password2 differ.
	ErrPasswordMismatch = New(KindValidation, "PASSWORD_MISMATCH", "password fields didn't match")
	// ErrAccountSuspended is returned when an inactive user tries to log in.
	ErrAccountSuspended = New(KindValidation, "ACCOUNT_SUSPENDED", "your account is suspended, please contact support")
	// ErrRefreshRequired is returned when logout is called without a refresh token.
	ErrRefreshRequired = New(KindValidation, "REFRESH_REQUIRED", "refresh token is required")
	// ErrInvalidToken is returned when logout receives an unusable refresh token.
	ErrInvalidToken = New(KindValidation, "INVALID_TOKEN", "invalid or expired token")

	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = New(KindUnauthorized, "INVALID_CREDENTIALS", "incorrect authentication credentials")
	// ErrInvalidRefreshToken is returned when a refresh token is invalid, expired or blacklisted.
	ErrInvalidRefreshToken = New(KindUnauthorized, "INVALID_REFRESH_TOKEN", "invalid token or user does not exist")
	// ErrUserInactive is returned when refreshing a token for a disabled user.
	ErrUserInactive = New(KindUnauthorized, "USER_INACTIVE", "user account is disabled")
	// ErrUnauthenticated is returned when a request carries no usable credentials.
	ErrUnauthenticated = New(KindUnauthorized, "UNAUTHENTICATED", "authentication credentials were not provided or are invalid")

	// ErrStaffOnly is returned when a non-staff user calls an admin operation.
	ErrStaffOnly = New(KindForbidden, "STAFF_ONLY", "you do not have permission to perform this action")

	// ErrUserAlreadyExists is returned when the email is already registered.
	ErrUserAlreadyExists = New(KindConflict, "USER_ALREADY_EXISTS", "user with this email already exists")
	// ErrDuplicateISBN is returned when a book with the same isbn exists.
	ErrDuplicateISBN = New(KindConflict, "DUPLICATE_ISBN", "book with this isbn already exists")
	// ErrAuthorProtected is returned when deleting an author that still has books.
	ErrAuthorProtected = New(KindConflict, "AUTHOR_PROTECTED", "author is referenced by existing books")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// StatusFor returns the HTTP status of a domain error kind.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Anything that is not a
// DomainError is reported as an internal error without leaking its message.
func MapErrorToHTTP(err error) *HTTPError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return NewHTTPError(StatusFor(domainErr.Kind), domainErr.Message, domainErr.Code)
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
