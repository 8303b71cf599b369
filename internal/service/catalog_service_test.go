package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "booklibrary/internal/errors"
)

func TestCatalogService_CreateBook(t *testing.T) {
	lib := newTestLibrary(t)
	svc := NewCatalogService(lib.store, nil)
	ctx := context.Background()

	book, err := svc.CreateBook(ctx, CreateBookInput{Title: " Six Memos ", AuthorID: lib.author.ID, ISBN: "9780679742371", PageCount: 124})
	require.NoError(t, err)
	assert.Equal(t, "Six Memos", book.Title)
	assert.True(t, book.IsAvailable)
	assert.Equal(t, "Italo", book.Author.FirstName)

	tests := []struct {
		name     string
		input    CreateBookInput
		expected error
	}{
		{"short isbn", CreateBookInput{Title: "x", AuthorID: lib.author.ID, ISBN: "123"}, apperrors.ErrInvalidISBN},
		{"long isbn", CreateBookInput{Title: "x", AuthorID: lib.author.ID, ISBN: "97806797423710"}, apperrors.ErrInvalidISBN},
		{"unknown author", CreateBookInput{Title: "x", AuthorID: 9999, ISBN: "9780679742372"}, apperrors.ErrUnknownAuthor},
		{"duplicate isbn", CreateBookInput{Title: "x", AuthorID: lib.author.ID, ISBN: "9780679742371"}, apperrors.ErrDuplicateISBN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBook(ctx, tt.input)
			assert.Equal(t, tt.expected, err)
		})
	}
}

func TestCatalogService_DeleteAuthor(t *testing.T) {
	lib := newTestLibrary(t)
	svc := NewCatalogService(lib.store, nil)
	ctx := context.Background()
	book := lib.book(t, "Numbers in the Dark", "9780679743484")

	assert.Equal(t, apperrors.ErrAuthorProtected, svc.DeleteAuthor(ctx, lib.author.ID))
	assert.Equal(t, apperrors.ErrAuthorNotFound, svc.DeleteAuthor(ctx, 9999))

	require.NoError(t, svc.DeleteBook(ctx, book.ID))
	assert.NoError(t, svc.DeleteAuthor(ctx, lib.author.ID))
}

func TestCatalogService_DeleteBookCascadesLoans(t *testing.T) {
	lib := newTestLibrary(t)
	catalog := NewCatalogService(lib.store, nil)
	loans := newTestLoanService(lib)
	ctx := context.Background()
	book := lib.book(t, "Under the Jaguar Sun", "9780156927949")
	reader := lib.user(t, "reader@example.com")

	loan, err := loans.CreateLoan(ctx, CreateLoanInput{BookID: book.ID, BorrowerID: reader.ID})
	require.NoError(t, err)

	require.NoError(t, catalog.DeleteBook(ctx, book.ID))
	assert.Equal(t, apperrors.ErrBookNotFound, catalog.DeleteBook(ctx, book.ID))
	assert.Equal(t, apperrors.ErrLoanNotFound, loans.EndLoan(ctx, loan.ID))
}

func TestCatalogService_CreateAndListAuthors(t *testing.T) {
	lib := newTestLibrary(t)
	svc := NewCatalogService(lib.store, nil)

	author, err := svc.CreateAuthor(context.Background(), CreateAuthorInput{FirstName: " Natalia ", LastName: "Ginzburg"})
	require.NoError(t, err)
	assert.Equal(t, "Natalia", author.FirstName)

	authors, err := svc.ListAuthors(context.Background())
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, author.ID, authors[0].ID)
}
