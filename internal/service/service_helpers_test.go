package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"booklibrary/internal/model"
	"booklibrary/internal/repository/memory"
)

type testLibrary struct {
	store  *memory.Store
	author *model.Author
}

func newTestLibrary(t *testing.T) *testLibrary {
	t.Helper()
	store := memory.NewStore()
	author := &model.Author{FirstName: "Italo", LastName: "Calvino"}
	require.NoError(t, store.Authors().Create(context.Background(), author))
	return &testLibrary{store: store, author: author}
}

func (l *testLibrary) book(t *testing.T, title, isbn string) *model.Book {
	t.Helper()
	b := &model.Book{Title: title, AuthorID: l.author.ID, ISBN: isbn, PageCount: 120, IsAvailable: true}
	require.NoError(t, l.store.Books().Create(context.Background(), b))
	return b
}

func (l *testLibrary) user(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, IsActive: true}
	require.NoError(t, l.store.Users().Create(context.Background(), u))
	return u
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
