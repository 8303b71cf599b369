// Package memory implements repository.Store in process memory for tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"booklibrary/internal/model"
	"booklibrary/internal/repository"
)

type state struct {
	seq     uint
	authors map[uint]model.Author
	books   map[uint]model.Book
	loans   map[uint]model.Loan
	users   map[uint]model.User
	tokens  map[string]model.BlacklistedToken
}

func newState() *state {
	return &state{
		authors: make(map[uint]model.Author),
		books:   make(map[uint]model.Book),
		loans:   make(map[uint]model.Loan),
		users:   make(map[uint]model.User),
		tokens:  make(map[string]model.BlacklistedToken),
	}
}

func (s *state) clone() *state {
	c := &state{
		seq:     s.seq,
		authors: make(map[uint]model.Author, len(s.authors)),
		books:   make(map[uint]model.Book, len(s.books)),
		loans:   make(map[uint]model.Loan, len(s.loans)),
		users:   make(map[uint]model.User, len(s.users)),
		tokens:  make(map[string]model.BlacklistedToken, len(s.tokens)),
	}
	for k, v := range s.authors {
		c.authors[k] = v
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	return c
}

func (s *state) nextID() uint {
	s.seq++
	return s.seq
}

// Store is an in-memory repository.Store. Every operation and every
// transaction is serialized on a single mutex.
type Store struct {
	mu   *sync.Mutex
	data **state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	data := newState()
	return &Store{mu: &sync.Mutex{}, data: &data}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) state() *state {
	return *s.data
}

func (s *Store) Authors() repository.AuthorRepository { return authorRepo{s} }
func (s *Store) Books() repository.BookRepository     { return bookRepo{s} }
func (s *Store) Loans() repository.LoanRepository     { return loanRepo{s} }
func (s *Store) Users() repository.UserRepository     { return userRepo{s} }
func (s *Store) Tokens() repository.TokenRepository   { return tokenRepo{s} }

// WithTransaction holds the store lock for the duration of fn and restores the
// previous contents when fn fails.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state().clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true}
	if err := fn(ctx, tx); err != nil {
		*s.data = snapshot
		return err
	}
	return nil
}

func (s *state) withAuthor(b model.Book) model.Book {
	b.Author = s.authors[b.AuthorID]
	return b
}

func (s *state) withRelations(l model.Loan) model.Loan {
	l.Book = s.withAuthor(s.books[l.BookID])
	l.Borrower = s.users[l.BorrowerID]
	return l
}

type authorRepo struct{ s *Store }

func (r authorRepo) Create(_ context.Context, author *model.Author) error {
	defer r.s.lock()()
	st := r.s.state()
	now := time.Now()
	author.ID = st.nextID()
	author.CreatedAt, author.UpdatedAt = now, now
	st.authors[author.ID] = *author
	return nil
}

func (r authorRepo) FindByID(_ context.Context, id uint) (*model.Author, error) {
	defer r.s.lock()()
	a, ok := r.s.state().authors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r authorRepo) List(_ context.Context) ([]model.Author, error) {
	defer r.s.lock()()
	authors := make([]model.Author, 0, len(r.s.state().authors))
	for _, a := range r.s.state().authors {
		authors = append(authors, a)
	}
	sort.Slice(authors, func(i, j int) bool {
		if !authors[i].CreatedAt.Equal(authors[j].CreatedAt) {
			return authors[i].CreatedAt.After(authors[j].CreatedAt)
		}
		return authors[i].ID > authors[j].ID
	})
	return authors, nil
}

func (r authorRepo) Delete(_ context.Context, id uint) error {
	defer r.s.lock()()
	st := r.s.state()
	if _, ok := st.authors[id]; !ok {
		return repository.ErrNotFound
	}
	for _, b := range st.books {
		if b.AuthorID == id {
			return repository.ErrReferenced
		}
	}
	delete(st.authors, id)
	return nil
}

type bookRepo struct{ s *Store }

func (r bookRepo) Create(_ context.Context, book *model.Book) error {
	defer r.s.lock()()
	st := r.s.state()
	if _, ok := st.authors[book.AuthorID]; !ok {
		return repository.ErrReferenced
	}
	for _, b := range st.books {
		if b.ISBN == book.ISBN {
			return repository.ErrDuplicate
		}
	}
	now := time.Now()
	book.ID = st.nextID()
	book.CreatedAt, book.UpdatedAt = now, now
	stored := *book
	stored.Author = model.Author{}
	st.books[book.ID] = stored
	return nil
}

func (r bookRepo) FindByID(_ context.Context, id uint) (*model.Book, error) {
	defer r.s.lock()()
	st := r.s.state()
	b, ok := st.books[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b = st.withAuthor(b)
	return &b, nil
}

func (r bookRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Book, error) {
	return r.FindByID(ctx, id)
}

func (r bookRepo) Availability(_ context.Context, id uint) (bool, error) {
	defer r.s.lock()()
	b, ok := r.s.state().books[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	return b.IsAvailable, nil
}

func (r bookRepo) List(_ context.Context, filter repository.BookFilter, offset, limit int) ([]model.Book, int64, error) {
	defer r.s.lock()()
	st := r.s.state()
	search := strings.ToLower(filter.Search)

	matched := make([]model.Book, 0)
	for _, b := range st.books {
		if filter.IsAvailable != nil && b.IsAvailable != *filter.IsAvailable {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(b.Title), search) {
			continue
		}
		matched = append(matched, st.withAuthor(b))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Title != matched[j].Title {
			return matched[i].Title < matched[j].Title
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []model.Book{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r bookRepo) SetAvailability(_ context.Context, id uint, available bool) error {
	defer r.s.lock()()
	st := r.s.state()
	b, ok := st.books[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.IsAvailable = available
	b.UpdatedAt = time.Now()
	st.books[id] = b
	return nil
}

func (r bookRepo) Delete(_ context.Context, id uint) error {
	defer r.s.lock()()
	st := r.s.state()
	if _, ok := st.books[id]; !ok {
		return repository.ErrNotFound
	}
	for lid, l := range st.loans {
		if l.BookID == id {
			delete(st.loans, lid)
		}
	}
	delete(st.books, id)
	return nil
}

type loanRepo struct{ s *Store }

func (r loanRepo) Create(_ context.Context, loan *model.Loan) error {
	defer r.s.lock()()
	st := r.s.state()
	if _, ok := st.books[loan.BookID]; !ok {
		return repository.ErrReferenced
	}
	if _, ok := st.users[loan.BorrowerID]; !ok {
		return repository.ErrReferenced
	}
	now := time.Now()
	loan.ID = st.nextID()
	loan.CreatedAt, loan.UpdatedAt = now, now
	stored := *loan
	stored.Book, stored.Borrower = model.Book{}, model.User{}
	st.loans[loan.ID] = stored
	return nil
}

func (r loanRepo) FindByID(_ context.Context, id uint) (*model.Loan, error) {
	defer r.s.lock()()
	st := r.s.state()
	l, ok := st.loans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	l = st.withRelations(l)
	return &l, nil
}

func (r loanRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Loan, error) {
	return r.FindByID(ctx, id)
}

func (r loanRepo) ExistsActive(_ context.Context, bookID, borrowerID uint) (bool, error) {
	defer r.s.lock()()
	for _, l := range r.s.state().loans {
		if l.BookID == bookID && l.BorrowerID == borrowerID && !l.IsReturned {
			return true, nil
		}
	}
	return false, nil
}

func (r loanRepo) MarkReturned(_ context.Context, id uint, at time.Time) error {
	defer r.s.lock()()
	st := r.s.state()
	l, ok := st.loans[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.IsReturned = true
	l.ReturnedAt = &at
	l.UpdatedAt = time.Now()
	st.loans[id] = l
	return nil
}

func (r loanRepo) List(_ context.Context, filter repository.LoanFilter) ([]model.Loan, error) {
	defer r.s.lock()()
	st := r.s.state()

	loans := make([]model.Loan, 0)
	for _, l := range st.loans {
		if filter.BorrowerID != 0 && l.BorrowerID != filter.BorrowerID {
			continue
		}
		switch filter.Status {
		case model.LoanStatusActive:
			if l.IsReturned {
				continue
			}
		case model.LoanStatusReturned:
			if !l.IsReturned {
				continue
			}
		case model.LoanStatusOverdue:
			if !l.IsOverdue(filter.Today) {
				continue
			}
		}
		loans = append(loans, st.withRelations(l))
	}
	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].LoanDate.Equal(loans[j].LoanDate) {
			return loans[i].LoanDate.After(loans[j].LoanDate)
		}
		return loans[i].ID > loans[j].ID
	})
	return loans, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *model.User) error {
	defer r.s.lock()()
	st := r.s.state()
	for _, u := range st.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	now := time.Now()
	user.ID = st.nextID()
	user.CreatedAt, user.UpdatedAt = now, now
	st.users[user.ID] = *user
	return nil
}

func (r userRepo) FindByID(_ context.Context, id uint) (*model.User, error) {
	defer r.s.lock()()
	u, ok := r.s.state().users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.state().users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type tokenRepo struct{ s *Store }

func (r tokenRepo) Create(_ context.Context, token *model.BlacklistedToken) error {
	defer r.s.lock()()
	st := r.s.state()
	if _, ok := st.tokens[token.JTI]; ok {
		return nil
	}
	token.ID = st.nextID()
	token.CreatedAt = time.Now()
	st.tokens[token.JTI] = *token
	return nil
}

func (r tokenRepo) Exists(_ context.Context, jti string) (bool, error) {
	defer r.s.lock()()
	_, ok := r.s.state().tokens[jti]
	return ok, nil
}

func (r tokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	defer r.s.lock()()
	st := r.s.state()
	var n int64
	for jti, t := range st.tokens {
		if t.ExpiresAt.Before(now) {
			delete(st.tokens, jti)
			n++
		}
	}
	return n, nil
}
