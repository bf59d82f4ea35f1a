package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/authors-api/internal/config"
	"github.com/iliyamo/authors-api/internal/handler"
	"github.com/iliyamo/authors-api/internal/model"
	"github.com/iliyamo/authors-api/internal/repository"
	"github.com/iliyamo/authors-api/internal/router"
)

const testSecret = "handler-test-secret"

// In-memory stores standing in for the MySQL repositories. They enforce the
// same uniqueness rules and return the same sentinel errors, so the handlers
// exercise their full error paths without a database.

type memUsers struct {
	mu    sync.Mutex
	seq   uint64
	byID  map[uint64]*model.User
	books *memBooks

	failDelete bool // simulates a transaction that rolls back
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]*model.User{}} }

func (s *memUsers) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, prev := range s.byID {
		if prev.Email == u.Email {
			return repository.ErrEmailExists
		}
		if prev.Contact == u.Contact {
			return repository.ErrContactExists
		}
	}
	s.seq++
	u.ID = s.seq
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func (s *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) List(_ context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.User, 0, len(s.byID))
	for _, u := range s.byID {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memUsers) Update(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for id, prev := range s.byID {
		if id == u.ID {
			continue
		}
		if prev.Email == u.Email {
			return repository.ErrEmailExists
		}
		if prev.Contact == u.Contact {
			return repository.ErrContactExists
		}
	}
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

// Delete mirrors the repository's transactional cascade: either the user and
// all their books go, or nothing does.
func (s *memUsers) Delete(_ context.Context, id uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return 0, repository.ErrUserNotFound
	}
	if s.failDelete {
		return 0, errors.New("tx aborted")
	}
	n := s.books.deleteByAuthor(id)
	delete(s.byID, id)
	return n, nil
}

type memBooks struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]*model.Book
}

func newMemBooks() *memBooks { return &memBooks{byID: map[uint64]*model.Book{}} }

func (s *memBooks) Create(_ context.Context, b *model.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, prev := range s.byID {
		if prev.ISBN == b.ISBN {
			return repository.ErrISBNExists
		}
	}
	s.seq++
	b.ID = s.seq
	if b.PriceUnit == "" {
		b.PriceUnit = model.DefaultPriceUnit
	}
	cp := *b
	s.byID[b.ID] = &cp
	return nil
}

func (s *memBooks) GetByID(_ context.Context, id uint64) (*model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memBooks) List(_ context.Context) ([]*model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Book, 0, len(s.byID))
	for _, b := range s.byID {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memBooks) Update(_ context.Context, b *model.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[b.ID]; !ok {
		return repository.ErrBookNotFound
	}
	for id, prev := range s.byID {
		if id != b.ID && prev.ISBN == b.ISBN {
			return repository.ErrISBNExists
		}
	}
	cp := *b
	s.byID[b.ID] = &cp
	return nil
}

func (s *memBooks) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repository.ErrBookNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memBooks) deleteByAuthor(userID uint64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, b := range s.byID {
		if b.UserID == userID {
			delete(s.byID, id)
			n++
		}
	}
	return n
}

type memCompanies struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]*model.Company
}

func newMemCompanies() *memCompanies { return &memCompanies{byID: map[uint64]*model.Company{}} }

func (s *memCompanies) Create(_ context.Context, co *model.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, prev := range s.byID {
		if prev.Name == co.Name {
			return repository.ErrCompanyNameExists
		}
	}
	s.seq++
	co.ID = s.seq
	cp := *co
	s.byID[co.ID] = &cp
	return nil
}

func (s *memCompanies) GetByID(_ context.Context, id uint64) (*model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	co, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrCompanyNotFound
	}
	cp := *co
	return &cp, nil
}

func (s *memCompanies) List(_ context.Context) ([]*model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Company, 0, len(s.byID))
	for _, co := range s.byID {
		cp := *co
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memCompanies) Update(_ context.Context, co *model.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[co.ID]; !ok {
		return repository.ErrCompanyNotFound
	}
	for id, prev := range s.byID {
		if id != co.ID && prev.Name == co.Name {
			return repository.ErrCompanyNameExists
		}
	}
	cp := *co
	s.byID[co.ID] = &cp
	return nil
}

func (s *memCompanies) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repository.ErrCompanyNotFound
	}
	delete(s.byID, id)
	return nil
}

// memLedger is the revocation ledger: revoking twice keeps one entry.
type memLedger struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newMemLedger() *memLedger { return &memLedger{revoked: map[string]bool{}} }

func (l *memLedger) Revoke(_ context.Context, jti string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = true
	return nil
}

func (l *memLedger) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.revoked[jti], nil
}

func (l *memLedger) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.revoked)
}

// env wires a full echo instance with the real routes and middleware over
// the in-memory stores.
type env struct {
	e         *echo.Echo
	users     *memUsers
	books     *memBooks
	companies *memCompanies
	ledger    *memLedger
	auth      *handler.AuthHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	users := newMemUsers()
	books := newMemBooks()
	users.books = books
	companies := newMemCompanies()
	ledger := newMemLedger()

	cfg := config.Config{
		JWTSecret:    testSecret,
		AccessTTLMin: 15,
		BcryptCost:   4, // min cost keeps the suite fast
	}
	auth := handler.NewAuthHandler(cfg, users, ledger, nil)

	e := echo.New()
	router.Register(e, router.Deps{
		JWTSecret: testSecret,
		Revoked:   ledger,
		Users:     users,
		Auth:      auth,
		Books:     handler.NewBookHandler(books, nil, nil),
		Companies: handler.NewCompanyHandler(companies),
	})
	return &env{e: e, users: users, books: books, companies: companies, ledger: ledger, auth: auth}
}

func (te *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	te.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// register creates an account through the API and returns its id.
func (te *env) register(t *testing.T, first, email, role string) uint64 {
	t.Helper()
	rec := te.do(t, "POST", "/api/v1/auth/register", "", map[string]any{
		"first_name": first,
		"last_name":  "Tester",
		"contact":    "07" + fmt.Sprintf("%08d", len(te.users.byID)+1),
		"email":      email,
		"password":   "secret123",
		"user_type":  role,
		"biography":  "writes things",
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	u, err := te.users.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u.ID
}

// login returns an access token for the account.
func (te *env) login(t *testing.T, email string) string {
	t.Helper()
	rec := te.do(t, "POST", "/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}
