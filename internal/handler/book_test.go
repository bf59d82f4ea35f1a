package handler_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/authors-api/internal/model"
)

func seedCompany(t *testing.T, te *env, ownerID uint64) uint64 {
	t.Helper()
	co := &model.Company{
		Name:        fmt.Sprintf("Press %d", len(te.companies.byID)+1),
		Origin:      "Kampala",
		Description: "publishing house",
		UserID:      ownerID,
	}
	require.NoError(t, te.companies.Create(context.Background(), co))
	return co.ID
}

func registerBook(t *testing.T, te *env, token, isbn string) uint64 {
	t.Helper()
	rec := te.do(t, "POST", "/api/v1/book/register", token, map[string]any{
		"title":            "The Art of Testing",
		"description":      "a field guide",
		"price":            45000,
		"pages":            321,
		"publication_date": "2008-05-15",
		"isbn":             isbn,
		"genre":            "non-fiction",
		"company_id":       1,
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	book, _ := decode(t, rec)["book"].(map[string]any)
	return uint64(book["id"].(float64))
}

func bookPath(id uint64) string {
	return fmt.Sprintf("/api/v1/book/%d", id)
}

func TestRegisterBookAuthorsOnly(t *testing.T) {
	te := newEnv(t)
	te.register(t, "Reader", "reader@example.com", "user")
	te.register(t, "Root", "root@example.com", "admin")

	body := map[string]any{
		"title": "Nope", "publication_date": "2020-01-01", "isbn": "978-0", "company_id": 1,
	}
	for _, email := range []string{"reader@example.com", "root@example.com"} {
		rec := te.do(t, "POST", "/api/v1/book/register", te.login(t, email), body)
		assert.Equal(t, 403, rec.Code)
		assert.Equal(t, "Only authors can register books", decode(t, rec)["error"])
	}
	assert.Equal(t, 401, te.do(t, "POST", "/api/v1/book/register", "", body).Code)
	assert.Empty(t, te.books.byID)
}

func TestRegisterBookRejectsBadDate(t *testing.T) {
	te := newEnv(t)
	id := te.register(t, "Ada", "ada@example.com", "author")
	token := te.login(t, "ada@example.com")
	seedCompany(t, te, id)

	for _, date := range []string{"2024-13-40", "15-05-2008", "2024-02-30", "yesterday"} {
		rec := te.do(t, "POST", "/api/v1/book/register", token, map[string]any{
			"title": "Bad Date", "publication_date": date, "isbn": "978-7", "company_id": 1,
		})
		assert.Equal(t, 400, rec.Code, date)
	}
	rec := te.do(t, "POST", "/api/v1/book/register", token, map[string]any{
		"title": "No Date", "isbn": "978-7", "company_id": 1,
	})
	assert.Equal(t, 400, rec.Code)

	// Nothing persisted along the way.
	assert.Empty(t, te.books.byID)
}

func TestRegisterBookRequiresCompany(t *testing.T) {
	te := newEnv(t)
	te.register(t, "Ada", "ada@example.com", "author")
	token := te.login(t, "ada@example.com")

	rec := te.do(t, "POST", "/api/v1/book/register", token, map[string]any{
		"title": "Orphan", "publication_date": "2020-01-01", "isbn": "978-6",
	})
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "Company is required", decode(t, rec)["error"])
}

func TestBookISBNRoundTripAndConflict(t *testing.T) {
	te := newEnv(t)
	id := te.register(t, "Ada", "ada@example.com", "author")
	token := te.login(t, "ada@example.com")
	seedCompany(t, te, id)

	bookID := registerBook(t, te, token, "978-3-16-148410-0")

	// Public read returns the stored fields intact, UGX default included.
	rec := te.do(t, "GET", bookPath(bookID), "", nil)
	require.Equal(t, 200, rec.Code)
	book, _ := decode(t, rec)["book"].(map[string]any)
	assert.Equal(t, "978-3-16-148410-0", book["isbn"])
	assert.Equal(t, "2008-05-15", book["publication_date"])
	assert.Equal(t, "UGX", book["price_unit"])
	assert.Equal(t, float64(id), book["user_id"])

	// Same ISBN again is a conflict.
	rec = te.do(t, "POST", "/api/v1/book/register", token, map[string]any{
		"title": "Copycat", "publication_date": "2010-01-01",
		"isbn": "978-3-16-148410-0", "company_id": 1,
	})
	assert.Equal(t, 409, rec.Code)
	assert.Equal(t, "ISBN already exists", decode(t, rec)["error"])
}

func TestBrowseBooksIsPublic(t *testing.T) {
	te := newEnv(t)
	id := te.register(t, "Ada", "ada@example.com", "author")
	token := te.login(t, "ada@example.com")
	seedCompany(t, te, id)
	registerBook(t, te, token, "978-1")
	registerBook(t, te, token, "978-2")

	rec := te.do(t, "GET", "/api/v1/book/", "", nil)
	require.Equal(t, 200, rec.Code)
	books, _ := decode(t, rec)["books"].([]any)
	assert.Len(t, books, 2)

	assert.Equal(t, 404, te.do(t, "GET", bookPath(999), "", nil).Code)
	assert.Equal(t, 400, te.do(t, "GET", "/api/v1/book/abc", "", nil).Code)
}

func TestBookMutationOwnerOnly(t *testing.T) {
	te := newEnv(t)
	adaID := te.register(t, "Ada", "ada@example.com", "author")
	te.register(t, "Eve", "eve@example.com", "author")
	te.register(t, "Root", "root@example.com", "admin")
	ada := te.login(t, "ada@example.com")
	eve := te.login(t, "eve@example.com")
	admin := te.login(t, "root@example.com")
	seedCompany(t, te, adaID)
	bookID := registerBook(t, te, ada, "978-5")

	patch := map[string]any{"title": "Hijacked"}
	// Another author and even an admin are turned away.
	assert.Equal(t, 403, te.do(t, "PUT", bookPath(bookID), eve, patch).Code)
	assert.Equal(t, 403, te.do(t, "PUT", bookPath(bookID), admin, patch).Code)
	assert.Equal(t, 403, te.do(t, "DELETE", bookPath(bookID), eve, nil).Code)
	assert.Equal(t, 403, te.do(t, "DELETE", bookPath(bookID), admin, nil).Code)

	assert.Equal(t, 200, te.do(t, "PUT", bookPath(bookID), ada, patch).Code)
	assert.Equal(t, 200, te.do(t, "DELETE", bookPath(bookID), ada, nil).Code)
	assert.Empty(t, te.books.byID)
}

func TestUpdateBookPatchSemantics(t *testing.T) {
	te := newEnv(t)
	id := te.register(t, "Ada", "ada@example.com", "author")
	token := te.login(t, "ada@example.com")
	seedCompany(t, te, id)
	bookID := registerBook(t, te, token, "978-4")

	rec := te.do(t, "PUT", bookPath(bookID), token, map[string]any{"genre": "reference"})
	require.Equal(t, 200, rec.Code)

	b, err := te.books.GetByID(context.Background(), bookID)
	require.NoError(t, err)
	assert.Equal(t, "reference", b.Genre)
	assert.Equal(t, "The Art of Testing", b.Title) // omitted field kept
	assert.Equal(t, 321, b.Pages)

	// A malformed date in a patch is rejected without touching the record.
	rec = te.do(t, "PUT", bookPath(bookID), token, map[string]any{"publication_date": "2024-13-40"})
	assert.Equal(t, 400, rec.Code)
	b, err = te.books.GetByID(context.Background(), bookID)
	require.NoError(t, err)
	assert.Equal(t, "2008-05-15", b.PublicationDate.Format("2006-01-02"))
}
