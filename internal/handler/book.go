package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/authors-api/internal/middleware"
	"github.com/iliyamo/authors-api/internal/model"
	"github.com/iliyamo/authors-api/internal/policy"
	"github.com/iliyamo/authors-api/internal/queue"
	"github.com/iliyamo/authors-api/internal/repository"
)

// BookStore is the persistence surface the book handlers need.
type BookStore interface {
	Create(ctx context.Context, b *model.Book) error
	GetByID(ctx context.Context, id uint64) (*model.Book, error)
	List(ctx context.Context) ([]*model.Book, error)
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id uint64) error
}

// BrowsePurger invalidates the public browse cache after book mutations.
type BrowsePurger interface {
	Purge(ctx context.Context) error
}

// BookAuditPublisher emits book audit events; nil disables publishing.
type BookAuditPublisher interface {
	PublishBookRegistered(ctx context.Context, ev queue.BookRegisteredEvent) error
}

// BookHandler bundles dependencies for the book endpoints. Reads are
// public; create/update/delete run behind the JWT and actor middleware.
type BookHandler struct {
	Books BookStore
	Cache BrowsePurger
	Audit BookAuditPublisher
}

func NewBookHandler(books BookStore, cache BrowsePurger, audit BookAuditPublisher) *BookHandler {
	return &BookHandler{Books: books, Cache: cache, Audit: audit}
}

// ----- DTOs -----

type registerBookReq struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Price           *int64 `json:"price"`
	PriceUnit       string `json:"price_unit"`
	Pages           int    `json:"pages"`
	PublicationDate string `json:"publication_date"`
	ISBN            string `json:"isbn"`
	Genre           string `json:"genre"`
	CompanyID       uint64 `json:"company_id"`
}

type updateBookReq struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Price           *int64  `json:"price"`
	PriceUnit       *string `json:"price_unit"`
	Pages           *int    `json:"pages"`
	PublicationDate *string `json:"publication_date"`
	ISBN            *string `json:"isbn"`
	Genre           *string `json:"genre"`
	CompanyID       *uint64 `json:"company_id"`
}

type bookData struct {
	ID              uint64 `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Price           *int64 `json:"price"`
	PriceUnit       string `json:"price_unit"`
	Pages           int    `json:"pages"`
	PublicationDate string `json:"publication_date"`
	ISBN            string `json:"isbn"`
	Genre           string `json:"genre"`
	UserID          uint64 `json:"user_id"`
	CompanyID       uint64 `json:"company_id"`
}

func bookDataFrom(b *model.Book) bookData {
	return bookData{
		ID:              b.ID,
		Title:           b.Title,
		Description:     b.Description,
		Price:           b.Price,
		PriceUnit:       b.PriceUnit,
		Pages:           b.Pages,
		PublicationDate: b.PublicationDate.Format("2006-01-02"),
		ISBN:            b.ISBN,
		Genre:           b.Genre,
		UserID:          b.UserID,
		CompanyID:       b.CompanyID,
	}
}

// parsePublicationDate validates the mandatory YYYY-MM-DD form; time.Parse
// rejects impossible calendar dates like 2024-13-40.
func parsePublicationDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// Register creates a book authored by the acting user. Only authors may
// register books, and validation runs before any write.
func (h *BookHandler) Register(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}
	if !policy.Decide(policy.Actor{ID: actor.ID, Role: actor.Role}, policy.ActionCreate,
		policy.Resource{Kind: policy.KindBook}) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Only authors can register books"})
	}

	var req registerBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.PublicationDate == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Publication date is required"})
	}
	pubDate, err := parsePublicationDate(req.PublicationDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Publication date must be a valid YYYY-MM-DD date"})
	}
	if req.CompanyID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Company is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b := &model.Book{
		Title:           req.Title,
		Description:     req.Description,
		Price:           req.Price,
		PriceUnit:       req.PriceUnit,
		Pages:           req.Pages,
		PublicationDate: pubDate,
		ISBN:            req.ISBN,
		Genre:           req.Genre,
		UserID:          actor.ID,
		CompanyID:       req.CompanyID,
	}
	if err := h.Books.Create(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrISBNExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "ISBN already exists"})
		case errors.Is(err, repository.ErrBadCompanyRef):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Company reference does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create book failed"})
	}

	h.purge(ctx)
	if h.Audit != nil {
		_ = h.Audit.PublishBookRegistered(ctx, queue.BookRegisteredEvent{
			BookID:       b.ID,
			Title:        b.Title,
			ISBN:         b.ISBN,
			AuthorID:     b.UserID,
			CompanyID:    b.CompanyID,
			RegisteredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": fmt.Sprintf("Book '%s' with ID '%d' has been registered", b.Title, b.ID),
		"book":    bookDataFrom(b),
	})
}

// List returns every book. Browsing is public.
func (h *BookHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	books, err := h.Books.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]bookData, 0, len(books))
	for _, b := range books {
		out = append(out, bookDataFrom(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"books": out})
}

// Get returns one book by id. Public.
func (h *BookHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"book": bookDataFrom(b)})
}

// Update applies patch semantics to a book owned by the acting author.
func (h *BookHandler) Update(c echo.Context) error {
	b, done := h.loadOwned(c, policy.ActionUpdate, "You are not authorized to update this book")
	if done {
		return nil
	}

	var req updateBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title != nil {
		b.Title = *req.Title
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.Price != nil {
		b.Price = req.Price
	}
	if req.PriceUnit != nil {
		b.PriceUnit = *req.PriceUnit
	}
	if req.Pages != nil {
		b.Pages = *req.Pages
	}
	if req.ISBN != nil {
		b.ISBN = *req.ISBN
	}
	if req.Genre != nil {
		b.Genre = *req.Genre
	}
	if req.CompanyID != nil {
		b.CompanyID = *req.CompanyID
	}
	if req.PublicationDate != nil {
		pubDate, err := parsePublicationDate(*req.PublicationDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Publication date must be a valid YYYY-MM-DD date"})
		}
		b.PublicationDate = pubDate
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Books.Update(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrISBNExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "ISBN already exists"})
		case errors.Is(err, repository.ErrBadCompanyRef):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Company reference does not exist"})
		case errors.Is(err, repository.ErrBookNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	h.purge(ctx)
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("Book with ID %d has been updated", b.ID)})
}

// Delete removes a book owned by the acting author.
func (h *BookHandler) Delete(c echo.Context) error {
	b, done := h.loadOwned(c, policy.ActionDelete, "You are not authorized to delete this book")
	if done {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Books.Delete(ctx, b.ID); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	h.purge(ctx)
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("Book with ID %d has been deleted", b.ID)})
}

// loadOwned parses :id, loads the book and applies the ownership policy.
// It reports done=true when it already wrote an error response.
func (h *BookHandler) loadOwned(c echo.Context, action policy.Action, denyMsg string) (*model.Book, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
		return nil, true
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
		return nil, true
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "Book not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		return nil, true
	}
	if !policy.Decide(policy.Actor{ID: actor.ID, Role: actor.Role}, action,
		policy.Resource{Kind: policy.KindBook, OwnerID: b.UserID}) {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": denyMsg})
		return nil, true
	}
	return b, false
}

func (h *BookHandler) purge(ctx context.Context) {
	if h.Cache != nil {
		_ = h.Cache.Purge(ctx)
	}
}
