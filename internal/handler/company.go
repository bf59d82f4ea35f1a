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
	"github.com/iliyamo/authors-api/internal/repository"
)

// CompanyStore is the persistence surface the company handlers need.
type CompanyStore interface {
	Create(ctx context.Context, co *model.Company) error
	GetByID(ctx context.Context, id uint64) (*model.Company, error)
	List(ctx context.Context) ([]*model.Company, error)
	Update(ctx context.Context, co *model.Company) error
	Delete(ctx context.Context, id uint64) error
}

// CompanyHandler bundles dependencies for the company endpoints. All of
// them run behind the JWT and actor middleware.
type CompanyHandler struct {
	Companies CompanyStore
}

func NewCompanyHandler(companies CompanyStore) *CompanyHandler {
	return &CompanyHandler{Companies: companies}
}

// ----- DTOs -----

type registerCompanyReq struct {
	Name        string `json:"name"`
	Origin      string `json:"origin"`
	Description string `json:"description"`
}

type updateCompanyReq struct {
	Name        *string `json:"name"`
	Origin      *string `json:"origin"`
	Description *string `json:"description"`
}

type companyData struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Origin      string `json:"origin"`
	Description string `json:"description"`
	UserID      uint64 `json:"user_id"`
}

func companyDataFrom(co *model.Company) companyData {
	return companyData{
		ID:          co.ID,
		Name:        co.Name,
		Origin:      co.Origin,
		Description: co.Description,
		UserID:      co.UserID,
	}
}

// Register creates a company owned by the acting user. Duplicate names are
// a conflict (409), not a silent success.
func (h *CompanyHandler) Register(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}
	if !policy.Decide(policy.Actor{ID: actor.ID, Role: actor.Role}, policy.ActionCreate,
		policy.Resource{Kind: policy.KindCompany}) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var req registerCompanyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	switch {
	case req.Name == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Company name is required"})
	case req.Origin == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Company origin is required"})
	case req.Description == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Company description is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	co := &model.Company{
		Name:        req.Name,
		Origin:      req.Origin,
		Description: req.Description,
		UserID:      actor.ID,
	}
	if err := h.Companies.Create(ctx, co); err != nil {
		if errors.Is(err, repository.ErrCompanyNameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "Company name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create company failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": fmt.Sprintf("Company '%s' with ID '%d' has been registered", co.Name, co.ID),
		"company": companyDataFrom(co),
	})
}

// List returns every company. The route is admin-gated by RequireRole.
func (h *CompanyHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	companies, err := h.Companies.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]companyData, 0, len(companies))
	for _, co := range companies {
		out = append(out, companyDataFrom(co))
	}
	return c.JSON(http.StatusOK, echo.Map{"companies": out})
}

// Get returns one company, visible to its owner and to admins.
func (h *CompanyHandler) Get(c echo.Context) error {
	co, done := h.loadOwned(c, policy.ActionRead, "You are not authorized to access this company")
	if done {
		return nil
	}
	return c.JSON(http.StatusOK, companyDataFrom(co))
}

// Update applies patch semantics to a company. Only the owner may update;
// admins deliberately get no override here.
func (h *CompanyHandler) Update(c echo.Context) error {
	co, done := h.loadOwned(c, policy.ActionUpdate, "You are not authorized to update this company")
	if done {
		return nil
	}

	var req updateCompanyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name != nil {
		co.Name = *req.Name
	}
	if req.Origin != nil {
		co.Origin = *req.Origin
	}
	if req.Description != nil {
		co.Description = *req.Description
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Companies.Update(ctx, co); err != nil {
		switch {
		case errors.Is(err, repository.ErrCompanyNameExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "Company name already exists"})
		case errors.Is(err, repository.ErrCompanyNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Company not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Company updated successfully"})
}

// Delete removes a company. Owner only.
func (h *CompanyHandler) Delete(c echo.Context) error {
	co, done := h.loadOwned(c, policy.ActionDelete, "You are not authorized to delete this company")
	if done {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Companies.Delete(ctx, co.ID); err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Company not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Company deleted successfully"})
}

// loadOwned parses :id, loads the company and applies the policy. It
// reports done=true when it already wrote an error response.
func (h *CompanyHandler) loadOwned(c echo.Context, action policy.Action, denyMsg string) (*model.Company, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
		return nil, true
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid company id"})
		return nil, true
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	co, err := h.Companies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "Company not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		return nil, true
	}
	if !policy.Decide(policy.Actor{ID: actor.ID, Role: actor.Role}, action,
		policy.Resource{Kind: policy.KindCompany, OwnerID: co.UserID}) {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": denyMsg})
		return nil, true
	}
	return co, false
}
