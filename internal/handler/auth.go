package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/authors-api/internal/config"
	"github.com/iliyamo/authors-api/internal/middleware"
	"github.com/iliyamo/authors-api/internal/model"
	"github.com/iliyamo/authors-api/internal/policy"
	"github.com/iliyamo/authors-api/internal/queue"
	"github.com/iliyamo/authors-api/internal/repository"
	"github.com/iliyamo/authors-api/internal/utils"
)

// UserStore is the credential store surface the auth handlers need.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uint64) (int64, error)
}

// TokenRevoker is the write side of the revocation ledger.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string) error
}

// AuditPublisher emits domain events to the audit queue. Nil disables
// publishing; failures never fail the request.
type AuditPublisher interface {
	PublishUserDeleted(ctx context.Context, ev queue.UserDeletedEvent) error
}

// AuthHandler bundles dependencies for registration, login, logout and the
// user CRUD endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Users   UserStore
	Revoked TokenRevoker
	Audit   AuditPublisher
}

func NewAuthHandler(cfg config.Config, users UserStore, revoked TokenRevoker, audit AuditPublisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Revoked: revoked, Audit: audit}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Contact   string `json:"contact"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserType  string `json:"user_type"`
	Biography string `json:"biography"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserReq struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Contact   *string `json:"contact"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	UserType  *string `json:"user_type"`
	Biography *string `json:"biography"`
}

type userData struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Contact   string `json:"contact"`
	UserType  string `json:"user_type"`
	Biography string `json:"biography"`
}

func userDataFrom(u *model.User) userData {
	return userData{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Contact:   u.Contact,
		UserType:  string(u.Role),
		Biography: u.Biography,
	}
}

// Register creates a user account. Role defaults to "user"; the biography
// is only kept when the new account is an author. The password hash never
// appears in the response.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.FirstName == "" || req.LastName == "" || req.Contact == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "All fields are required"})
	}
	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Password is too short"})
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email is not valid"})
	}
	role, ok := model.ParseRole(req.UserType)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown user type"})
	}
	biography := ""
	if role == model.RoleAuthor {
		biography = req.Biography
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u := &model.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Contact:      req.Contact,
		PasswordHash: hash,
		Role:         role,
		Biography:    biography,
	}
	if err := h.Users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "Email already exists"})
		case errors.Is(err, repository.ErrContactExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "Contact already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": fmt.Sprintf("%s %s has been successfully created as %s", u.FirstName, u.LastName, u.Role),
		"user": echo.Map{
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"email":      u.Email,
			"contact":    u.Contact,
			"type":       string(u.Role),
			"biography":  u.Biography,
			"created_at": u.CreatedAt,
		},
	})
}

// Login verifies credentials and issues an access token whose sub claim is
// the user's id. A missing account and a wrong password are distinct
// outcomes (404 vs 401).
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing email or password"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid password"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":      fmt.Sprintf("Login successful. You have logged in as %s", u.Role),
		"access_token": access.Token,
	})
}

// Logout revokes the current token's jti. Revoking twice is a no-op, so
// replaying a logout still returns 200 while the token stays dead.
func (h *AuthHandler) Logout(c echo.Context) error {
	jti, ok := c.Get("jti").(string)
	if !ok || jti == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Revoked.Revoke(ctx, jti); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful"})
}

// ListUsers returns every account. The route is admin-gated by RequireRole.
func (h *AuthHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userData, 0, len(users))
	for _, u := range users {
		out = append(out, userDataFrom(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// GetUser returns one account, visible to the account itself and to admins.
func (h *AuthHandler) GetUser(c echo.Context) error {
	target, done := h.loadTarget(c, policy.ActionRead, "You are not authorized to access this user data")
	if done {
		return nil
	}
	return c.JSON(http.StatusOK, userDataFrom(target))
}

// UpdateUser applies patch semantics: only the supplied fields overwrite
// the stored record, a supplied password is re-hashed, everything else
// keeps its prior value.
func (h *AuthHandler) UpdateUser(c echo.Context) error {
	target, done := h.loadTarget(c, policy.ActionUpdate, "You are not authorized to update this user")
	if done {
		return nil
	}

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.FirstName != nil {
		target.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		target.LastName = *req.LastName
	}
	if req.Contact != nil {
		target.Contact = *req.Contact
	}
	if req.Email != nil {
		target.Email = *req.Email
	}
	if req.Biography != nil {
		target.Biography = *req.Biography
	}
	if req.UserType != nil {
		role, ok := model.ParseRole(*req.UserType)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown user type"})
		}
		target.Role = role
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Password is too short"})
		}
		hash, err := utils.HashPassword(*req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		target.PasswordHash = hash
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Update(ctx, target); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "Email already exists"})
		case errors.Is(err, repository.ErrContactExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "Contact already exists"})
		case errors.Is(err, repository.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User updated successfully"})
}

// DeleteUser removes the account and every book it authored in a single
// transaction.
func (h *AuthHandler) DeleteUser(c echo.Context) error {
	target, done := h.loadTarget(c, policy.ActionDelete, "You are not authorized to delete this user")
	if done {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	booksDeleted, err := h.Users.Delete(ctx, target.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete user"})
	}

	if h.Audit != nil {
		_ = h.Audit.PublishUserDeleted(ctx, queue.UserDeletedEvent{
			UserID:       target.ID,
			Email:        target.Email,
			BooksDeleted: booksDeleted,
			DeletedAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User and associated books deleted successfully"})
}

// loadTarget parses :id, loads the target user and applies the policy. It
// reports done=true when it already wrote an error response.
func (h *AuthHandler) loadTarget(c echo.Context, action policy.Action, denyMsg string) (*model.User, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
		return nil, true
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
		return nil, true
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		return nil, true
	}
	if !policy.Decide(policy.Actor{ID: actor.ID, Role: actor.Role}, action,
		policy.Resource{Kind: policy.KindUser, OwnerID: target.ID}) {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": denyMsg})
		return nil, true
	}
	return target, false
}
