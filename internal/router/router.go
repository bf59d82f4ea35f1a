// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/authors-api/internal/handler"
	"github.com/iliyamo/authors-api/internal/middleware"
	"github.com/iliyamo/authors-api/internal/model"
)

// Deps carries everything route registration needs.
type Deps struct {
	JWTSecret string
	Revoked   middleware.RevocationChecker
	Users     middleware.ActorStore
	Auth      *handler.AuthHandler
	Books     *handler.BookHandler
	Companies *handler.CompanyHandler
	Cache     *middleware.BrowseCache
}

// Register mounts all routes on e. Protected groups run JWTAuth (signature,
// expiry, revocation ledger) followed by LoadActor (credential store is the
// system of record for the role); admin-only list routes additionally pass
// RequireRole. Book browsing stays public and is fronted by the Redis
// browse cache when one is configured.
func Register(e *echo.Echo, d Deps) {
	e.GET("/", handler.Home)
	e.GET("/healthz", handler.Health)

	authn := []echo.MiddlewareFunc{
		middleware.JWTAuth(d.JWTSecret, d.Revoked),
		middleware.LoadActor(d.Users),
	}
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	// Registration and login mint sessions; everything else under /auth
	// requires one.
	auth := e.Group("/api/v1/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/logout", d.Auth.Logout, authn...)
	auth.GET("/users/", d.Auth.ListUsers, append(authn, adminOnly)...)
	auth.GET("/user/:id", d.Auth.GetUser, authn...)
	auth.PUT("/user/:id", d.Auth.UpdateUser, authn...)
	auth.DELETE("/user/:id", d.Auth.DeleteUser, authn...)

	book := e.Group("/api/v1/book")
	book.POST("/register", d.Books.Register, authn...)
	book.PUT("/:id", d.Books.Update, authn...)
	book.DELETE("/:id", d.Books.Delete, authn...)
	if d.Cache != nil {
		browse := d.Cache.Middleware()
		book.GET("/", d.Books.List, browse)
		book.GET("/:id", d.Books.Get, browse)
	} else {
		book.GET("/", d.Books.List)
		book.GET("/:id", d.Books.Get)
	}

	company := e.Group("/api/v1/company", authn...)
	company.POST("/register", d.Companies.Register)
	company.GET("/", d.Companies.List, adminOnly)
	company.GET("/:id", d.Companies.Get)
	company.PUT("/:id", d.Companies.Update)
	company.DELETE("/:id", d.Companies.Delete)
}
